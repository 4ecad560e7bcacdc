package benchmarks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/config"
	"github.com/conduit-lang/mapper/internal/gateway"
	"github.com/conduit-lang/mapper/internal/mapper/compare"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/mediator"
	"github.com/conduit-lang/mapper/internal/mapper/model"
	"github.com/conduit-lang/mapper/internal/mapper/schemafile"
	"github.com/conduit-lang/mapper/internal/web/middleware"
	"github.com/conduit-lang/mapper/internal/web/router"
)

func documents(n int) []any {
	docs := make([]any, n)
	for i := range docs {
		docs[i] = map[string]any{
			"id":         int64(i),
			"first_name": fmt.Sprintf("owner-%d", i),
			"price":      fmt.Sprintf("%d.50", i*10),
			"city":       []string{"Lisbon", "Porto", "Faro"}[i%3],
			"created_at": "2024-03-01",
		}
	}
	return docs
}

func storeSchema() *model.Schema {
	s := model.New()
	s.Attribute("id")
	s.Attribute("first_name").As("ownerName")
	s.Attribute("price").Type(model.Number)
	s.Attribute("?formatted").Copy("price").Format(model.NumberFormat("$0,0.00"))
	s.Attribute("created_at").As("created").Format(model.DateFormat{From: "YYYY-MM-DD", To: "MMM. Do, YYYY"})
	return s
}

// BenchmarkBuild measures mapping a list through a schema with a copy and
// two formats.
func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{1, 100, 1000} {
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			s := storeSchema()
			docs := documents(n)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Build(ctx, docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMediatorWhere measures filtering a fetched list.
func BenchmarkMediatorWhere(b *testing.B) {
	m := mediator.New(map[string]any{"stores": documents(1000)})
	where := compare.Where{"city": "Porto", "id": compare.Where{">": 100}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Select("stores").WhereSpec(where).Value(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGatewayEndpoint measures a full request through the middleware
// chain with an in-memory upstream.
func BenchmarkGatewayEndpoint(b *testing.B) {
	defs, err := schemafile.ParseYAML([]byte(`
schemas:
  store:
    attributes:
      id: {}
      first_name: ownerName
      price: { type: number }
      "?formatted": { copy: price, format: "$0,0.00" }
`))
	if err != nil {
		b.Fatal(err)
	}
	reg, err := schemafile.Compile(defs)
	if err != nil {
		b.Fatal(err)
	}

	docs := documents(100)
	upstream := fetch.Func(func(context.Context, fetch.Request) (any, error) { return docs, nil })

	r := router.New()
	r.Use(middleware.RequestID(), middleware.Recovery(zap.NewNop()))
	if err := gateway.New(upstream, reg, nil).Mount(r, []config.EndpointConfig{{
		Path:   "/stores",
		Fetch:  "http://upstream/stores",
		Schema: "store",
	}}); err != nil {
		b.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stores?filter[city]=Lisbon&take=10", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("status %d: %s", w.Code, w.Body)
		}
	}
}
