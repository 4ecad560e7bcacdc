package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/mediator"
	"github.com/conduit-lang/mapper/internal/mapper/model"
	"github.com/conduit-lang/mapper/internal/web/response"
)

var upstream = fetch.Func(func(ctx context.Context, req fetch.Request) (any, error) {
	switch req.URI {
	case "http://api/stores":
		return []any{
			map[string]any{"id": int64(1), "store_name": "North", "active": true},
			map[string]any{"id": int64(2), "store_name": "South", "active": false},
		}, nil
	case "http://api/rates":
		return map[string]any{"usd": "1000.5"}, nil
	}
	return nil, &fetch.StatusError{URI: req.URI, Code: http.StatusNotFound}
})

type storesHandler struct {
	Base
	schema *model.Schema
}

func (h storesHandler) Validate(r *http.Request) error {
	if r.URL.Query().Get("deny") != "" {
		return response.WithStatus(http.StatusBadRequest, errors.New("denied"))
	}
	return nil
}

func (h storesHandler) Props(*http.Request) (any, error) {
	return fetch.Plan{"stores": "http://api/stores", "rates": "http://api/rates"}, nil
}

func (h storesHandler) Map(_ context.Context, m *mediator.Mediator, _ *http.Request) (any, error) {
	stores, err := m.Select("stores").Where("active", true).Model(h.schema).Value()
	if err != nil {
		return nil, err
	}
	rate, err := m.Select("rates").Value("usd")
	if err != nil {
		return nil, err
	}
	return map[string]any{"stores": stores, "usd": rate}, nil
}

func storeSchema() *model.Schema {
	s := model.New()
	s.Attribute("id")
	s.Attribute("store_name").As("name")
	return s
}

func TestController_Success(t *testing.T) {
	c := New(upstream, storesHandler{schema: storeSchema()})

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stores":[{"id":1,"name":"North"}],"usd":"1000.5"}`, rec.Body.String())
}

func TestController_ValidationError(t *testing.T) {
	c := New(upstream, storesHandler{schema: storeSchema()})

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores?deny=1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":400,"error":"denied"}`, rec.Body.String())
}

type brokenPlan struct{ Base }

func (brokenPlan) Props(*http.Request) (any, error) {
	return "http://api/missing", nil
}

func TestController_UpstreamStatus(t *testing.T) {
	c := New(upstream, brokenPlan{})

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"error":"http://api/missing responded 404 Not Found"}`, rec.Body.String())
}

func TestController_BaseDefaults(t *testing.T) {
	c := New(upstream, Base{}, WithStatus(http.StatusAccepted))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestController_MapErrorIs500(t *testing.T) {
	m := mediator.New(map[string]any{"nothing": map[string]any{}})
	_, err := m.Select("nothing").Model(func() *model.Schema {
		s := model.New()
		s.Attribute("id")
		return s
	}()).Value()
	assert.ErrorIs(t, err, model.ErrMissingAttribute)
	assert.Equal(t, http.StatusInternalServerError, response.StatusOf(err))
}
