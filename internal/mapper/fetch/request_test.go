package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsRequest(t *testing.T) {
	req, ok, err := AsRequest("http://api/devices")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Get("http://api/devices"), req)

	req, ok, err = AsRequest(map[string]any{
		"uri":     "http://api/search",
		"method":  "post",
		"headers": map[string]any{"X-Trace": "abc"},
		"query":   map[string]any{"page": 2},
		"body":    map[string]any{"q": "x"},
		"raw":     "true",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "POST http://api/search", req.String())
	assert.Equal(t, "abc", req.Header.Get("X-Trace"))
	assert.Equal(t, "2", req.Query.Get("page"))
	assert.Equal(t, map[string]any{"q": "x"}, req.Body)
	assert.True(t, req.Raw)

	_, ok, err = AsRequest(map[string]any{"device": "http://api/devices/1"})
	require.NoError(t, err)
	assert.False(t, ok, "a map without uri is a plan")

	_, _, err = AsRequest((*Request)(nil))
	assert.Error(t, err)

	_, _, err = AsRequest(map[string]any{"uri": []int{1}})
	assert.ErrorContains(t, err, "uri")
}

func TestRequest_DefaultMethod(t *testing.T) {
	assert.Equal(t, "GET http://api", Request{URI: "http://api"}.String())
}

func TestFlatten(t *testing.T) {
	named, err := Flatten(Plan{
		"device": "http://api/devices/1",
		"prices": map[string]any{
			"usd": "http://api/prices/usd",
			"eur": Request{URI: "http://api/prices/eur"},
		},
		"search": map[string]any{"uri": "http://api/search", "method": "POST"},
	})
	require.NoError(t, err)

	paths := make([]string, len(named))
	for i, n := range named {
		paths[i] = n.Path
	}
	assert.Equal(t, []string{"device", "prices.eur", "prices.usd", "search"}, paths)
	assert.Equal(t, http.MethodPost, named[3].Request.Method)

	single, err := Flatten("http://api/devices")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Empty(t, single[0].Path)

	_, err = Flatten(Plan{})
	assert.ErrorContains(t, err, "no requests")

	_, err = Flatten(Plan{"bad": 42})
	assert.ErrorContains(t, err, `fetch plan "bad"`)

	_, err = Flatten(42)
	assert.Error(t, err)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
	docs map[string]any
	fail map[string]error
}

func (r *recorder) Fetch(_ context.Context, req Request) (any, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req.URI)
	r.mu.Unlock()
	if err := r.fail[req.URI]; err != nil {
		return nil, err
	}
	return r.docs[req.URI], nil
}

func TestResolve(t *testing.T) {
	f := &recorder{docs: map[string]any{
		"http://api/devices/1": map[string]any{"name": "sensor"},
		"http://api/prices/usd": []any{int64(1)},
		"http://api/prices/eur": []any{int64(2)},
	}}

	doc, err := Resolve(context.Background(), f, "http://api/devices/1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "sensor"}, doc)

	doc, err = Resolve(context.Background(), f, Plan{
		"device": "http://api/devices/1",
		"prices": Plan{
			"usd": "http://api/prices/usd",
			"eur": "http://api/prices/eur",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"device": map[string]any{"name": "sensor"},
		"prices": map[string]any{
			"usd": []any{int64(1)},
			"eur": []any{int64(2)},
		},
	}, doc)

	doc, err = Resolve(context.Background(), f, Plan{"device": "http://api/devices/1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"device": map[string]any{"name": "sensor"}}, doc, "a named plan keeps its name")
}

func TestResolve_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	f := &recorder{
		docs: map[string]any{"http://api/a": 1},
		fail: map[string]error{"http://api/b": boom},
	}

	_, err := Resolve(context.Background(), f, Plan{"a": "http://api/a", "b": "http://api/b"})
	assert.ErrorIs(t, err, boom)
}

func TestFunc(t *testing.T) {
	f := Func(func(_ context.Context, req Request) (any, error) { return req.URI, nil })
	got, err := f.Fetch(context.Background(), Get("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}
