package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mapper/internal/web/cache"
)

func TestClient_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1,"price":12.5,"tags":["a","b"],"owner":null}`)
	}))
	defer srv.Close()

	doc, err := NewClient().Fetch(context.Background(), Get(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":    int64(1),
		"price": 12.5,
		"tags":  []any{"a", "b"},
		"owner": nil,
	}, doc)
}

func TestClient_RawAndEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, "plain text")
	}))
	defer srv.Close()

	c := NewClient()
	doc, err := c.Fetch(context.Background(), Request{URI: srv.URL + "/text", Raw: true})
	require.NoError(t, err)
	assert.Equal(t, "plain text", doc)

	doc, err = c.Fetch(context.Background(), Get(srv.URL+"/empty"))
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = c.Fetch(context.Background(), Get(srv.URL+"/text"))
	assert.ErrorContains(t, err, "decode")
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), Get(srv.URL+"/devices/9"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)

	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode())
	assert.Contains(t, err.Error(), "responded 404 Not Found")
}

func TestClient_RequestShape(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(WithHeader("Authorization", "Bearer token"), WithTimeout(time.Second))
	_, err := c.Fetch(context.Background(), Request{
		URI:    srv.URL + "/search?page=2",
		Method: "post",
		Header: http.Header{"X-Trace": []string{"abc"}},
		Query:  url.Values{"q": []string{"sensor"}},
		Body:   map[string]any{"limit": 10},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "Bearer token", got.Header.Get("Authorization"))
	assert.Equal(t, "abc", got.Header.Get("X-Trace"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "sensor", got.URL.Query().Get("q"))
	assert.JSONEq(t, `{"limit":10}`, body)
}

func TestClient_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"n":1}`)
	}))
	defer srv.Close()

	store := cache.NewMemory(cache.DefaultConfig())
	defer store.Close()

	c := NewClient(WithCache(store, time.Minute))
	for i := 0; i < 3; i++ {
		doc, err := c.Fetch(context.Background(), Get(srv.URL))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": int64(1)}, doc)
	}
	assert.Equal(t, int32(1), calls.Load(), "GET bodies are served from the cache")

	_, err := c.Fetch(context.Background(), Request{URI: srv.URL, Method: http.MethodPost})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), Request{URI: srv.URL, Method: http.MethodPost})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "other methods are not cached")

	b, err := store.Get(context.Background(), cache.Key(http.MethodGet, srv.URL, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))
}

func TestClient_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient().Fetch(ctx, Get(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
}
