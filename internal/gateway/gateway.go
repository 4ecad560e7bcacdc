// Package gateway turns configured endpoints into aggregation handlers.
//
// Each endpoint fetches its plan, selects and filters the fetched documents
// and maps the result through a named schema:
//
//	endpoints:
//	  - path: /stores/{id}
//	    fetch:
//	      store: http://api/stores/{id}
//	      rates: http://api/rates
//	    select: store
//	    schema: store
//	    one: true
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/config"
	"github.com/conduit-lang/mapper/internal/mapper/compare"
	"github.com/conduit-lang/mapper/internal/mapper/docpath"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/mediator"
	"github.com/conduit-lang/mapper/internal/mapper/model"
	"github.com/conduit-lang/mapper/internal/mapper/schemafile"
	"github.com/conduit-lang/mapper/internal/web/controller"
	"github.com/conduit-lang/mapper/internal/web/query"
	"github.com/conduit-lang/mapper/internal/web/response"
	"github.com/conduit-lang/mapper/internal/web/router"
)

// Gateway builds endpoints against one fetcher and schema registry. The
// registry can be swapped while requests are served.
type Gateway struct {
	fetcher fetch.Fetcher
	schemas atomic.Pointer[schemafile.Registry]
	log     *zap.Logger

	mu    sync.Mutex
	names map[string]string // schema name -> first endpoint path using it
}

// New creates a gateway. schemas may be nil when no endpoint names a schema.
func New(f fetch.Fetcher, schemas *schemafile.Registry, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{fetcher: f, log: log, names: map[string]string{}}
	g.schemas.Store(schemas)
	return g
}

// Schemas returns the current registry.
func (g *Gateway) Schemas() *schemafile.Registry {
	return g.schemas.Load()
}

// Reload swaps in reg. It fails, keeping the current registry, when a
// schema used by a mounted endpoint is missing from reg.
func (g *Gateway) Reload(reg *schemafile.Registry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name, path := range g.names {
		if _, ok := reg.Get(name); !ok {
			return fmt.Errorf("endpoint %s: unknown schema %q", path, name)
		}
	}
	g.schemas.Store(reg)
	g.log.Info("schemas reloaded", zap.Int("schemas", reg.Len()))
	return nil
}

func (g *Gateway) schema(name string) (*model.Schema, error) {
	s, ok := g.schemas.Load().Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Mount registers every endpoint on r.
func (g *Gateway) Mount(r *router.Router, endpoints []config.EndpointConfig) error {
	for _, cfg := range endpoints {
		e, err := g.Endpoint(cfg)
		if err != nil {
			return err
		}
		r.Handle(cfg.Method, cfg.Path, cfg.Name, controller.New(g.fetcher, e, controller.WithLogger(g.log)))
		g.log.Debug("endpoint mounted", zap.String("path", cfg.Path), zap.String("schema", cfg.Schema))
	}
	return nil
}

// Endpoint resolves cfg into a controller handler.
func (g *Gateway) Endpoint(cfg config.EndpointConfig) (*Endpoint, error) {
	if _, err := fetch.Flatten(cfg.Fetch); err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", cfg.Path, err)
	}
	if cfg.Schema != "" {
		g.mu.Lock()
		defer g.mu.Unlock()
		if _, err := g.schema(cfg.Schema); err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", cfg.Path, err)
		}
		if _, ok := g.names[cfg.Schema]; !ok {
			g.names[cfg.Schema] = cfg.Path
		}
	}
	return &Endpoint{gateway: g, cfg: cfg, params: router.Params(cfg.Path)}, nil
}

// Endpoint is the controller handler for one configured endpoint.
type Endpoint struct {
	controller.Base
	gateway *Gateway
	cfg     config.EndpointConfig
	params  []string
}

// Validate requires every route parameter to be non-empty and the paging
// parameters to be well formed.
func (e *Endpoint) Validate(r *http.Request) error {
	for _, p := range e.params {
		if strings.TrimSpace(router.Param(r, p)) == "" {
			return response.WithStatus(http.StatusBadRequest, fmt.Errorf("missing route parameter %q", p))
		}
	}
	if _, _, _, err := query.Take(r); err != nil {
		return response.WithStatus(http.StatusBadRequest, err)
	}
	return nil
}

// Props returns the fetch plan with {param} placeholders replaced by the
// escaped route parameters.
func (e *Endpoint) Props(r *http.Request) (any, error) {
	values := make(map[string]string, len(e.params))
	for _, p := range e.params {
		values[p] = url.PathEscape(router.Param(r, p))
	}
	return expand(e.cfg.Fetch, values), nil
}

// Map selects, filters, pages and models the fetched documents.
func (e *Endpoint) Map(_ context.Context, m *mediator.Mediator, r *http.Request) (any, error) {
	cur := m.Select(e.cfg.Select)

	if where := e.where(r); len(where) > 0 {
		cur = cur.WhereSpec(where)
	}

	n, fromEnd, ok, _ := query.Take(r)
	if !ok && e.cfg.Take > 0 {
		n, fromEnd, ok = e.cfg.Take, e.cfg.TakeLast, true
	}
	if ok {
		cur = cur.Take(n, fromEnd)
	}

	if e.cfg.Schema != "" {
		schema, err := e.gateway.schema(e.cfg.Schema)
		if err != nil {
			return nil, err
		}
		cur = cur.Model(schema)
	}

	var out any
	var err error
	if e.cfg.One {
		out, err = cur.First()
	} else {
		out, err = cur.Value()
	}
	if err != nil {
		if errors.Is(err, compare.ErrUnknownComparator) {
			return nil, response.WithStatus(http.StatusBadRequest, err)
		}
		return nil, err
	}

	if e.cfg.One && out == nil {
		return nil, response.WithStatus(http.StatusNotFound, fmt.Errorf("no match for %s", r.URL.Path))
	}
	return project(out, query.Fields(r)), nil
}

// where merges configured conditions with filter query parameters.
// Configured conditions compare strictly.
func (e *Endpoint) where(r *http.Request) compare.Where {
	where := query.Filter(r)
	for k, v := range e.cfg.Where {
		where[k] = v
	}
	return where
}

// expand substitutes {name} in every URI of plan.
func expand(plan any, values map[string]string) any {
	if len(values) == 0 {
		return plan
	}
	switch p := plan.(type) {
	case string:
		return substitute(p, values)
	case fetch.Request:
		p.URI = substitute(p.URI, values)
		return p
	case map[string]any:
		out := make(map[string]any, len(p))
		for k, v := range p {
			out[k] = expand(v, values)
		}
		return out
	case fetch.Plan:
		out := make(fetch.Plan, len(p))
		for k, v := range p {
			out[k] = expand(v, values)
		}
		return out
	default:
		return plan
	}
}

func substitute(s string, values map[string]string) string {
	for k, v := range values {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

// project keeps only fields of each record.
func project(v any, fields []string) any {
	if len(fields) == 0 {
		return v
	}
	if items, ok := docpath.AsSlice(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = project(item, fields)
		}
		return out
	}
	if _, ok := v.(map[string]any); !ok {
		return v
	}

	var out any = map[string]any{}
	for _, f := range fields {
		if value, ok := docpath.Get(v, f); ok {
			out = docpath.Set(out, f, value)
		}
	}
	return out
}

// Introspect registers GET /_health and GET /_routes on r.
func (g *Gateway) Introspect(r *router.Router) {
	r.Get("/_health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]any{
			"status":  "ok",
			"schemas": g.Schemas().Names(),
		})
	})
	r.Get("/_routes", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, r.Routes())
	})
}
