// Package router registers endpoints on a chi mux and keeps a listing of
// them for introspection.
package router

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/mapper/internal/web/middleware"
	"github.com/conduit-lang/mapper/internal/web/response"
)

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Params []string `json:"params,omitempty"`
}

// Router wraps a chi mux.
type Router struct {
	mux chi.Router

	mu     sync.RWMutex
	routes []RouteInfo
}

// New creates a router that answers unknown routes with JSON errors.
func New() *Router {
	r := &Router{mux: chi.NewRouter()}
	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, response.WithStatus(http.StatusNotFound, errNotFound(req)))
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, response.WithStatus(http.StatusMethodNotAllowed, errMethod(req)))
	})
	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware. It must be called before any route is added.
func (r *Router) Use(m ...middleware.Middleware) {
	for _, mw := range m {
		r.mux.Use(mw)
	}
}

// Handle registers h for method and path. name is informational.
func (r *Router) Handle(method, path, name string, h http.Handler) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	r.mux.Method(method, path, h)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, RouteInfo{
		Method: method,
		Path:   path,
		Name:   name,
		Params: Params(path),
	})
}

// Get registers a GET handler.
func (r *Router) Get(path string, h http.HandlerFunc) {
	r.Handle(http.MethodGet, path, "", h)
}

// Routes returns the registered routes sorted by path and method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Params lists the {name} placeholders in a path pattern. Regexp
// constraints such as {id:[0-9]+} are dropped.
func Params(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			continue
		}
		name := strings.Trim(part, "{}")
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		params = append(params, name)
	}
	return params
}

// Param returns the URL parameter name of the matched route.
func Param(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

type routeError string

func (e routeError) Error() string { return string(e) }

func errNotFound(req *http.Request) error {
	return routeError("no route for " + req.Method + " " + req.URL.Path)
}

func errMethod(req *http.Request) error {
	return routeError("method " + req.Method + " not allowed on " + req.URL.Path)
}
