// Package fetch retrieves upstream documents for the mediator.
//
// A Request describes one upstream call. A Plan names several requests so
// they can be issued together and assembled into one document.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Request describes one upstream call.
type Request struct {
	URI    string
	Method string
	Header http.Header
	Query  url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Raw returns the response body as a string instead of decoding it.
	Raw bool
}

// Get returns a GET request for uri with JSON decoding.
func Get(uri string) Request {
	return Request{URI: uri, Method: http.MethodGet}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// String returns "METHOD URI".
func (r Request) String() string {
	return r.method() + " " + r.URI
}

// Fetcher retrieves the document a request describes.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (any, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, req Request) (any, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// ErrStatus is matched by every StatusError.
var ErrStatus = errors.New("upstream status")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URI  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d %s", e.URI, e.Code, http.StatusText(e.Code))
}

// StatusCode returns the upstream status.
func (e *StatusError) StatusCode() int { return e.Code }

// Is matches ErrStatus.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Plan maps names to requests. Values are a URI string, a Request, a
// request descriptor map (with a "uri" key) or a nested plan. Names are
// document paths, so "prices.usd" nests under "prices".
type Plan map[string]any

// Named is one flattened plan entry. Path is empty for a single request.
type Named struct {
	Path    string
	Request Request
}

// Flatten resolves plan into its requests, sorted by path. plan is a single
// request (string, Request, *Request or descriptor map) or a Plan or map of
// names to plans.
func Flatten(plan any) ([]Named, error) {
	if req, ok, err := AsRequest(plan); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return []Named{{Request: req}}, nil
	}

	var out []Named
	if err := flatten("", plan, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fetch plan has no requests")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func flatten(prefix string, plan any, out *[]Named) error {
	entries, ok := asMap(plan)
	if !ok {
		return fmt.Errorf("fetch plan %q: unsupported value %T", prefix, plan)
	}
	for name, value := range entries {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		req, isReq, err := AsRequest(value)
		if err != nil {
			return fmt.Errorf("fetch plan %q: %w", path, err)
		}
		if isReq {
			*out = append(*out, Named{Path: path, Request: req})
			continue
		}
		if err := flatten(path, value, out); err != nil {
			return err
		}
	}
	return nil
}

// AsRequest converts a single request value. It reports false for values
// that are not a request, such as a map of names.
func AsRequest(v any) (Request, bool, error) {
	switch r := v.(type) {
	case string:
		return Get(r), true, nil
	case Request:
		return r, true, nil
	case *Request:
		if r == nil {
			return Request{}, false, fmt.Errorf("nil request")
		}
		return *r, true, nil
	}

	m, ok := asMap(v)
	if !ok {
		return Request{}, false, nil
	}
	uri, ok := m["uri"]
	if !ok {
		return Request{}, false, nil
	}
	return descriptor(uri, m)
}

func descriptor(uri any, m map[string]any) (Request, bool, error) {
	req := Request{Method: http.MethodGet}
	var err error
	if req.URI, err = cast.ToStringE(uri); err != nil {
		return Request{}, false, fmt.Errorf("uri: %w", err)
	}
	if method, ok := m["method"]; ok {
		req.Method = strings.ToUpper(cast.ToString(method))
	}
	if headers, ok := m["headers"]; ok {
		req.Header = http.Header{}
		for k, v := range cast.ToStringMapString(headers) {
			req.Header.Set(k, v)
		}
	}
	if query, ok := m["query"]; ok {
		req.Query = url.Values{}
		for k, v := range cast.ToStringMapString(query) {
			req.Query.Set(k, v)
		}
	}
	if body, ok := m["body"]; ok {
		req.Body = body
	}
	if raw, ok := m["raw"]; ok {
		req.Raw = cast.ToBool(raw)
	}
	return req, true, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Plan:
		return m, true
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case map[any]any:
		out, err := cast.ToStringMapE(m)
		return out, err == nil
	}
	return nil, false
}
