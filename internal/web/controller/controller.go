// Package controller runs the request lifecycle for aggregation endpoints:
// validate the request, resolve its fetch plan, map the fetched documents
// and render the result.
package controller

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/mapper/compare"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/mediator"
	"github.com/conduit-lang/mapper/internal/web/middleware"
	"github.com/conduit-lang/mapper/internal/web/response"
)

// Handler supplies the endpoint specific steps.
type Handler interface {
	// Validate rejects malformed requests.
	Validate(r *http.Request) error
	// Props returns the fetch plan for the request. A nil plan skips
	// fetching and maps an empty document.
	Props(r *http.Request) (any, error)
	// Map shapes the fetched documents into the response body.
	Map(ctx context.Context, m *mediator.Mediator, r *http.Request) (any, error)
}

// Base provides the default steps. Embed it and override what differs.
type Base struct{}

// Validate accepts every request.
func (Base) Validate(*http.Request) error { return nil }

// Props returns no plan.
func (Base) Props(*http.Request) (any, error) { return nil, nil }

// Map returns the root document.
func (Base) Map(_ context.Context, m *mediator.Mediator, _ *http.Request) (any, error) {
	return m.Value()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for failed requests.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithComparators sets the comparator table of every mediator.
func WithComparators(t compare.Table) Option {
	return func(c *Controller) { c.comparators = &t }
}

// WithStatus sets the success status. The default is 200.
func WithStatus(code int) Option {
	return func(c *Controller) { c.status = code }
}

// Controller adapts a Handler to http.Handler.
type Controller struct {
	fetcher     fetch.Fetcher
	handler     Handler
	log         *zap.Logger
	comparators *compare.Table
	status      int
}

// New creates a controller that fetches with f.
func New(f fetch.Fetcher, h Handler, opts ...Option) *Controller {
	c := &Controller{
		fetcher: f,
		handler: h,
		log:     zap.NewNop(),
		status:  http.StatusOK,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServeHTTP implements http.Handler. Failures are rendered as
// {"code": status, "error": message} with the status carried by the error,
// or 500.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := c.handle(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	response.JSON(w, c.status, result)
}

func (c *Controller) handle(r *http.Request) (any, error) {
	ctx := r.Context()

	if err := c.handler.Validate(r); err != nil {
		return nil, err
	}

	plan, err := c.handler.Props(r)
	if err != nil {
		return nil, err
	}

	var opts []mediator.Option
	if c.comparators != nil {
		opts = append(opts, mediator.WithComparators(*c.comparators))
	}

	var m *mediator.Mediator
	if plan == nil {
		m = mediator.New(map[string]any{}, opts...)
	} else if m, err = mediator.Fetch(ctx, c.fetcher, plan, opts...); err != nil {
		return nil, err
	}

	return c.handler.Map(ctx, m, r)
}

func (c *Controller) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := response.StatusOf(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		c.log.Error("request failed", fields...)
	} else {
		c.log.Info("request rejected", fields...)
	}
	response.Error(w, err)
}
