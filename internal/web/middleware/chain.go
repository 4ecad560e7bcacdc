// Package middleware holds the HTTP middleware shared by every endpoint.
package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered list of middleware. The first middleware added is
// the outermost.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use appends m.
func (c *Chain) Use(m ...Middleware) *Chain {
	c.middlewares = append(c.middlewares, m...)
	return c
}

// Then wraps h with the chain.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// Len returns the number of middleware.
func (c *Chain) Len() int {
	return len(c.middlewares)
}
