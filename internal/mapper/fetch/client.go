package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ohler55/ojg/oj"
	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/web/cache"
)

// maxBody bounds upstream response bodies.
const maxBody = 32 << 20

// Client is a Fetcher over HTTP. JSON bodies decode into generic documents
// with integers as int64.
type Client struct {
	http   *http.Client
	header http.Header
	cache  cache.Cache
	ttl    time.Duration
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithCache stores GET response bodies in store for ttl. A zero ttl uses
// the store's default.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client with a 30 second timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		header: http.Header{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, req Request) (any, error) {
	body, err := c.body(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Raw {
		return string(body), nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	doc, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", req, err)
	}
	return doc, nil
}

func (c *Client) body(ctx context.Context, req Request) ([]byte, error) {
	cacheable := c.cache != nil && req.method() == http.MethodGet
	key := cache.Key(req.method(), req.URI, req.Query)

	if cacheable {
		b, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.log.Debug("upstream cache hit", zap.String("uri", req.URI))
			return b, nil
		case !errors.Is(err, cache.ErrMiss):
			c.log.Warn("upstream cache read failed", zap.String("uri", req.URI), zap.Error(err))
		}
	}

	b, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			c.log.Warn("upstream cache write failed", zap.String("uri", req.URI), zap.Error(err))
		}
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	hreq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}
	defer resp.Body.Close()

	c.log.Debug("upstream request",
		zap.String("method", hreq.Method),
		zap.String("uri", hreq.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &StatusError{URI: req.URI, Code: resp.StatusCode}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", req, err)
	}
	return b, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		b, err := oj.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", req, err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method(), req.URI, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}

	if len(req.Query) > 0 {
		q := hreq.URL.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		hreq.URL.RawQuery = q.Encode()
	}

	for k, vs := range c.header {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	if !req.Raw && hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	return hreq, nil
}
