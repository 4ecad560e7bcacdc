package model

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/mapper/internal/mapper/docpath"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
)

// Task produces a document, usually by fetching it.
type Task func(ctx context.Context) (any, error)

// Fetch resolves plan with f and builds the result.
func (s *Schema) Fetch(ctx context.Context, f fetch.Fetcher, plan any, opts ...BuildOption) (any, error) {
	doc, err := fetch.Resolve(ctx, f, plan)
	if err != nil {
		return nil, err
	}
	return s.Build(ctx, doc, opts...)
}

// FetchOne resolves plan with f and builds a single record.
func (s *Schema) FetchOne(ctx context.Context, f fetch.Fetcher, plan any, opts ...BuildOption) (map[string]any, error) {
	doc, err := fetch.Resolve(ctx, f, plan)
	if err != nil {
		return nil, err
	}
	return s.BuildOne(ctx, doc, opts...)
}

// FetchAll runs every task concurrently, places each result at its name
// and builds the assembled document.
func (s *Schema) FetchAll(ctx context.Context, tasks map[string]Task, opts ...BuildOption) (any, error) {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]any, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		task := tasks[name]
		g.Go(func() error {
			doc, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var doc any = map[string]any{}
	for i, name := range names {
		doc = docpath.Set(doc, name, results[i])
	}
	return s.Build(ctx, doc, opts...)
}

// Deferred wraps Fetch as a Task.
func (s *Schema) Deferred(f fetch.Fetcher, plan any, opts ...BuildOption) Task {
	return func(ctx context.Context) (any, error) {
		return s.Fetch(ctx, f, plan, opts...)
	}
}

// DeferredOne wraps FetchOne as a Task.
func (s *Schema) DeferredOne(f fetch.Fetcher, plan any, opts ...BuildOption) Task {
	return func(ctx context.Context) (any, error) {
		out, err := s.FetchOne(ctx, f, plan, opts...)
		if err != nil || out == nil {
			return nil, err
		}
		return out, nil
	}
}
