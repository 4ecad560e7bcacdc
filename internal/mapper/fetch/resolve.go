package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/mapper/internal/mapper/docpath"
)

// Resolve issues every request in plan concurrently. A single request
// returns its document; a named plan returns a map holding each document
// at its name. The first failure cancels the remaining requests.
func Resolve(ctx context.Context, f Fetcher, plan any) (any, error) {
	requests, err := Flatten(plan)
	if err != nil {
		return nil, err
	}
	if len(requests) == 1 && requests[0].Path == "" {
		return f.Fetch(ctx, requests[0].Request)
	}

	docs := make([]any, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range requests {
		g.Go(func() error {
			doc, err := f.Fetch(gctx, n.Request)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var root any = map[string]any{}
	for i, n := range requests {
		root = docpath.Set(root, n.Path, docs[i])
	}
	return root, nil
}
