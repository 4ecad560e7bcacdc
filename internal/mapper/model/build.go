package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/mapper/internal/mapper/docpath"
	"github.com/conduit-lang/mapper/internal/mapper/record"
)

// BuildOption configures a single build invocation.
type BuildOption func(*buildConfig)

type buildConfig struct {
	failOnMissing *bool
	previous      map[string]any
	sequential    bool
}

// WithFailOnMissing overrides the schema's FailOnMissing option.
func WithFailOnMissing(fail bool) BuildOption {
	return func(c *buildConfig) {
		c.failOnMissing = &fail
	}
}

// WithPrevious seeds every output record with a copy of previous.
func WithPrevious(previous map[string]any) BuildOption {
	return func(c *buildConfig) {
		c.previous = previous
	}
}

func newBuildConfig(opts []BuildOption) buildConfig {
	var c buildConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Build maps input through the schema. A list input builds every element
// concurrently and returns []any in input order; any other input returns
// a single map[string]any. The first error aborts the build.
func (s *Schema) Build(ctx context.Context, input any, opts ...BuildOption) (any, error) {
	return s.build(ctx, input, newBuildConfig(opts))
}

// BuildOne builds a single record. A list input is reduced to its first
// element; an empty list yields a nil record.
func (s *Schema) BuildOne(ctx context.Context, input any, opts ...BuildOption) (map[string]any, error) {
	if items, ok := docpath.AsSlice(input); ok {
		if len(items) == 0 {
			return nil, nil
		}
		input = items[0]
	}
	return s.buildDocument(ctx, input, newBuildConfig(opts))
}

// BuildSync is Build without concurrency: list elements and nested
// references are built one after another on the calling goroutine.
func (s *Schema) BuildSync(input any, opts ...BuildOption) (any, error) {
	c := newBuildConfig(opts)
	c.sequential = true
	return s.build(context.Background(), input, c)
}

func (s *Schema) build(ctx context.Context, input any, c buildConfig) (any, error) {
	items, ok := docpath.AsSlice(input)
	if !ok {
		out, err := s.buildDocument(ctx, input, c)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	results := make([]any, len(items))
	if c.sequential {
		for i, item := range items {
			out, err := s.buildDocument(ctx, item, c)
			if err != nil {
				return nil, err
			}
			results[i] = out
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			out, err := s.buildDocument(gctx, item, c)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Schema) buildDocument(ctx context.Context, input any, c buildConfig) (map[string]any, error) {
	attrs, options := s.snapshot()
	if c.failOnMissing != nil {
		options.FailOnMissing = *c.failOnMissing
	}

	b := &builder{
		ctx:     ctx,
		input:   input,
		options: options,
		rec:     record.New(c.previous),
		nested: buildConfig{
			failOnMissing: &options.FailOnMissing,
			sequential:    c.sequential,
		},
	}

	for _, a := range attrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.step(a); err != nil {
			return nil, err
		}
	}
	return b.rec.Map(), nil
}

// builder holds the state of one document build.
type builder struct {
	ctx     context.Context
	input   any
	options Options
	rec     *record.Record
	nested  buildConfig
}

// step processes one attribute. Subscriptions fired by its writes are
// delivered once the attribute is complete.
func (b *builder) step(a *Attribute) error {
	b.rec.Hold()
	err := b.apply(a)
	if rerr := b.rec.Release(); err == nil {
		err = rerr
	}
	return err
}

func (b *builder) apply(a *Attribute) error {
	raw, present := docpath.Get(b.input, a.path)
	if !present && a.required && b.options.FailOnMissing {
		return &MissingError{Kind: a.kind, Path: a.path}
	}

	if present {
		value, err := b.resolve(a, raw)
		if err != nil {
			return err
		}
		b.rec.Set(a.path, value)
	}

	return b.modify(a)
}

// resolve produces the value written for a present input value. Scalar
// values are deep-copied so later writes never reach the input.
func (b *builder) resolve(a *Attribute, raw any) (any, error) {
	if a.kind == KindScalar || raw == nil {
		return docpath.Clone(raw), nil
	}

	if a.kind == KindMany {
		if _, ok := docpath.AsSlice(raw); !ok {
			return nil, fmt.Errorf("attribute %q: many reference needs a list, got %T", a.path, raw)
		}
	}

	out, err := a.nested.build(b.ctx, raw, b.nested)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.path, err)
	}
	return out, nil
}

// modify applies the attribute's modifiers in rank order. The path moves
// with a rename so later modifiers act on the renamed value.
func (b *builder) modify(a *Attribute) error {
	path := a.path
	copied := a.has(Copy{}.rank())

	for _, m := range a.modifiers {
		switch m := m.(type) {
		case Rename:
			value, ok := b.rec.Get(path)
			b.rec.Unset(path)
			path = m.To
			if ok {
				b.rec.Set(path, value)
			}

		case Default:
			if _, ok := b.rec.Get(path); !ok {
				b.rec.Set(path, docpath.Clone(m.Value))
			}

		case Copy:
			if err := b.copyFrom(a, m.From, path); err != nil {
				return err
			}

		case Coerce:
			if copied {
				continue
			}
			if err := b.transform(path, a, m); err != nil {
				return err
			}

		case Format:
			if copied {
				continue
			}
			if err := b.transform(path, a, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFrom writes the value at from into to, or waits for from to be
// written when it is still empty.
func (b *builder) copyFrom(a *Attribute, from, to string) error {
	write := func(value any) error {
		out, err := b.convert(a, docpath.Clone(value), a.modifiers...)
		if err != nil {
			return err
		}
		b.rec.Set(to, out)
		return nil
	}

	if value, ok := b.rec.Get(from); ok {
		return write(value)
	}
	b.rec.OnceWritten(from, write)
	return nil
}

func (b *builder) transform(path string, a *Attribute, m Modifier) error {
	value, ok := b.rec.Get(path)
	if !ok {
		return nil
	}
	out, err := b.convert(a, value, m)
	if err != nil {
		return err
	}
	b.rec.Set(path, out)
	return nil
}

// convert runs the coerce and format modifiers among mods over value.
func (b *builder) convert(a *Attribute, value any, mods ...Modifier) (any, error) {
	var err error
	for _, m := range mods {
		switch m := m.(type) {
		case Coerce:
			if value, err = m.Fn(value); err != nil {
				return nil, fmt.Errorf("attribute %q: type: %w", a.path, err)
			}
		case Format:
			if value, err = m.Formatter.FormatValue(value, b.rec.Map()); err != nil {
				return nil, fmt.Errorf("attribute %q: format: %w", a.path, err)
			}
		}
	}
	return value, nil
}

func (a *Attribute) has(rank int) bool {
	for _, m := range a.modifiers {
		if m.rank() == rank {
			return true
		}
	}
	return false
}
