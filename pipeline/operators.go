package pipeline

import "context"

// Map transforms each value using fn.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return derive(p, func(src Iterator[I]) nextFunc[O] {
		return func(ctx context.Context) (O, bool, error) {
			var zero O
			val, ok, err := src.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			out, err := fn(ctx, val)
			if err != nil {
				return zero, false, err
			}
			return out, true, nil
		}
	})
}

// Filter keeps only values that satisfy keep.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return derive(p, func(src Iterator[T]) nextFunc[T] {
		return func(ctx context.Context) (T, bool, error) {
			for {
				val, ok, err := src.Next(ctx)
				if err != nil || !ok || keep(val) {
					return val, ok, err
				}
			}
		}
	})
}

// Tap calls fn for each value and passes it through unchanged.
// An error from fn ends the pipeline.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return Map(p, func(ctx context.Context, v T) (T, error) {
		return v, fn(ctx, v)
	})
}

type nextFunc[T any] func(ctx context.Context) (T, bool, error)

// derive builds a pipeline whose iterator wraps a fresh source iterator
// and closes it on Close.
func derive[I, O any](p *Pipeline[I], wrap func(Iterator[I]) nextFunc[O]) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			src := p.create(ctx)
			return &funcIter[O]{next: wrap(src), close: src.Close}
		},
	}
}

type funcIter[T any] struct {
	next  nextFunc[T]
	close func() error
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) { return it.next(ctx) }

func (it *funcIter[T]) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}
