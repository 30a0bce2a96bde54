package pipeline

import (
	"context"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/errors"
)

// Aggregate drains p into a fresh stage built from opts and transform and
// yields the units the stage emits. Each run of the returned pipeline uses
// its own stage. An upstream error reaches the transform through Fail; an
// error raised on the stage output ends the pipeline after any emitted units.
func Aggregate(p *Pipeline[any], opts bufferstream.Options, transform bufferstream.TransformFunc, extra ...bufferstream.Option) (*Pipeline[any], error) {
	if transform == nil {
		return nil, errors.MissingTransform()
	}
	return &Pipeline[any]{
		create: func(ctx context.Context) Iterator[any] {
			stage, err := bufferstream.NewWithOptions(opts, transform, extra...)
			if err != nil {
				return &stageIter{src: p.create(ctx), started: true, err: err}
			}
			return newStageIter(p.create(ctx), []*bufferstream.Stage{stage})
		},
	}, nil
}

// Through drains p into the first of stages, chained in order, and yields
// what the last one emits. Stages are single-use, so the returned pipeline
// can be run once; later runs fail with STAGE_CLOSED.
func Through(p *Pipeline[any], stages ...*bufferstream.Stage) *Pipeline[any] {
	return &Pipeline[any]{
		create: func(ctx context.Context) Iterator[any] {
			if len(stages) == 0 {
				return p.create(ctx)
			}
			return newStageIter(p.create(ctx), stages)
		},
	}
}

type stageIter struct {
	src     Iterator[any]
	stages  []*bufferstream.Stage
	started bool
	units   []any
	pos     int
	err     error
}

func newStageIter(src Iterator[any], stages []*bufferstream.Stage) *stageIter {
	bufferstream.Chain(stages...)
	return &stageIter{src: src, stages: stages}
}

func (it *stageIter) Next(ctx context.Context) (any, bool, error) {
	if !it.started {
		it.started = true
		it.units, it.err = it.run(ctx)
	}
	if it.pos < len(it.units) {
		v := it.units[it.pos]
		it.pos++
		return v, true, nil
	}
	return nil, false, it.err
}

func (it *stageIter) run(ctx context.Context) ([]any, error) {
	first := it.stages[0]
	if st := first.State(); st != bufferstream.StateIngesting {
		return nil, errors.StageClosed(first.Name(), "run", st.String())
	}
	out := bufferstream.NewCollector()
	it.stages[len(it.stages)-1].PipeTo(out)

	if err := it.feed(ctx, first); err != nil {
		return nil, err
	}

	select {
	case <-out.Done():
		return out.Units(), out.Err()
	case <-ctx.Done():
		for _, s := range it.stages {
			s.Abort(ctx, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// feed pulls the whole upstream into first. Upstream errors go to Fail
// rather than being returned; a Write or End refused by the stage state
// is returned.
func (it *stageIter) feed(ctx context.Context, first *bufferstream.Stage) error {
	for {
		v, ok, err := it.src.Next(ctx)
		if err != nil {
			first.Fail(ctx, err)
			return nil
		}
		if !ok {
			return first.End(ctx)
		}
		if werr := first.Write(ctx, v); werr != nil {
			if errors.HasCode(werr, errors.ErrCodeStageClosed) {
				return werr
			}
			first.Fail(ctx, werr)
			return nil
		}
	}
}

func (it *stageIter) Close() error { return it.src.Close() }
