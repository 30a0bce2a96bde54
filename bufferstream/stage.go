package bufferstream

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
)

// EmitFunc reports the outcome of a transform. Only the first call counts.
type EmitFunc func(err error, result Result)

// TransformFunc turns a stage's aggregate into its result. err is the
// upstream error, if any; agg holds whatever was ingested before it.
type TransformFunc func(err error, agg Aggregate, emit EmitFunc)

// Sink is the push-based receiving side of a unit sequence.
type Sink interface {
	// Write delivers one unit.
	Write(ctx context.Context, unit any) error
	// End signals normal end of input.
	End(ctx context.Context) error
	// Fail signals that the sequence terminated with err.
	Fail(ctx context.Context, err error)
}

var _ Sink = (*Stage)(nil)

// Stage is a single-use aggregating transform. It is a Sink for upstream
// units and pushes its result into the Sink attached with Pipe or PipeTo.
type Stage struct {
	name      string
	mode      Mode
	maxSize   int
	transform TransformFunc
	log       *logger.Logger
	metrics   *observability.StageMetrics

	mu      sync.Mutex
	state   State
	pending []byte
	objects []any
	units   int
	next    Sink
	err     error
	emitted bool
	span    trace.Span
	started time.Time
	done    chan struct{}
}

// New creates a binary-mode stage unless opts say otherwise.
// A nil transform fails with MISSING_TRANSFORM.
func New(transform TransformFunc, opts ...Option) (*Stage, error) {
	return NewWithOptions(Options{}, transform, opts...)
}

// NewWithOptions creates a stage from plain Options, with opts applied on top.
func NewWithOptions(o Options, transform TransformFunc, opts ...Option) (*Stage, error) {
	if transform == nil {
		return nil, errors.MissingTransform()
	}
	if o.MaxSize < 0 {
		return nil, errors.InvalidInput("max_size", "must not be negative")
	}
	cfg := newConfig(o, opts)

	s := &Stage{
		name:      cfg.Name,
		mode:      cfg.mode(),
		maxSize:   cfg.MaxSize,
		transform: transform,
		log: cfg.log.WithFields(logger.Fields(
			logger.FieldStage, cfg.Name,
			logger.FieldMode, cfg.mode().String(),
		)),
		metrics: cfg.metrics,
		done:    make(chan struct{}),
	}
	s.metrics.StageStarted(context.Background(), s.mode.String())
	return s, nil
}

// Build constructs a stage from loosely typed arguments: (transform) or
// (options, transform). options is an Options or *Options; transform is a
// TransformFunc or a func with the same signature. It exists for callers
// that assemble stages from untyped configuration.
func Build(args ...any) (*Stage, error) {
	var (
		o  Options
		fn any
	)
	switch len(args) {
	case 0:
		return nil, errors.MissingTransform()
	case 1:
		fn = args[0]
	case 2:
		switch v := args[0].(type) {
		case Options:
			o = v
		case *Options:
			if v != nil {
				o = *v
			}
		case nil:
		default:
			return nil, errors.InvalidInput("options", fmt.Sprintf("unsupported options type %T", v))
		}
		fn = args[1]
	default:
		return nil, errors.InvalidInput("args", fmt.Sprintf("expected at most 2 arguments, got %d", len(args)))
	}

	transform, err := asTransform(fn)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(o, transform)
}

func asTransform(fn any) (TransformFunc, error) {
	switch f := fn.(type) {
	case nil:
		return nil, errors.MissingTransform()
	case TransformFunc:
		if f == nil {
			return nil, errors.MissingTransform()
		}
		return f, nil
	case func(error, Aggregate, EmitFunc):
		if f == nil {
			return nil, errors.MissingTransform()
		}
		return f, nil
	}
	if v := reflect.ValueOf(fn); v.Kind() == reflect.Func && v.IsNil() {
		return nil, errors.MissingTransform()
	}
	return nil, errors.InvalidTransform(fn)
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Mode returns the aggregation mode.
func (s *Stage) Mode() Mode { return s.mode }

// ObjectMode reports whether the stage aggregates opaque values.
func (s *Stage) ObjectMode() bool { return s.mode == ModeObject }

// State returns the current lifecycle state.
func (s *Stage) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the stage reaches Closed or ErrorRaised.
func (s *Stage) Done() <-chan struct{} { return s.done }

// Err returns the error raised on the stage output, if any.
func (s *Stage) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the stage is terminal or ctx is done.
func (s *Stage) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return errors.Timeout("wait " + s.name).WithCause(ctx.Err())
	}
}

// Pipe attaches next as the downstream of s and returns next.
func (s *Stage) Pipe(next *Stage) *Stage {
	s.PipeTo(next)
	return next
}

// PipeTo attaches sink as the downstream of s. It must be called before
// emission starts; output emitted with no sink attached is discarded.
func (s *Stage) PipeTo(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= StateEmitting {
		s.log.Warn("downstream attached after emission started", logger.Fields(logger.FieldState, s.state.String()))
	}
	s.next = sink
}

// Write ingests one unit. Binary stages accept []byte and string; object
// stages accept any value. It never invokes the transform.
func (s *Stage) Write(ctx context.Context, unit any) error {
	s.mu.Lock()
	if s.state != StateIngesting {
		st := s.state
		s.mu.Unlock()
		return s.violation("write", st)
	}

	var size int
	switch s.mode {
	case ModeBinary:
		b, ok := asBytes(unit)
		if !ok {
			s.mu.Unlock()
			return errors.ModeMismatch(s.mode.String(), unit)
		}
		if s.maxSize > 0 && len(s.pending)+len(b) > s.maxSize {
			size = len(s.pending) + len(b)
			break
		}
		if s.pending == nil {
			s.pending = make([]byte, 0, len(b))
		}
		s.pending = append(s.pending, b...)
	case ModeObject:
		if s.maxSize > 0 && len(s.objects)+1 > s.maxSize {
			size = len(s.objects) + 1
			break
		}
		s.objects = append(s.objects, unit)
	}

	if size > 0 {
		s.mu.Unlock()
		tooLarge := errors.AggregateTooLarge(s.maxSize, size)
		s.log.Warn("aggregate limit exceeded", logger.Fields(logger.FieldSize, size))
		if err := s.finalize(ctx, tooLarge, "write"); err != nil {
			return err
		}
		return tooLarge
	}

	s.units++
	s.mu.Unlock()
	s.metrics.UnitIngested(ctx, s.mode.String())
	return nil
}

// End signals normal end of input: the aggregate is built and the transform
// invoked with a nil error. End returns once the transform returns; emission
// may complete later if the transform defers emit.
func (s *Stage) End(ctx context.Context) error {
	return s.finalize(ctx, nil, "end")
}

// Fail takes the error path: the transform is invoked with err and the
// aggregate built so far. After finalization Fail is a logged no-op.
func (s *Stage) Fail(ctx context.Context, err error) {
	if err == nil {
		err = errors.Internal(nil).WithDetail("reason", "Fail called with a nil error")
	}
	if st := s.State(); st != StateIngesting {
		s.log.Debug("error after finalization ignored", logger.Fields(
			logger.FieldError, err.Error(),
			logger.FieldState, st.String(),
		))
		return
	}
	_ = s.finalize(ctx, err, "fail")
}

// Abort cancels a stage that is still ingesting or awaiting its transform.
// The pending aggregate is released, the downstream receives ABORTED and a
// later emit is ignored. It reports whether the stage was aborted.
func (s *Stage) Abort(ctx context.Context, cause error) bool {
	s.mu.Lock()
	if s.state != StateIngesting && s.state != StateAwaitingCallback {
		s.mu.Unlock()
		return false
	}
	aborted := errors.Aborted(s.name, cause)
	s.state = StateErrorRaised
	s.err = aborted
	s.pending, s.objects = nil, nil
	next := s.next
	s.mu.Unlock()

	s.log.Debug("stage aborted", logger.Fields(logger.FieldError, aborted.Error()))
	if next != nil {
		next.Fail(ctx, aborted)
	}
	s.finish(ctx, aborted)
	return true
}

func (s *Stage) finalize(ctx context.Context, upstreamErr error, op string) error {
	s.mu.Lock()
	if s.state != StateIngesting {
		st := s.state
		s.mu.Unlock()
		return s.violation(op, st)
	}
	s.state = StateFinalizing

	ctx, span := observability.StartSpan(ctx, observability.SpanStage)
	s.span = span

	agg := s.buildAggregate()
	s.state = StateAwaitingCallback
	s.started = time.Now()
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String(observability.AttrStage, s.name),
		attribute.String(observability.AttrMode, s.mode.String()),
		attribute.Int(observability.AttrUnits, s.units),
		attribute.Int(observability.AttrSize, agg.Len()),
	)
	s.metrics.AggregateBuilt(ctx, s.mode.String(), agg.Len())
	fields := logger.Fields(logger.FieldUnits, s.units, logger.FieldSize, agg.Len())
	if upstreamErr != nil {
		fields[logger.FieldError] = upstreamErr.Error()
	}
	s.log.Debug("stage finalized", fields)

	s.invoke(context.WithoutCancel(ctx), upstreamErr, agg)
	return nil
}

// buildAggregate hands the pending state over to the aggregate. Caller holds mu.
func (s *Stage) buildAggregate() Aggregate {
	if s.units == 0 {
		return NoData()
	}
	var agg Aggregate
	if s.mode == ModeObject {
		agg = ObjectsAggregate(s.objects)
	} else {
		agg = BytesAggregate(s.pending)
	}
	s.pending, s.objects = nil, nil
	return agg
}

func (s *Stage) invoke(ctx context.Context, upstreamErr error, agg Aggregate) {
	emit := func(err error, result Result) { s.emit(ctx, err, result) }
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("transform panicked", logger.Fields("panic", fmt.Sprintf("%v", r)))
			emit(errors.Internal(fmt.Errorf("transform panicked: %v", r)), NoResult())
		}
	}()
	s.transform(upstreamErr, agg, emit)
}

func (s *Stage) emit(ctx context.Context, err error, result Result) {
	s.mu.Lock()
	if s.emitted {
		s.mu.Unlock()
		s.log.Error("emit called more than once; ignoring", nil)
		return
	}
	s.emitted = true
	if s.state != StateAwaitingCallback {
		st := s.state
		s.mu.Unlock()
		s.log.Warn("emit ignored", logger.Fields(logger.FieldState, st.String()))
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.TransformCompleted(ctx, s.mode.String(), status, time.Since(s.started))

	if err != nil {
		s.mu.Unlock()
		s.raise(ctx, err)
		return
	}

	units, rerr := result.units(s.mode)
	if rerr != nil {
		s.mu.Unlock()
		s.raise(ctx, rerr)
		return
	}
	s.state = StateEmitting
	next := s.next
	s.mu.Unlock()

	if next != nil {
		for _, u := range units {
			if werr := next.Write(ctx, u); werr != nil {
				s.raise(ctx, werr)
				return
			}
		}
	}
	s.metrics.UnitsEmitted(ctx, s.mode.String(), len(units))
	s.span.SetAttributes(attribute.Int(observability.AttrEmitted, len(units)))

	if next != nil {
		if eerr := next.End(ctx); eerr != nil {
			s.raise(ctx, eerr)
			return
		}
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.finish(ctx, nil)
}

// raise moves the stage to ErrorRaised and forwards err downstream unchanged.
func (s *Stage) raise(ctx context.Context, err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateErrorRaised
	s.err = err
	s.pending, s.objects = nil, nil
	next := s.next
	s.mu.Unlock()

	if next != nil {
		next.Fail(ctx, err)
	}
	s.finish(ctx, err)
}

func (s *Stage) finish(ctx context.Context, err error) {
	state := s.State()
	if s.span != nil {
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		s.span.SetAttributes(attribute.String(observability.AttrStatus, state.String()))
		s.span.End()
	}
	if err != nil {
		s.metrics.ErrorRaised(ctx, s.mode.String(), errorCode(err))
		s.log.Debug("stage raised error", logger.Fields(logger.FieldError, err.Error()))
	} else {
		s.log.Debug("stage closed", nil)
	}
	s.metrics.StageFinished(ctx, s.mode.String(), state.String())
	close(s.done)
}

func (s *Stage) violation(op string, st State) error {
	err := errors.StageClosed(s.name, op, st.String())
	s.log.Error("stage contract violation", logger.Fields(
		logger.FieldOperation, op,
		logger.FieldState, st.String(),
	))
	return err
}

func asBytes(unit any) ([]byte, bool) {
	switch u := unit.(type) {
	case []byte:
		return u, true
	case string:
		return []byte(u), true
	default:
		return nil, false
	}
}

func errorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return "UNCODED"
}
