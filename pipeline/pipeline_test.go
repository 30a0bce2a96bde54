package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/bufferstream/bufferstream"
	apperrors "github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/logger"
)

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// failingIter yields items then returns err.
type failingIter struct {
	items  []any
	err    error
	closed bool
}

func (it *failingIter) Next(context.Context) (any, bool, error) {
	if len(it.items) == 0 {
		return nil, false, it.err
	}
	v := it.items[0]
	it.items = it.items[1:]
	return v, true, nil
}

func (it *failingIter) Close() error { it.closed = true; return nil }

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestMapFilterTap(t *testing.T) {
	var tapped []int
	p := Map(FromSlice([]int{1, 2, 3, 4}), func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	p = Filter(p, func(n int) bool { return n > 2 })
	p = Tap(p, func(_ context.Context, n int) error {
		tapped = append(tapped, n)
		return nil
	})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{4, 6, 8}) {
		t.Errorf("got %v, want [4 6 8]", got)
	}
	if !intSliceEqual(tapped, got) {
		t.Errorf("tap saw %v", tapped)
	}
}

func TestMap_Error(t *testing.T) {
	fail := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestTap_ErrorStops(t *testing.T) {
	p := Tap(FromSlice([]string{"a", "b"}), func(_ context.Context, s string) error {
		return errors.New("tap failed on " + s)
	})
	got, err := Collect(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "on a") {
		t.Fatalf("expected tap error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing collected, got %v", got)
	}
}

func TestLines(t *testing.T) {
	lines := Map(Lines(strings.NewReader("one\n\ntwo\nthree"), 0), func(_ context.Context, b []byte) (string, error) {
		return string(b), nil
	})
	got, err := Collect(context.Background(), lines)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "|") != "one|two|three" {
		t.Errorf("unexpected lines %v", got)
	}
}

func TestLines_TooLong(t *testing.T) {
	_, err := Collect(context.Background(), Lines(strings.NewReader(strings.Repeat("x", 100)), 10))
	if err == nil {
		t.Error("expected error for oversized line")
	}
}

func reverse(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
	if err != nil {
		emit(err, bufferstream.NoResult())
		return
	}
	items := agg.Objects()
	out := make([]any, len(items))
	for i, v := range items {
		out[len(items)-1-i] = v
	}
	emit(nil, bufferstream.ObjectsResult(out))
}

func TestAggregate_Objects(t *testing.T) {
	p, err := Aggregate(FromSlice([]any{1, 2, 3}), bufferstream.Options{ObjectMode: true}, reverse,
		bufferstream.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	for run := 0; run < 2; run++ {
		got, err := Collect(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 || got[0] != 3 || got[2] != 1 {
			t.Errorf("run %d: expected [3 2 1], got %v", run, got)
		}
	}
}

func TestAggregate_MissingTransform(t *testing.T) {
	if _, err := Aggregate(FromSlice([]any{}), bufferstream.Options{}, nil); !apperrors.HasCode(err, apperrors.ErrCodeMissingTransform) {
		t.Errorf("expected MISSING_TRANSFORM, got %v", err)
	}
}

func TestAggregate_InvalidOptions(t *testing.T) {
	p, err := Aggregate(FromSlice([]any{1}), bufferstream.Options{MaxSize: -1}, reverse)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Collect(context.Background(), p); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT at run time, got %v", err)
	}
}

func TestAggregate_UpstreamErrorReachesTransform(t *testing.T) {
	aouch := errors.New("Aouch!")
	src := &failingIter{items: []any{"partial"}, err: aouch}
	var seen error
	var partial []any
	p, _ := Aggregate(From[any](src), bufferstream.Options{ObjectMode: true},
		func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
			seen, partial = err, agg.Objects()
			emit(nil, bufferstream.ObjectsResult([]any{"recovered"}))
		}, bufferstream.WithLogger(logger.Nop()))

	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if seen != aouch || len(partial) != 1 {
		t.Errorf("expected transform to see error and partial data, got %v %v", seen, partial)
	}
	if len(got) != 1 || got[0] != "recovered" {
		t.Errorf("expected [recovered], got %v", got)
	}
	if !src.closed {
		t.Error("expected upstream iterator to be closed")
	}
}

func TestThrough_Chain(t *testing.T) {
	prefix := func(p string) bufferstream.TransformFunc {
		return func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
			if err != nil {
				emit(err, bufferstream.NoResult())
				return
			}
			emit(nil, bufferstream.BytesResult(append([]byte(p), agg.Bytes()...)))
		}
	}
	var stages []*bufferstream.Stage
	for _, p := range []string{"plop", "plip", "plap"} {
		s, err := bufferstream.New(prefix(p), bufferstream.WithLogger(logger.Nop()))
		if err != nil {
			t.Fatal(err)
		}
		stages = append(stages, s)
	}

	got, err := Collect(context.Background(), Through(FromSlice([]any{"te", "st"}), stages...))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].([]byte)) != "plapplipploptest" {
		t.Errorf("expected plapplipploptest, got %v", got)
	}
}

func TestThrough_ErrorRaised(t *testing.T) {
	s, _ := bufferstream.New(func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		emit(errors.New("Aouch!"), bufferstream.NoResult())
	}, bufferstream.WithLogger(logger.Nop()))

	_, err := Collect(context.Background(), Through(FromSlice([]any{"x"}), s))
	if err == nil || err.Error() != "Aouch!" {
		t.Errorf("expected Aouch!, got %v", err)
	}
}

func TestThrough_ContextCanceledWhileWaiting(t *testing.T) {
	s, _ := bufferstream.New(func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {},
		bufferstream.WithLogger(logger.Nop()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Collect(ctx, Through(FromSlice([]any{"x"}), s))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if s.State() != bufferstream.StateErrorRaised {
		t.Errorf("expected stage to be aborted, got %s", s.State())
	}
}

func TestThrough_NoStages(t *testing.T) {
	got, err := Collect(context.Background(), Through(FromSlice([]any{"a"})))
	if err != nil || len(got) != 1 {
		t.Errorf("expected passthrough, got %v %v", got, err)
	}
}

func TestThrough_SecondRunStageClosed(t *testing.T) {
	s, _ := bufferstream.New(func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		emit(err, bufferstream.ObjectsResult(agg.Objects()))
	}, bufferstream.WithObjectMode(true), bufferstream.WithLogger(logger.Nop()))
	p := Through(FromSlice([]any{1, 2}), s)

	got, err := Collect(context.Background(), p)
	if err != nil || len(got) != 2 {
		t.Fatalf("first run: got %v %v", got, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := Collect(context.Background(), p)
		done <- err
	}()
	select {
	case err := <-done:
		if !apperrors.HasCode(err, apperrors.ErrCodeStageClosed) {
			t.Errorf("expected STAGE_CLOSED on second run, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second run did not return")
	}
}
