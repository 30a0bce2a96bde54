package bufferstream

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/kbukum/bufferstream/errors"
)

func prefixer(prefix string, async bool) TransformFunc {
	return func(err error, agg Aggregate, emit EmitFunc) {
		if err != nil {
			emit(err, NoResult())
			return
		}
		out := append([]byte(prefix), agg.Bytes()...)
		if !async {
			emit(nil, BytesResult(out))
			return
		}
		go func() {
			time.Sleep(time.Millisecond)
			emit(nil, BytesResult(out))
		}()
	}
}

func prepender(o any) TransformFunc {
	return func(err error, agg Aggregate, emit EmitFunc) {
		if err != nil {
			emit(err, NoResult())
			return
		}
		emit(nil, ObjectsResult(append([]any{o}, agg.Objects()...)))
	}
}

func TestChain_BinaryPrefixes(t *testing.T) {
	for _, async := range []bool{false, true} {
		name := "sync"
		if async {
			name = "async"
		}
		t.Run(name, func(t *testing.T) {
			ctx := waitCtx(t)
			plop := mustStage(t, prefixer("plop", async))
			plip := mustStage(t, prefixer("plip", async))
			plap := mustStage(t, prefixer("plap", async))
			out := NewCollector()
			Chain(plop, plip, plap).PipeTo(out)

			if err := FromSlice(ctx, plop, "te", "st"); err != nil {
				t.Fatal(err)
			}
			if err := out.Wait(ctx); err != nil {
				t.Fatal(err)
			}
			if got := out.Text(); got != "plapplipploptest" {
				t.Errorf("expected 'plapplipploptest', got %q", got)
			}
			if len(out.Units()) != 1 {
				t.Errorf("expected a single output chunk, got %d", len(out.Units()))
			}
		})
	}
}

func TestChain_ObjectPrepends(t *testing.T) {
	ctx := waitCtx(t)
	o1, o2, o4, o5, o6 := &obj{1}, &obj{2}, &obj{4}, &obj{5}, &obj{6}
	first := mustStage(t, prepender(o4), WithObjectMode(true))
	second := mustStage(t, prepender(o5), WithObjectMode(true))
	third := mustStage(t, prepender(o6), WithObjectMode(true))
	out := NewCollector()
	first.Pipe(second).Pipe(third).PipeTo(out)

	if err := FromSlice(ctx, first, o1, o2); err != nil {
		t.Fatal(err)
	}
	if err := out.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	want := []any{o6, o5, o4, o1, o2}
	got := out.Objects()
	if len(got) != len(want) {
		t.Fatalf("expected %d objects, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestChain_ErrorTraversesStages(t *testing.T) {
	ctx := waitCtx(t)
	aouch := stderrors.New("Aouch!")
	seen := 0
	observe := func(err error, agg Aggregate, emit EmitFunc) {
		if err == aouch {
			seen++
		}
		emit(err, NoResult())
	}
	a := mustStage(t, func(err error, agg Aggregate, emit EmitFunc) { emit(aouch, NoResult()) })
	b := mustStage(t, observe)
	c := mustStage(t, observe)
	out := NewCollector()
	Chain(a, b, c).PipeTo(out)

	if err := FromSlice(ctx, a, "x"); err != nil {
		t.Fatal(err)
	}
	if err := out.Wait(ctx); err != aouch {
		t.Fatalf("expected the exact error at the end of the chain, got %v", err)
	}
	if seen != 2 {
		t.Errorf("expected both downstream transforms to see the error, got %d", seen)
	}
}

func TestChain_Empty(t *testing.T) {
	if Chain() != nil {
		t.Error("expected nil for empty chain")
	}
}

func TestChain_ReturnsLast(t *testing.T) {
	a := mustStage(t, identity)
	b := mustStage(t, identity)
	if Chain(a, b) != b {
		t.Error("expected Chain to return the last stage")
	}
	if a.Pipe(b) != b {
		t.Error("expected Pipe to return its argument")
	}
}

func TestCollector(t *testing.T) {
	ctx := waitCtx(t)
	c := NewCollector()
	if err := c.Write(ctx, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.Write(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := c.End(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Text() != "ab" {
		t.Errorf("expected 'ab', got %q", c.Text())
	}
	if err := c.Write(ctx, "c"); !errors.HasCode(err, errors.ErrCodeStageClosed) {
		t.Errorf("expected STAGE_CLOSED, got %v", err)
	}
	c.Fail(ctx, stderrors.New("ignored"))
	if c.Err() != nil {
		t.Errorf("fail after end must be ignored, got %v", c.Err())
	}
}

func TestWriterSink(t *testing.T) {
	ctx := waitCtx(t)
	var sb strings.Builder
	s := mustStage(t, prefixer(">", false))
	sink := NewWriterSink(&sb)
	s.PipeTo(sink)

	if err := FromSlice(ctx, s, "line"); err != nil {
		t.Fatal(err)
	}
	if sb.String() != ">line" {
		t.Errorf("expected '>line', got %q", sb.String())
	}
	if err := sink.Write(ctx, 3); !errors.HasCode(err, errors.ErrCodeModeMismatch) {
		t.Errorf("expected MODE_MISMATCH, got %v", err)
	}
}

func TestFromReader(t *testing.T) {
	ctx := waitCtx(t)
	s := mustStage(t, identity)
	out := NewCollector()
	s.PipeTo(out)

	if err := FromReader(ctx, s, iotest.OneByteReader(strings.NewReader("streamed")), 2); err != nil {
		t.Fatal(err)
	}
	if err := out.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if out.Text() != "streamed" {
		t.Errorf("expected 'streamed', got %q", out.Text())
	}
}

func TestFromReader_ReadError(t *testing.T) {
	ctx := waitCtx(t)
	var gotErr error
	var gotAgg Aggregate
	s := mustStage(t, func(err error, agg Aggregate, emit EmitFunc) {
		gotErr, gotAgg = err, agg
		emit(err, NoResult())
	})
	readErr := stderrors.New("disk gone")
	r := io.MultiReader(strings.NewReader("part"), iotest.ErrReader(readErr))

	if err := FromReader(ctx, s, r, 0); err != readErr {
		t.Fatalf("expected read error, got %v", err)
	}
	if gotErr != readErr {
		t.Errorf("expected transform to see read error, got %v", gotErr)
	}
	if string(gotAgg.Bytes()) != "part" {
		t.Errorf("expected partial aggregate 'part', got %q", gotAgg.Bytes())
	}
}

func TestFromSlice_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var gotErr error
	s := mustStage(t, func(err error, agg Aggregate, emit EmitFunc) {
		gotErr = err
		emit(err, NoResult())
	})
	if err := FromSlice(ctx, s, "x"); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !stderrors.Is(gotErr, context.Canceled) {
		t.Errorf("expected transform to see cancellation, got %v", gotErr)
	}
}
