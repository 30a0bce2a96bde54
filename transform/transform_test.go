package transform

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/encryption"
	"github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/logger"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// run pushes units through a single stage built from fn and returns the collector.
func run(t *testing.T, fn bufferstream.TransformFunc, object bool, units ...any) *bufferstream.Collector {
	t.Helper()
	ctx := testCtx(t)
	s, err := bufferstream.New(fn, bufferstream.WithObjectMode(object), bufferstream.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	out := bufferstream.NewCollector()
	s.PipeTo(out)
	if err := bufferstream.FromSlice(ctx, s, units...); err != nil {
		t.Fatal(err)
	}
	_ = out.Wait(ctx)
	return out
}

func TestPrefixSuffix(t *testing.T) {
	if got := run(t, Prefix([]byte("plop")), false, "te", "st").Text(); got != "ploptest" {
		t.Errorf("prefix: got %q", got)
	}
	if got := run(t, Suffix([]byte("!")), false, "te", "st").Text(); got != "test!" {
		t.Errorf("suffix: got %q", got)
	}
	if got := run(t, Prefix([]byte("only")), false).Text(); got != "only" {
		t.Errorf("prefix of no data: got %q", got)
	}
}

func TestUpperLower(t *testing.T) {
	if got := run(t, Upper(), false, "MiXed").Text(); got != "MIXED" {
		t.Errorf("upper: got %q", got)
	}
	if got := run(t, Lower(), false, "MiXed").Text(); got != "mixed" {
		t.Errorf("lower: got %q", got)
	}
}

func TestForwardsUpstreamError(t *testing.T) {
	ctx := testCtx(t)
	aouch := stderrors.New("Aouch!")
	for name, fn := range map[string]bufferstream.TransformFunc{
		"prefix":   Prefix([]byte("x")),
		"identity": Identity(),
		"reverse":  Reverse(),
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := bufferstream.New(fn, bufferstream.WithLogger(logger.Nop()))
			out := bufferstream.NewCollector()
			s.PipeTo(out)
			_ = bufferstream.FromErrored(ctx, s, aouch, "partial")
			if err := out.Wait(ctx); err != aouch {
				t.Errorf("expected exact upstream error, got %v", err)
			}
		})
	}
}

func TestObjectTransforms(t *testing.T) {
	o1, o2 := &struct{ n int }{1}, &struct{ n int }{2}

	out := run(t, PrependObject("head"), true, o1, o2).Objects()
	if len(out) != 3 || out[0] != "head" || out[1] != o1 || out[2] != o2 {
		t.Errorf("prepend: got %v", out)
	}

	out = run(t, AppendObject("tail"), true, o1, o2).Objects()
	if len(out) != 3 || out[0] != o1 || out[2] != "tail" {
		t.Errorf("append: got %v", out)
	}

	out = run(t, Reverse(), true, o1, o2).Objects()
	if len(out) != 2 || out[0] != o2 || out[1] != o1 {
		t.Errorf("reverse: got %v", out)
	}

	if out = run(t, Reverse(), true).Objects(); len(out) != 0 {
		t.Errorf("reverse of no data: got %v", out)
	}
}

func TestYAMLToJSON(t *testing.T) {
	out := run(t, YAMLToJSON(), false, "name: plop\n", "tags:\n  - a\n  - b\n")
	if err := out.Err(); err != nil {
		t.Fatal(err)
	}
	got := out.Text()
	for _, want := range []string{`"name":"plop"`, `"tags":["a","b"]`} {
		if !strings.Contains(strings.ReplaceAll(got, " ", ""), want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}

	bad := run(t, YAMLToJSON(), false, "key: [unclosed")
	if !errors.HasCode(bad.Err(), errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for malformed YAML, got %v", bad.Err())
	}

	if n := len(run(t, YAMLToJSON(), false).Units()); n != 0 {
		t.Errorf("expected no output for no data, got %d units", n)
	}
}

func TestJSONToYAML(t *testing.T) {
	out := run(t, JSONToYAML(), false, `{"name":"plop"}`)
	if got := strings.TrimSpace(out.Text()); got != "name: plop" {
		t.Errorf("expected 'name: plop', got %q", got)
	}
}

func TestExpr(t *testing.T) {
	fn, err := Expr(`filter(items, # > 1)`)
	if err != nil {
		t.Fatal(err)
	}
	out := run(t, fn, true, 1, 2, 3).Objects()
	if len(out) != 2 || out[0] != 2 || out[1] != 3 {
		t.Errorf("expected [2 3], got %v", out)
	}

	fn, _ = Expr(`map(items, # * 10)`)
	out = run(t, fn, true, 1, 2).Objects()
	if len(out) != 2 || out[0] != 10 || out[1] != 20 {
		t.Errorf("expected [10 20], got %v", out)
	}

	fn, _ = Expr(`len(items)`)
	if err := run(t, fn, true, 1).Err(); !errors.HasCode(err, errors.ErrCodeInvalidResult) {
		t.Errorf("expected INVALID_RESULT for a scalar, got %v", err)
	}

	if _, err := Expr(`items[`); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for a bad program, got %v", err)
	}
}

func TestDiffAndPatch(t *testing.T) {
	patchText := run(t, Diff("hello world"), false, "hello there world").Text()
	if patchText == "" {
		t.Fatal("expected a non-empty patch")
	}
	if same := run(t, Diff("same"), false, "same").Text(); same != "" {
		t.Errorf("expected empty patch for equal input, got %q", same)
	}

	apply, err := Patch(patchText)
	if err != nil {
		t.Fatal(err)
	}
	if got := run(t, apply, false, "hello world").Text(); got != "hello there world" {
		t.Errorf("expected patch to reproduce input, got %q", got)
	}
}

func TestSealOpen(t *testing.T) {
	c, err := encryption.New("passphrase", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
	if err != nil {
		t.Fatal(err)
	}
	sealed := run(t, Seal(c), false, "sec", "ret").Bytes()
	if strings.Contains(string(sealed), "secret") {
		t.Fatal("sealed output contains plaintext")
	}
	if got := run(t, Open(c), false, sealed).Text(); got != "secret" {
		t.Errorf("expected 'secret', got %q", got)
	}

	other, _ := encryption.New("wrong")
	if err := run(t, Open(other), false, sealed).Err(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT on wrong key, got %v", err)
	}
}

func TestRecover(t *testing.T) {
	ctx := testCtx(t)
	fallback := bufferstream.ObjectsResult([]any{})
	s, _ := bufferstream.New(Recover(Identity(), fallback),
		bufferstream.WithObjectMode(true), bufferstream.WithLogger(logger.Nop()))
	out := bufferstream.NewCollector()
	s.PipeTo(out)

	_ = bufferstream.FromErrored(ctx, s, stderrors.New("Aouch!"), 1, 2)
	if err := out.Wait(ctx); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if len(out.Units()) != 0 {
		t.Errorf("expected zero units, got %v", out.Units())
	}

	if got := run(t, Recover(Upper(), bufferstream.NoResult()), false, "ok").Text(); got != "OK" {
		t.Errorf("expected inner transform on success, got %q", got)
	}
}
