package transform

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/errors"
)

// Objects adapts a list function into an object TransformFunc. The no-data
// aggregate is passed to fn as an empty list.
func Objects(fn func(items []any) ([]any, error)) bufferstream.TransformFunc {
	return func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		if err != nil {
			emit(err, bufferstream.NoResult())
			return
		}
		items := agg.Objects()
		if items == nil {
			items = []any{}
		}
		out, ferr := fn(items)
		if ferr != nil {
			emit(ferr, bufferstream.NoResult())
			return
		}
		emit(nil, bufferstream.ObjectsResult(out))
	}
}

// PrependObject emits v followed by the ingested values.
func PrependObject(v any) bufferstream.TransformFunc {
	return Objects(func(items []any) ([]any, error) {
		return append([]any{v}, items...), nil
	})
}

// AppendObject emits the ingested values followed by v.
func AppendObject(v any) bufferstream.TransformFunc {
	return Objects(func(items []any) ([]any, error) {
		return append(slices.Clone(items), v), nil
	})
}

// Reverse emits the ingested values in reverse order.
func Reverse() bufferstream.TransformFunc {
	return Objects(func(items []any) ([]any, error) {
		out := slices.Clone(items)
		slices.Reverse(out)
		return out, nil
	})
}

// Expr compiles an expr-lang program evaluated once per aggregate with
// items bound to the ingested values. The program must yield a list,
// e.g. filter(items, .size > 10) or map(items, #.name).
func Expr(program string) (bufferstream.TransformFunc, error) {
	prg, err := expr.Compile(program, expr.Env(map[string]any{"items": []any{}}))
	if err != nil {
		return nil, errors.InvalidInput("expr", err.Error()).WithCause(err)
	}
	return Objects(func(items []any) ([]any, error) {
		out, err := vm.Run(prg, map[string]any{"items": items})
		if err != nil {
			return nil, fmt.Errorf("expr: %w", err)
		}
		return asList(out)
	}), nil
}

func asList(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case nil:
		return nil, errors.InvalidResult(bufferstream.ModeObject.String(), "nil")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.InvalidResult(bufferstream.ModeObject.String(), fmt.Sprintf("%T", v))
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
