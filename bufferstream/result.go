package bufferstream

import (
	"github.com/kbukum/bufferstream/errors"
)

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultBytes
	ResultObjects
	// ResultValue is a single non-sequence value. No mode accepts it; it
	// exists so ResultOf can report the mistake instead of guessing.
	ResultValue
)

func (k ResultKind) String() string {
	switch k {
	case ResultBytes:
		return "bytes"
	case ResultObjects:
		return "objects"
	case ResultValue:
		return "value"
	default:
		return "none"
	}
}

// Result is what a transform hands back through emit.
type Result struct {
	kind    ResultKind
	bytes   []byte
	objects []any
	value   any
}

// NoResult emits nothing; the stage closes its output immediately.
func NoResult() Result { return Result{} }

// BytesResult emits b as one unit from a binary stage.
func BytesResult(b []byte) Result {
	if b == nil {
		return NoResult()
	}
	return Result{kind: ResultBytes, bytes: b}
}

// ObjectsResult emits each element of objs as a separate unit from an object stage.
func ObjectsResult(objs []any) Result {
	return Result{kind: ResultObjects, objects: objs}
}

// ResultOf classifies an untyped value: nil is no result, []byte and string
// are bytes, []any is objects and anything else is a single value.
func ResultOf(v any) Result {
	switch t := v.(type) {
	case nil:
		return NoResult()
	case Result:
		return t
	case []byte:
		return BytesResult(t)
	case string:
		return Result{kind: ResultBytes, bytes: []byte(t)}
	case []any:
		return ObjectsResult(t)
	default:
		return Result{kind: ResultValue, value: v}
	}
}

// Kind returns the variant tag.
func (r Result) Kind() ResultKind { return r.kind }

// units expands the result into the output units for mode.
func (r Result) units(mode Mode) ([]any, error) {
	switch r.kind {
	case ResultNone:
		return nil, nil
	case ResultBytes:
		if mode != ModeBinary {
			return nil, errors.InvalidResult(mode.String(), r.kind.String())
		}
		return []any{r.bytes}, nil
	case ResultObjects:
		if mode != ModeObject {
			return nil, errors.InvalidResult(mode.String(), r.kind.String())
		}
		return r.objects, nil
	default:
		return nil, errors.InvalidResult(mode.String(), r.kind.String())
	}
}
