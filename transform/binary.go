package transform

import (
	"bytes"

	"github.com/goccy/go-yaml"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/errors"
)

// Bytes adapts a whole-buffer function into a binary TransformFunc. The
// no-data aggregate is passed to fn as nil.
func Bytes(fn func(in []byte) ([]byte, error)) bufferstream.TransformFunc {
	return func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		if err != nil {
			emit(err, bufferstream.NoResult())
			return
		}
		out, ferr := fn(agg.Bytes())
		if ferr != nil {
			emit(ferr, bufferstream.NoResult())
			return
		}
		emit(nil, bufferstream.BytesResult(out))
	}
}

// Identity emits the aggregate unchanged in either mode.
func Identity() bufferstream.TransformFunc {
	return func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		switch {
		case err != nil:
			emit(err, bufferstream.NoResult())
		case agg.Kind() == bufferstream.KindBytes:
			emit(nil, bufferstream.BytesResult(agg.Bytes()))
		case agg.Kind() == bufferstream.KindObjects:
			emit(nil, bufferstream.ObjectsResult(agg.Objects()))
		default:
			emit(nil, bufferstream.NoResult())
		}
	}
}

// Prefix emits p followed by the aggregate. With no data it emits p alone.
func Prefix(p []byte) bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		out := make([]byte, 0, len(p)+len(in))
		return append(append(out, p...), in...), nil
	})
}

// Suffix emits the aggregate followed by s.
func Suffix(s []byte) bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		out := make([]byte, 0, len(in)+len(s))
		return append(append(out, in...), s...), nil
	})
}

func Upper() bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) { return bytes.ToUpper(in), nil })
}

func Lower() bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) { return bytes.ToLower(in), nil })
}

// YAMLToJSON decodes the whole aggregate as one YAML document and emits it
// as JSON. No data emits nothing.
func YAMLToJSON() bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		if in == nil {
			return nil, nil
		}
		out, err := yaml.YAMLToJSON(in)
		if err != nil {
			return nil, errors.InvalidInput("yaml", err.Error()).WithCause(err)
		}
		return bytes.TrimRight(out, "\n"), nil
	})
}

// JSONToYAML is the inverse of YAMLToJSON.
func JSONToYAML() bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		if in == nil {
			return nil, nil
		}
		out, err := yaml.JSONToYAML(in)
		if err != nil {
			return nil, errors.InvalidInput("json", err.Error()).WithCause(err)
		}
		return out, nil
	})
}

// Diff emits a unified-style patch text taking reference to the aggregate.
// An aggregate equal to reference emits an empty chunk.
func Diff(reference string) bufferstream.TransformFunc {
	dmp := diffpatch.New()
	return Bytes(func(in []byte) ([]byte, error) {
		patches := dmp.PatchMake(reference, string(in))
		return []byte(dmp.PatchToText(patches)), nil
	})
}

// Patch applies patch text produced by Diff to the aggregate. Any hunk that
// fails to apply raises INVALID_INPUT.
func Patch(patchText string) (bufferstream.TransformFunc, error) {
	dmp := diffpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return nil, errors.InvalidInput("patch", err.Error()).WithCause(err)
	}
	return Bytes(func(in []byte) ([]byte, error) {
		out, applied := dmp.PatchApply(patches, string(in))
		for i, ok := range applied {
			if !ok {
				return nil, errors.InvalidInput("patch", "hunk did not apply").WithDetail("hunk", i)
			}
		}
		return []byte(out), nil
	}), nil
}
