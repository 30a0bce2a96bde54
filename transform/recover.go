package transform

import "github.com/kbukum/bufferstream/bufferstream"

// Recover runs next on success and emits fallback instead of forwarding an
// upstream error. The partial aggregate is dropped.
func Recover(next bufferstream.TransformFunc, fallback bufferstream.Result) bufferstream.TransformFunc {
	return func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
		if err != nil {
			emit(nil, fallback)
			return
		}
		next(nil, agg, emit)
	}
}
