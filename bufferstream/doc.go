// Package bufferstream provides a single-shot aggregating transform stage.
//
// A Stage consumes an entire upstream sequence of units, merges them into one
// in-memory Aggregate, hands that aggregate to a TransformFunc and pushes the
// function's Result downstream before signaling completion. Stages buffer the
// whole stream by contract: downstream never observes partial upstream output.
//
// # Modes
//
// In binary mode (the default) units are []byte or string chunks and the
// aggregate is their concatenation. In object mode units are opaque values and
// the aggregate is the ordered list of them, references preserved. When
// nothing was ingested the transform receives the no-data aggregate
// (Aggregate.IsNoData), which is distinct from an empty chunk or list.
//
// # Completion
//
// The transform receives an EmitFunc and must call it exactly once, either
// before returning or later from another goroutine:
//
//	stage, err := bufferstream.New(func(err error, agg bufferstream.Aggregate, emit bufferstream.EmitFunc) {
//	    if err != nil {
//	        emit(err, bufferstream.NoResult())
//	        return
//	    }
//	    emit(nil, bufferstream.BytesResult(bytes.ToUpper(agg.Bytes())))
//	})
//
// Upstream errors (Fail) do not bypass the transform: it is called with the
// error and whatever was ingested so far, and may recover by emitting a
// result. An error passed to emit is raised on the stage output and forwarded
// to the downstream Sink unchanged.
//
// # Chaining
//
// *Stage implements Sink, so stages compose directly. Chain pipes stages in
// order and returns the last one; input goes to the first:
//
//	out := bufferstream.NewCollector()
//	bufferstream.Chain(a, b, c).PipeTo(out)
//	err := bufferstream.FromSlice(ctx, a, "te", "st")
//
// # Lifecycle
//
// Ingesting → Finalizing → AwaitingCallback → Emitting → Closed, with
// ErrorRaised reachable from every non-terminal state. Stages are single-use;
// operations a state does not accept fail with STAGE_CLOSED.
package bufferstream
