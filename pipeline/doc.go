// Package pipeline provides lazy, pull-based sequences that can be routed
// through bufferstream stages.
//
// No work happens until values are pulled via Collect, Drain, or ForEach.
// Map, Filter and Tap operate one value at a time; Aggregate and Through
// are barriers that pull the whole upstream into a stage before yielding
// anything.
//
// # Usage
//
//	lines := pipeline.Lines(os.Stdin, 0)
//	values := pipeline.Map(lines, decodeJSON)
//	reversed, err := pipeline.Aggregate(values, bufferstream.Options{ObjectMode: true}, transform.Reverse())
//	err = pipeline.Drain(reversed, writeJSON).Run(ctx)
package pipeline
