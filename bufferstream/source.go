package bufferstream

import (
	"context"
	stderrors "errors"
	"io"
)

// DefaultChunkSize is the read size FromReader uses when none is given.
const DefaultChunkSize = 32 * 1024

// FromSlice writes units to sink in order, then ends it. If a write fails
// the sink is failed with that error, which is also returned.
func FromSlice(ctx context.Context, sink Sink, units ...any) error {
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			sink.Fail(ctx, err)
			return err
		}
		if err := sink.Write(ctx, u); err != nil {
			sink.Fail(ctx, err)
			return err
		}
	}
	return sink.End(ctx)
}

// FromErrored writes units to sink, then fails it with err instead of ending.
func FromErrored(ctx context.Context, sink Sink, err error, units ...any) error {
	for _, u := range units {
		if werr := sink.Write(ctx, u); werr != nil {
			sink.Fail(ctx, werr)
			return werr
		}
	}
	sink.Fail(ctx, err)
	return nil
}

// FromReader streams r into sink in chunks of chunkSize bytes. io.EOF ends
// the sink; any other read error, or ctx being done, fails it.
func FromReader(ctx context.Context, sink Sink, r io.Reader, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			sink.Fail(ctx, err)
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := sink.Write(ctx, chunk); werr != nil {
				sink.Fail(ctx, werr)
				return werr
			}
		}
		if stderrors.Is(err, io.EOF) {
			return sink.End(ctx)
		}
		if err != nil {
			sink.Fail(ctx, err)
			return err
		}
	}
}
