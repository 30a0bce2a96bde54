package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/httpapi"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/pipeline"
	"github.com/kbukum/bufferstream/transform"
)

type runFlags struct {
	chain     string
	format    string
	chunkSize int
	maxSize   int
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [chain]",
		Short: "Run stdin through a transform chain and write the result to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.chain = args[0]
			}
			if f.chain == "" {
				return errors.MissingField("chain")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.chain, "chain", "", "chain spec or configured chain name, e.g. prefix:a,upper")
	cmd.Flags().StringVar(&f.format, "format", httpapi.FormatRaw, "input/output encoding: raw or ndjson")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "read size for raw input (default: stage.chunk_size)")
	cmd.Flags().IntVar(&f.maxSize, "max-size", -1, "aggregate bound per stage (default: stage.max_size)")
	return cmd
}

func (a *app) stageOptions(f *runFlags) []bufferstream.Option {
	maxSize := a.cfg.Stage.MaxSize
	if f.maxSize >= 0 {
		maxSize = f.maxSize
	}
	return []bufferstream.Option{
		bufferstream.WithMaxSize(maxSize),
		bufferstream.WithLogger(a.log.WithFields(logger.Fields(logger.FieldChain, f.chain))),
	}
}

func (a *app) run(ctx context.Context, f *runFlags, in io.Reader, out io.Writer) error {
	spec := a.cfg.ResolveChain(f.chain)
	stages, err := transform.BuildChain(spec, a.stageOptions(f)...)
	if err != nil {
		return err
	}

	switch f.format {
	case httpapi.FormatRaw:
		chunk := f.chunkSize
		if chunk <= 0 {
			chunk = a.cfg.Stage.ChunkSize
		}
		return runRaw(ctx, stages, in, out, chunk, a.log)
	case httpapi.FormatNDJSON:
		return runNDJSON(ctx, stages, in, out)
	default:
		return errors.InvalidInput("format", fmt.Sprintf("must be %s or %s", httpapi.FormatRaw, httpapi.FormatNDJSON))
	}
}

func runRaw(ctx context.Context, stages []*bufferstream.Stage, in io.Reader, out io.Writer, chunk int, log *logger.Logger) error {
	last := stages[len(stages)-1]
	sink := bufferstream.NewWriterSink(out)
	last.PipeTo(sink)

	if err := bufferstream.FromReader(ctx, stages[0], in, chunk); err != nil {
		log.Debug("input not fully read", logger.ErrorFields("read_input", err))
	}
	if err := last.Wait(ctx); err != nil {
		for _, s := range stages {
			s.Abort(ctx, err)
		}
		return err
	}
	return sink.Err()
}

func runNDJSON(ctx context.Context, stages []*bufferstream.Stage, in io.Reader, out io.Writer) error {
	values := pipeline.Map(pipeline.Lines(in, 0), func(_ context.Context, line []byte) (any, error) {
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, errors.InvalidInput("input", "each line must be a JSON value").WithCause(err)
		}
		return v, nil
	})
	enc := json.NewEncoder(out)
	return pipeline.ForEach(ctx, pipeline.Through(values, stages...), func(_ context.Context, v any) error {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		return enc.Encode(v)
	})
}
