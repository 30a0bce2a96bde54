package bufferstream

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/kbukum/bufferstream/errors"
)

// Chain pipes each stage into the next and returns the last one.
// Input is written to the first stage. Chain of nothing returns nil.
func Chain(stages ...*Stage) *Stage {
	if len(stages) == 0 {
		return nil
	}
	for i := 0; i < len(stages)-1; i++ {
		stages[i].PipeTo(stages[i+1])
	}
	return stages[len(stages)-1]
}

// Collector is a terminal Sink that records every unit it receives.
type Collector struct {
	mu    sync.Mutex
	units []any
	err   error
	ended bool
	once  sync.Once
	done  chan struct{}
}

var _ Sink = (*Collector)(nil)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{done: make(chan struct{})}
}

// Write records unit.
func (c *Collector) Write(_ context.Context, unit any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return errors.StageClosed("collector", "write", "closed")
	}
	c.units = append(c.units, unit)
	return nil
}

// End marks normal completion.
func (c *Collector) End(context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return errors.StageClosed("collector", "end", "closed")
	}
	c.ended = true
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
	return nil
}

// Fail records err. Only the first terminal signal is kept.
func (c *Collector) Fail(_ context.Context, err error) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.err = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Done is closed on End or Fail.
func (c *Collector) Done() <-chan struct{} { return c.done }

// Wait blocks until End or Fail and returns the recorded error.
func (c *Collector) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return errors.Timeout("wait collector").WithCause(ctx.Err())
	}
}

// Err returns the error passed to Fail, if any.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Units returns a copy of the received units in order.
func (c *Collector) Units() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.units))
	copy(out, c.units)
	return out
}

// Bytes concatenates the []byte and string units received.
func (c *Collector) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	for _, u := range c.units {
		if b, ok := asBytes(u); ok {
			buf.Write(b)
		}
	}
	return buf.Bytes()
}

// Text is Bytes as a string.
func (c *Collector) Text() string { return string(c.Bytes()) }

// Objects is an alias of Units for object-mode pipelines.
func (c *Collector) Objects() []any { return c.Units() }

// WriterSink adapts an io.Writer to Sink. Units must be []byte or string.
type WriterSink struct {
	w   io.Writer
	mu  sync.Mutex
	err error
}

var _ Sink = (*WriterSink)(nil)

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(_ context.Context, unit any) error {
	b, ok := asBytes(unit)
	if !ok {
		return errors.ModeMismatch(ModeBinary.String(), unit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(b)
	return err
}

// End flushes w when it supports Flush or Sync.
func (s *WriterSink) End(context.Context) error {
	switch f := s.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Sync() error }:
		return f.Sync()
	}
	return nil
}

func (s *WriterSink) Fail(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the error the sequence failed with, if any.
func (s *WriterSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
