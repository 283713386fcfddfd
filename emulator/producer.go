package emulator

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Producer receives batches of encoded readings.
type Producer interface {
	Send(ctx context.Context, events [][]byte) error
}

// MemProducer collects batches in memory. It enforces a per-batch event
// limit the way a real broker batch would, and is safe for concurrent use.
type MemProducer struct {
	// MaxBatchEvents rejects oversized batches when positive.
	MaxBatchEvents int

	mu      sync.Mutex
	batches [][][]byte
}

// Send stores one batch.
func (p *MemProducer) Send(ctx context.Context, events [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.MaxBatchEvents > 0 && len(events) > p.MaxBatchEvents {
		return fmt.Errorf("batch of %d events exceeds the %d event limit", len(events), p.MaxBatchEvents)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, events)
	return nil
}

// Batches returns the collected batches.
func (p *MemProducer) Batches() [][][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batches
}

// EventCount returns the total number of events across all batches.
func (p *MemProducer) EventCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

// WriterProducer writes one reading per line, newline-delimited JSON.
type WriterProducer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterProducer wraps w as a Producer.
func NewWriterProducer(w io.Writer) *WriterProducer {
	return &WriterProducer{w: w}
}

// Send writes each event followed by a newline.
func (p *WriterProducer) Send(ctx context.Context, events [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range events {
		if _, err := p.w.Write(append(ev, '\n')); err != nil {
			return fmt.Errorf("writing reading: %w", err)
		}
	}
	return nil
}
