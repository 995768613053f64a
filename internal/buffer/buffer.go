package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
)

// Transport delivers an encoded batch.
type Transport interface {
	Write(ctx context.Context, payload []byte) error
	Close() error
}

// Buffer is an in-memory FIFO of points flushed to a Transport in batches.
type Buffer struct {
	transport Transport
	encoder   *lineproto.Encoder
	opts      Options
	logger    *logging.Logger

	// mu guards pending and closed.
	mu      sync.Mutex
	pending []*lineproto.Point
	closed  bool

	// flushMu serialises flushes.
	flushMu sync.Mutex

	cbMu    sync.RWMutex
	onError func(err error)
	onFlush func(res Result, err error)

	sched *scheduler
}

// New creates a Buffer and starts its flush scheduler.
//
// Parameters:
//   - transport: Destination for flushed batches; closed by Close
//   - opts: Buffer options; zero values take the package defaults
//
// Returns:
//   - *Buffer: Buffer accepting writes
//   - error: ErrNoTransport if transport is nil
func New(transport Transport, opts Options) (*Buffer, error) {
	if transport == nil {
		return nil, ErrNoTransport
	}
	opts = opts.withDefaults()

	b := &Buffer{
		transport: transport,
		encoder:   lineproto.NewEncoder(opts.Precision),
		opts:      opts,
		logger:    opts.Logger.With("component", "buffer"),
		pending:   make([]*lineproto.Point, 0, opts.BatchSize),
	}
	b.sched = newScheduler(opts.FlushInterval, b.scheduledFlush)
	b.sched.start()

	return b, nil
}

// WritePoint validates p and appends a private copy of it.
//
// It never blocks on I/O. Reaching the batch size signals the scheduler,
// which flushes in the background.
//
// Returns:
//   - error: lineproto.ErrValidation for malformed points, ErrClosed after Close
func (b *Buffer) WritePoint(p *lineproto.Point) error {
	return b.WritePoints(p)
}

// WritePoints appends several points. Either all are accepted or none are.
func (b *Buffer) WritePoints(points ...*lineproto.Point) error {
	if b.isClosed() {
		return ErrClosed
	}

	copies := make([]*lineproto.Point, len(points))
	for i, p := range points {
		if err := lineproto.Validate(p); err != nil {
			if len(points) > 1 {
				return fmt.Errorf("point %d: %w", i, err)
			}
			return err
		}
		copies[i] = p.Copy()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.pending = append(b.pending, copies...)
	full := len(b.pending) >= b.opts.BatchSize
	b.mu.Unlock()

	if full {
		b.sched.trigger()
	}
	return nil
}

// Pending returns the number of points waiting to be flushed.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush sends everything pending as one payload.
//
// If another flush is running, Flush waits for it and then sends whatever is
// pending at that moment.
//
// Returns:
//   - Result: What happened to the batch (zero if nothing was pending)
//   - error: ErrTransport, lineproto.ErrEncoding, or ErrClosed after Close
func (b *Buffer) Flush(ctx context.Context) (Result, error) {
	if b.isClosed() {
		return Result{}, ErrClosed
	}
	return b.flush(ctx)
}

// Close stops accepting writes, waits for the scheduler, flushes what is
// left and closes the transport.
//
// Points requeued by a failed final flush stay pending and are reported in
// the returned error.
func (b *Buffer) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	b.mu.Unlock()

	b.sched.stop()

	_, flushErr := b.flush(ctx)
	if err := b.transport.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("closing transport: %w", err))
	}
	return flushErr
}

// SetOnError sets a callback for errors from scheduled flushes.
//
// Manual flushes return their errors directly and do not invoke it.
func (b *Buffer) SetOnError(callback func(err error)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.onError = callback
}

// SetOnFlush sets a callback invoked after every non-empty flush, whatever
// triggered it. The callback must not call Flush or Close.
func (b *Buffer) SetOnFlush(callback func(res Result, err error)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.onFlush = callback
}

func (b *Buffer) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Buffer) scheduledFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.FlushTimeout)
	defer cancel()

	if _, err := b.flush(ctx); err != nil {
		b.reportError(err)
	}
}

func (b *Buffer) flush(ctx context.Context) (Result, error) {
	res, err := b.flushBatch(ctx)
	if !res.Empty() {
		b.notifyFlush(res, err)
	}
	return res, err
}

// flushBatch swaps the pending slice out under mu and sends it while holding
// flushMu.
func (b *Buffer) flushBatch(ctx context.Context) (Result, error) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return Result{}, nil
	}
	batch := b.pending
	b.pending = make([]*lineproto.Point, 0, b.opts.BatchSize)
	b.mu.Unlock()

	start := time.Now()
	res := Result{
		BatchID: uuid.NewString(),
		Points:  len(batch),
	}

	payload, err := b.encoder.EncodeBatch(batch)
	if err != nil {
		res.Outcome = OutcomeDropped
		res.Duration = time.Since(start)
		b.logger.Error("dropping batch that failed to encode",
			"batch_id", res.BatchID,
			"points", res.Points,
			"error", err,
		)
		return res, err
	}
	res.Bytes = len(payload)

	err = b.transport.Write(ctx, payload)
	res.Duration = time.Since(start)
	if err == nil {
		res.Outcome = OutcomeSent
		b.logger.Debug("batch flushed",
			"batch_id", res.BatchID,
			"points", res.Points,
			"bytes", res.Bytes,
			"duration", res.Duration,
		)
		return res, nil
	}

	if b.opts.FailurePolicy == DropOnFailure {
		res.Outcome = OutcomeDropped
		err = fmt.Errorf("%w: %w (%d points dropped)", ErrTransport, err, res.Points)
	} else {
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()
		res.Outcome = OutcomeRequeued
		err = fmt.Errorf("%w: %w (%d points requeued)", ErrTransport, err, res.Points)
	}

	b.logger.Warn("batch flush failed",
		"batch_id", res.BatchID,
		"points", res.Points,
		"outcome", string(res.Outcome),
		"error", err,
	)
	return res, err
}

// reportError delivers an error to the onError callback if set.
func (b *Buffer) reportError(err error) {
	b.cbMu.RLock()
	callback := b.onError
	b.cbMu.RUnlock()

	if callback != nil {
		callback(err)
	}
}

func (b *Buffer) notifyFlush(res Result, err error) {
	b.cbMu.RLock()
	callback := b.onFlush
	b.cbMu.RUnlock()

	if callback != nil {
		callback(res, err)
	}
}
