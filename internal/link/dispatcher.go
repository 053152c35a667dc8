package link

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/muurk/goveectl/internal/logging"
	"github.com/muurk/goveectl/internal/metrics"
	"github.com/muurk/goveectl/internal/protocol"
	"go.uber.org/zap"
)

// Dispatcher writes frame sequences to devices. Sequences for the same
// address are serialized so that frames of two commands never interleave;
// different addresses proceed in parallel.
type Dispatcher struct {
	connector Connector
	policy    RetryPolicy
	metrics   *metrics.LinkMetrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(c Connector, policy RetryPolicy, m *metrics.LinkMetrics) *Dispatcher {
	return &Dispatcher{
		connector: c,
		policy:    policy,
		metrics:   m,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Policy returns the connection retry policy
func (d *Dispatcher) Policy() RetryPolicy {
	return d.policy
}

func (d *Dispatcher) deviceLock(address string) *sync.Mutex {
	key := strings.ToUpper(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[key] = lock
	}
	return lock
}

// Send connects to address, writes frames in order and disconnects.
//
// The first failed write aborts the sequence; the device may have received
// a prefix of it and the whole command must be resent. Cancelling ctx stops
// before the next frame.
func (d *Dispatcher) Send(ctx context.Context, address string, frames []protocol.Frame) error {
	lock := d.deviceLock(address)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	err := d.send(ctx, address, frames)
	d.metrics.ObserveCommand(time.Since(start).Seconds(), err)
	return err
}

// SequenceObserver is told when each sequence of a batch starts and ends.
// err is nil on start and on success.
type SequenceObserver func(index int, seq protocol.Sequence, done bool, err error)

// SendSequences sends each sequence over its own connection, in order,
// holding the device lock for the whole batch. It stops at the first
// failure.
func (d *Dispatcher) SendSequences(ctx context.Context, address string, seqs []protocol.Sequence) error {
	return d.SendSequencesObserved(ctx, address, seqs, nil)
}

// SendSequencesObserved is SendSequences with progress reporting
func (d *Dispatcher) SendSequencesObserved(ctx context.Context, address string, seqs []protocol.Sequence, observe SequenceObserver) error {
	lock := d.deviceLock(address)
	lock.Lock()
	defer lock.Unlock()

	for i, seq := range seqs {
		logging.LogCommand(address, seq.Command.String(), len(seq.Frames))
		if observe != nil {
			observe(i, seq, false, nil)
		}

		start := time.Now()
		err := d.send(ctx, address, seq.Frames)
		d.metrics.ObserveCommand(time.Since(start).Seconds(), err)

		if observe != nil {
			observe(i, seq, true, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, address string, frames []protocol.Frame) (err error) {
	session, err := d.policy.Connect(ctx, d.connector, address, d.metrics)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logging.Warn("Failed to close session",
				zap.String("address", address),
				zap.Error(closeErr),
			)
			if err == nil {
				err = &TransportError{Op: OpClose, Address: address, FrameIndex: -1, Err: closeErr}
			}
		}
	}()

	for i, frame := range frames {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &TransportError{Op: OpWrite, Address: address, FrameIndex: i, Err: ctxErr}
		}

		if err := session.Write(ctx, frame); err != nil {
			logging.Error("Frame write failed",
				zap.String("address", address),
				zap.Int("frame", i),
				zap.Int("total", len(frames)),
				zap.Error(err),
			)
			return &TransportError{Op: OpWrite, Address: address, FrameIndex: i, Err: err}
		}

		d.metrics.ObserveFrame()
		logging.LogFrame(address, i, len(frames), frame[:])
	}

	return nil
}
