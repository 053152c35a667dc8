package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/goveectl/internal/logging"
	"github.com/muurk/goveectl/internal/metrics"
	"github.com/muurk/goveectl/internal/protocol"
	"go.uber.org/zap"
)

const (
	// DefaultConnectAttempts is the default number of connection attempts
	DefaultConnectAttempts = 3

	// DefaultConnectDelay is the default pause between connection attempts
	DefaultConnectDelay = 0 * time.Second
)

// Connector opens sessions to devices
type Connector interface {
	Connect(ctx context.Context, address string) (Session, error)
}

// Session is an open connection to one device's control characteristic.
// Write blocks until the frame has been handed to the radio.
type Session interface {
	Write(ctx context.Context, frame protocol.Frame) error
	Close() error
}

// Operations reported in TransportError
const (
	OpConnect = "connect"
	OpWrite   = "write"
	OpClose   = "close"
)

// ErrNoAttempts is returned when a retry policy allows no attempts
var ErrNoAttempts = errors.New("retry policy allows no connection attempts")

// TransportError reports a failure talking to a device
type TransportError struct {
	Op         string // connect, write or close
	Address    string
	FrameIndex int // Index of the failed frame for writes, -1 otherwise
	Attempts   int // Connection attempts made, for connect failures
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	switch e.Op {
	case OpWrite:
		return fmt.Sprintf("write frame %d to %s: %v", e.FrameIndex, e.Address, e.Err)
	case OpConnect:
		return fmt.Sprintf("connect to %s failed after %d attempt(s): %v", e.Address, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
	}
}

// Unwrap returns the underlying transport error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError checks if an error came from the transport
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// RetryPolicy controls connection retries
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns three immediate attempts
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultConnectAttempts,
		Delay:       DefaultConnectDelay,
	}
}

// Connect opens a session, retrying failed attempts up to MaxAttempts.
// Context cancellation stops further attempts.
func (p RetryPolicy) Connect(ctx context.Context, c Connector, address string, m *metrics.LinkMetrics) (Session, error) {
	if p.MaxAttempts < 1 {
		return nil, &TransportError{Op: OpConnect, Address: address, FrameIndex: -1, Err: ErrNoAttempts}
	}

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, &TransportError{Op: OpConnect, Address: address, FrameIndex: -1, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(p.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{Op: OpConnect, Address: address, FrameIndex: -1, Attempts: attempts, Err: err}
		}

		attempts++
		session, err := c.Connect(ctx, address)
		m.ObserveConnect(err)
		if err == nil {
			if attempt > 1 {
				logging.LogConnection(address, "connected", zap.Int("attempt", attempt))
			}
			return session, nil
		}

		lastErr = err
		logging.Warn("Connection attempt failed",
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(err),
		)
	}

	return nil, &TransportError{Op: OpConnect, Address: address, FrameIndex: -1, Attempts: attempts, Err: lastErr}
}
