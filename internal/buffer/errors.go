package buffer

import "errors"

// Sentinel errors for buffer operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, buffer.ErrTransport) {
//	    // Batch was requeued or dropped per the failure policy
//	}
var (
	// ErrClosed indicates the buffer no longer accepts operations.
	ErrClosed = errors.New("buffer: closed")

	// ErrTransport indicates the transport rejected a flushed batch.
	ErrTransport = errors.New("buffer: transport write failed")

	// ErrNoTransport indicates New was called without a transport.
	ErrNoTransport = errors.New("buffer: transport is required")

	// ErrPolicy indicates an unknown failure policy name.
	ErrPolicy = errors.New("buffer: unknown failure policy")
)
