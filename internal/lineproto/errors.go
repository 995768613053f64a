package lineproto

import "errors"

// Sentinel errors for point handling.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, lineproto.ErrValidation) {
//	    // Reject the point at the call site
//	}
var (
	// ErrValidation indicates a malformed point.
	ErrValidation = errors.New("lineproto: invalid point")

	// ErrEncoding indicates a point could not be rendered as line protocol.
	// Points that passed Validate never produce it.
	ErrEncoding = errors.New("lineproto: encoding failed")

	// ErrDecoding indicates a payload is not valid line protocol.
	ErrDecoding = errors.New("lineproto: decoding failed")

	// ErrPrecision indicates an unknown timestamp precision.
	ErrPrecision = errors.New("lineproto: unknown precision")
)
