package lineproto

import (
	"bytes"
	"fmt"
	"io"

	protocol "github.com/influxdata/line-protocol"
)

// Encoder renders points as line protocol at a fixed timestamp precision.
//
// Integers carry the "i" suffix, floats are written in shortest round-trip
// form, strings are double-quoted. Tags and fields are written in insertion
// order.
type Encoder struct {
	precision Precision
}

// NewEncoder creates an Encoder for the given precision.
func NewEncoder(precision Precision) *Encoder {
	return &Encoder{precision: precision}
}

// Precision returns the encoder's timestamp precision.
func (e *Encoder) Precision() Precision {
	return e.precision
}

// Encode renders one point as a single line without a trailing newline.
//
// Returns:
//   - string: The encoded line
//   - error: ErrEncoding if the point cannot be represented
func (e *Encoder) Encode(p *Point) (string, error) {
	var buf bytes.Buffer
	if err := e.encodeTo(e.newWireEncoder(&buf), p); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// EncodeBatch renders points as a newline-joined payload in slice order.
// It fails as a whole if any point fails.
func (e *Encoder) EncodeBatch(points []*Point) ([]byte, error) {
	var buf bytes.Buffer
	wire := e.newWireEncoder(&buf)
	for i, p := range points {
		if err := e.encodeTo(wire, p); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (e *Encoder) newWireEncoder(w io.Writer) *protocol.Encoder {
	wire := protocol.NewEncoder(w)
	wire.SetPrecision(e.precision.Duration())
	wire.SetFieldSortOrder(protocol.NoSortFields)
	wire.FailOnFieldErr(true)
	return wire
}

func (e *Encoder) encodeTo(wire *protocol.Encoder, p *Point) error {
	if err := Validate(p); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if _, err := wire.Encode(p); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return nil
}
