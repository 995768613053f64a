package lineproto

import (
	"fmt"
	"time"
)

// Precision is the unit timestamps are written in.
type Precision string

// Supported precisions, named as the InfluxDB write API names them.
const (
	Nanosecond  Precision = "ns"
	Microsecond Precision = "us"
	Millisecond Precision = "ms"
	Second      Precision = "s"
)

// ParsePrecision converts a config value to a Precision. Empty means nanoseconds.
func ParsePrecision(s string) (Precision, error) {
	switch Precision(s) {
	case "", Nanosecond:
		return Nanosecond, nil
	case Microsecond, Millisecond, Second:
		return Precision(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrPrecision, s)
	}
}

// Duration returns the length of one precision unit.
func (p Precision) Duration() time.Duration {
	switch p {
	case Microsecond:
		return time.Microsecond
	case Millisecond:
		return time.Millisecond
	case Second:
		return time.Second
	default:
		return time.Nanosecond
	}
}

// String implements fmt.Stringer.
func (p Precision) String() string {
	if p == "" {
		return string(Nanosecond)
	}
	return string(p)
}
