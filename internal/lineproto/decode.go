package lineproto

import (
	"fmt"
	"time"

	protocol "github.com/influxdata/line-protocol"
)

// Decode parses a line protocol payload into points.
//
// Timestamps are read in the given precision. Lines without a timestamp yield
// points without one. The parser returns tags sorted by key, so tag order of
// the original points is not reconstructed.
//
// Parameters:
//   - payload: Newline-separated line protocol
//   - precision: Unit of the timestamps in payload
//
// Returns:
//   - []*Point: Parsed points in payload order
//   - error: ErrDecoding wrapping the parser error (with line and column)
func Decode(payload []byte, precision Precision) ([]*Point, error) {
	handler := protocol.NewMetricHandler()
	handler.SetTimePrecision(precision.Duration())

	parser := protocol.NewParser(handler)
	parser.SetTimeFunc(func() time.Time { return time.Time{} })

	metrics, err := parser.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoding, err)
	}

	points := make([]*Point, 0, len(metrics))
	for _, m := range metrics {
		p := NewPoint(m.Name())
		for _, tag := range m.TagList() {
			p.AddTag(tag.Key, tag.Value)
		}
		for _, field := range m.FieldList() {
			p.AddField(field.Key, field.Value)
		}
		p.SetTime(m.Time())
		points = append(points, p)
	}

	return points, nil
}
