package lineproto

import (
	"math"
	"time"

	protocol "github.com/influxdata/line-protocol"
)

// Point is a single time-series sample.
//
// Tags and fields keep insertion order so encoding is deterministic. Adding
// an existing key replaces its value in place. A zero timestamp means the
// server assigns one on arrival.
//
// Point implements protocol.Metric.
type Point struct {
	measurement string
	tags        []*protocol.Tag
	fields      []*protocol.Field
	ts          time.Time
}

// NewPoint creates a point for the given measurement.
func NewPoint(measurement string) *Point {
	return &Point{measurement: measurement}
}

// AddTag sets a tag, preserving the position of an existing key.
func (p *Point) AddTag(key, value string) *Point {
	for _, tag := range p.tags {
		if tag.Key == key {
			tag.Value = value
			return p
		}
	}
	p.tags = append(p.tags, &protocol.Tag{Key: key, Value: value})
	return p
}

// AddField sets a field, preserving the position of an existing key.
//
// Integers of any width are stored as int64 and float32 as float64.
// Values of any other type are kept as-is and rejected by Validate.
func (p *Point) AddField(key string, value interface{}) *Point {
	value = normalizeField(value)
	for _, field := range p.fields {
		if field.Key == key {
			field.Value = value
			return p
		}
	}
	p.fields = append(p.fields, &protocol.Field{Key: key, Value: value})
	return p
}

// IntField sets an integer field.
func (p *Point) IntField(key string, value int64) *Point {
	return p.AddField(key, value)
}

// FloatField sets a floating-point field.
func (p *Point) FloatField(key string, value float64) *Point {
	return p.AddField(key, value)
}

// StringField sets a string field.
func (p *Point) StringField(key, value string) *Point {
	return p.AddField(key, value)
}

// BoolField sets a boolean field.
func (p *Point) BoolField(key string, value bool) *Point {
	return p.AddField(key, value)
}

// SetTime sets the timestamp. A zero time clears it.
func (p *Point) SetTime(t time.Time) *Point {
	p.ts = t
	return p
}

// Name returns the measurement name.
func (p *Point) Name() string {
	return p.measurement
}

// TagList returns the tags in insertion order.
func (p *Point) TagList() []*protocol.Tag {
	return p.tags
}

// FieldList returns the fields in insertion order.
func (p *Point) FieldList() []*protocol.Field {
	return p.fields
}

// Time returns the timestamp, or the zero time when unset.
func (p *Point) Time() time.Time {
	return p.ts
}

// HasTime reports whether the point carries its own timestamp.
func (p *Point) HasTime() bool {
	return !p.ts.IsZero()
}

// Tag returns the value of a tag.
func (p *Point) Tag(key string) (string, bool) {
	for _, tag := range p.tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Field returns the value of a field.
func (p *Point) Field(key string) (interface{}, bool) {
	for _, field := range p.fields {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Copy returns a deep copy that shares no tag or field storage with p.
func (p *Point) Copy() *Point {
	c := &Point{
		measurement: p.measurement,
		ts:          p.ts,
	}
	if len(p.tags) > 0 {
		c.tags = make([]*protocol.Tag, len(p.tags))
		for i, tag := range p.tags {
			c.tags[i] = &protocol.Tag{Key: tag.Key, Value: tag.Value}
		}
	}
	if len(p.fields) > 0 {
		c.fields = make([]*protocol.Field, len(p.fields))
		for i, field := range p.fields {
			c.fields[i] = &protocol.Field{Key: field.Key, Value: field.Value}
		}
	}
	return c
}

// normalizeField widens numeric values to the two wire numeric types.
func normalizeField(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v)
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
	case float32:
		return float64(v)
	}
	return value
}
