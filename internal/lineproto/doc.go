// Package lineproto models time-series points and converts them to and from
// InfluxDB line protocol.
//
// # Purpose
//
// A Point is a measurement name, an insertion-ordered tag set, an
// insertion-ordered field set and an optional timestamp. The Encoder renders
// points as line protocol; Decode parses line protocol back into points.
// Encoding and parsing are delegated to github.com/influxdata/line-protocol.
//
// # Usage
//
//	p := lineproto.NewPoint("measurement1").
//	    AddTag("tagname1", "tagvalue1").
//	    IntField("field1", 3).
//	    SetTime(time.Now())
//
//	enc := lineproto.NewEncoder(lineproto.Nanosecond)
//	line, err := enc.Encode(p)
//	// measurement1,tagname1=tagvalue1 field1=3i 1760000000000000000
//
// # Validation
//
// Validate reports, as ErrValidation, everything the encoder would otherwise
// drop silently or be unable to represent unchanged: empty names, empty tag
// values, control characters (tab, newline, form feed, carriage return) in
// names or string values, a backslash at the end of a name or before a space,
// comma, equals sign or double quote, a measurement starting with '#' (read
// as a comment), NaN/Inf floats, missing fields and unsupported field types.
// Every point that passes decodes back to an equal point. Encode runs the
// same checks and reports failures as ErrEncoding.
//
// # Thread Safety
//
// A Point is not safe for concurrent mutation. Use Copy to hand a frozen
// snapshot to another goroutine. Encoder values are stateless and safe for
// concurrent use.
package lineproto
