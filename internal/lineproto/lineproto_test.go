package lineproto

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Point
// ============================================================================

func TestPoint_AddTagReplacesInPlace(t *testing.T) {
	p := NewPoint("cpu").
		AddTag("host", "a").
		AddTag("region", "eu").
		AddTag("host", "b")

	require.Len(t, p.TagList(), 2)
	assert.Equal(t, "host", p.TagList()[0].Key)
	assert.Equal(t, "b", p.TagList()[0].Value)
	assert.Equal(t, "region", p.TagList()[1].Key)
}

func TestPoint_AddFieldNormalizesNumbers(t *testing.T) {
	p := NewPoint("m").
		AddField("i", 7).
		AddField("i32", int32(-3)).
		AddField("u", uint64(9)).
		AddField("f32", float32(1.5))

	v, _ := p.Field("i")
	assert.Equal(t, int64(7), v)
	v, _ = p.Field("i32")
	assert.Equal(t, int64(-3), v)
	v, _ = p.Field("u")
	assert.Equal(t, int64(9), v)
	v, _ = p.Field("f32")
	assert.Equal(t, float64(1.5), v)
}

func TestPoint_CopyIsIndependent(t *testing.T) {
	ts := time.Unix(100, 0)
	p := NewPoint("m").AddTag("t", "1").IntField("f", 1).SetTime(ts)
	c := p.Copy()

	p.AddTag("t", "2").IntField("f", 2).AddTag("extra", "x")

	tag, _ := c.Tag("t")
	field, _ := c.Field("f")
	assert.Equal(t, "1", tag)
	assert.Equal(t, int64(1), field)
	assert.Len(t, c.TagList(), 1)
	assert.True(t, c.Time().Equal(ts))
}

func TestPoint_HasTime(t *testing.T) {
	p := NewPoint("m")
	assert.False(t, p.HasTime())
	p.SetTime(time.Now())
	assert.True(t, p.HasTime())
	p.SetTime(time.Time{})
	assert.False(t, p.HasTime())
}

// ============================================================================
// Precision
// ============================================================================

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in   string
		want Precision
		dur  time.Duration
	}{
		{"", Nanosecond, time.Nanosecond},
		{"ns", Nanosecond, time.Nanosecond},
		{"us", Microsecond, time.Microsecond},
		{"ms", Millisecond, time.Millisecond},
		{"s", Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrecision(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.dur, got.Duration())
		})
	}

	_, err := ParsePrecision("h")
	assert.ErrorIs(t, err, ErrPrecision)
}

// ============================================================================
// Validate
// ============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		point *Point
		ok    bool
	}{
		{"valid", NewPoint("m").AddTag("t", "v").IntField("f", 1), true},
		{"nil point", nil, false},
		{"empty measurement", NewPoint("").IntField("f", 1), false},
		{"no fields", NewPoint("m").AddTag("t", "v"), false},
		{"empty tag key", NewPoint("m").AddTag("", "v").IntField("f", 1), false},
		{"empty tag value", NewPoint("m").AddTag("t", "").IntField("f", 1), false},
		{"empty field key", NewPoint("m").IntField("", 1), false},
		{"line break in measurement", NewPoint("m\nx").IntField("f", 1), false},
		{"line break in tag value", NewPoint("m").AddTag("t", "a\r\nb").IntField("f", 1), false},
		{"trailing backslash in field key", NewPoint("m").IntField(`f\`, 1), false},
		{"NaN", NewPoint("m").FloatField("f", math.NaN()), false},
		{"Inf", NewPoint("m").FloatField("f", math.Inf(-1)), false},
		{"unsupported type", NewPoint("m").AddField("f", struct{}{}), false},
		{"huge uint", NewPoint("m").AddField("f", uint64(math.MaxUint64)), false},
		{"tab in measurement", NewPoint("m\tx").IntField("f", 1), false},
		{"form feed in tag key", NewPoint("m").AddTag("t\fk", "v").IntField("f", 1), false},
		{"tab in tag value", NewPoint("m").AddTag("t", "a\tb").IntField("f", 1), false},
		{"carriage return in field key", NewPoint("m").IntField("f\r", 1), false},
		{"newline in string field", NewPoint("m").StringField("s", "line1\nline2"), false},
		{"tab in string field", NewPoint("m").StringField("s", "a\tb"), false},
		{"leading hash in measurement", NewPoint("#cpu").IntField("f", 1), false},
		{"hash later in measurement", NewPoint("cpu#1").IntField("f", 1), true},
		{"backslash before space in measurement", NewPoint(`a\ b`).IntField("f", 1), false},
		{"backslash before comma in tag value", NewPoint("m").AddTag("t", `a\,b`).IntField("f", 1), false},
		{"backslash before equals in field key", NewPoint("m").IntField(`f\=g`, 1), false},
		{"backslash before quote in tag value", NewPoint("m").AddTag("t", `a\"b`).IntField("f", 1), false},
		{"backslash in tag value", NewPoint("m").AddTag("path", `C:\temp`).IntField("f", 1), true},
		{"backslash and quote in string field", NewPoint("m").StringField("s", `say "hi"\`), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.point)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

// ============================================================================
// Encode
// ============================================================================

func TestEncoder_Encode(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)

	tests := []struct {
		name      string
		precision Precision
		point     *Point
		want      string
	}{
		{
			name:      "int field with nanosecond timestamp",
			precision: Nanosecond,
			point:     NewPoint("measurement1").AddTag("tagname1", "tagvalue1").IntField("field1", 3).SetTime(ts),
			want:      "measurement1,tagname1=tagvalue1 field1=3i 1700000000123456789",
		},
		{
			name:      "millisecond precision truncates",
			precision: Millisecond,
			point:     NewPoint("m").FloatField("v", 2.5).SetTime(ts),
			want:      "m v=2.5 1700000000123",
		},
		{
			name:      "second precision",
			precision: Second,
			point:     NewPoint("m").BoolField("ok", true).SetTime(ts),
			want:      "m ok=true 1700000000",
		},
		{
			name:      "no timestamp",
			precision: Nanosecond,
			point:     NewPoint("m").StringField("s", "x"),
			want:      `m s="x"`,
		},
		{
			name:      "insertion order kept",
			precision: Nanosecond,
			point:     NewPoint("m").AddTag("z", "1").AddTag("a", "2").IntField("y", 1).IntField("b", 2),
			want:      "m,z=1,a=2 y=1i,b=2i",
		},
		{
			name:      "escaping",
			precision: Nanosecond,
			point: NewPoint("my measurement,x").
				AddTag("tag key", "a,b=c").
				StringField("msg", `say "hi"\`),
			want: `my\ measurement\,x,tag\ key=a\,b\=c msg="say \"hi\"\\"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncoder(tt.precision).Encode(tt.point)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoder_EncodeRejectsInvalid(t *testing.T) {
	_, err := NewEncoder(Nanosecond).Encode(NewPoint("m").AddTag("t", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestEncoder_EncodeBatch(t *testing.T) {
	enc := NewEncoder(Second)
	points := []*Point{
		NewPoint("m").IntField("f", 1).SetTime(time.Unix(1, 0)),
		NewPoint("m").IntField("f", 2).SetTime(time.Unix(2, 0)),
	}

	payload, err := enc.EncodeBatch(points)
	require.NoError(t, err)
	assert.Equal(t, "m f=1i 1\nm f=2i 2", string(payload))

	points = append(points, NewPoint("m"))
	_, err = enc.EncodeBatch(points)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "point 2")
}

// The write/query scenario: five points, one per second, with increasing
// integer values.
func TestEncoder_DemoScenario(t *testing.T) {
	enc := NewEncoder(Nanosecond)
	start := time.Unix(1700000000, 0)

	var lines []string
	for i := 0; i < 5; i++ {
		p := NewPoint("measurement1").
			AddTag("tagname1", "tagvalue1").
			IntField("field1", int64(i)).
			SetTime(start.Add(time.Duration(i) * time.Second))
		line, err := enc.Encode(p)
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, "measurement1,tagname1=tagvalue1 field1=0i 1700000000000000000", lines[0])
	assert.Equal(t, "measurement1,tagname1=tagvalue1 field1=4i 1700000004000000000", lines[4])
}

// ============================================================================
// Decode
// ============================================================================

func TestDecode_RoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 5)
	original := []*Point{
		NewPoint("weather station").
			AddTag("city", "San Jose, CA").
			AddTag("alt", "1=2").
			FloatField("temp", 21.5).
			IntField("count", -4).
			StringField("note", `quoted "text"`).
			BoolField("ok", false).
			SetTime(ts),
		NewPoint("m").IntField("f", 1),
	}

	payload, err := NewEncoder(Nanosecond).EncodeBatch(original)
	require.NoError(t, err)

	decoded, err := Decode(payload, Nanosecond)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	first := decoded[0]
	assert.Equal(t, "weather station", first.Name())
	city, _ := first.Tag("city")
	alt, _ := first.Tag("alt")
	assert.Equal(t, "San Jose, CA", city)
	assert.Equal(t, "1=2", alt)
	for _, key := range []string{"temp", "count", "note", "ok"} {
		want, _ := original[0].Field(key)
		got, ok := first.Field(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	assert.Equal(t, ts.UnixNano(), first.Time().UnixNano())

	assert.False(t, decoded[1].HasTime())
}

// assertSamePoint compares two points by content. Decoding sorts tags, so
// tags are compared as a set.
func assertSamePoint(t *testing.T, want, got *Point) {
	t.Helper()

	assert.Equal(t, want.Name(), got.Name())

	wantTags := make(map[string]string)
	for _, tag := range want.TagList() {
		wantTags[tag.Key] = tag.Value
	}
	gotTags := make(map[string]string)
	for _, tag := range got.TagList() {
		gotTags[tag.Key] = tag.Value
	}
	assert.Equal(t, wantTags, gotTags)

	require.Len(t, got.FieldList(), len(want.FieldList()))
	for i, field := range want.FieldList() {
		assert.Equal(t, field.Key, got.FieldList()[i].Key)
		assert.Equal(t, field.Value, got.FieldList()[i].Value, field.Key)
	}

	assert.Equal(t, want.HasTime(), got.HasTime())
	if want.HasTime() {
		assert.Equal(t, want.Time().UnixNano(), got.Time().UnixNano())
	}
}

func TestDecode_RoundTripEscapes(t *testing.T) {
	ts := time.Unix(1700000000, 42)

	tests := []struct {
		name  string
		point *Point
	}{
		{"plain", NewPoint("cpu").AddTag("host", "a").FloatField("usage", 0.25).SetTime(ts)},
		{"spaces and commas in measurement", NewPoint("disk io, total").IntField("f", 1)},
		{"equals in measurement", NewPoint("a=b").IntField("f", 1)},
		{"hash after first char", NewPoint("cpu#1").IntField("f", 1)},
		{"escaped tag characters", NewPoint("m").AddTag("k ey,=", "v al,=ue").IntField("f", 1)},
		{"escaped field key characters", NewPoint("m").IntField("f ie,ld=", 1)},
		{"backslash in measurement", NewPoint(`dir
ame`).IntField("f", 1)},
		{"backslash in tag value", NewPoint("m").AddTag("path", `C:	emp\logs`).IntField("f", 1)},
		{"double backslash in tag value", NewPoint("m").AddTag("share", `\server`).IntField("f", 1)},
		{"backslash in field key", NewPoint("m").IntField(`a`, 1)},
		{"quotes and backslashes in string", NewPoint("m").StringField("s", `say "hi" \ and \ done\`)},
		{"empty string field", NewPoint("m").StringField("s", "")},
		{"unicode", NewPoint("température").AddTag("ville", "Zürich").StringField("note", "℃ ✓")},
		{"all field types", NewPoint("m").
			IntField("i", math.MinInt64).
			FloatField("f", -1.5e-9).
			StringField("s", "x").
			BoolField("b", true).
			SetTime(ts)},
	}

	enc := NewEncoder(Nanosecond)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Validate(tt.point))

			line, err := enc.Encode(tt.point)
			require.NoError(t, err)

			decoded, err := Decode([]byte(line), Nanosecond)
			require.NoError(t, err, line)
			require.Len(t, decoded, 1, line)
			assertSamePoint(t, tt.point, decoded[0])
		})
	}
}

func TestEncoder_RejectsCommentMeasurement(t *testing.T) {
	_, err := NewEncoder(Nanosecond).EncodeBatch([]*Point{
		NewPoint("#cpu").IntField("f", 1),
		NewPoint("m").IntField("f", 2),
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "point 0")
}

func TestDecode_Precision(t *testing.T) {
	decoded, err := Decode([]byte("m f=1i 1700000000"), Second)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(1700000000), decoded[0].Time().Unix())
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("m,tag=1"), Nanosecond)
	assert.ErrorIs(t, err, ErrDecoding)

	_, err = Decode([]byte(strings.Repeat("x", 3)+" f="), Nanosecond)
	assert.ErrorIs(t, err, ErrDecoding)
}
