package lineproto

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks that p can be written as exactly one line of line protocol
// without losing any of its tags or fields.
//
// Returns:
//   - error: nil if valid, otherwise ErrValidation wrapping the reason
func Validate(p *Point) error {
	if p == nil {
		return fmt.Errorf("%w: nil point", ErrValidation)
	}

	if p.measurement == "" {
		return fmt.Errorf("%w: measurement is required", ErrValidation)
	}
	if err := checkName("measurement", p.measurement); err != nil {
		return err
	}
	if strings.HasPrefix(p.measurement, "#") {
		return fmt.Errorf("%w: measurement %q starts with '#' and would be read as a comment", ErrValidation, p.measurement)
	}

	for _, tag := range p.tags {
		if tag.Key == "" {
			return fmt.Errorf("%w: tag key is empty", ErrValidation)
		}
		if tag.Value == "" {
			return fmt.Errorf("%w: tag %q has an empty value", ErrValidation, tag.Key)
		}
		if err := checkName("tag key", tag.Key); err != nil {
			return err
		}
		if err := checkName("tag value", tag.Value); err != nil {
			return err
		}
	}

	if len(p.fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrValidation)
	}
	for _, field := range p.fields {
		if field.Key == "" {
			return fmt.Errorf("%w: field key is empty", ErrValidation)
		}
		if err := checkName("field key", field.Key); err != nil {
			return err
		}
		if err := checkFieldValue(field.Key, field.Value); err != nil {
			return err
		}
	}

	return nil
}

// controlChars are written as backslash sequences that no parser turns back
// into the original characters.
const controlChars = "\t\n\f\r"

// checkName rejects names the line protocol cannot carry unchanged: control
// characters, a backslash before a character the encoder escapes, and a
// trailing backslash that would swallow the separator.
func checkName(kind, s string) error {
	if strings.ContainsAny(s, controlChars) {
		return fmt.Errorf("%w: %s %q contains a control character", ErrValidation, kind, s)
	}
	if strings.HasSuffix(s, `\`) {
		return fmt.Errorf("%w: %s %q ends with a backslash", ErrValidation, kind, s)
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '\\' && strings.IndexByte(` ,="`, s[i+1]) >= 0 {
			return fmt.Errorf("%w: %s %q has a backslash before %q", ErrValidation, kind, s, s[i+1])
		}
	}
	return nil
}

// checkFieldValue accepts the four wire types only.
func checkFieldValue(key string, value interface{}) error {
	switch v := value.(type) {
	case int64, bool:
		return nil
	case string:
		if strings.ContainsAny(v, controlChars) {
			return fmt.Errorf("%w: string field %q contains a control character", ErrValidation, key)
		}
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: field %q is %v", ErrValidation, key, v)
		}
		return nil
	default:
		return fmt.Errorf("%w: field %q has unsupported type %T", ErrValidation, key, value)
	}
}
