package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"genbridge/internal/catalog"
)

// Truthy reports whether a value satisfies a required-field check. Mirrors
// the chat stack's semantics: nil, false, zero numbers, and empty strings,
// lists, and maps are all absent; everything else counts.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// CoerceString coerces a present value to text and writes it back. The
// second result reports presence; absent fields are not an error.
func CoerceString(p Payload, name string) (string, bool, error) {
	v, ok := p[name]
	if !ok {
		return "", false, nil
	}
	switch t := v.(type) {
	case string:
		return t, true, nil
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		p[name] = s
		return s, true, nil
	case int:
		s := strconv.Itoa(t)
		p[name] = s
		return s, true, nil
	case bool:
		s := strconv.FormatBool(t)
		p[name] = s
		return s, true, nil
	}
	return "", true, Errorf(name, "must be text")
}

// CoerceNumber coerces a present value to a float64 and writes it back.
// Numeric strings are parsed; booleans map to 0 and 1.
func CoerceNumber(p Payload, name string) (float64, bool, error) {
	v, ok := p[name]
	if !ok {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case float32:
		f := float64(t)
		p[name] = f
		return f, true, nil
	case int:
		f := float64(t)
		p[name] = f
		return f, true, nil
	case int64:
		f := float64(t)
		p[name] = f
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, true, Errorf(name, "must be a number")
		}
		p[name] = f
		return f, true, nil
	case bool:
		f := 0.0
		if t {
			f = 1
		}
		p[name] = f
		return f, true, nil
	}
	return 0, true, Errorf(name, "must be a number")
}

// CoerceBool coerces a present value to a boolean and writes it back.
// Accepts the usual textual spellings and treats any non-zero number as true.
func CoerceBool(p Payload, name string) (bool, bool, error) {
	v, ok := p[name]
	if !ok {
		return false, false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, true, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			p[name] = true
			return true, true, nil
		case "false", "0", "no", "off", "":
			p[name] = false
			return false, true, nil
		}
		return false, true, Errorf(name, "must be true or false")
	case float64:
		b := t != 0
		p[name] = b
		return b, true, nil
	case int:
		b := t != 0
		p[name] = b
		return b, true, nil
	}
	return false, true, Errorf(name, "must be true or false")
}

// CanonicalEnum folds a present value onto the field's declared allowed set.
// String enums match case-insensitively and fall back to the synonym table;
// numeric enums match after number coercion. The stored value is always the
// canonical member. Fields without an enum pass through untouched.
func CanonicalEnum(spec *catalog.ModelSpec, p Payload, name string) error {
	f := spec.Field(name)
	if f == nil || len(f.Enum) == 0 {
		return nil
	}
	if _, ok := p[name]; !ok {
		return nil
	}
	if f.Type == catalog.FieldNumber {
		n, _, err := CoerceNumber(p, name)
		if err != nil {
			return err
		}
		for _, member := range f.Enum {
			if m, ok := member.(float64); ok && m == n {
				p[name] = m
				return nil
			}
		}
		return Errorf(name, "must be one of %s", enumList(f.Enum))
	}
	s, _, err := CoerceString(p, name)
	if err != nil {
		return err
	}
	folded := strings.ToLower(strings.TrimSpace(s))
	for _, member := range f.Enum {
		if m, ok := member.(string); ok && strings.ToLower(m) == folded {
			p[name] = m
			return nil
		}
	}
	if canonical, ok := f.Synonyms[folded]; ok {
		p[name] = canonical
		return nil
	}
	return Errorf(name, "must be one of %s", enumList(f.Enum))
}

// ClampNumber coerces a present value to a number and clamps it into the
// field's declared min/max bounds.
func ClampNumber(spec *catalog.ModelSpec, p Payload, name string) error {
	f := spec.Field(name)
	if f == nil {
		return nil
	}
	n, present, err := CoerceNumber(p, name)
	if err != nil || !present {
		return err
	}
	if f.Min != nil && n < *f.Min {
		n = *f.Min
	}
	if f.Max != nil && n > *f.Max {
		n = *f.Max
	}
	p[name] = n
	return nil
}

// RangeNumber coerces a present value to a number and rejects it when it
// falls outside the field's declared bounds.
func RangeNumber(spec *catalog.ModelSpec, p Payload, name string) error {
	f := spec.Field(name)
	if f == nil {
		return nil
	}
	n, present, err := CoerceNumber(p, name)
	if err != nil || !present {
		return err
	}
	switch {
	case f.Min != nil && f.Max != nil && (n < *f.Min || n > *f.Max):
		return Errorf(name, "must be between %s and %s", formatNumber(*f.Min), formatNumber(*f.Max))
	case f.Min != nil && n < *f.Min:
		return Errorf(name, "must be at least %s", formatNumber(*f.Min))
	case f.Max != nil && n > *f.Max:
		return Errorf(name, "must be at most %s", formatNumber(*f.Max))
	}
	return nil
}

// CheckLength enforces the field's declared maximum length, counted in runes.
func CheckLength(spec *catalog.ModelSpec, p Payload, name string) error {
	f := spec.Field(name)
	if f == nil || f.MaxLength == 0 {
		return nil
	}
	s, present, err := CoerceString(p, name)
	if err != nil || !present {
		return err
	}
	if utf8.RuneCountInString(s) > f.MaxLength {
		return Errorf(name, "must be at most %d characters", f.MaxLength)
	}
	return nil
}

func enumList(enum []any) string {
	parts := make([]string, 0, len(enum))
	for _, m := range enum {
		switch t := m.(type) {
		case string:
			parts = append(parts, t)
		case float64:
			parts = append(parts, formatNumber(t))
		default:
			parts = append(parts, fmt.Sprint(t))
		}
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
