// =============================================================================
// ifirma client - Value Transformers
// =============================================================================
//
// This module converts one domain-level scalar value into its wire-level
// representation.
//
// TRANSFORMER VARIANTS:
//   - Identity : the value is sent as-is
//   - Lookup   : closed enumeration, domain value -> wire value
//               (an input outside the table is an UnmappedValueError)
//   - Computed : a pure function of the input value
//
// BUILT-IN COMPUTED TRANSFORMERS:
//   - FormatDate      : date -> "YYYY-MM-DD"
//   - Percent         : 23 -> "0.23", 0 -> "0.0"
//   - StripWhitespace : "12 3456 7890" -> "1234567890"
//
// All transformers are stateless and safe for concurrent use.
//
// =============================================================================

package converter

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Transformer converts one domain scalar into its wire representation.
// The implementations are Identity, Lookup and Computed.
type Transformer interface {
	Transform(v any) (any, error)

	transformer()
}

// Identity returns its input unchanged.
type Identity struct{}

// Lookup maps a fixed set of domain values onto wire values.
type Lookup struct {
	// Name identifies the enumeration in error messages and schema dumps.
	Name string

	// Table maps domain values to wire values.
	Table map[string]string
}

// Computed applies a pure function.
type Computed struct {
	// Name identifies the function in error messages and schema dumps.
	Name string

	// Fn must not retain or mutate its input.
	Fn func(v any) (any, error)
}

func (Identity) transformer() {}
func (Lookup) transformer()   {}
func (Computed) transformer() {}

// Transform implements Transformer.
func (Identity) Transform(v any) (any, error) { return v, nil }

// Transform implements Transformer. Keys are matched exactly; strings and
// fmt.Stringer values are accepted.
func (l Lookup) Transform(v any) (any, error) {
	var key string
	switch v := v.(type) {
	case string:
		key = v
	case fmt.Stringer:
		key = v.String()
	default:
		return nil, &UnmappedValueError{Lookup: l.Name, Value: v}
	}
	wire, ok := l.Table[key]
	if !ok {
		return nil, &UnmappedValueError{Lookup: l.Name, Value: v}
	}
	return wire, nil
}

// Transform implements Transformer.
func (c Computed) Transform(v any) (any, error) {
	if c.Fn == nil {
		return v, nil
	}
	return c.Fn(v)
}

// NewLookup builds a Lookup owning a private copy of table.
func NewLookup(name string, table map[string]string) Lookup {
	return Lookup{Name: name, Table: copyTable(table)}
}

func copyTable(table map[string]string) map[string]string {
	if table == nil {
		return nil
	}
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

func cloneTransformer(t Transformer) Transformer {
	if l, ok := t.(Lookup); ok {
		return NewLookup(l.Name, l.Table)
	}
	return t
}

// =============================================================================
// DATES
// =============================================================================

// DateLayout is the wire date format.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String formats d with DateLayout.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// valid rejects dates that time.Date would normalize (e.g. February 30).
func (d Date) valid() bool {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

// FormatDate renders dates as "YYYY-MM-DD".
//
// ACCEPTED INPUTS:
//   - time.Time / *time.Time
//   - Date
//   - a map with numeric "year", "month" and "day" keys
//   - a string already in DateLayout, or RFC 3339
var FormatDate = Computed{Name: "date", Fn: formatDate}

func formatDate(v any) (any, error) {
	switch v := v.(type) {
	case time.Time:
		return v.Format(DateLayout), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format(DateLayout), nil
	case Date:
		if !v.valid() {
			return nil, fmt.Errorf("invalid date %s", v)
		}
		return v.String(), nil
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(DateLayout, s); err == nil {
			return t.Format(DateLayout), nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format(DateLayout), nil
		}
		return nil, fmt.Errorf("cannot parse %q as a date", v)
	}

	if m, ok := asMap(v); ok {
		d, err := dateFromParts(m)
		if err != nil {
			return nil, err
		}
		return formatDate(d)
	}
	return nil, fmt.Errorf("unsupported date value of type %T", v)
}

func dateFromParts(m map[string]any) (Date, error) {
	var parts [3]int
	for i, name := range []string{"year", "month", "day"} {
		raw, ok := m[name]
		if !ok {
			return Date{}, fmt.Errorf("date is missing %q", name)
		}
		f, err := toFloat(raw)
		if err != nil || f != math.Trunc(f) {
			return Date{}, fmt.Errorf("date %q must be a whole number", name)
		}
		parts[i] = int(f)
	}
	if len(m) != 3 {
		return Date{}, fmt.Errorf("date must only contain year, month and day")
	}
	return Date{Year: parts[0], Month: time.Month(parts[1]), Day: parts[2]}, nil
}

// =============================================================================
// NUMBERS
// =============================================================================

// Percent turns a percentage into a decimal fraction string: 23 -> "0.23",
// 8 -> "0.08", 7.5 -> "0.075", 0 -> "0.0". The fraction always carries a
// decimal point.
var Percent = Computed{Name: "percent", Fn: percentToFraction}

func percentToFraction(v any) (any, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("percentage must be finite, got %v", f)
	}
	s := strconv.FormatFloat(f/100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", v)
		}
		return f, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("unsupported numeric value of type %T", v)
}

// =============================================================================
// TEXT
// =============================================================================

// StripWhitespace removes every whitespace rune from free text.
var StripWhitespace = Computed{Name: "strip_whitespace", Fn: stripWhitespace}

func stripWhitespace(v any) (any, error) {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		return nil, fmt.Errorf("expected text, got %T", v)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s), nil
}
