package harness

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/spellbook/internal/spellbook"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Dialect  string // Dialect whose output failed, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Dialect != "" {
		fmt.Fprintf(&buf, " (%s)", e.Dialect)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// assertOutput checks one dialect's output against its expectation.
func assertOutput(dialect string, expect Expectation, out Output) []error {
	var errs []error

	if expect.SQL != "" {
		if out.err != nil {
			return []error{&AssertionError{
				Type:     "sql",
				Dialect:  dialect,
				Expected: expect.SQL,
				Actual:   "compile error: " + out.Error,
			}}
		}
		if out.SQL != expect.SQL {
			errs = append(errs, &AssertionError{
				Type:     "sql",
				Dialect:  dialect,
				Expected: expect.SQL,
				Actual:   out.SQL,
			})
		}
		if expect.Values != nil && !valuesEqual(expect.Values, out.Values) {
			errs = append(errs, &AssertionError{
				Type:     "values",
				Dialect:  dialect,
				Expected: fmt.Sprintf("%v", expect.Values),
				Actual:   fmt.Sprintf("%v", out.Values),
			})
		}
		return errs
	}

	if out.err == nil {
		return []error{&AssertionError{
			Type:     "error",
			Dialect:  dialect,
			Expected: fmt.Sprintf("error %q", expect.Error+expect.Code),
			Actual:   out.SQL,
		}}
	}

	if expect.Error != "" && !strings.Contains(out.Error, expect.Error) {
		errs = append(errs, &AssertionError{
			Type:     "error",
			Dialect:  dialect,
			Expected: fmt.Sprintf("error containing %q", expect.Error),
			Actual:   out.Error,
		})
	}

	if expect.Code != "" {
		var se *spellbook.Error
		actual := "not a compile error"
		if errors.As(out.err, &se) {
			actual = string(se.Code)
		}
		if actual != expect.Code {
			errs = append(errs, &AssertionError{
				Type:     "code",
				Dialect:  dialect,
				Expected: expect.Code,
				Actual:   actual,
			})
		}
	}

	return errs
}

// assertRows checks sandbox rows in order. Only the columns named in an
// expected row are validated.
func assertRows(expected, actual []map[string]any) error {
	if len(expected) != len(actual) {
		return &AssertionError{
			Type:     "rows",
			Expected: fmt.Sprintf("%d rows", len(expected)),
			Actual:   fmt.Sprintf("%d rows: %v", len(actual), actual),
		}
	}

	for i, want := range expected {
		keys := make([]string, 0, len(want))
		for key := range want {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			got, ok := actual[i][key]
			if !ok {
				return &AssertionError{
					Type:     "rows",
					Expected: fmt.Sprintf("row %d column %q to exist", i, key),
					Actual:   fmt.Sprintf("columns: %v", columnNames(actual[i])),
				}
			}
			if !reflect.DeepEqual(normalizeValue(want[key]), normalizeValue(got)) {
				return &AssertionError{
					Type:     "rows",
					Expected: fmt.Sprintf("row %d column %q = %v (type %T)", i, key, want[key], want[key]),
					Actual:   fmt.Sprintf("row %d column %q = %v (type %T)", i, key, got, got),
				}
			}
		}
	}

	return nil
}

func valuesEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !reflect.DeepEqual(normalizeValue(expected[i]), normalizeValue(actual[i])) {
			return false
		}
	}
	return true
}

// normalizeValue maps values decoded from YAML, bound by the compiler and
// scanned from SQLite onto one representation: integers become int64,
// whole floats and decimals become int64, other numbers float64, bytes
// become strings and times RFC 3339 text.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case []byte:
		return string(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case decimal.Decimal:
		if x.IsInteger() {
			return x.IntPart()
		}
		f, _ := x.Float64()
		return f
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	}
	return v
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func columnNames(row map[string]any) []string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
