package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DataType is a parsed column type such as VARCHAR(255) or DECIMAL(10,2).
type DataType struct {
	Name     string
	Length   int
	Scale    int
	Unsigned bool
}

// Affinity groups data types by the storage class SQLite gives them.
type Affinity string

const (
	AffinityInteger Affinity = "INTEGER"
	AffinityReal    Affinity = "REAL"
	AffinityNumeric Affinity = "NUMERIC"
	AffinityText    Affinity = "TEXT"
	AffinityBlob    Affinity = "BLOB"
)

var dataTypes = map[string]Affinity{
	"TINYINT":   AffinityInteger,
	"SMALLINT":  AffinityInteger,
	"MEDIUMINT": AffinityInteger,
	"INTEGER":   AffinityInteger,
	"BIGINT":    AffinityInteger,
	"BOOLEAN":   AffinityInteger,
	"FLOAT":     AffinityReal,
	"DOUBLE":    AffinityReal,
	"REAL":      AffinityReal,
	"DECIMAL":   AffinityNumeric,
	"CHAR":      AffinityText,
	"VARCHAR":   AffinityText,
	"TEXT":      AffinityText,
	"JSON":      AffinityText,
	"JSONB":     AffinityText,
	"UUID":      AffinityText,
	"DATE":      AffinityNumeric,
	"DATETIME":  AffinityNumeric,
	"TIMESTAMP": AffinityNumeric,
	"BINARY":    AffinityBlob,
	"VARBINARY": AffinityBlob,
	"BLOB":      AffinityBlob,
}

var typeAliases = map[string]string{
	"INT":     "INTEGER",
	"STRING":  "VARCHAR",
	"BOOL":    "BOOLEAN",
	"NUMERIC": "DECIMAL",
	"BYTEA":   "BLOB",
}

// UnknownTypeError reports a type name with no mapping.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown data type %q", e.Type)
}

// IsUnknownTypeError returns true if err is or wraps an UnknownTypeError.
func IsUnknownTypeError(err error) bool {
	var ute *UnknownTypeError
	return errors.As(err, &ute)
}

// ParseDataType parses a type definition. Names are case-insensitive; STRING
// without a length becomes VARCHAR(255).
//
//	ParseDataType("varchar(64)")        // VARCHAR(64)
//	ParseDataType("DECIMAL(10, 2)")     // DECIMAL(10,2)
//	ParseDataType("BIGINT UNSIGNED")    // BIGINT UNSIGNED
func ParseDataType(text string) (DataType, error) {
	src := strings.ToUpper(strings.TrimSpace(text))

	var dt DataType
	if rest, ok := strings.CutSuffix(src, " UNSIGNED"); ok {
		dt.Unsigned = true
		src = strings.TrimSpace(rest)
	}

	name, params := src, ""
	if open := strings.IndexByte(src, '('); open >= 0 {
		if !strings.HasSuffix(src, ")") {
			return DataType{}, &UnknownTypeError{Type: text}
		}
		name = strings.TrimSpace(src[:open])
		params = src[open+1 : len(src)-1]
	}

	if canonical, ok := typeAliases[name]; ok {
		if name == "STRING" && params == "" {
			params = "255"
		}
		name = canonical
	}
	if _, ok := dataTypes[name]; !ok {
		return DataType{}, &UnknownTypeError{Type: text}
	}
	dt.Name = name

	if params != "" {
		parts := strings.Split(params, ",")
		if len(parts) > 2 {
			return DataType{}, &UnknownTypeError{Type: text}
		}
		length, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || length < 0 {
			return DataType{}, &UnknownTypeError{Type: text}
		}
		dt.Length = length
		if len(parts) == 2 {
			scale, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil || scale < 0 {
				return DataType{}, &UnknownTypeError{Type: text}
			}
			dt.Scale = scale
		}
	}

	return dt, nil
}

// MustParseDataType is like ParseDataType but panics on error. Intended for
// tests and package-level model definitions.
func MustParseDataType(text string) DataType {
	dt, err := ParseDataType(text)
	if err != nil {
		panic(err)
	}
	return dt
}

// String renders the type as SQL.
func (dt DataType) String() string {
	var b strings.Builder
	b.WriteString(dt.Name)
	if dt.Length > 0 {
		b.WriteString("(")
		b.WriteString(strconv.Itoa(dt.Length))
		if dt.Scale > 0 {
			b.WriteString(",")
			b.WriteString(strconv.Itoa(dt.Scale))
		}
		b.WriteString(")")
	}
	if dt.Unsigned {
		b.WriteString(" UNSIGNED")
	}
	return b.String()
}

// Affinity returns the SQLite storage class of the type.
func (dt DataType) Affinity() Affinity {
	if a, ok := dataTypes[dt.Name]; ok {
		return a
	}
	return AffinityBlob
}
