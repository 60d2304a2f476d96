package spellbook

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
)

// Dialect captures everything that differs between databases: how
// identifiers and values are escaped, and the clauses only some databases
// understand. Hooks return "" when the dialect has nothing to add.
type Dialect interface {
	// Name is the dialect name accepted by DialectFor.
	Name() string

	// EscapeID quotes an identifier.
	EscapeID(name string) string

	// Quote renders a value as a SQL literal. It is used to inline values
	// for display, never for the statements handed to a driver.
	Quote(value any) string

	// OptimizerHints renders optimizer hints placed after the leading
	// keyword (SELECT, INSERT, UPDATE, DELETE).
	OptimizerHints(s *spell.Spell) string

	// IndexHints renders index hints placed after the table of a SELECT.
	IndexHints(s *spell.Spell) string

	// Conflict renders the upsert clause of an INSERT.
	Conflict(c ConflictClause) string

	// Returning renders the RETURNING clause of INSERT and UPDATE.
	Returning(s *spell.Spell) string

	// MutationTail renders clauses appended to UPDATE and DELETE, along with
	// their values.
	MutationTail(f *Formatter) (string, []any, error)

	// QualifierColumns lists the select columns of a joined qualifier that
	// contributed no explicit column. Nil selects qualifier.*.
	QualifierColumns(qualifier string, model *schema.Model) []string
}

// ConflictClause is the resolved upsert target. All names are columns.
type ConflictClause struct {
	// Keys is the conflict target: explicit unique keys, the first unique
	// attribute, or the primary key.
	Keys []string
	// Updates are assigned from the incoming row on conflict.
	Updates []string
	// Primary is the primary key column.
	Primary string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want mysql, postgres or sqlite)", name)
	}
}

// Base implements ANSI escaping and no-op hooks. Dialects embed it and
// override what differs.
type Base struct{}

func (Base) Name() string { return "ansi" }

// EscapeID double-quotes an identifier, doubling embedded quotes.
func (Base) EscapeID(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Quote renders ANSI literals: strings with doubled single quotes, TRUE and
// FALSE for booleans.
func (Base) Quote(value any) string {
	return quoteValue(value, quoteANSIString, func(b bool) string {
		if b {
			return "TRUE"
		}
		return "FALSE"
	})
}

func (Base) OptimizerHints(*spell.Spell) string { return "" }

func (Base) IndexHints(*spell.Spell) string { return "" }

func (Base) Conflict(ConflictClause) string { return "" }

func (Base) Returning(*spell.Spell) string { return "" }

func (Base) MutationTail(*Formatter) (string, []any, error) { return "", nil, nil }

func (Base) QualifierColumns(string, *schema.Model) []string { return nil }

// onConflict renders ON CONFLICT (keys) DO UPDATE SET col=EXCLUDED.col.
func onConflict(escapeID func(string) string, c ConflictClause) string {
	keys := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		keys[i] = escapeID(k)
	}
	if len(c.Updates) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(keys, ", "))
	}

	sets := make([]string, len(c.Updates))
	for i, col := range c.Updates {
		sets[i] = fmt.Sprintf("%s=EXCLUDED.%s", escapeID(col), escapeID(col))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
}

// returning renders RETURNING * or RETURNING with the listed attributes.
func returning(escapeID func(string) string, s *spell.Spell) string {
	if !s.Returning.Enabled {
		return ""
	}
	if len(s.Returning.Columns) == 0 {
		return "RETURNING *"
	}
	cols := make([]string, len(s.Returning.Columns))
	for i, name := range s.Returning.Columns {
		cols[i] = escapeID(s.Model.ColumnName(name))
	}
	return "RETURNING " + strings.Join(cols, ", ")
}

const timeLayout = "2006-01-02 15:04:05.000"

func quoteANSIString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteValue(value any, str func(string) string, boolean func(bool) string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		return boolean(v)
	case string:
		return str(v)
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	case time.Time:
		return str(v.Format(timeLayout))
	case decimal.Decimal:
		return v.String()
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = quoteValue(item, str, boolean)
		}
		return "(" + strings.Join(items, ", ") + ")"
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return strconv.FormatInt(rv.Int(), 10)
	case rv.CanUint():
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return str(fmt.Sprint(value))
	}
}
