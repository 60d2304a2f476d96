package spellbook

import (
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/spell"
)

// MySQL is the MySQL and MariaDB dialect.
type MySQL struct {
	Base
}

func (MySQL) Name() string { return "mysql" }

// EscapeID backtick-quotes an identifier.
func (MySQL) EscapeID(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\b", "\\b",
	"\t", "\\t",
	"\x1a", "\\Z",
)

// Quote renders MySQL literals with backslash escaping.
func (MySQL) Quote(value any) string {
	return quoteValue(value, func(s string) string {
		return "'" + mysqlEscaper.Replace(s) + "'"
	}, func(b bool) string {
		if b {
			return "true"
		}
		return "false"
	})
}

// OptimizerHints renders /*+ ... */ with repeated hints dropped.
func (MySQL) OptimizerHints(s *spell.Spell) string {
	hints := spell.UniqueHints(s.Hints)
	if len(hints) == 0 {
		return ""
	}
	texts := make([]string, len(hints))
	for i, h := range hints {
		texts[i] = h.Text
	}
	return "/*+ " + strings.Join(texts, " ") + " */"
}

// IndexHints renders USE|FORCE|IGNORE INDEX [FOR scope] (indexes).
func (d MySQL) IndexHints(s *spell.Spell) string {
	hints := spell.MergeIndexHints(s.IndexHints)
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		indexes := make([]string, len(h.Indexes))
		for i, index := range h.Indexes {
			indexes[i] = d.EscapeID(index)
		}
		scope := ""
		if h.Scope != spell.ScopeAll {
			scope = " FOR " + string(h.Scope)
		}
		parts = append(parts, fmt.Sprintf("%s INDEX%s (%s)", h.Type, scope, strings.Join(indexes, ", ")))
	}
	return strings.Join(parts, " ")
}

// Conflict renders ON DUPLICATE KEY UPDATE col=VALUES(col). MySQL infers
// the conflicting key itself, so Keys is unused.
func (d MySQL) Conflict(c ConflictClause) string {
	if len(c.Updates) == 0 {
		// a no-op assignment keeps the statement an upsert
		pk := d.EscapeID(c.Primary)
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s=%s", pk, pk)
	}
	sets := make([]string, len(c.Updates))
	for i, col := range c.Updates {
		sets[i] = fmt.Sprintf("%s=VALUES(%s)", d.EscapeID(col), d.EscapeID(col))
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

// MutationTail appends ORDER BY and LIMIT to UPDATE and DELETE.
func (MySQL) MutationTail(f *Formatter) (string, []any, error) {
	s := f.Spell()
	var chunks []string
	var values []any

	if len(s.Orders) > 0 {
		for _, o := range s.Orders {
			if err := f.CollectLiteral(o.Expr, &values); err != nil {
				return "", nil, err
			}
		}
		orders, err := f.FormatOrders(s.Orders)
		if err != nil {
			return "", nil, err
		}
		chunks = append(chunks, "ORDER BY "+orders)
	}
	if s.RowCount > 0 {
		chunks = append(chunks, fmt.Sprintf("LIMIT %d", s.RowCount))
	}

	return strings.Join(chunks, " "), values, nil
}
