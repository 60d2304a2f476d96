package spellbook

import (
	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
)

// SQLite is the SQLite dialect.
type SQLite struct {
	Base
}

func (SQLite) Name() string { return "sqlite" }

// Quote renders booleans as 1 and 0.
func (SQLite) Quote(value any) string {
	return quoteValue(value, quoteANSIString, func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	})
}

// IndexHints renders INDEXED BY for the first USE or FORCE index, or
// NOT INDEXED when indexes are to be ignored. SQLite takes a single index
// and has no hint scopes.
func (d SQLite) IndexHints(s *spell.Spell) string {
	for _, h := range s.IndexHints {
		if h.Type == spell.IgnoreIndex {
			return "NOT INDEXED"
		}
	}
	for _, h := range s.IndexHints {
		if len(h.Indexes) > 0 {
			return "INDEXED BY " + d.EscapeID(h.Indexes[0])
		}
	}
	return ""
}

// Conflict renders ON CONFLICT (keys) DO UPDATE SET col=EXCLUDED.col.
func (d SQLite) Conflict(c ConflictClause) string {
	return onConflict(d.EscapeID, c)
}

// Returning renders RETURNING * or a column list.
func (d SQLite) Returning(s *spell.Spell) string {
	return returning(d.EscapeID, s)
}

// QualifierColumns lists every attribute of a joined model as
// "qualifier"."column" AS "qualifier:attribute". SQLite reports q.* columns
// without their qualifier, so rows could not be split back per model.
func (d SQLite) QualifierColumns(qualifier string, model *schema.Model) []string {
	cols := make([]string, len(model.Attributes))
	for i, attr := range model.Attributes {
		cols[i] = d.EscapeID(qualifier) + "." + d.EscapeID(attr.Column) +
			" AS " + d.EscapeID(qualifier+":"+attr.Name)
	}
	return cols
}
