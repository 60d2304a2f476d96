package spellbook

import "github.com/roach88/spellbook/internal/spell"

// Postgres is the PostgreSQL dialect.
type Postgres struct {
	Base
}

func (Postgres) Name() string { return "postgres" }

// Conflict renders ON CONFLICT (keys) DO UPDATE SET col=EXCLUDED.col.
func (d Postgres) Conflict(c ConflictClause) string {
	return onConflict(d.EscapeID, c)
}

// Returning renders RETURNING * or a column list.
func (d Postgres) Returning(s *spell.Spell) string {
	return returning(d.EscapeID, s)
}
