package spellbook

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
)

// formatInsert compiles INSERT, bulk INSERT and upsert. Every row is
// emitted with the same column order; absent attributes bind NULL.
func (b *Spellbook) formatInsert(s *spell.Spell) (*Result, error) {
	attrs := insertAttributes(s)
	if len(s.Sets) == 0 || len(attrs) == 0 {
		return nil, newQueryShapeError(s.Model.Name, "unable to insert with empty set")
	}
	if key := s.Model.ShardingKey; key != "" {
		for _, row := range s.Sets {
			if v, ok := row[key]; !ok || isNull(v) {
				return nil, newShardingKeyError(s.Model.Name, s.TableName(), key, "sharding key %s cannot be NULL")
			}
		}
	}

	f := b.formatter(s)
	var values []any

	columns := make([]string, len(attrs))
	for i, attr := range attrs {
		columns[i] = b.dialect.EscapeID(s.Model.ColumnName(attr))
	}

	tuples := make([]string, len(s.Sets))
	for r, row := range s.Sets {
		tuple := make([]string, len(attrs))
		for i, attr := range attrs {
			text, err := f.assignment(row[attr], &values)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", attr, err)
			}
			tuple[i] = text
		}
		tuples[r] = "(" + strings.Join(tuple, ", ") + ")"
	}

	chunks := []string{"INSERT"}
	if hints := b.dialect.OptimizerHints(s); hints != "" {
		chunks = append(chunks, hints)
	}
	chunks = append(chunks,
		"INTO "+b.dialect.EscapeID(s.TableName()),
		"("+strings.Join(columns, ", ")+")",
		"VALUES "+strings.Join(tuples, ", "),
	)

	if s.Command == spell.Upsert || s.UpdateOnDuplicate.Enabled {
		if clause := b.dialect.Conflict(conflictClause(s, attrs)); clause != "" {
			chunks = append(chunks, clause)
		}
	}
	if clause := b.dialect.Returning(s); clause != "" {
		chunks = append(chunks, clause)
	}

	return &Result{SQL: strings.Join(chunks, " "), Values: values}, nil
}

// assignment renders one value: raw SQL verbatim, an expression formatted
// in place, anything else as a bound placeholder.
func (f *Formatter) assignment(value any, values *[]any) (string, error) {
	switch v := value.(type) {
	case *expr.Raw:
		return v.Value, nil
	case expr.Node:
		return f.format(v, values)
	default:
		*values = append(*values, v)
		return "?", nil
	}
}

// insertAttributes returns the union of the row keys, or its intersection
// with the whitelist in whitelist order.
func insertAttributes(s *spell.Spell) []string {
	present := make(map[string]bool)
	for _, row := range s.Sets {
		for name := range row {
			present[name] = true
		}
	}

	if len(s.Attributes) > 0 {
		var attrs []string
		for _, name := range s.Attributes {
			if present[name] && !slices.Contains(attrs, name) {
				attrs = append(attrs, name)
			}
		}
		return attrs
	}
	return orderAttributes(s.Model, present)
}

// orderAttributes orders names by model declaration, then unknown names
// alphabetically.
func orderAttributes(model *schema.Model, names map[string]bool) []string {
	attrs := make([]string, 0, len(names))
	for _, name := range model.AttributeNames() {
		if names[name] {
			attrs = append(attrs, name)
		}
	}
	var unknown []string
	for name := range names {
		if !model.HasAttribute(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return append(attrs, unknown...)
}

// conflictClause resolves the upsert target and update list. The created-at
// attribute and the primary key are never overwritten.
func conflictClause(s *spell.Spell, attrs []string) ConflictClause {
	m := s.Model

	keys := s.UniqueKeys
	if len(keys) == 0 {
		if unique := m.UniqueKey(); unique != "" {
			keys = []string{unique}
		} else {
			keys = []string{m.PrimaryKey()}
		}
	}

	updates := s.UpdateOnDuplicate.Columns
	if len(updates) == 0 {
		updates = attrs
	}

	c := ConflictClause{Primary: m.PrimaryColumn()}
	for _, key := range keys {
		c.Keys = append(c.Keys, m.ColumnName(key))
	}
	for _, name := range updates {
		if name == m.PrimaryKey() || (m.CreatedAt != "" && name == m.CreatedAt) {
			continue
		}
		c.Updates = append(c.Updates, m.ColumnName(name))
	}
	return c
}

func isNull(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case *expr.Literal:
		return n.Value == nil
	}
	return false
}
