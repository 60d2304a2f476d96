package spellbook

import (
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/spell"
)

func (b *Spellbook) formatUpdate(s *spell.Spell) (*Result, error) {
	if len(s.Sets) == 0 || len(s.Sets[0]) == 0 {
		return nil, newQueryShapeError(s.Model.Name, "unable to update with empty set")
	}
	if len(s.Sets) > 1 {
		return nil, newQueryShapeError(s.Model.Name, "unable to update with more than one set")
	}
	row := s.Sets[0]

	if key := s.Model.ShardingKey; key != "" {
		if v, ok := row[key]; ok && isNull(v) {
			return nil, newShardingKeyError(s.Model.Name, s.TableName(), key, "cannot unset sharding key %s")
		}
		if err := checkShardingCondition(s); err != nil {
			return nil, err
		}
	}

	f := b.formatter(s)
	var values []any

	names := make(map[string]bool, len(row))
	for name := range row {
		names[name] = true
	}
	attrs := orderAttributes(s.Model, names)
	sets := make([]string, len(attrs))
	for i, attr := range attrs {
		text, err := f.assignment(row[attr], &values)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr, err)
		}
		sets[i] = b.dialect.EscapeID(s.Model.ColumnName(attr)) + " = " + text
	}

	chunks := []string{"UPDATE"}
	if hints := b.dialect.OptimizerHints(s); hints != "" {
		chunks = append(chunks, hints)
	}
	chunks = append(chunks, b.dialect.EscapeID(s.TableName()), "SET "+strings.Join(sets, ", "))

	rest, err := b.mutationTail(f, &values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, rest...)

	if clause := b.dialect.Returning(s); clause != "" {
		chunks = append(chunks, clause)
	}

	return &Result{SQL: strings.Join(chunks, " "), Values: values}, nil
}

func (b *Spellbook) formatDelete(s *spell.Spell) (*Result, error) {
	if err := checkShardingCondition(s); err != nil {
		return nil, err
	}

	f := b.formatter(s)
	var values []any

	chunks := []string{"DELETE"}
	if hints := b.dialect.OptimizerHints(s); hints != "" {
		chunks = append(chunks, hints)
	}
	chunks = append(chunks, "FROM "+b.dialect.EscapeID(s.TableName()))

	rest, err := b.mutationTail(f, &values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, rest...)

	return &Result{SQL: strings.Join(chunks, " "), Values: values}, nil
}

// mutationTail renders the WHERE clause of UPDATE and DELETE followed by
// the dialect's trailing clauses.
func (b *Spellbook) mutationTail(f *Formatter, values *[]any) ([]string, error) {
	s := f.spell
	var chunks []string

	if len(s.Where) > 0 {
		where, err := f.FormatConditions(s.Where)
		if err != nil {
			return nil, err
		}
		if err := f.collectAll(s.Where, values); err != nil {
			return nil, err
		}
		chunks = append(chunks, "WHERE "+where)
	}

	tail, tailValues, err := b.dialect.MutationTail(f)
	if err != nil {
		return nil, err
	}
	if tail != "" {
		chunks = append(chunks, tail)
		*values = append(*values, tailValues...)
	}
	return chunks, nil
}
