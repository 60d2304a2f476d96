package spellbook

import (
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/spell"
)

func (b *Spellbook) formatSelect(s *spell.Spell) (*Result, error) {
	if err := checkShardingCondition(s); err != nil {
		return nil, err
	}
	if s.Skip > 0 && s.RowCount <= 0 {
		return nil, newQueryShapeError(s.Model.Name, "unable to query with OFFSET yet without LIMIT")
	}
	if len(s.Joins) == 0 {
		return b.formatSimpleSelect(s)
	}
	if len(s.Groups) > 0 && (s.RowCount > 0 || s.Skip > 0) {
		return nil, newQueryShapeError(s.Model.Name, "unable to query with GROUP BY and LIMIT on joined models")
	}
	return b.formatJoinSelect(s)
}

// formatSimpleSelect compiles a SELECT without joins. Values are collected
// in text order: select list, derived table, WHERE, GROUP BY, HAVING,
// ORDER BY.
func (b *Spellbook) formatSimpleSelect(s *spell.Spell) (*Result, error) {
	f := b.formatter(s)
	var values []any

	chunks := []string{"SELECT"}
	if hints := b.dialect.OptimizerHints(s); hints != "" {
		chunks = append(chunks, hints)
	}

	columns, err := f.selectColumns(s.Columns, &values)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	chunks = append(chunks, strings.Join(columns, ", "))

	from, err := b.fromTable(s, &values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, "FROM "+from)
	if hints := b.dialect.IndexHints(s); hints != "" {
		chunks = append(chunks, hints)
	}

	tail, err := f.selectTail(&values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, tail...)

	return &Result{SQL: strings.Join(chunks, " "), Values: values}, nil
}

// fromTable renders the escaped table, or the derived table of s.From
// aliased t0, t1, ... Nested derived tables continue the count of the
// spell that contains them.
func (b *Spellbook) fromTable(s *spell.Spell, values *[]any) (string, error) {
	if s.From == nil {
		return b.dialect.EscapeID(s.TableName()), nil
	}

	alias := fmt.Sprintf("t%d", s.SubqueryIndex)
	s.SubqueryIndex++
	s.From.SubqueryIndex = s.SubqueryIndex

	res, err := b.derived(s.From)
	if err != nil {
		return "", err
	}
	*values = append(*values, res.Values...)

	return fmt.Sprintf("(%s) AS %s", res.SQL, b.dialect.EscapeID(alias)), nil
}

func (b *Spellbook) derived(from *spell.Spell) (*Result, error) {
	if from.Model == nil {
		return nil, newQueryShapeError("", "derived table has no model")
	}
	return b.format(from)
}

// selectColumns formats a select list, dropping columns whose text repeats
// an earlier one. Only emitted columns contribute values.
func (f *Formatter) selectColumns(nodes []expr.Node, values *[]any) ([]string, error) {
	seen := make(map[string]bool, len(nodes))
	columns := make([]string, 0, len(nodes))
	for _, node := range nodes {
		text, err := f.FormatExpr(node)
		if err != nil {
			return nil, err
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		if err := f.CollectLiteral(node, values); err != nil {
			return nil, err
		}
		columns = append(columns, text)
	}
	return columns, nil
}

// selectTail renders WHERE, GROUP BY, HAVING, ORDER BY, LIMIT and OFFSET,
// skipping empty clauses.
func (f *Formatter) selectTail(values *[]any) ([]string, error) {
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

	if len(s.Groups) > 0 {
		groups, err := f.formatArgs(s.Groups)
		if err != nil {
			return nil, err
		}
		if err := f.collectAll(s.Groups, values); err != nil {
			return nil, err
		}
		chunks = append(chunks, "GROUP BY "+groups)
	}

	if len(s.Having) > 0 {
		having, err := f.FormatConditions(s.Having)
		if err != nil {
			return nil, err
		}
		if err := f.collectAll(s.Having, values); err != nil {
			return nil, err
		}
		chunks = append(chunks, "HAVING "+having)
	}

	if len(s.Orders) > 0 {
		orders, err := f.FormatOrders(s.Orders)
		if err != nil {
			return nil, err
		}
		if err := f.collectOrders(s.Orders, values); err != nil {
			return nil, err
		}
		chunks = append(chunks, "ORDER BY "+orders)
	}

	if s.RowCount > 0 {
		chunks = append(chunks, fmt.Sprintf("LIMIT %d", s.RowCount))
	}
	if s.Skip > 0 {
		chunks = append(chunks, fmt.Sprintf("OFFSET %d", s.Skip))
	}

	return chunks, nil
}

// checkShardingCondition requires a WHERE condition comparing the sharding
// key with = or IN.
func checkShardingCondition(s *spell.Spell) error {
	key := s.Model.ShardingKey
	if key == "" {
		return nil
	}

	isKey := func(node expr.Node) bool {
		id, ok := node.(*expr.Identifier)
		if !ok || (id.Value != key && id.Value != s.Model.ColumnName(key)) {
			return false
		}
		return len(id.Qualifiers) == 0 ||
			(len(id.Qualifiers) == 1 && id.Qualifiers[0] == s.Model.Alias)
	}
	for _, cond := range s.Where {
		found := expr.Find(cond, func(node expr.Node) bool {
			op, ok := node.(*expr.Op)
			if !ok || (op.Name != "=" && op.Name != "in") {
				return false
			}
			for _, arg := range op.Args {
				if isKey(arg) {
					return true
				}
			}
			return false
		})
		if found != nil {
			return nil
		}
	}

	return newShardingKeyError(s.Model.Name, s.TableName(), key, "sharding key %s is required")
}
