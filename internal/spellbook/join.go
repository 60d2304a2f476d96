package spellbook

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/spell"
)

var aggregators = map[string]bool{
	"count":        true,
	"sum":          true,
	"avg":          true,
	"min":          true,
	"max":          true,
	"group_concat": true,
	"string_agg":   true,
}

// formatJoinSelect compiles a SELECT of the base model LEFT JOINed with
// every join. With LIMIT or OFFSET the base table is promoted into a derived
// table so that the limit applies to base rows, not joined rows.
func (b *Spellbook) formatJoinSelect(s *spell.Spell) (*Result, error) {
	qualify(s)

	var sub *spell.Spell
	if s.RowCount > 0 || s.Skip > 0 {
		sub = promote(s)
	}

	f := b.formatter(s)
	var values []any

	chunks := []string{"SELECT"}
	if hints := b.dialect.OptimizerHints(s); hints != "" {
		chunks = append(chunks, hints)
	}

	columns, err := b.joinColumns(f, &values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, strings.Join(columns, ", "))

	alias := b.dialect.EscapeID(s.Model.Alias)
	switch {
	case sub != nil:
		res, err := b.formatSimpleSelect(sub)
		if err != nil {
			return nil, err
		}
		values = append(values, res.Values...)
		chunks = append(chunks, fmt.Sprintf("FROM (%s) AS %s", res.SQL, alias))
	case s.From != nil:
		s.From.SubqueryIndex = s.SubqueryIndex
		res, err := b.derived(s.From)
		if err != nil {
			return nil, err
		}
		values = append(values, res.Values...)
		chunks = append(chunks, fmt.Sprintf("FROM (%s) AS %s", res.SQL, alias))
	default:
		chunks = append(chunks, fmt.Sprintf("FROM %s AS %s", b.dialect.EscapeID(s.TableName()), alias))
		if hints := b.dialect.IndexHints(s); hints != "" {
			chunks = append(chunks, hints)
		}
	}

	for _, join := range s.Joins {
		on, err := f.format(join.On, &values)
		if err != nil {
			return nil, fmt.Errorf("join %s: %w", join.Qualifier, err)
		}
		chunks = append(chunks, fmt.Sprintf("LEFT JOIN %s AS %s ON %s",
			b.dialect.EscapeID(join.Model.Table), b.dialect.EscapeID(join.Qualifier), on))
	}

	tail, err := f.selectTail(&values)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, tail...)

	return &Result{SQL: strings.Join(chunks, " "), Values: values}, nil
}

// joinColumns groups the select list by qualifier, base first and joins in
// order, followed by columns that belong to no single qualifier. A qualifier
// without columns selects all of its columns unless the query aggregates.
func (b *Spellbook) joinColumns(f *Formatter, values *[]any) ([]string, error) {
	s := f.spell
	qualifiers := make([]string, 0, len(s.Joins)+1)
	qualifiers = append(qualifiers, s.Model.Alias)
	for _, join := range s.Joins {
		qualifiers = append(qualifiers, join.Qualifier)
	}

	grouped := make(map[string][]expr.Node, len(qualifiers))
	var others []expr.Node
	aggregate := len(s.Groups) > 0
	for _, col := range s.Columns {
		if _, ok := col.(*expr.Wildcard); ok {
			continue
		}
		if hasAggregate(col) {
			aggregate = true
		}
		if q := columnQualifier(col); slices.Contains(qualifiers, q) {
			grouped[q] = append(grouped[q], col)
		} else {
			others = append(others, col)
		}
	}

	var columns []string
	for i, q := range qualifiers {
		cols := grouped[q]
		if len(cols) > 0 {
			texts, err := f.selectColumns(cols, values)
			if err != nil {
				return nil, err
			}
			columns = append(columns, texts...)
			continue
		}
		if aggregate {
			continue
		}

		model := s.Model
		if i > 0 {
			model = s.Joins[i-1].Model
		}
		if explicit := b.dialect.QualifierColumns(q, model); explicit != nil {
			columns = append(columns, explicit...)
		} else {
			columns = append(columns, b.dialect.EscapeID(q)+".*")
		}
	}

	texts, err := f.selectColumns(others, values)
	if err != nil {
		return nil, err
	}
	columns = append(columns, texts...)

	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return columns, nil
}

// qualify prefixes unqualified references to base attributes with the base
// alias, join conditions included. Trees are replaced with rewritten copies.
func qualify(s *spell.Spell) {
	base := s.Model
	transform := func(node expr.Node) expr.Node {
		id, ok := node.(*expr.Identifier)
		if !ok || len(id.Qualifiers) > 0 || !base.HasAttribute(id.Value) {
			return nil
		}
		return expr.NewIdentifier(base.Alias, id.Value)
	}
	rewrite := func(nodes []expr.Node) []expr.Node {
		out := make([]expr.Node, len(nodes))
		for i, node := range nodes {
			out[i] = expr.Copy(node, transform)
		}
		return out
	}

	s.Columns = rewrite(s.Columns)
	s.Where = rewrite(s.Where)
	s.Groups = rewrite(s.Groups)
	s.Having = rewrite(s.Having)
	for i, o := range s.Orders {
		s.Orders[i].Expr = expr.Copy(o.Expr, transform)
	}
	for i, join := range s.Joins {
		s.Joins[i].On = expr.Copy(join.On, transform)
	}
}

// promote moves what only concerns the base table into a sub-spell that
// carries LIMIT and OFFSET:
//   - WHERE conditions referencing only the base alias move out of s
//   - ORDER BY entries referencing only the base alias are copied
//   - the select list becomes the base attributes referenced by s, or *
//
// s keeps cross-table conditions, every order and the joins.
func promote(s *spell.Spell) *spell.Spell {
	alias := s.Model.Alias

	sub := spell.New(spell.Select, s.Model)
	sub.Table = s.Table
	sub.From = s.From
	sub.IndexHints = s.IndexHints
	sub.SubqueryIndex = s.SubqueryIndex
	sub.RowCount, sub.Skip = s.RowCount, s.Skip
	s.From, s.IndexHints = nil, nil
	s.RowCount, s.Skip = 0, 0

	for i := len(s.Where) - 1; i >= 0; i-- {
		if !internal(s.Where[i], alias) {
			continue
		}
		sub.Where = append([]expr.Node{expr.StripQualifiers(s.Where[i])}, sub.Where...)
		s.Where = slices.Delete(s.Where, i, i+1)
	}

	for _, o := range s.Orders {
		if internal(o.Expr, alias) {
			sub.Orders = append(sub.Orders, spell.Order{Expr: expr.StripQualifiers(o.Expr), Direction: o.Direction})
		}
	}

	names, all := selectedAttributes(s.Columns, alias)
	if all {
		return sub
	}

	for _, join := range s.Joins {
		names = appendBaseRefs(names, join.On, alias)
	}
	for _, nodes := range [][]expr.Node{s.Where, s.Groups, s.Having} {
		for _, node := range nodes {
			names = appendBaseRefs(names, node, alias)
		}
	}
	for _, o := range s.Orders {
		names = appendBaseRefs(names, o.Expr, alias)
	}

	for _, name := range names {
		sub.Columns = append(sub.Columns, expr.NewIdentifier(name))
	}
	return sub
}

// selectedAttributes returns the base attributes referenced by the select
// list. all is true when every base column is needed: nothing selected, no
// base reference at all, or alias.* selected.
func selectedAttributes(columns []expr.Node, alias string) (names []string, all bool) {
	for _, col := range columns {
		for _, id := range expr.Identifiers(col) {
			if id.Qualifier() != alias || len(id.Qualifiers) != 1 {
				continue
			}
			if id.Value == "*" {
				return nil, true
			}
			if !slices.Contains(names, id.Value) {
				names = append(names, id.Value)
			}
		}
	}
	return names, len(names) == 0
}

func appendBaseRefs(names []string, node expr.Node, alias string) []string {
	for _, id := range expr.Identifiers(node) {
		if id.Value == "*" || len(id.Qualifiers) != 1 || id.Qualifiers[0] != alias {
			continue
		}
		if !slices.Contains(names, id.Value) {
			names = append(names, id.Value)
		}
	}
	return names
}

// internal reports whether node references at least one column and only
// columns of the base alias. Raw SQL is never internal.
func internal(node expr.Node, alias string) bool {
	refs := 0
	foreign := expr.Find(node, func(n expr.Node) bool {
		switch v := n.(type) {
		case *expr.Raw:
			return true
		case *expr.Identifier:
			refs++
			return len(v.Qualifiers) != 1 || v.Qualifiers[0] != alias
		}
		return false
	})
	return foreign == nil && refs > 0
}

// columnQualifier returns the qualifier of a plain or aliased column
// reference, or "" for any other expression.
func columnQualifier(node expr.Node) string {
	if alias, ok := node.(*expr.Alias); ok && len(alias.Args) == 1 {
		node = alias.Args[0]
	}
	if id, ok := node.(*expr.Identifier); ok && len(id.Qualifiers) == 1 {
		return id.Qualifiers[0]
	}
	return ""
}

func hasAggregate(node expr.Node) bool {
	return expr.Find(node, func(n expr.Node) bool {
		fn, ok := n.(*expr.Func)
		return ok && aggregators[fn.Name]
	}) != nil
}
