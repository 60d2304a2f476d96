package spellbook

import (
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
	"github.com/roach88/spellbook/internal/spell"
)

// Formatter renders the expressions of one spell. Identifiers are mapped
// from attribute names to columns through the model their qualifier refers
// to: the base model when unqualified or qualified with the base alias, the
// joined model when qualified with a join qualifier.
//
// FormatExpr and CollectLiteral visit nodes in the same order, so the i-th
// value collected for a node is bound to the i-th placeholder of its text.
type Formatter struct {
	book  *Spellbook
	spell *spell.Spell
}

func (b *Spellbook) formatter(s *spell.Spell) *Formatter {
	return &Formatter{book: b, spell: s}
}

// Spell returns the spell being formatted.
func (f *Formatter) Spell() *spell.Spell { return f.spell }

// Dialect returns the dialect the spell is formatted for.
func (f *Formatter) Dialect() Dialect { return f.book.dialect }

func (f *Formatter) escapeID(name string) string {
	return f.book.dialect.EscapeID(name)
}

// FormatExpr renders node as SQL text with ? placeholders.
func (f *Formatter) FormatExpr(node expr.Node) (string, error) {
	switch n := node.(type) {
	case nil:
		return "", fmt.Errorf("format: nil expression")
	case *expr.Literal:
		return formatLiteral(n), nil
	case *expr.Identifier:
		return f.formatIdentifier(n), nil
	case *expr.Wildcard:
		return "*", nil
	case *expr.Raw:
		return n.Value, nil
	case *expr.Func:
		args, err := f.formatArgs(n.Args)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(n.Name) + "(" + args + ")", nil
	case *expr.Mod:
		args, err := f.formatArgs(n.Args)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(n.Name) + " " + args, nil
	case *expr.Alias:
		if len(n.Args) != 1 {
			return "", fmt.Errorf("format: alias %q expects one expression, got %d", n.Value, len(n.Args))
		}
		inner, err := f.FormatExpr(n.Args[0])
		if err != nil {
			return "", err
		}
		return inner + " AS " + f.escapeID(n.Value), nil
	case *expr.Op:
		return f.formatOp(n)
	case *expr.Subquery:
		res, err := f.subquery(n)
		if err != nil {
			return "", err
		}
		return "(" + res.SQL + ")", nil
	default:
		return "", fmt.Errorf("format: unsupported node %T", node)
	}
}

// CollectLiteral appends the values bound by node to values, in placeholder
// order. Null literals render as NULL and bind nothing.
func (f *Formatter) CollectLiteral(node expr.Node, values *[]any) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *expr.Literal:
		if list, ok := n.Value.([]any); ok {
			*values = append(*values, list...)
		} else if n.Value != nil {
			*values = append(*values, n.Value)
		}
		return nil
	case *expr.Subquery:
		res, err := f.subquery(n)
		if err != nil {
			return err
		}
		*values = append(*values, res.Values...)
		return nil
	}

	for _, arg := range expr.Args(node) {
		if err := f.CollectLiteral(arg, values); err != nil {
			return err
		}
	}
	return nil
}

// format renders node and appends its values.
func (f *Formatter) format(node expr.Node, values *[]any) (string, error) {
	text, err := f.FormatExpr(node)
	if err != nil {
		return "", err
	}
	if err := f.CollectLiteral(node, values); err != nil {
		return "", err
	}
	return text, nil
}

// FormatConditions joins conditions with AND. An OR condition is wrapped in
// parentheses when it is joined with others.
func (f *Formatter) FormatConditions(conds []expr.Node) (string, error) {
	parts := make([]string, len(conds))
	for i, cond := range conds {
		text, err := f.FormatExpr(cond)
		if err != nil {
			return "", err
		}
		if len(conds) > 1 && isOr(cond) {
			text = "(" + text + ")"
		}
		parts[i] = text
	}
	return strings.Join(parts, " AND "), nil
}

// FormatOrders renders an ORDER BY list.
func (f *Formatter) FormatOrders(orders []spell.Order) (string, error) {
	parts := make([]string, len(orders))
	for i, o := range orders {
		text, err := f.FormatExpr(o.Expr)
		if err != nil {
			return "", err
		}
		if o.Direction == spell.Desc {
			text += " DESC"
		}
		parts[i] = text
	}
	return strings.Join(parts, ", "), nil
}

func (f *Formatter) collectAll(nodes []expr.Node, values *[]any) error {
	for _, node := range nodes {
		if err := f.CollectLiteral(node, values); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) collectOrders(orders []spell.Order, values *[]any) error {
	for _, o := range orders {
		if err := f.CollectLiteral(o.Expr, values); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) formatArgs(args []expr.Node) (string, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		text, err := f.FormatExpr(arg)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return strings.Join(parts, ", "), nil
}

func (f *Formatter) formatIdentifier(id *expr.Identifier) string {
	column := id.Value
	if column != "*" {
		if model := f.modelFor(id.Qualifiers); model != nil {
			column = model.ColumnName(column)
		}
		column = f.escapeID(column)
	}
	if len(id.Qualifiers) == 0 {
		return column
	}

	parts := make([]string, 0, len(id.Qualifiers)+1)
	for _, q := range id.Qualifiers {
		parts = append(parts, f.escapeID(q))
	}
	return strings.Join(append(parts, column), ".")
}

func (f *Formatter) modelFor(qualifiers []string) *schema.Model {
	s := f.spell
	switch {
	case len(qualifiers) == 0:
		return s.Model
	case len(qualifiers) > 1:
		return nil
	case s.Model != nil && qualifiers[0] == s.Model.Alias:
		return s.Model
	}
	if join, ok := s.Join(qualifiers[0]); ok {
		return join.Model
	}
	return nil
}

func (f *Formatter) formatOp(op *expr.Op) (string, error) {
	if op.Unary() {
		return f.formatUnary(op)
	}

	switch op.Name {
	case "between", "not between":
		if len(op.Args) != 3 {
			return "", fmt.Errorf("format: %s expects three operands, got %d", op.Name, len(op.Args))
		}
		subject, err := f.operand(op, op.Args[0], false)
		if err != nil {
			return "", err
		}
		low, err := f.operand(op, op.Args[1], true)
		if err != nil {
			return "", err
		}
		high, err := f.operand(op, op.Args[2], true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s AND %s", subject, strings.ToUpper(op.Name), low, high), nil
	}

	if len(op.Args) != 2 {
		return "", fmt.Errorf("format: %s expects two operands, got %d", op.Name, len(op.Args))
	}
	left, err := f.operand(op, op.Args[0], false)
	if err != nil {
		return "", err
	}

	name := op.Name
	lit, _ := op.Args[1].(*expr.Literal)
	switch {
	case lit != nil && lit.Value == nil && (name == "=" || name == "!="):
		if name == "=" {
			return left + " IS NULL", nil
		}
		return left + " IS NOT NULL", nil
	case lit != nil && lit.IsList() && name == "=":
		name = "in"
	case lit != nil && lit.IsList() && name == "!=":
		name = "not in"
	}

	var right string
	if name == "in" || name == "not in" {
		right, err = f.membership(op.Args[1])
	} else {
		right, err = f.operand(op, op.Args[1], true)
	}
	if err != nil {
		return "", err
	}

	return left + " " + operatorText(name) + " " + right, nil
}

func (f *Formatter) formatUnary(op *expr.Op) (string, error) {
	child := op.Args[0]
	text, err := f.FormatExpr(child)
	if err != nil {
		return "", err
	}
	if expr.Precedence(child) <= expr.Precedence(op) {
		text = "(" + text + ")"
	}
	if op.Name == "not" {
		return "NOT " + text, nil
	}
	return op.Name + text, nil
}

// membership renders the right operand of IN. Scalars are wrapped so that
// x IN (?) stays valid.
func (f *Formatter) membership(node expr.Node) (string, error) {
	switch n := node.(type) {
	case *expr.Literal:
		if n.IsList() {
			return formatLiteral(n), nil
		}
		return "(" + formatLiteral(n) + ")", nil
	case *expr.Subquery:
		return f.FormatExpr(n)
	default:
		text, err := f.FormatExpr(n)
		if err != nil {
			return "", err
		}
		return "(" + text + ")", nil
	}
}

// operand formats a child of a binary operator, parenthesized when its
// precedence would otherwise regroup it.
func (f *Formatter) operand(parent *expr.Op, child expr.Node, right bool) (string, error) {
	text, err := f.FormatExpr(child)
	if err != nil {
		return "", err
	}
	if needsParens(parent, child, right) {
		text = "(" + text + ")"
	}
	return text, nil
}

func needsParens(parent *expr.Op, child expr.Node, right bool) bool {
	pp, cp := expr.Precedence(parent), expr.Precedence(child)
	if cp < pp {
		return true
	}
	if cp > pp || !right {
		return false
	}
	if op, ok := child.(*expr.Op); ok && op.Name == parent.Name && expr.Associative(parent.Name) {
		return false
	}
	return true
}

func (f *Formatter) subquery(sub *expr.Subquery) (*Result, error) {
	s, ok := sub.Query.(*spell.Spell)
	if !ok {
		return nil, fmt.Errorf("format: unsupported subquery %T", sub.Query)
	}
	if s.Model == nil {
		return nil, newQueryShapeError("", "subquery has no model")
	}
	return f.book.format(s.Clone())
}

func formatLiteral(lit *expr.Literal) string {
	list, ok := lit.Value.([]any)
	if !ok {
		if lit.Value == nil {
			return "NULL"
		}
		return "?"
	}
	if len(list) == 0 {
		return "(NULL)"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ") + ")"
}

func operatorText(name string) string {
	switch name {
	case "and", "or", "like", "not like", "in", "not in":
		return strings.ToUpper(name)
	default:
		return name
	}
}

func isOr(node expr.Node) bool {
	op, ok := node.(*expr.Op)
	return ok && op.Name == "or" && !op.Unary()
}
