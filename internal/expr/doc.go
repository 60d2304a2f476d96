// Package expr provides the expression AST used by the spellbook, along with
// the parser that produces it and the walker that traverses it.
//
// ARCHITECTURE:
//
//	[textual predicate + values] → Parse → [Node tree] → spellbook formatter → [SQL + values]
//
// The tree is deliberately small. Every node is one of:
//
//	Literal     null, number, string, bool, time, or an ordered list of those
//	Identifier  column reference, optionally qualified (posts.title)
//	Wildcard    the bare * of SELECT *
//	Func        function call, name lower-cased at parse time
//	Op          unary, binary and ternary operators (and, =, in, between, -, ~ ...)
//	Mod         prefix modifier (distinct)
//	Alias       expr AS name
//	Raw         verbatim SQL, never escaped or parameterized
//	Subquery    a nested query bound through a placeholder
//
// SEALED INTERFACE:
//
// Node is sealed with a marker method. Only the types in this package
// implement it, so formatters can switch exhaustively:
//
//	switch n := node.(type) {
//	case *Literal:
//	case *Identifier:
//	...
//	}
//
// PLACEHOLDERS:
//
// Parse consumes ? placeholders left to right against its values. A slice or
// set bound to a single placeholder becomes one list Literal, which is what
// makes "id IN ?" and "id IN (?)" work with a collection:
//
//	node, err := expr.Parse("title LIKE ? AND id IN ?", "%Leah%", []int{1, 2, 3})
//
// Literal order inside a tree is significant: formatters emit one ? per
// literal value in visit order, and the values are later paired with the
// placeholders positionally.
package expr
