package expr

// Args returns the child expressions of a node. Leaves, including
// subqueries, have none.
func Args(node Node) []Node {
	switch n := node.(type) {
	case *Func:
		return n.Args
	case *Op:
		return n.Args
	case *Mod:
		return n.Args
	case *Alias:
		return n.Args
	default:
		return nil
	}
}

// Walk visits every node of the tree exactly once, pre-order. Subqueries are
// visited but not entered; their identifiers belong to another scope.
//
// Walk is a pure function with no side effects of its own.
func Walk(node Node, fn func(Node)) {
	if node == nil {
		return
	}
	fn(node)
	for _, arg := range Args(node) {
		Walk(arg, fn)
	}
}

// Find returns the first node, in pre-order, for which pred is true, or nil.
func Find(node Node, pred func(Node) bool) Node {
	if node == nil {
		return nil
	}
	if pred(node) {
		return node
	}
	for _, arg := range Args(node) {
		if found := Find(arg, pred); found != nil {
			return found
		}
	}
	return nil
}

// Match returns a predicate matching nodes by kind and value. The value is
// compared against Value for literals, identifiers, aliases and raw nodes,
// and against Name for functions, operators and modifiers.
func Match(kind Kind, value any) func(Node) bool {
	return func(node Node) bool {
		if node.Kind() != kind {
			return false
		}
		switch n := node.(type) {
		case *Literal:
			if n.IsList() {
				return false
			}
			return n.Value == value
		case *Identifier:
			return n.Value == value
		case *Alias:
			return n.Value == value
		case *Raw:
			return n.Value == value
		case *Func:
			return n.Name == value
		case *Op:
			return n.Name == value
		case *Mod:
			return n.Name == value
		default:
			return true
		}
	}
}

// Copy returns a structural clone of node. When transform returns a non-nil
// node for an original node, that node is used in place of the copy and its
// subtree is not visited.
//
// List literals are copied element by element in the same order, so value
// collection on the copy stays aligned with the original placeholders.
func Copy(node Node, transform func(Node) Node) Node {
	if node == nil {
		return nil
	}
	if transform != nil {
		if replacement := transform(node); replacement != nil {
			return replacement
		}
	}

	switch n := node.(type) {
	case *Literal:
		if list, ok := n.Value.([]any); ok {
			return &Literal{Value: append([]any{}, list...)}
		}
		return &Literal{Value: n.Value}
	case *Identifier:
		id := &Identifier{Value: n.Value}
		if n.Qualifiers != nil {
			id.Qualifiers = append([]string{}, n.Qualifiers...)
		}
		return id
	case *Wildcard:
		return &Wildcard{}
	case *Func:
		return &Func{Name: n.Name, Args: copyArgs(n.Args, transform)}
	case *Op:
		return &Op{Name: n.Name, Args: copyArgs(n.Args, transform)}
	case *Mod:
		return &Mod{Name: n.Name, Args: copyArgs(n.Args, transform)}
	case *Alias:
		return &Alias{Value: n.Value, Args: copyArgs(n.Args, transform)}
	case *Raw:
		return &Raw{Value: n.Value}
	case *Subquery:
		return &Subquery{Query: n.Query}
	default:
		return node
	}
}

func copyArgs(args []Node, transform func(Node) Node) []Node {
	if args == nil {
		return nil
	}
	out := make([]Node, len(args))
	for i, arg := range args {
		out[i] = Copy(arg, transform)
	}
	return out
}

// StripQualifiers copies node with every identifier unqualified.
func StripQualifiers(node Node) Node {
	return Copy(node, func(n Node) Node {
		if id, ok := n.(*Identifier); ok {
			return &Identifier{Value: id.Value}
		}
		return nil
	})
}

// Identifiers returns every identifier of the tree in visit order.
func Identifiers(node Node) []*Identifier {
	var ids []*Identifier
	Walk(node, func(n Node) {
		if id, ok := n.(*Identifier); ok {
			ids = append(ids, id)
		}
	})
	return ids
}
