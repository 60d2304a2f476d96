package expr

// Kind identifies the type of an expression node.
type Kind string

const (
	KindLiteral    Kind = "literal"
	KindIdentifier Kind = "id"
	KindWildcard   Kind = "wildcard"
	KindFunc       Kind = "func"
	KindOp         Kind = "op"
	KindMod        Kind = "mod"
	KindAlias      Kind = "alias"
	KindRaw        Kind = "raw"
	KindSubquery   Kind = "subquery"
)

// Node is a node of the expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	Kind() Kind
	exprNode()
}

// Query is implemented by query descriptors that can be nested into an
// expression as a subquery. The marker method keeps arbitrary values from
// being mistaken for one.
type Query interface {
	IsSubquery() bool
}

// Literal is a constant value. Value is nil, a number, a string, a bool,
// a time.Time, or a []any holding any of those.
type Literal struct {
	Value any
}

func (*Literal) Kind() Kind { return KindLiteral }
func (*Literal) exprNode()  {}

// IsList reports whether the literal holds an ordered list of values.
func (l *Literal) IsList() bool {
	_, ok := l.Value.([]any)
	return ok
}

// Identifier references a column. The last dotted segment is Value, the
// preceding segments are Qualifiers (nil when unqualified).
//
// Value "*" with qualifiers marks a qualified wildcard such as posts.*.
type Identifier struct {
	Value      string
	Qualifiers []string
}

func (*Identifier) Kind() Kind { return KindIdentifier }
func (*Identifier) exprNode()  {}

// Qualifier returns the first qualifier, or "" when unqualified.
func (id *Identifier) Qualifier() string {
	if len(id.Qualifiers) == 0 {
		return ""
	}
	return id.Qualifiers[0]
}

// Wildcard is the * select-all marker.
type Wildcard struct{}

func (*Wildcard) Kind() Kind { return KindWildcard }
func (*Wildcard) exprNode()  {}

// Func is a function call.
type Func struct {
	Name string
	Args []Node
}

func (*Func) Kind() Kind { return KindFunc }
func (*Func) exprNode()  {}

// Op is an operator applied to one, two or three operands.
type Op struct {
	Name string
	Args []Node
}

func (*Op) Kind() Kind { return KindOp }
func (*Op) exprNode()  {}

// Unary reports whether the operator is applied prefix-style to one operand.
func (o *Op) Unary() bool {
	return len(o.Args) == 1
}

// Mod is a prefix modifier such as DISTINCT.
type Mod struct {
	Name string
	Args []Node
}

func (*Mod) Kind() Kind { return KindMod }
func (*Mod) exprNode()  {}

// Alias names its single child expression.
type Alias struct {
	Value string
	Args  []Node
}

func (*Alias) Kind() Kind { return KindAlias }
func (*Alias) exprNode()  {}

// Raw is emitted verbatim. Callers are responsible for its safety.
type Raw struct {
	Value string
}

func (*Raw) Kind() Kind { return KindRaw }
func (*Raw) exprNode()  {}

// Subquery nests a query descriptor into an expression.
type Subquery struct {
	Query Query
}

func (*Subquery) Kind() Kind { return KindSubquery }
func (*Subquery) exprNode()  {}

// NewIdentifier builds an Identifier from a dotted path such as
// "posts.title".
func NewIdentifier(path ...string) *Identifier {
	if len(path) == 0 {
		return nil
	}
	id := &Identifier{Value: path[len(path)-1]}
	if len(path) > 1 {
		id.Qualifiers = append([]string(nil), path[:len(path)-1]...)
	}
	return id
}

// NewRaw marks text as raw SQL.
func NewRaw(sql string) *Raw {
	return &Raw{Value: sql}
}
