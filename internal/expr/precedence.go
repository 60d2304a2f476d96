package expr

// Operator precedence, lowest to highest. The parser binds with these
// values and the formatter uses the same table to decide where
// parentheses are required.
const (
	_ int = iota
	PrecLowest
	PrecOr             // OR
	PrecAnd            // AND
	PrecNot            // NOT x
	PrecCompare        // = != < <= > >= LIKE IN BETWEEN IS
	PrecAdditive       // + -
	PrecMultiplicative // * / %
	PrecUnary          // -x ~x !x
	PrecCall           // fn(x) (x)
)

var precedences = map[TokenType]int{
	OR:      PrecOr,
	AND:     PrecAnd,
	NOT:     PrecCompare, // infix NOT IN / NOT LIKE / NOT BETWEEN
	EQ:      PrecCompare,
	NotEQ:   PrecCompare,
	LT:      PrecCompare,
	LTE:     PrecCompare,
	GT:      PrecCompare,
	GTE:     PrecCompare,
	LIKE:    PrecCompare,
	IN:      PrecCompare,
	BETWEEN: PrecCompare,
	IS:      PrecCompare,
	PLUS:    PrecAdditive,
	MINUS:   PrecAdditive,
	STAR:    PrecMultiplicative,
	SLASH:   PrecMultiplicative,
	PERCENT: PrecMultiplicative,
}

var opPrecedences = map[string]int{
	"or":          PrecOr,
	"and":         PrecAnd,
	"=":           PrecCompare,
	"!=":          PrecCompare,
	"<":           PrecCompare,
	"<=":          PrecCompare,
	">":           PrecCompare,
	">=":          PrecCompare,
	"like":        PrecCompare,
	"not like":    PrecCompare,
	"in":          PrecCompare,
	"not in":      PrecCompare,
	"between":     PrecCompare,
	"not between": PrecCompare,
	"+":           PrecAdditive,
	"-":           PrecAdditive,
	"*":           PrecMultiplicative,
	"/":           PrecMultiplicative,
	"%":           PrecMultiplicative,
}

// associative operators never need parentheses around an equal-precedence
// right operand.
var associative = map[string]bool{
	"or":  true,
	"and": true,
	"+":   true,
	"*":   true,
}

// Precedence returns the binding strength of a node. Leaves and calls bind
// tightest.
func Precedence(node Node) int {
	op, ok := node.(*Op)
	if !ok {
		return PrecCall
	}
	if op.Unary() {
		if op.Name == "not" {
			return PrecNot
		}
		return PrecUnary
	}
	if p, ok := opPrecedences[op.Name]; ok {
		return p
	}
	return PrecCompare
}

// Associative reports whether a binary operator is associative.
func Associative(name string) bool {
	return associative[name]
}
