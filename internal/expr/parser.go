package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Parser turns a token stream into an expression tree.
type Parser struct {
	l         *Lexer
	input     string
	curToken  Token
	peekToken Token
	err       *SyntaxError

	values     []any
	valueIndex int

	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

type (
	prefixParseFn func() Node
	infixParseFn  func(Node) Node
)

var infixOperators = map[TokenType]string{
	OR:      "or",
	AND:     "and",
	EQ:      "=",
	NotEQ:   "!=",
	LT:      "<",
	LTE:     "<=",
	GT:      ">",
	GTE:     ">=",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
}

// Parse parses a single expression. Placeholders are bound to values left
// to right; every value must be consumed.
func Parse(text string, values ...any) (Node, error) {
	p := NewParser(text, values...)
	node := p.parseAliased()
	if p.err == nil && !p.peekTokenIs(EOF) {
		p.unexpected(p.peekToken)
	}

	if err := p.finish(); err != nil {
		return nil, err
	}

	return node, nil
}

// ParseList parses a comma separated list of expressions, such as a select
// list. Only top-level commas separate entries; placeholders are consumed
// across the whole list.
func ParseList(text string, values ...any) ([]Node, error) {
	p := NewParser(text, values...)
	var nodes []Node

	for p.err == nil {
		nodes = append(nodes, p.parseAliased())
		if p.err != nil || p.peekTokenIs(EOF) {
			break
		}
		if !p.expectPeek(COMMA) {
			break
		}
		p.nextToken()
	}

	if err := p.finish(); err != nil {
		return nil, err
	}

	return nodes, nil
}

// NewParser creates a parser over text with the given placeholder values.
// The current token is the first token of the input.
func NewParser(text string, values ...any) *Parser {
	p := &Parser{
		l:      NewLexer(text),
		input:  text,
		values: values,
	}

	p.prefixParseFns = map[TokenType]prefixParseFn{}
	p.registerPrefix(IDENT, p.parseIdentifier)
	p.registerPrefix(NUMBER, p.parseNumber)
	p.registerPrefix(STRING, p.parseString)
	p.registerPrefix(TRUE, p.parseBoolean)
	p.registerPrefix(FALSE, p.parseBoolean)
	p.registerPrefix(NULL, p.parseNull)
	p.registerPrefix(PLACEHOLDER, p.parsePlaceholder)
	p.registerPrefix(STAR, p.parseWildcard)
	p.registerPrefix(LPAREN, p.parseGroupedExpression)
	p.registerPrefix(NOT, p.parseNotExpression)
	p.registerPrefix(BANG, p.parseUnaryExpression)
	p.registerPrefix(MINUS, p.parseUnaryExpression)
	p.registerPrefix(TILDE, p.parseUnaryExpression)
	p.registerPrefix(DISTINCT, p.parseModifier)

	p.infixParseFns = map[TokenType]infixParseFn{}
	for tokenType := range infixOperators {
		p.registerInfix(tokenType, p.parseInfixExpression)
	}
	p.registerInfix(LIKE, p.parseLikeExpression)
	p.registerInfix(IN, p.parseInExpression)
	p.registerInfix(BETWEEN, p.parseBetweenExpression)
	p.registerInfix(NOT, p.parseNegatedExpression)
	p.registerInfix(IS, p.parseIsExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) finish() error {
	if p.err == nil && p.valueIndex < len(p.values) {
		p.fail(Token{Type: EOF, Pos: len(p.input)},
			fmt.Sprintf("%d placeholder value(s) left unused", len(p.values)-p.valueIndex))
	}
	if p.err != nil {
		return p.err
	}
	return nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// parseAliased parses an expression optionally followed by AS name.
func (p *Parser) parseAliased() Node {
	exp := p.parseExpression(PrecLowest)
	if p.err != nil || !p.peekTokenIs(AS) {
		return exp
	}

	p.nextToken()
	p.nextToken()

	var name string
	switch p.curToken.Type {
	case IDENT:
		name = p.curToken.Parts[len(p.curToken.Parts)-1]
	case STRING:
		name = p.curToken.Literal
	default:
		p.unexpected(p.curToken)
		return nil
	}

	return &Alias{Value: name, Args: []Node{exp}}
}

func (p *Parser) parseExpression(precedence int) Node {
	if p.err != nil {
		return nil
	}

	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		p.unexpected(p.curToken)
		return nil
	}

	leftExp := prefix()

	for p.err == nil && !p.peekTokenIs(EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	if p.err != nil {
		return nil
	}

	return leftExp
}

func (p *Parser) parseIdentifier() Node {
	tok := p.curToken
	if p.peekTokenIs(LPAREN) {
		return p.parseCallExpression(strings.ToLower(tok.Literal))
	}

	return NewIdentifier(tok.Parts...)
}

func (p *Parser) parseCallExpression(name string) Node {
	call := &Func{Name: name, Args: []Node{}}

	p.nextToken()
	if p.peekTokenIs(RPAREN) {
		p.nextToken()
		return call
	}

	p.nextToken()
	call.Args = append(call.Args, p.parseExpression(PrecLowest))

	for p.err == nil && p.peekTokenIs(COMMA) {
		p.nextToken()
		p.nextToken()
		call.Args = append(call.Args, p.parseExpression(PrecLowest))
	}

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return call
}

func (p *Parser) parseNumber() Node {
	text := p.curToken.Literal
	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &Literal{Value: n}
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		p.fail(p.curToken, fmt.Sprintf("invalid number %q", text))
		return nil
	}

	return &Literal{Value: d}
}

func (p *Parser) parseString() Node {
	return &Literal{Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() Node {
	return &Literal{Value: p.curToken.Type == TRUE}
}

func (p *Parser) parseNull() Node {
	return &Literal{Value: nil}
}

func (p *Parser) parseWildcard() Node {
	return &Wildcard{}
}

func (p *Parser) parsePlaceholder() Node {
	if p.valueIndex >= len(p.values) {
		p.fail(p.curToken, fmt.Sprintf("missing value for placeholder #%d", p.valueIndex+1))
		return nil
	}

	value := p.values[p.valueIndex]
	p.valueIndex++

	return bindValue(value)
}

// parseGroupedExpression parses (expr) or a literal tuple (1, 2, 3).
func (p *Parser) parseGroupedExpression() Node {
	open := p.curToken
	p.nextToken()
	exp := p.parseExpression(PrecLowest)
	if p.err != nil {
		return nil
	}

	if !p.peekTokenIs(COMMA) {
		if !p.expectPeek(RPAREN) {
			return nil
		}
		return exp
	}

	items := []Node{exp}
	for p.err == nil && p.peekTokenIs(COMMA) {
		p.nextToken()
		p.nextToken()
		items = append(items, p.parseExpression(PrecLowest))
	}
	if !p.expectPeek(RPAREN) {
		return nil
	}

	list := make([]any, 0, len(items))
	for _, item := range items {
		lit, ok := negatedNumber(item)
		if !ok {
			lit, ok = item.(*Literal)
		}
		if !ok || lit.IsList() {
			p.fail(open, "value lists may only contain scalar literals")
			return nil
		}
		list = append(list, lit.Value)
	}

	return &Literal{Value: list}
}

// negatedNumber folds unary minus applied to a number literal.
func negatedNumber(node Node) (*Literal, bool) {
	neg, ok := node.(*Op)
	if !ok || neg.Name != "-" || len(neg.Args) != 1 {
		return nil, false
	}
	lit, ok := neg.Args[0].(*Literal)
	if !ok {
		return nil, false
	}
	switch v := lit.Value.(type) {
	case int64:
		return &Literal{Value: -v}, true
	case decimal.Decimal:
		return &Literal{Value: v.Neg()}, true
	}
	return nil, false
}

func (p *Parser) parseNotExpression() Node {
	p.nextToken()

	return &Op{Name: "not", Args: []Node{p.parseExpression(PrecNot)}}
}

func (p *Parser) parseUnaryExpression() Node {
	name := p.curToken.Literal
	if p.curToken.Type == BANG {
		name = "not"
	}
	p.nextToken()

	return &Op{Name: name, Args: []Node{p.parseExpression(PrecUnary)}}
}

func (p *Parser) parseModifier() Node {
	p.nextToken()

	return &Mod{Name: "distinct", Args: []Node{p.parseExpression(PrecLowest)}}
}

func (p *Parser) parseInfixExpression(left Node) Node {
	name := infixOperators[p.curToken.Type]
	precedence := precedences[p.curToken.Type]

	p.nextToken()
	right := p.parseExpression(precedence)

	return &Op{Name: name, Args: []Node{left, right}}
}

func (p *Parser) parseLikeExpression(left Node) Node {
	return p.parseLike(left, false)
}

func (p *Parser) parseLike(left Node, negate bool) Node {
	p.nextToken()
	right := p.parseExpression(PrecCompare)

	name := "like"
	if negate {
		name = "not like"
	}

	return &Op{Name: name, Args: []Node{left, right}}
}

func (p *Parser) parseInExpression(left Node) Node {
	return p.parseIn(left, false)
}

func (p *Parser) parseIn(left Node, negate bool) Node {
	p.nextToken()
	tok := p.curToken
	right := p.parseExpression(PrecUnary)
	if p.err != nil {
		return nil
	}

	switch r := right.(type) {
	case *Subquery:
	case *Literal:
		if !r.IsList() {
			right = &Literal{Value: []any{r.Value}}
		}
	default:
		p.fail(tok, "IN expects a value list or a subquery")
		return nil
	}

	name := "in"
	if negate {
		name = "not in"
	}

	return &Op{Name: name, Args: []Node{left, right}}
}

func (p *Parser) parseBetweenExpression(left Node) Node {
	return p.parseBetween(left, false)
}

func (p *Parser) parseBetween(left Node, negate bool) Node {
	p.nextToken()
	low := p.parseExpression(PrecCompare)

	if !p.expectPeek(AND) {
		return nil
	}

	p.nextToken()
	high := p.parseExpression(PrecCompare)

	name := "between"
	if negate {
		name = "not between"
	}

	return &Op{Name: name, Args: []Node{left, low, high}}
}

// parseNegatedExpression handles infix NOT: x NOT IN, x NOT LIKE,
// x NOT BETWEEN.
func (p *Parser) parseNegatedExpression(left Node) Node {
	p.nextToken()

	switch p.curToken.Type {
	case IN:
		return p.parseIn(left, true)
	case LIKE:
		return p.parseLike(left, true)
	case BETWEEN:
		return p.parseBetween(left, true)
	default:
		p.unexpected(p.curToken)
		return nil
	}
}

// parseIsExpression desugars IS NULL and IS NOT NULL into = and != against a
// null literal.
func (p *Parser) parseIsExpression(left Node) Node {
	name := "="
	if p.peekTokenIs(NOT) {
		p.nextToken()
		name = "!="
	}

	if !p.expectPeek(NULL) {
		return nil
	}

	return &Op{Name: name, Args: []Node{left, &Literal{Value: nil}}}
}

// helpers

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.err != nil {
		return false
	}
	if !p.peekTokenIs(t) {
		p.fail(p.peekToken, fmt.Sprintf("expected %s, got %s", t, describe(p.peekToken)))
		return false
	}

	p.nextToken()

	return true
}

func (p *Parser) unexpected(tok Token) {
	if tok.Type == EOF {
		p.fail(tok, "unexpected end of expression")
		return
	}
	p.fail(tok, "unexpected token "+describe(tok))
}

// fail records the first error only; later errors are consequences of it.
func (p *Parser) fail(tok Token, msg string) {
	if p.err != nil {
		return
	}
	p.err = &SyntaxError{
		Message: msg,
		Token:   tok.Literal,
		Pos:     tok.Pos,
		Input:   p.input,
	}
}

func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of expression"
	}
	return strconv.Quote(tok.Literal)
}

func (p *Parser) registerPrefix(tokenType TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}

	return PrecLowest
}
