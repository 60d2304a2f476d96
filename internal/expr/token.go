package expr

import "strings"

// TokenType represents the type of a token.
type TokenType string

// Token is a lexical token of an expression.
type Token struct {
	Type    TokenType
	Literal string
	// Parts holds the dotted segments of an IDENT token.
	Parts []string
	// Pos is the byte offset of the token in the input.
	Pos int
}

const (
	// ILLEGAL unknown character
	ILLEGAL TokenType = "ILLEGAL"
	// EOF end of input
	EOF TokenType = "EOF"

	// IDENT identifier, possibly dotted
	IDENT TokenType = "IDENT"
	// NUMBER numeric literal
	NUMBER TokenType = "NUMBER"
	// STRING quoted string literal
	STRING TokenType = "STRING"
	// PLACEHOLDER ? bound to the next value
	PLACEHOLDER TokenType = "?"

	COMMA  TokenType = ","
	LPAREN TokenType = "("
	RPAREN TokenType = ")"

	EQ      TokenType = "="
	NotEQ   TokenType = "!="
	LT      TokenType = "<"
	LTE     TokenType = "<="
	GT      TokenType = ">"
	GTE     TokenType = ">="
	PLUS    TokenType = "+"
	MINUS   TokenType = "-"
	STAR    TokenType = "*"
	SLASH   TokenType = "/"
	PERCENT TokenType = "%"
	TILDE   TokenType = "~"
	BANG    TokenType = "!"

	AND      TokenType = "AND"
	OR       TokenType = "OR"
	NOT      TokenType = "NOT"
	LIKE     TokenType = "LIKE"
	IN       TokenType = "IN"
	BETWEEN  TokenType = "BETWEEN"
	IS       TokenType = "IS"
	NULL     TokenType = "NULL"
	TRUE     TokenType = "TRUE"
	FALSE    TokenType = "FALSE"
	AS       TokenType = "AS"
	DISTINCT TokenType = "DISTINCT"
)

var keywords = map[string]TokenType{
	"AND":      AND,
	"OR":       OR,
	"NOT":      NOT,
	"LIKE":     LIKE,
	"IN":       IN,
	"BETWEEN":  BETWEEN,
	"IS":       IS,
	"NULL":     NULL,
	"TRUE":     TRUE,
	"FALSE":    FALSE,
	"AS":       AS,
	"DISTINCT": DISTINCT,
}

// LookupIdent checks if an undotted identifier is a keyword. Keywords are
// case-insensitive.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return IDENT
}
