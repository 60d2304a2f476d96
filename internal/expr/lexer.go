package expr

// Lexer tokenizes an expression.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

var singleChar = map[byte]TokenType{
	'(': LPAREN,
	')': RPAREN,
	',': COMMA,
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'%': PERCENT,
	'~': TILDE,
	'?': PLACEHOLDER,
}

// NewLexer creates a new lexer.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()

	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}

	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}

	return l.input[l.readPosition]
}

// NextToken looks up the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.position
	if l.position >= len(l.input) {
		return Token{Type: EOF, Pos: pos}
	}

	if single, ok := singleChar[l.ch]; ok {
		tok := Token{Type: single, Literal: string(l.ch), Pos: pos}
		l.readChar()

		return tok
	}

	switch l.ch {
	case '=':
		return l.twoChar(EQ, 0, "")
	case '!':
		return l.twoChar(BANG, '=', NotEQ)
	case '<':
		switch l.peekChar() {
		case '>':
			l.readChar()
			l.readChar()
			return Token{Type: NotEQ, Literal: "<>", Pos: pos}
		default:
			return l.twoChar(LT, '=', LTE)
		}
	case '>':
		return l.twoChar(GT, '=', GTE)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return Token{Type: AND, Literal: "&&", Pos: pos}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return Token{Type: OR, Literal: "||", Pos: pos}
		}
	case '\'', '"':
		return l.readString()
	case '`':
		return l.readIdentifier()
	}

	if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
		return l.readNumber()
	}

	if isIdentifierStart(l.ch) {
		return l.readIdentifier()
	}

	tok := Token{Type: ILLEGAL, Literal: string(l.ch), Pos: pos}
	l.readChar()

	return tok
}

// twoChar emits second when the next char is next, otherwise first.
func (l *Lexer) twoChar(first TokenType, next byte, second TokenType) Token {
	pos := l.position
	ch := l.ch
	if next != 0 && l.peekChar() == next {
		l.readChar()
		l.readChar()
		return Token{Type: second, Literal: string(ch) + string(next), Pos: pos}
	}
	l.readChar()

	return Token{Type: first, Literal: string(ch), Pos: pos}
}

func (l *Lexer) readString() Token {
	pos := l.position
	quote := l.ch
	var buf []byte

	l.readChar()
	for {
		switch {
		case l.position >= len(l.input):
			return Token{Type: ILLEGAL, Literal: l.input[pos:], Pos: pos}
		case l.ch == '\\' && l.peekChar() != 0:
			l.readChar()
			buf = append(buf, unescape(l.ch))
		case l.ch == quote && l.peekChar() == quote:
			l.readChar()
			buf = append(buf, quote)
		case l.ch == quote:
			l.readChar()
			return Token{Type: STRING, Literal: string(buf), Pos: pos}
		default:
			buf = append(buf, l.ch)
		}
		l.readChar()
	}
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

func (l *Lexer) readNumber() Token {
	pos := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return Token{Type: NUMBER, Literal: l.input[pos:l.position], Pos: pos}
}

// readIdentifier reads a dotted identifier. Segments may be backtick quoted,
// and the last segment may be * (posts.*).
func (l *Lexer) readIdentifier() Token {
	pos := l.position
	var parts []string
	quoted := false

	for {
		switch {
		case l.ch == '`':
			quoted = true
			l.readChar()
			start := l.position
			for l.ch != '`' {
				if l.position >= len(l.input) {
					return Token{Type: ILLEGAL, Literal: l.input[pos:], Pos: pos}
				}
				l.readChar()
			}
			parts = append(parts, l.input[start:l.position])
			l.readChar()
		case l.ch == '*' && len(parts) > 0:
			parts = append(parts, "*")
			l.readChar()
		case isIdentifierStart(l.ch):
			start := l.position
			for isIdentifierLetter(l.ch) {
				l.readChar()
			}
			parts = append(parts, l.input[start:l.position])
		default:
			return Token{Type: ILLEGAL, Literal: l.input[pos:l.position], Pos: pos}
		}

		if l.ch != '.' || parts[len(parts)-1] == "*" {
			break
		}
		l.readChar()
	}

	tok := Token{Type: IDENT, Literal: l.input[pos:l.position], Parts: parts, Pos: pos}
	if len(parts) == 1 && !quoted {
		tok.Type = LookupIdent(parts[0])
	}

	return tok
}

func isIdentifierStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch == '$' || ch >= 0x80
}

func isIdentifierLetter(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}
