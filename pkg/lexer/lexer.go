package lexer

// punctuation maps single-character tokens to their types
var punctuation = map[byte]TokenType{
	'*': TokenStar,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	';': TokenSemicolon,
	',': TokenComma,
}

// Lexer tokenizes C declarations
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peek returns the character n positions ahead of the current one
func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipTrivia()
	tok := Token{Line: l.line, Column: l.column}

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok
	case isLetter(l.ch):
		tok.Literal = l.readWhile(isIdentChar)
		tok.Type = LookupIdent(tok.Literal)
		return tok
	case isDigit(l.ch):
		tok.Type = TokenInt
		tok.Literal = l.readNumber()
		return tok
	case l.ch == '.' && l.peek(1) == '.' && l.peek(2) == '.':
		tok.Type = TokenEllipsis
		tok.Literal = "..."
		l.readChar()
		l.readChar()
		l.readChar()
		return tok
	}

	tok.Type = TokenIllegal
	if t, ok := punctuation[l.ch]; ok {
		tok.Type = t
	}
	tok.Literal = string(l.ch)
	l.readChar()
	return tok
}

// skipTrivia skips whitespace, line comments and block comments
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peek(1) == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peek(1) == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peek(1) == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readWhile(ok func(byte) bool) string {
	pos := l.pos
	for l.ch != 0 && ok(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads a decimal or hexadecimal integer and drops any
// integer suffix letters
func (l *Lexer) readNumber() string {
	var lit string
	if l.ch == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		pos := l.pos
		l.readChar()
		l.readChar()
		l.readWhile(isHexDigit)
		lit = l.input[pos:l.pos]
	} else {
		lit = l.readWhile(isDigit)
	}
	l.readWhile(isIntSuffix)
	return lit
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isIntSuffix(ch byte) bool {
	return ch == 'u' || ch == 'U' || ch == 'l' || ch == 'L'
}
