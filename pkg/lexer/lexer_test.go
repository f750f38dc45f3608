package lexer

import "testing"

type tokenWant struct {
	expectedType    TokenType
	expectedLiteral string
}

func checkTokens(t *testing.T, input string, tests []tokenWant) {
	t.Helper()
	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken(t *testing.T) {
	checkTokens(t, `int printf(const char *fmt, ...);`, []tokenWant{
		{TokenInt_, "int"},
		{TokenIdent, "printf"},
		{TokenLParen, "("},
		{TokenConst, "const"},
		{TokenChar, "char"},
		{TokenStar, "*"},
		{TokenIdent, "fmt"},
		{TokenComma, ","},
		{TokenEllipsis, "..."},
		{TokenRParen, ")"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	})
}

func TestStructTokens(t *testing.T) {
	checkTokens(t, `struct s { unsigned long long a[0x10]; _Bool b; va_list ap; }`, []tokenWant{
		{TokenStruct, "struct"},
		{TokenIdent, "s"},
		{TokenLBrace, "{"},
		{TokenUnsigned, "unsigned"},
		{TokenLong, "long"},
		{TokenLong, "long"},
		{TokenIdent, "a"},
		{TokenLBracket, "["},
		{TokenInt, "0x10"},
		{TokenRBracket, "]"},
		{TokenSemicolon, ";"},
		{TokenBool, "_Bool"},
		{TokenIdent, "b"},
		{TokenSemicolon, ";"},
		{TokenVaList, "va_list"},
		{TokenIdent, "ap"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	checkTokens(t, `8 16u 0XffUL 42`, []tokenWant{
		{TokenInt, "8"},
		{TokenInt, "16"},
		{TokenInt, "0Xff"},
		{TokenInt, "42"},
		{TokenEOF, ""},
	})
}

func TestComments(t *testing.T) {
	input := `int // comment
main /* block
comment */ ()`

	checkTokens(t, input, []tokenWant{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	})
}

func TestIllegal(t *testing.T) {
	checkTokens(t, `int .. + x`, []tokenWant{
		{TokenInt_, "int"},
		{TokenIllegal, "."},
		{TokenIllegal, "."},
		{TokenIllegal, "+"},
		{TokenIdent, "x"},
		{TokenEOF, ""},
	})
}

func TestPosition(t *testing.T) {
	l := New("int\n  x")
	l.NextToken()
	tok := l.NextToken()
	if tok.Line != 2 || tok.Column != 3 {
		t.Errorf("x at line %d, col %d; want line 2, col 3", tok.Line, tok.Column)
	}
}

func TestIsTypeKeyword(t *testing.T) {
	for _, tt := range []TokenType{TokenVoid, TokenBool, TokenDouble, TokenVaList, TokenStruct} {
		if !tt.IsTypeKeyword() {
			t.Errorf("%s should start a type", tt)
		}
	}
	for _, tt := range []TokenType{TokenConst, TokenIdent, TokenStar, TokenTypedef} {
		if tt.IsTypeKeyword() {
			t.Errorf("%s should not start a type", tt)
		}
	}
}
