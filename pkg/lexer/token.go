package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent // tm, size_t, x
	TokenInt   // 8, 0x10

	// Type keywords
	TokenVoid     // void
	TokenBool     // _Bool, bool
	TokenChar     // char
	TokenShort    // short
	TokenInt_     // int
	TokenLong     // long
	TokenFloat    // float
	TokenDouble   // double
	TokenSigned   // signed
	TokenUnsigned // unsigned
	TokenVaList   // va_list
	TokenStruct   // struct
	TokenUnion    // union
	TokenEnum     // enum

	// Declaration keywords
	TokenTypedef  // typedef
	TokenExtern   // extern
	TokenStatic   // static
	TokenConst    // const
	TokenVolatile // volatile
	TokenRestrict // restrict

	// Delimiters
	TokenStar      // *
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenEllipsis  // ...
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenIdent:     "IDENT",
	TokenInt:       "INT",
	TokenVoid:      "void",
	TokenBool:      "_Bool",
	TokenChar:      "char",
	TokenShort:     "short",
	TokenInt_:      "int",
	TokenLong:      "long",
	TokenFloat:     "float",
	TokenDouble:    "double",
	TokenSigned:    "signed",
	TokenUnsigned:  "unsigned",
	TokenVaList:    "va_list",
	TokenStruct:    "struct",
	TokenUnion:     "union",
	TokenEnum:      "enum",
	TokenTypedef:   "typedef",
	TokenExtern:    "extern",
	TokenStatic:    "static",
	TokenConst:     "const",
	TokenVolatile:  "volatile",
	TokenRestrict:  "restrict",
	TokenStar:      "*",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenSemicolon: ";",
	TokenComma:     ",",
	TokenEllipsis:  "...",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"void":              TokenVoid,
	"_Bool":             TokenBool,
	"bool":              TokenBool,
	"char":              TokenChar,
	"short":             TokenShort,
	"int":               TokenInt_,
	"long":              TokenLong,
	"float":             TokenFloat,
	"double":            TokenDouble,
	"signed":            TokenSigned,
	"unsigned":          TokenUnsigned,
	"va_list":           TokenVaList,
	"__builtin_va_list": TokenVaList,
	"struct":            TokenStruct,
	"union":             TokenUnion,
	"enum":              TokenEnum,
	"typedef":           TokenTypedef,
	"extern":            TokenExtern,
	"static":            TokenStatic,
	"const":             TokenConst,
	"volatile":          TokenVolatile,
	"restrict":          TokenRestrict,
	"__restrict":        TokenRestrict,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}

// IsTypeKeyword reports whether t starts a type specifier
func (t TokenType) IsTypeKeyword() bool {
	return t >= TokenVoid && t <= TokenEnum
}
