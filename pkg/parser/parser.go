// Package parser implements a recursive descent parser for C declarations.
// It turns type names, struct definitions, typedefs and function prototypes
// into layouts and call descriptors for a given calling convention.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/callconv"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
	"github.com/raymyers/ralph-abi/pkg/lexer"
)

// ErrSyntax is returned for input the parser cannot handle
var ErrSyntax = errors.New("syntax error")

// Decl is one parsed declaration. Func is set for function prototypes;
// Type is nil for void.
type Decl struct {
	Name    string
	Type    ctypes.Type
	Func    *callconv.Descriptor
	Typedef bool
}

// Parser parses C declarations against the layouts of one convention
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string

	conv     cabi.Convention
	sizes    ctypes.Sizes
	typedefs map[string]ctypes.Type // typedef names in scope
	structs  map[string]*ctypes.Struct
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer, conv cabi.Convention) *Parser {
	p := &Parser{
		l:       l,
		conv:    conv,
		sizes:   ctypes.For(conv),
		structs: make(map[string]*ctypes.Struct),
	}
	p.typedefs = builtinTypedefs(p.sizes)
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// builtinTypedefs are the standard typedef names every declaration may use
func builtinTypedefs(s ctypes.Sizes) map[string]ctypes.Type {
	word := s.LongLong()
	return map[string]ctypes.Type{
		"size_t":    word,
		"ssize_t":   word,
		"ptrdiff_t": word,
		"intptr_t":  word,
		"uintptr_t": word,
		"time_t":    word,
		"int8_t":    s.Char(),
		"uint8_t":   s.Char(),
		"int16_t":   s.Short(),
		"uint16_t":  s.Short(),
		"int32_t":   s.Int(),
		"uint32_t":  s.Int(),
		"int64_t":   s.LongLong(),
		"uint64_t":  s.LongLong(),
	}
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseDecls parses a sequence of declarations separated by semicolons.
// Struct definitions and typedefs stay visible to later declarations.
func (p *Parser) ParseDecls() []Decl {
	var decls []Decl
	for !p.curTokenIs(lexer.TokenEOF) {
		if p.curTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
			continue
		}
		before := len(p.errors)
		d, ok := p.ParseDecl()
		if !ok || len(p.errors) > before {
			return decls
		}
		decls = append(decls, d)
		if !p.curTokenIs(lexer.TokenEOF) && !p.expect(lexer.TokenSemicolon) {
			return decls
		}
	}
	return decls
}

// ParseDecl parses a single declaration: a type name, optionally followed
// by a declarator name and a parameter list, or a typedef.
func (p *Parser) ParseDecl() (Decl, bool) {
	typedef := false
	for p.curTokenIs(lexer.TokenTypedef) || p.curTokenIs(lexer.TokenExtern) || p.curTokenIs(lexer.TokenStatic) {
		typedef = typedef || p.curTokenIs(lexer.TokenTypedef)
		p.nextToken()
	}

	s, ok := p.parseSpecifiers()
	if !ok {
		return Decl{}, false
	}
	t, ok := p.parsePointers(s)
	if !ok {
		return Decl{}, false
	}

	var name string
	if p.curTokenIs(lexer.TokenIdent) {
		name = p.curToken.Literal
		p.nextToken()
	}

	if p.curTokenIs(lexer.TokenLParen) {
		if typedef {
			p.addError("function typedefs are not supported")
			return Decl{}, false
		}
		d, ok := p.parseParams(t)
		if !ok {
			return Decl{}, false
		}
		return Decl{Name: name, Func: &d}, true
	}

	t, ok = p.parseArrays(t)
	if !ok {
		return Decl{}, false
	}
	if typedef {
		if name == "" {
			p.addError("typedef without a name")
			return Decl{}, false
		}
		// An anonymous struct takes the typedef's name
		if st, ok := t.(*ctypes.Struct); ok && st.Name == "" {
			st.Name = name
		}
		p.typedefs[name] = t
	}
	return Decl{Name: name, Type: t, Typedef: typedef}, true
}

// parseSpecifiers parses qualifiers and a base type. A struct that is
// declared but not defined yields an incomplete type usable only behind
// a pointer.
func (p *Parser) parseSpecifiers() (spec, bool) {
	p.skipQualifiers()

	switch p.curToken.Type {
	case lexer.TokenVoid:
		p.nextToken()
		p.skipQualifiers()
		return spec{void: true}, true
	case lexer.TokenVaList:
		p.nextToken()
		p.skipQualifiers()
		return spec{typ: p.sizes.VaList()}, true
	case lexer.TokenStruct:
		return p.parseStruct()
	case lexer.TokenUnion:
		p.addError("unions are not supported")
		return spec{}, false
	case lexer.TokenEnum:
		p.nextToken()
		if p.curTokenIs(lexer.TokenIdent) {
			p.nextToken()
		}
		if p.curTokenIs(lexer.TokenLBrace) {
			p.addError("enum definitions are not supported")
			return spec{}, false
		}
		p.skipQualifiers()
		return spec{typ: p.sizes.Int()}, true
	case lexer.TokenIdent:
		t, ok := p.typedefs[p.curToken.Literal]
		if !ok {
			p.addError(fmt.Sprintf("unknown type name %s", p.curToken.Literal))
			return spec{}, false
		}
		p.nextToken()
		p.skipQualifiers()
		if t == nil {
			return spec{void: true}, true
		}
		return spec{typ: t}, true
	}
	return p.parseArithmetic()
}

// spec is the result of parsing declaration specifiers
type spec struct {
	typ        ctypes.Type
	void       bool
	incomplete string // tag of a struct that was never defined
}

func (p *Parser) skipQualifiers() {
	for p.curTokenIs(lexer.TokenConst) || p.curTokenIs(lexer.TokenVolatile) || p.curTokenIs(lexer.TokenRestrict) {
		p.nextToken()
	}
}

// parseArithmetic parses the integer and floating-point specifier
// combinations, e.g. "unsigned long long int" or "long double"
func (p *Parser) parseArithmetic() (spec, bool) {
	var longs, shorts, ints, chars, signs int
	var float, double, boolean bool
	start := p.curToken

loop:
	for {
		switch p.curToken.Type {
		case lexer.TokenLong:
			longs++
		case lexer.TokenShort:
			shorts++
		case lexer.TokenInt_:
			ints++
		case lexer.TokenChar:
			chars++
		case lexer.TokenSigned, lexer.TokenUnsigned:
			signs++
		case lexer.TokenFloat:
			float = true
		case lexer.TokenDouble:
			double = true
		case lexer.TokenBool:
			boolean = true
		case lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict:
		default:
			break loop
		}
		p.nextToken()
	}

	s := p.sizes
	switch {
	case double && longs > 0:
		p.addError("long double is not supported")
		return spec{}, false
	case double:
		return spec{typ: s.Double()}, true
	case float:
		return spec{typ: s.Float()}, true
	case boolean:
		return spec{typ: s.Bool()}, true
	case chars > 0:
		return spec{typ: s.Char()}, true
	case shorts > 0:
		return spec{typ: s.Short()}, true
	case longs >= 2:
		return spec{typ: s.LongLong()}, true
	case longs == 1:
		return spec{typ: s.Long()}, true
	case ints > 0 || signs > 0:
		return spec{typ: s.Int()}, true
	}
	p.addError(fmt.Sprintf("expected type specifier, got %s", start.Type))
	return spec{}, false
}

// parseStruct parses "struct tag", "struct tag { ... }" or "struct { ... }"
func (p *Parser) parseStruct() (spec, bool) {
	p.nextToken() // consume 'struct'

	var tag string
	if p.curTokenIs(lexer.TokenIdent) {
		tag = p.curToken.Literal
		p.nextToken()
	}

	if !p.curTokenIs(lexer.TokenLBrace) {
		if tag == "" {
			p.addError(fmt.Sprintf("expected struct tag or '{', got %s", p.curToken.Type))
			return spec{}, false
		}
		p.skipQualifiers()
		if st, ok := p.structs[tag]; ok {
			return spec{typ: st}, true
		}
		return spec{incomplete: tag}, true
	}

	p.nextToken() // consume '{'
	var fields []ctypes.Field
	for !p.curTokenIs(lexer.TokenRBrace) {
		if p.curTokenIs(lexer.TokenEOF) {
			p.addError("unterminated struct")
			return spec{}, false
		}
		more, ok := p.parseFields()
		if !ok {
			return spec{}, false
		}
		fields = append(fields, more...)
		if !p.curTokenIs(lexer.TokenRBrace) && !p.expect(lexer.TokenSemicolon) {
			return spec{}, false
		}
	}
	p.nextToken() // consume '}'
	p.skipQualifiers()

	if len(fields) == 0 {
		p.addError("empty struct")
		return spec{}, false
	}
	st := ctypes.NewStruct(tag, fields...)
	if err := ctypes.Check(st); err != nil {
		p.addError(err.Error())
		return spec{}, false
	}
	if tag != "" {
		p.structs[tag] = st
	}
	return spec{typ: st}, true
}

// parseFields parses one member declaration, which may declare several
// members of the same base type: "float x, *p, v[3]".
func (p *Parser) parseFields() ([]ctypes.Field, bool) {
	s, ok := p.parseSpecifiers()
	if !ok {
		return nil, false
	}
	var fields []ctypes.Field
	for {
		t, ok := p.parsePointers(s)
		if !ok {
			return nil, false
		}
		var name string
		if p.curTokenIs(lexer.TokenIdent) {
			name = p.curToken.Literal
			p.nextToken()
		}
		t, ok = p.parseArrays(t)
		if !ok {
			return nil, false
		}
		if t == nil {
			p.addError("field of type void")
			return nil, false
		}
		fields = append(fields, ctypes.F(name, t))
		if !p.curTokenIs(lexer.TokenComma) {
			return fields, true
		}
		p.nextToken()
	}
}

// parsePointers applies any "*" declarators and function pointer
// declarators "(*name)(...)" to s, returning nil for plain void.
func (p *Parser) parsePointers(s spec) (ctypes.Type, bool) {
	pointer := false
	for p.curTokenIs(lexer.TokenStar) {
		pointer = true
		p.nextToken()
		p.skipQualifiers()
	}

	if p.curTokenIs(lexer.TokenLParen) && p.peekTokenIs(lexer.TokenStar) {
		p.nextToken() // consume '('
		for p.curTokenIs(lexer.TokenStar) {
			p.nextToken()
			p.skipQualifiers()
		}
		if p.curTokenIs(lexer.TokenIdent) {
			p.nextToken()
		}
		if !p.expect(lexer.TokenRParen) {
			return nil, false
		}
		if p.curTokenIs(lexer.TokenLParen) && !p.skipParens() {
			return nil, false
		}
		return p.sizes.Pointer(), true
	}

	switch {
	case pointer:
		return p.sizes.Pointer(), true
	case s.incomplete != "":
		p.addError(fmt.Sprintf("incomplete type struct %s", s.incomplete))
		return nil, false
	case s.void:
		return nil, true
	}
	return s.typ, true
}

// skipParens skips a balanced parenthesized group
func (p *Parser) skipParens() bool {
	depth := 0
	for {
		switch p.curToken.Type {
		case lexer.TokenLParen:
			depth++
		case lexer.TokenRParen:
			depth--
		case lexer.TokenEOF:
			p.addError("unbalanced parentheses")
			return false
		}
		p.nextToken()
		if depth == 0 {
			return true
		}
	}
}

// parseArrays parses trailing "[n]" declarators. Dimensions apply
// outermost first, so int m[2][3] is two arrays of three ints.
func (p *Parser) parseArrays(t ctypes.Type) (ctypes.Type, bool) {
	var dims []int64
	for p.curTokenIs(lexer.TokenLBracket) {
		p.nextToken()
		if !p.curTokenIs(lexer.TokenInt) {
			p.addError(fmt.Sprintf("expected array length, got %s", p.curToken.Type))
			return nil, false
		}
		n, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
		if err != nil || n <= 0 {
			p.addError(fmt.Sprintf("invalid array length %s", p.curToken.Literal))
			return nil, false
		}
		dims = append(dims, n)
		p.nextToken()
		if !p.expect(lexer.TokenRBracket) {
			return nil, false
		}
	}
	if len(dims) > 0 && t == nil {
		p.addError("array of void")
		return nil, false
	}
	if len(dims) > 0 {
		size := t.Size()
		for _, n := range dims {
			if size > math.MaxInt64/n {
				p.addError("array is too large")
				return nil, false
			}
			size *= n
		}
	}
	for i := len(dims) - 1; i >= 0; i-- {
		t = ctypes.ArrayOf(t, dims[i])
	}
	return t, true
}

// parseParams parses a parameter list; "(void)" is empty and a trailing
// "..." marks the function variadic.
func (p *Parser) parseParams(ret ctypes.Type) (callconv.Descriptor, bool) {
	p.nextToken() // consume '('
	d := callconv.Descriptor{Return: ret}

	if p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
	}

	for !p.curTokenIs(lexer.TokenRParen) {
		// Types written directly after '...' are the variadic arguments of
		// one call, as in "int(void*, ...int, double)".
		if p.curTokenIs(lexer.TokenEllipsis) {
			if d.Variadic {
				p.addError("duplicate '...'")
				return d, false
			}
			p.nextToken()
			d.Variadic = true
			d.FirstVariadic = len(d.Args)
			if p.curTokenIs(lexer.TokenComma) {
				p.addError("'...' must be the last parameter")
				return d, false
			}
			continue
		}

		s, ok := p.parseSpecifiers()
		if !ok {
			return d, false
		}
		t, ok := p.parsePointers(s)
		if !ok {
			return d, false
		}
		if p.curTokenIs(lexer.TokenIdent) {
			p.nextToken()
		}
		if p.curTokenIs(lexer.TokenLBracket) {
			// Array parameters decay to pointers
			if _, ok := p.parseArrays(t); !ok {
				return d, false
			}
			t = p.sizes.Pointer()
		}
		if t == nil {
			p.addError("parameter of type void")
			return d, false
		}
		d.Args = append(d.Args, t)

		if !p.curTokenIs(lexer.TokenRParen) && !p.expect(lexer.TokenComma) {
			return d, false
		}
	}
	p.nextToken() // consume ')'
	return d, true
}

func (p *Parser) err(src string) error {
	return fmt.Errorf("%w in %q: %s", ErrSyntax, src, strings.Join(p.errors, "; "))
}

// ParseType parses a single type name such as "struct { int a; double b; }"
// or "char[16]" for conv. It returns nil for void.
func ParseType(conv cabi.Convention, src string) (ctypes.Type, error) {
	decls, err := Parse(conv, src)
	if err != nil {
		return nil, err
	}
	last := decls[len(decls)-1]
	if last.Func != nil {
		return nil, fmt.Errorf("%w in %q: expected a type, got a function", ErrSyntax, src)
	}
	return last.Type, nil
}

// ParseFunc parses a function prototype such as
// "int printf(const char *fmt, ...)" for conv. The types of a particular
// call's variadic arguments may follow the ellipsis:
// "int printf(const char *fmt, ...int, double)". Earlier declarations in src
// may define the structs and typedefs the prototype uses.
func ParseFunc(conv cabi.Convention, src string) (callconv.Descriptor, error) {
	decls, err := Parse(conv, src)
	if err != nil {
		return callconv.Descriptor{}, err
	}
	last := decls[len(decls)-1]
	if last.Func == nil {
		return callconv.Descriptor{}, fmt.Errorf("%w in %q: expected a function prototype", ErrSyntax, src)
	}
	return *last.Func, nil
}

// Parse parses every declaration in src for conv
func Parse(conv cabi.Convention, src string) ([]Decl, error) {
	p := New(lexer.New(src), conv)
	decls := p.ParseDecls()
	if len(p.Errors()) > 0 {
		return nil, p.err(src)
	}
	if len(decls) == 0 {
		return nil, fmt.Errorf("%w in %q: no declarations", ErrSyntax, src)
	}
	return decls, nil
}
