// Package calc implements the keypad calculator's expression engine: a
// tokenizer that normalizes operator glyphs and a precedence evaluator.
package calc

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber   TokenType = iota // numeric literal
	TokenOperator                  // operator glyph
	TokenEOF                       // end of expression
)

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenOperator:
		return "OPERATOR"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Operator is the kind of an operator token.
type Operator int

const (
	OpNone Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpPercent // unary postfix
	OpPower
)

// String returns the operator name.
func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	case OpDivide:
		return "Divide"
	case OpPercent:
		return "Percent"
	case OpPower:
		return "Power"
	default:
		return "None"
	}
}

// Glyph returns the keypad glyph the editor writes for op.
func (op Operator) Glyph() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	case OpPercent:
		return "%"
	case OpPower:
		return "^"
	default:
		return ""
	}
}

// Binary reports whether op combines two operands.
func (op Operator) Binary() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpPower:
		return true
	}
	return false
}

// glyphs is the fixed glyph-to-operator mapping. '*' and '/' are accepted
// for keyboard input.
var glyphs = map[rune]Operator{
	'+': OpAdd,
	'-': OpSubtract,
	'−': OpSubtract, // U+2212 MINUS SIGN
	'×': OpMultiply,
	'*': OpMultiply,
	'÷': OpDivide,
	'/': OpDivide,
	'%': OpPercent,
	'^': OpPower,
}

// LookupGlyph returns the operator for a glyph.
func LookupGlyph(r rune) (Operator, bool) {
	op, ok := glyphs[r]
	return op, ok
}

// Token represents a single lexical token. Tokens are values and are never
// mutated after the lexer produces them.
type Token struct {
	Type   TokenType
	Op     Operator // set for TokenOperator
	Value  float64  // parsed value (for TokenNumber)
	Lexeme string   // raw source text
	Pos    int      // byte position in source
}

// Number returns a number token.
func Number(v float64, lexeme string) Token {
	return Token{Type: TokenNumber, Value: v, Lexeme: lexeme}
}

// Op returns an operator token.
func Op(op Operator) Token {
	return Token{Type: TokenOperator, Op: op, Lexeme: op.Glyph()}
}

// String renders the token for debugging.
func (t Token) String() string {
	switch t.Type {
	case TokenNumber:
		return "NUMBER(" + t.Lexeme + ")"
	case TokenOperator:
		return t.Op.String()
	default:
		return t.Type.String()
	}
}
