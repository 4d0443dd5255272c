package calc

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxExpressionLength is the maximum allowed length, in bytes, of a single expression.
const MaxExpressionLength = 400

// Lexer tokenizes a keypad expression string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans input and returns its tokens. It never trusts the caller:
// any character outside digits, '.', whitespace and the operator glyphs is
// rejected.
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokenize()
}

// Tokenize scans the entire input and returns all tokens, without a
// trailing EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	if len(l.input) > MaxExpressionLength {
		return nil, newError(KindExpressionTooLong, -1,
			"expression exceeds maximum length of %d characters", MaxExpressionLength)
	}
	if strings.TrimSpace(l.input) == "" {
		return nil, newError(KindEmptyExpression, -1, "nothing to evaluate")
	}

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			break
		}
		l.tokens = append(l.tokens, tok)
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])

	if isDigit(r) || r == '.' {
		return l.readNumber()
	}

	if op, ok := LookupGlyph(r); ok {
		start := l.pos
		l.pos += size
		return Token{Type: TokenOperator, Op: op, Lexeme: l.input[start:l.pos], Pos: start}, nil
	}

	return Token{}, newError(KindUnrecognizedCharacter, l.pos, "unexpected character %q", r)
}

// readNumber reads a maximal run of digits containing at most one decimal
// point. A second point ends the run.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	seenPoint := false

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= '0' && ch <= '9' {
			l.pos++
		} else if ch == '.' && !seenPoint {
			seenPoint = true
			l.pos++
		} else {
			break
		}
	}

	raw := l.input[start:l.pos]
	if raw == "." {
		return Token{}, newError(KindUnrecognizedCharacter, start, "decimal point without digits")
	}
	// A run beyond float64 range parses to ±Inf with ErrRange. It is still a
	// number; the evaluator reports it as a DomainError.
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, newError(KindUnrecognizedCharacter, start, "invalid number %q", raw)
	}
	return Token{Type: TokenNumber, Value: v, Lexeme: raw, Pos: start}, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
