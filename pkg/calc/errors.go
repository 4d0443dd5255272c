package calc

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindUnknown Kind = iota

	// Tokenizer failures.
	KindUnrecognizedCharacter
	KindEmptyExpression
	KindExpressionTooLong

	// Evaluator failures.
	KindDivisionByZero
	KindMalformedExpression
	KindDomainError
)

// Tag constants used in API error payloads.
const (
	TagUnrecognizedCharacter = "UnrecognizedCharacter"
	TagEmptyExpression       = "EmptyExpression"
	TagExpressionTooLong     = "ExpressionTooLong"
	TagDivisionByZero        = "DivisionByZero"
	TagMalformedExpression   = "MalformedExpression"
	TagDomainError           = "DomainError"
)

// Tag returns the stable name of the kind.
func (k Kind) Tag() string {
	switch k {
	case KindUnrecognizedCharacter:
		return TagUnrecognizedCharacter
	case KindEmptyExpression:
		return TagEmptyExpression
	case KindExpressionTooLong:
		return TagExpressionTooLong
	case KindDivisionByZero:
		return TagDivisionByZero
	case KindMalformedExpression:
		return TagMalformedExpression
	case KindDomainError:
		return TagDomainError
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string { return k.Tag() }

// Phase returns "tokenize" or "evaluate".
func (k Kind) Phase() string {
	switch k {
	case KindUnrecognizedCharacter, KindEmptyExpression, KindExpressionTooLong:
		return "tokenize"
	case KindDivisionByZero, KindMalformedExpression, KindDomainError:
		return "evaluate"
	default:
		return "unknown"
	}
}

// Error is a tokenizer or evaluator failure. Pos is the byte offset of the
// offending token, or -1 when no single position applies.
type Error struct {
	Kind    Kind
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s at position %d", e.Kind.Tag(), e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Tag(), e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrDivisionByZero)
// works regardless of message and position.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnrecognizedCharacter = &Error{Kind: KindUnrecognizedCharacter, Message: "unrecognized character", Pos: -1}
	ErrEmptyExpression       = &Error{Kind: KindEmptyExpression, Message: "empty expression", Pos: -1}
	ErrExpressionTooLong     = &Error{Kind: KindExpressionTooLong, Message: "expression too long", Pos: -1}
	ErrDivisionByZero        = &Error{Kind: KindDivisionByZero, Message: "division by zero", Pos: -1}
	ErrMalformedExpression   = &Error{Kind: KindMalformedExpression, Message: "malformed expression", Pos: -1}
	ErrDomainError           = &Error{Kind: KindDomainError, Message: "result is not a finite number", Pos: -1}
)

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, pos int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}
