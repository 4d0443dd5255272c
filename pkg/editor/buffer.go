package editor

import "github.com/lemonberrylabs/keypad-calc/pkg/calc"

// ElementKind is the kind of the last character in a Buffer.
type ElementKind int

const (
	ElementNone ElementKind = iota
	ElementDigit
	ElementDecimalPoint
	ElementOperator
	ElementPercent
	ElementSign // a '-' that negates the following number
)

// String returns the element kind name.
func (k ElementKind) String() string {
	switch k {
	case ElementDigit:
		return "digit"
	case ElementDecimalPoint:
		return "decimal point"
	case ElementOperator:
		return "operator"
	case ElementPercent:
		return "percent"
	case ElementSign:
		return "sign"
	default:
		return "none"
	}
}

// Buffer is the expression currently being edited. It is a value: every
// edit returns a new Buffer.
//
// A Buffer never holds two adjacent binary operators and never holds more
// than one decimal point in a numeric run. A '-' at the start or directly
// after ×, ÷ or ^ is a sign and belongs to the numeric run after it, so
// "5×-3" holds one operator, not two adjacent ones.
type Buffer struct {
	text string
}

// String returns the buffer text.
func (b Buffer) String() string { return b.text }

// Empty reports whether the buffer holds no characters.
func (b Buffer) Empty() bool { return b.text == "" }

// Len returns the buffer length in bytes.
func (b Buffer) Len() int { return len(b.text) }

// LastKind derives the kind of the last character.
func (b Buffer) LastKind() ElementKind {
	return lastKind([]rune(b.text))
}

func kindAt(r []rune, i int) ElementKind {
	switch c := r[i]; {
	case c >= '0' && c <= '9':
		return ElementDigit
	case c == '.':
		return ElementDecimalPoint
	case c == '%':
		return ElementPercent
	case isSignAt(r, i):
		return ElementSign
	default:
		return ElementOperator
	}
}

// isSignAt reports whether r[i] is a '-' in operand position.
func isSignAt(r []rune, i int) bool {
	if r[i] != '-' {
		return false
	}
	return i == 0 || isBinaryRune(r[i-1])
}

func isBinaryRune(c rune) bool {
	op, ok := calc.LookupGlyph(c)
	return ok && op.Binary()
}

func isRunRune(c rune) bool {
	return (c >= '0' && c <= '9') || c == '.'
}

// lastRun locates the last numeric run, skipping trailing '%'. start == end
// means the buffer does not end in a number.
func lastRun(r []rune) (start, end int) {
	end = len(r)
	for end > 0 && r[end-1] == '%' {
		end--
	}
	start = end
	for start > 0 && isRunRune(r[start-1]) {
		start--
	}
	return start, end
}

func runHasPoint(r []rune, start, end int) bool {
	for _, c := range r[start:end] {
		if c == '.' {
			return true
		}
	}
	return false
}

func bufferOf(r []rune) Buffer {
	return Buffer{text: string(r)}
}
