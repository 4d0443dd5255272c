package editor

import (
	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
)

// Result is the outcome of one "=" press. It is never mutated.
type Result struct {
	Expression string  // buffer text that was evaluated
	Value      float64 // valid when Err is nil
	Err        error   // *calc.Error on failure
}

// Failed reports whether the evaluation failed.
func (r *Result) Failed() bool { return r.Err != nil }

// State is everything the calculator screen owns. The zero value is a
// fresh screen.
type State struct {
	Buffer Buffer

	// Last is the most recent "=" outcome, kept until Clear.
	Last *Result

	// Showing is set while the display shows Last instead of the buffer.
	Showing bool

	// Restart is set after a successful "=": the next digit or decimal
	// point starts a new expression instead of extending the result.
	Restart bool
}

// Failed reports whether the display currently shows an evaluation failure.
func (s State) Failed() bool {
	return s.Showing && s.Last != nil && s.Last.Failed()
}

// Editor applies events under a length limit.
type Editor struct {
	// MaxLength caps the buffer, in bytes. Zero or values above
	// calc.MaxExpressionLength mean calc.MaxExpressionLength.
	MaxLength int
}

// Default is the editor used by Apply.
var Default = Editor{MaxLength: calc.MaxExpressionLength}

// Apply applies ev to s with the Default editor.
func Apply(s State, ev Event) State {
	return Default.Apply(s, ev)
}

// ApplyAll applies events in order.
func (e Editor) ApplyAll(s State, events ...Event) State {
	for _, ev := range events {
		s = e.Apply(s, ev)
	}
	return s
}

// Apply returns the state after ev. Rejected events return s unchanged; no
// event panics or returns an error.
func (e Editor) Apply(s State, ev Event) State {
	switch ev.Kind {
	case EventDigit:
		return e.digit(s, ev.Digit)
	case EventDecimalPoint:
		return e.decimalPoint(s)
	case EventOperator:
		if ev.Op == calc.OpPercent {
			return e.percent(s)
		}
		return e.operator(s, ev.Op)
	case EventBackspace:
		return e.backspace(s)
	case EventToggleSign:
		return e.toggleSign(s)
	case EventClear:
		return State{}
	case EventPercent:
		return e.percent(s)
	case EventEquals:
		return e.equals(s)
	default:
		return s
	}
}

func (e Editor) maxLength() int {
	if e.MaxLength <= 0 || e.MaxLength > calc.MaxExpressionLength {
		return calc.MaxExpressionLength
	}
	return e.MaxLength
}

// edit finishes an accepted edit, rejecting it when it would overflow.
func (e Editor) edit(s State, r []rune, restart bool) State {
	b := bufferOf(r)
	if b.Len() > e.maxLength() && b.Len() > s.Buffer.Len() {
		return s
	}
	s.Buffer = b
	s.Showing = false
	s.Restart = restart
	return s
}

// digit appends d. A numeric run that is exactly "0" is replaced rather
// than extended.
func (e Editor) digit(s State, d rune) State {
	if d < '0' || d > '9' {
		return s
	}
	r := []rune(s.Buffer.text)
	if s.Restart {
		r = nil
	}

	switch kind := lastKind(r); kind {
	case ElementPercent:
		return s
	case ElementDigit:
		start, end := lastRun(r)
		if end-start == 1 && r[start] == '0' {
			if d == '0' {
				return s
			}
			r[start] = d
			return e.edit(s, r, false)
		}
	}
	return e.edit(s, append(r, d), false)
}

// decimalPoint starts a fraction. After an operator, or on an empty
// buffer, it writes "0.".
func (e Editor) decimalPoint(s State) State {
	r := []rune(s.Buffer.text)
	if s.Restart {
		r = nil
	}

	switch lastKind(r) {
	case ElementNone, ElementOperator, ElementSign:
		return e.edit(s, append(r, '0', '.'), false)
	case ElementDigit:
		start, end := lastRun(r)
		if runHasPoint(r, start, end) {
			return s
		}
		return e.edit(s, append(r, '.'), false)
	default:
		return s
	}
}

// operator appends a binary operator, replacing a trailing one. After "="
// the expression continues from the result.
func (e Editor) operator(s State, op calc.Operator) State {
	if !op.Binary() {
		return s
	}
	glyph := []rune(op.Glyph())[0]
	r := []rune(s.Buffer.text)

	switch lastKind(r) {
	case ElementNone, ElementSign:
		return s
	case ElementOperator:
		r[len(r)-1] = glyph
		return e.edit(s, r, false)
	default:
		return e.edit(s, append(r, glyph), false)
	}
}

// percent appends a postfix percent to the last number.
func (e Editor) percent(s State) State {
	r := []rune(s.Buffer.text)
	switch lastKind(r) {
	case ElementDigit, ElementDecimalPoint, ElementPercent:
		return e.edit(s, append(r, '%'), false)
	default:
		return s
	}
}

// backspace drops the last character, and with it a sign left dangling.
func (e Editor) backspace(s State) State {
	r := []rune(s.Buffer.text)
	if len(r) == 0 {
		return s
	}
	r = r[:len(r)-1]
	if n := len(r); n > 0 && isSignAt(r, n-1) {
		r = r[:n-1]
	}
	return e.edit(s, r, false)
}

// toggleSign negates the last numeric run only. After a binary + or - the
// operator itself is flipped; elsewhere a sign is added or removed.
func (e Editor) toggleSign(s State) State {
	r := []rune(s.Buffer.text)
	start, end := lastRun(r)
	if start == end {
		return s
	}

	switch {
	case start == 0:
		r = insertRune(r, 0, '-')
	case isSignAt(r, start-1):
		r = append(r[:start-1], r[start:]...)
	case r[start-1] == '+':
		r[start-1] = '-'
	case r[start-1] == '-':
		r[start-1] = '+'
	default:
		r = insertRune(r, start, '-')
	}
	return e.edit(s, r, s.Restart)
}

// equals evaluates the buffer. On success the buffer becomes the canonical
// form of the value; on failure it is left untouched.
func (e Editor) equals(s State) State {
	if s.Buffer.Empty() {
		return s
	}

	text := s.Buffer.text
	res := &Result{Expression: text}
	tokens, err := calc.Tokenize(text)
	if err == nil {
		res.Value, err = calc.Evaluate(tokens)
	}

	if err != nil {
		res.Err = err
		s.Last = res
		s.Showing = true
		s.Restart = false
		return s
	}

	s.Buffer = Buffer{text: calc.FormatCanonical(res.Value)}
	s.Last = res
	s.Showing = true
	s.Restart = true
	return s
}

func lastKind(r []rune) ElementKind {
	if len(r) == 0 {
		return ElementNone
	}
	return kindAt(r, len(r)-1)
}

func insertRune(r []rune, i int, c rune) []rune {
	r = append(r, 0)
	copy(r[i+1:], r[i:])
	r[i] = c
	return r
}
