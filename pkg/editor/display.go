package editor

import "github.com/lemonberrylabs/keypad-calc/pkg/calc"

// DefaultErrorText is shown in place of a result after a failed "=".
const DefaultErrorText = "Error"

// DefaultPrecision is the number of significant digits shown for a result.
const DefaultPrecision = 12

// Formatter renders a State for the display.
type Formatter struct {
	Precision int
	ErrorText string
}

// DefaultFormatter is used by State.Display.
var DefaultFormatter = Formatter{Precision: DefaultPrecision, ErrorText: DefaultErrorText}

// Display returns the text for the calculator display: the error text
// after a failed "=", the rounded value after a successful one, otherwise
// the buffer, or "0" when the buffer is empty.
func (f Formatter) Display(s State) string {
	if s.Showing && s.Last != nil {
		if s.Last.Failed() {
			if f.ErrorText == "" {
				return DefaultErrorText
			}
			return f.ErrorText
		}
		return calc.FormatDisplay(s.Last.Value, f.Precision)
	}
	if s.Buffer.Empty() {
		return "0"
	}
	return s.Buffer.String()
}

// Display renders s with DefaultFormatter.
func (s State) Display() string {
	return DefaultFormatter.Display(s)
}
