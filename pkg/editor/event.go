// Package editor owns the expression under construction. It applies keypad
// events to an immutable State and hands finished expressions to the calc
// engine.
package editor

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
)

// EventKind is the closed set of keypad events.
type EventKind int

const (
	EventDigit EventKind = iota
	EventDecimalPoint
	EventOperator
	EventBackspace
	EventToggleSign
	EventClear
	EventPercent
	EventEquals
)

// Event is a single key press.
type Event struct {
	Kind  EventKind
	Digit rune          // '0'-'9' for EventDigit
	Op    calc.Operator // for EventOperator
}

// Events without a payload.
var (
	DecimalPoint = Event{Kind: EventDecimalPoint}
	Backspace    = Event{Kind: EventBackspace}
	ToggleSign   = Event{Kind: EventToggleSign}
	Clear        = Event{Kind: EventClear}
	Percent      = Event{Kind: EventPercent}
	Equals       = Event{Kind: EventEquals}
)

// Digit returns the event for digit key d.
func Digit(d rune) Event {
	return Event{Kind: EventDigit, Digit: d}
}

// Operator returns the event for an operator key.
func Operator(op calc.Operator) Event {
	return Event{Kind: EventOperator, Op: op}
}

// String returns the keypad label of the event.
func (ev Event) String() string {
	switch ev.Kind {
	case EventDigit:
		return string(ev.Digit)
	case EventDecimalPoint:
		return "."
	case EventOperator:
		return ev.Op.Glyph()
	case EventBackspace:
		return "⌫"
	case EventToggleSign:
		return "+/-"
	case EventClear:
		return "C"
	case EventPercent:
		return "%"
	case EventEquals:
		return "="
	default:
		return "?"
	}
}

// Keypad is the button layout of the calculator screen, row by row.
var Keypad = [5][4]string{
	{"⌫", "+/-", "%", "÷"},
	{"7", "8", "9", "×"},
	{"4", "5", "6", "-"},
	{"1", "2", "3", "+"},
	{"C", "0", ".", "="},
}

// ParseKey maps a keypad label or keyboard key name to an event.
func ParseKey(label string) (Event, error) {
	key := strings.TrimSpace(label)
	switch key {
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return Digit(rune(key[0])), nil
	case ".":
		return DecimalPoint, nil
	case "%":
		return Percent, nil
	case "=", "Enter", "Return", "⏎", "⌤":
		return Equals, nil
	case "C", "AC", "Clear", "Escape", "⎋":
		return Clear, nil
	case "⌫", "⌦", "Backspace", "Delete":
		return Backspace, nil
	case "+/-", "±", "ToggleSign":
		return ToggleSign, nil
	}

	if r := []rune(key); len(r) == 1 {
		if op, ok := calc.LookupGlyph(r[0]); ok {
			return Operator(op), nil
		}
	}
	return Event{}, fmt.Errorf("unknown key %q", label)
}

// ParseKeys maps every label in labels, stopping at the first unknown one.
func ParseKeys(labels []string) ([]Event, error) {
	events := make([]Event, 0, len(labels))
	for i, label := range labels {
		ev, err := ParseKey(label)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// SplitKeys maps a string of single-character keys, such as "12+3=", to
// events. Whitespace is ignored.
func SplitKeys(s string) ([]Event, error) {
	var events []Event
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		ev, err := ParseKey(string(r))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
