// Package keys maps keyboard input to calculator events.
package keys

import (
	"gioui.org/io/event"
	"gioui.org/io/key"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
)

// names are the keys the calculator listens for, besides the named keys.
var names = []key.Name{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", ".",
	"+", "-", "*", "/", "%", "^", "=", "C",
}

// Filters returns the key filters for the calculator window.
func Filters() []event.Filter {
	filters := make([]event.Filter, 0, len(names)+5)
	for _, n := range names {
		filters = append(filters, key.Filter{Name: n, Optional: key.ModShift | key.ModAlt | key.ModShortcut})
	}
	for _, n := range []key.Name{key.NameReturn, key.NameEnter, key.NameDeleteBackward, key.NameDeleteForward, key.NameEscape} {
		filters = append(filters, key.Filter{Name: n})
	}
	return filters
}

// IsCopy reports whether e is the copy shortcut.
func IsCopy(e key.Event) bool {
	return e.Name == "C" && e.Modifiers.Contain(key.ModShortcut)
}

// Event maps a pressed key to a calculator event. Alt-minus toggles the
// sign. Releases and shortcuts map to nothing.
func Event(e key.Event) (editor.Event, bool) {
	if e.State != key.Press || e.Modifiers.Contain(key.ModShortcut) {
		return editor.Event{}, false
	}
	switch e.Name {
	case key.NameReturn, key.NameEnter:
		return editor.Equals, true
	case key.NameDeleteBackward, key.NameDeleteForward:
		return editor.Backspace, true
	case key.NameEscape:
		return editor.Clear, true
	case "-":
		if e.Modifiers.Contain(key.ModAlt) {
			return editor.ToggleSign, true
		}
	}
	ev, err := editor.ParseKey(string(e.Name))
	if err != nil {
		return editor.Event{}, false
	}
	return ev, true
}
