// Package tape replays scripted key sequences through the editor.
//
// A tape is a small YAML document:
//
//	name: precedence
//	keys: ["2", "+", "3", "×", "4", "="]
//	expect: "14"
//
// Every entry in keys is a keypad label accepted by editor.ParseKey.
package tape

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
)

// Tape is a named key sequence with an optional expected display.
type Tape struct {
	Name   string   `yaml:"name"`
	Keys   []string `yaml:"keys"`
	Expect *string  `yaml:"expect,omitempty"`

	events []editor.Event
}

// Events returns the parsed key events.
func (t *Tape) Events() []editor.Event {
	return t.events
}

// Step is the display after a single key.
type Step struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

// Result is the outcome of running a tape.
type Result struct {
	Name    string       `json:"name"`
	Steps   []Step       `json:"steps"`
	Display string       `json:"display"`
	Expect  string       `json:"expect,omitempty"`
	Passed  bool         `json:"passed"`
	State   editor.State `json:"-"`
}

// Parse decodes a tape and validates its keys.
func Parse(data []byte) (*Tape, error) {
	var t Tape
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid tape: %w", err)
	}
	if len(t.Keys) == 0 {
		return nil, fmt.Errorf("invalid tape: no keys")
	}
	events, err := editor.ParseKeys(t.Keys)
	if err != nil {
		return nil, fmt.Errorf("invalid tape: %w", err)
	}
	t.events = events
	return &t, nil
}

// ParseFile reads and parses a tape file. A tape without a name is named
// after the file.
func ParseFile(path string) (*Tape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if t.Name == "" {
		base := filepath.Base(path)
		t.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return t, nil
}

// LoadDir parses every .yaml and .yml file in dir, sorted by file name.
// Files that fail to parse are skipped with a warning.
func LoadDir(dir string) ([]*Tape, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading tapes directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var tapes []*Tape
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: skipping tape %q: %v", name, err)
			continue
		}
		tapes = append(tapes, t)
	}
	return tapes, nil
}

// Run applies the tape's keys to a fresh state and records the display
// after each one.
func (t *Tape) Run(e editor.Editor, f editor.Formatter) Result {
	res := Result{Name: t.Name, Steps: make([]Step, 0, len(t.events))}
	var s editor.State
	for i, ev := range t.events {
		s = e.Apply(s, ev)
		res.Steps = append(res.Steps, Step{Key: t.Keys[i], Display: f.Display(s)})
	}
	res.State = s
	res.Display = f.Display(s)
	res.Passed = true
	if t.Expect != nil {
		res.Expect = *t.Expect
		res.Passed = res.Display == *t.Expect
	}
	return res
}
