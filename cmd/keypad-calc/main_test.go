package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"KEYPAD_CALC_CONFIG", "HOST", "PORT", "GRPC_PORT", "TAPES_DIR"} {
		t.Setenv(k, "")
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEval(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"eval", "2+3×4"}, "14"},
		{[]string{"eval", "2", "^", "3", "^", "2"}, "512"},
		{[]string{"eval", "50%+10"}, "10.5"},
		{[]string{"eval", "0.1+0.2"}, "0.3"},
		{[]string{"eval", "--canonical", "0.1+0.2"}, "0.30000000000000004"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("output %q, want %q", out, tt.want)
			}
		})
	}
}

func TestEvalError(t *testing.T) {
	out, err := execute(t, "eval", "5÷0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "DivisionByZero") {
		t.Errorf("error %q does not name the failure", err)
	}
	if !strings.Contains(out, "DivisionByZero") {
		t.Errorf("expected cobra to print the error, got %q", out)
	}
}

func TestTokens(t *testing.T) {
	out, err := execute(t, "tokens", "12.5×3%")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 tokens, got %q", out)
	}
	for i, want := range []string{"NUMBER", "Multiply", "NUMBER", "Percent"} {
		if !strings.Contains(lines[i+1], want) {
			t.Errorf("line %d %q does not contain %q", i+1, lines[i+1], want)
		}
	}
	if !strings.Contains(lines[1], "12.5") {
		t.Errorf("expected number value in %q", lines[1])
	}
}

func TestPress(t *testing.T) {
	out, err := execute(t, "press", "5", "+/-", "=")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "-5" {
		t.Errorf("output %q, want -5", out)
	}

	out, err = execute(t, "press", "12+3", "=")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "15" {
		t.Errorf("output %q, want 15", out)
	}

	if _, err := execute(t, "press", "1", "sqrt"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestPressTrace(t *testing.T) {
	out, err := execute(t, "press", "--trace", "6", "÷", "0", "=")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"6", "6÷", "6÷0", "Error"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), out)
	}
	for i, w := range want {
		if fields := strings.Fields(lines[i]); fields[len(fields)-1] != w {
			t.Errorf("line %d = %q, want display %q", i, lines[i], w)
		}
	}
}

func TestReplay(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join("..", "..", "tapes"))
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	if !strings.Contains(out, "PASS precedence") || !strings.Contains(out, ", 0 failed") {
		t.Errorf("unexpected output %q", out)
	}

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte("keys: [\"1\", \"+\", \"1\", \"=\"]\nexpect: \"3\"\n"), 0o644)
	out, err = execute(t, "replay", dir)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out, `FAIL wrong: "2", want "3"`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.yaml")
	os.WriteFile(path, []byte("calculator:\n  precision: 3\n  error_text: \"Oops\"\n"), 0o644)

	out, err := execute(t, "--config", path, "eval", "2÷3")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "0.667" {
		t.Errorf("output %q, want 0.667", out)
	}

	out, err = execute(t, "--config", path, "press", "1÷0=")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "Oops" {
		t.Errorf("output %q, want Oops", out)
	}

	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "eval", "1"); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out, "keypad-calc version dev") {
		t.Errorf("unexpected version output %q", out)
	}
}
