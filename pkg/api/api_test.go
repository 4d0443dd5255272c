package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
)

func setupTestServer(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	s := store.New()
	return New(s, opts...), s
}

// do sends a request and decodes the JSON response body.
func do(t *testing.T, srv *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", data, err)
	}
	return resp.StatusCode, out
}

func errorField(t *testing.T, body map[string]interface{}, field string) interface{} {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	return e[field]
}

func TestEvaluate(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		expr      string
		canonical string
		display   string
	}{
		{"2+3×4", "14", "14"},
		{"2^3^2", "512", "512"},
		{"50%+10", "10.5", "10.5"},
		{"0.1+0.2", "0.30000000000000004", "0.3"},
		{"8/2*3", "12", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			code, body := do(t, srv, "POST", "/v1/evaluate", `{"expression":"`+tt.expr+`"}`)
			if code != 200 {
				t.Fatalf("expected 200, got %d: %v", code, body)
			}
			if body["canonical"] != tt.canonical {
				t.Errorf("canonical = %v, want %s", body["canonical"], tt.canonical)
			}
			if body["display"] != tt.display {
				t.Errorf("display = %v, want %s", body["display"], tt.display)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		expr   string
		reason string
		phase  string
	}{
		{"5÷0", "DivisionByZero", "evaluate"},
		{"2+", "MalformedExpression", "evaluate"},
		{"", "EmptyExpression", "tokenize"},
		{"2a", "UnrecognizedCharacter", "tokenize"},
		{strings.Repeat("1", 401), "ExpressionTooLong", "tokenize"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			code, body := do(t, srv, "POST", "/v1/evaluate", `{"expression":"`+tt.expr+`"}`)
			if code != 400 {
				t.Fatalf("expected 400, got %d", code)
			}
			if got := errorField(t, body, "status"); got != "INVALID_ARGUMENT" {
				t.Errorf("status = %v", got)
			}
			if got := errorField(t, body, "reason"); got != tt.reason {
				t.Errorf("reason = %v, want %s", got, tt.reason)
			}
			if got := errorField(t, body, "phase"); got != tt.phase {
				t.Errorf("phase = %v, want %s", got, tt.phase)
			}
		})
	}
}

func TestEvaluateInvalidBody(t *testing.T) {
	srv, _ := setupTestServer(t)
	code, body := do(t, srv, "POST", "/v1/evaluate", `{"expression":`)
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	if got := errorField(t, body, "reason"); got != nil {
		t.Errorf("body errors should not carry an engine reason, got %v", got)
	}
}

func TestEvaluateUsesFormatter(t *testing.T) {
	srv, _ := setupTestServer(t, WithFormatter(editor.Formatter{Precision: 3}))
	_, body := do(t, srv, "POST", "/v1/evaluate", `{"expression":"2÷3"}`)
	if body["display"] != "0.667" {
		t.Errorf("display = %v, want 0.667", body["display"])
	}
}

func TestTokenize(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := do(t, srv, "POST", "/v1/tokenize", `{"expression":"3 × 4.5%"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	tokens, ok := body["tokens"].([]interface{})
	if !ok || len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %v", body["tokens"])
	}

	first := tokens[0].(map[string]interface{})
	if first["type"] != "NUMBER" || first["value"] != 3.0 || first["pos"] != 0.0 {
		t.Errorf("unexpected first token %v", first)
	}
	second := tokens[1].(map[string]interface{})
	if second["type"] != "OPERATOR" || second["operator"] != "Multiply" || second["pos"] != 2.0 {
		t.Errorf("unexpected second token %v", second)
	}
	last := tokens[3].(map[string]interface{})
	if last["operator"] != "Percent" {
		t.Errorf("unexpected last token %v", last)
	}

	code, body = do(t, srv, "POST", "/v1/tokenize", `{"expression":"1+$"}`)
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	if got := errorField(t, body, "position"); got != 2.0 {
		t.Errorf("position = %v, want 2", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := do(t, srv, "POST", "/v1/sessions?sessionId=desk", "")
	if code != 200 {
		t.Fatalf("create: expected 200, got %d: %v", code, body)
	}
	if body["name"] != "sessions/desk" || body["display"] != "0" {
		t.Fatalf("unexpected session %v", body)
	}

	code, body = do(t, srv, "POST", "/v1/sessions/desk:press", `{"keys":["2","+","3","×","4","="]}`)
	if code != 200 {
		t.Fatalf("press: expected 200, got %d: %v", code, body)
	}
	if body["display"] != "14" || body["buffer"] != "14" {
		t.Errorf("unexpected display %v buffer %v", body["display"], body["buffer"])
	}
	history, _ := body["history"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %v", body["history"])
	}
	if h := history[0].(map[string]interface{}); h["expression"] != "2+3×4" || h["value"] != 14.0 {
		t.Errorf("unexpected history entry %v", h)
	}

	code, body = do(t, srv, "POST", "/v1/sessions/desk:press", `{"sequence":"÷0="}`)
	if code != 200 {
		t.Fatalf("press: expected 200, got %d", code)
	}
	if body["display"] != "Error" || body["failed"] != true || body["buffer"] != "14÷0" {
		t.Errorf("unexpected failure state %v", body)
	}

	code, body = do(t, srv, "GET", "/v1/sessions/desk", "")
	if code != 200 || body["presses"] != 9.0 {
		t.Errorf("get: code %d presses %v", code, body["presses"])
	}

	code, body = do(t, srv, "GET", "/v1/sessions", "")
	if sessions, _ := body["sessions"].([]interface{}); code != 200 || len(sessions) != 1 {
		t.Errorf("list: code %d body %v", code, body)
	}

	if code, _ = do(t, srv, "DELETE", "/v1/sessions/desk", ""); code != 200 {
		t.Errorf("delete: expected 200, got %d", code)
	}
	if code, _ = do(t, srv, "GET", "/v1/sessions/desk", ""); code != 404 {
		t.Errorf("get after delete: expected 404, got %d", code)
	}
}

func TestSessionErrors(t *testing.T) {
	srv, _ := setupTestServer(t)
	do(t, srv, "POST", "/v1/sessions?sessionId=dup", "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		status string
	}{
		{"duplicate", "POST", "/v1/sessions?sessionId=dup", "", 409, "ALREADY_EXISTS"},
		{"invalid id", "POST", "/v1/sessions?sessionId=Bad_ID", "", 400, "INVALID_ARGUMENT"},
		{"missing get", "GET", "/v1/sessions/nope", "", 404, "NOT_FOUND"},
		{"missing delete", "DELETE", "/v1/sessions/nope", "", 404, "NOT_FOUND"},
		{"missing press", "POST", "/v1/sessions/nope:press", `{"keys":["1"]}`, 404, "NOT_FOUND"},
		{"unknown key", "POST", "/v1/sessions/dup:press", `{"keys":["sqrt"]}`, 400, "INVALID_ARGUMENT"},
		{"no keys", "POST", "/v1/sessions/dup:press", `{}`, 400, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, srv, tt.method, tt.path, tt.body)
			if code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, code, body)
			}
			if got := errorField(t, body, "status"); got != tt.status {
				t.Errorf("status = %v, want %s", got, tt.status)
			}
		})
	}
}

func TestCreateSessionGeneratesID(t *testing.T) {
	srv, _ := setupTestServer(t)
	code, body := do(t, srv, "POST", "/v1/sessions", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	name, _ := body["name"].(string)
	if !strings.HasPrefix(name, "sessions/") || len(name) != len("sessions/")+36 {
		t.Errorf("unexpected generated name %q", name)
	}
}

func TestLoadTapes(t *testing.T) {
	srv, s := setupTestServer(t)

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "sum.yaml"), []byte("name: Sum\nkeys: [\"4\", \"+\", \"5\", \"=\"]\nexpect: \"9\"\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("keys: [\"?\"]\n"), 0o644)

	if err := srv.LoadTapes(dir); err != nil {
		t.Fatalf("LoadTapes: %v", err)
	}
	sess, err := s.GetSession("sessions/sum")
	if err != nil {
		t.Fatalf("tape session not created: %v", err)
	}
	if sess.State.Display() != "9" || len(sess.History) != 1 {
		t.Errorf("unexpected tape session %+v", sess)
	}
	if n := len(s.ListSessions()); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}

	if err := srv.LoadTapes(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
