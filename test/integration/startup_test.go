package integration

import (
	"net/http"
	"testing"
)

// TestStartup_TapesReplayed verifies that tapes loaded at startup
// (--tapes-dir) are available as sessions showing their final display.
func TestStartup_TapesReplayed(t *testing.T) {
	want := map[string]string{
		"sessions/precedence":       "14",
		"sessions/power":            "512",
		"sessions/percent":          "10.5",
		"sessions/divide-by-zero":   "Error",
		"sessions/toggle-sign":      "-5",
		"sessions/operator-replace": "42",
		"sessions/rounding":         "0.3",
	}

	code, body := getJSON(t, "sessions")
	if code != http.StatusOK {
		t.Fatalf("list sessions: %d %v", code, body)
	}
	sessions, _ := body["sessions"].([]interface{})

	found := 0
	for _, item := range sessions {
		sess, _ := item.(map[string]interface{})
		name, _ := sess["name"].(string)
		display, ok := want[name]
		if !ok {
			continue
		}
		found++
		if sess["display"] != display {
			t.Errorf("%s display = %v, want %q", name, sess["display"], display)
		}
	}
	if found == 0 {
		t.Skip("no tape sessions found; server may not have --tapes-dir")
	}
	if found != len(want) {
		t.Errorf("found %d of %d tape sessions", found, len(want))
	}
}
