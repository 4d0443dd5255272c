// Package web provides the embedded web keypad for keypad-calc.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store     *store.Store
	formatter editor.Formatter
	templates map[string]*template.Template
}

// pages are the templates rendered inside layout.html.
var pages = []string{"dashboard.html", "keypad.html", "not_found.html"}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler. It panics if a template fails to parse.
func New(s *store.Store, f editor.Formatter) *Handler {
	funcMap := template.FuncMap{
		"shortName":  shortName,
		"timeAgo":    timeAgo,
		"formatTime": formatTime,
		"keyClass":   keyClass,
		"truncate":   truncate,
	}

	// Each page is parsed with the layout on its own so their "content"
	// blocks do not collide.
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		templates[page] = template.Must(
			template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
		)
	}

	return &Handler{
		store:     s,
		formatter: f,
		templates: templates,
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	tmpl, ok := h.templates[page]
	if !ok {
		return c.Status(500).SendString(fmt.Sprintf("unknown page %q", page))
	}

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/sessions", h.createSession)
	app.Get("/ui/sessions/:id", h.keypad)
	app.Post("/ui/sessions/:id/press", h.press)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type sessionView struct {
	*store.Session
	ID      string
	Display string
	Failed  bool
}

type dashboardContent struct {
	Sessions     []*sessionView
	Calculations int
	Failures     int
}

type keypadContent struct {
	Session *sessionView
	Buffer  string
	Keypad  [5][4]string
	History []store.Calculation
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) view(sess *store.Session) *sessionView {
	return &sessionView{
		Session: sess,
		ID:      sess.ID(),
		Display: h.formatter.Display(sess.State),
		Failed:  sess.State.Failed(),
	}
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	sessions := h.store.ListSessions()

	content := dashboardContent{}
	for i := len(sessions) - 1; i >= 0; i-- {
		sess := sessions[i]
		content.Sessions = append(content.Sessions, h.view(sess))
		content.Calculations += len(sess.History)
		for _, entry := range sess.History {
			if entry.Failed() {
				content.Failures++
			}
		}
	}

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	sess, err := h.store.CreateSession(strings.TrimSpace(c.FormValue("id")))
	if err != nil {
		return c.Status(400).SendString(err.Error())
	}
	return c.Redirect("/ui/sessions/"+sess.ID(), fiber.StatusSeeOther)
}

func (h *Handler) keypad(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := h.store.GetSession(store.SessionName(id))
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Session '%s' not found", id),
		})
	}

	// Newest first.
	history := make([]store.Calculation, len(sess.History))
	for i, entry := range sess.History {
		history[len(history)-1-i] = entry
	}

	return h.render(c, "keypad.html", "sessions", keypadContent{
		Session: h.view(sess),
		Buffer:  sess.State.Buffer.String(),
		Keypad:  editor.Keypad,
		History: history,
	})
}

func (h *Handler) press(c *fiber.Ctx) error {
	id := c.Params("id")
	ev, err := editor.ParseKey(c.FormValue("key"))
	if err != nil {
		return c.Status(400).SendString(err.Error())
	}
	if _, err := h.store.Press(store.SessionName(id), ev); err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Session '%s' not found", id),
		})
	}
	return c.Redirect("/ui/sessions/"+id, fiber.StatusSeeOther)
}

// --- Template Helpers ---

func shortName(fullName string) string {
	parts := strings.Split(fullName, "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return fullName
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// keyClass returns the CSS class of a keypad button.
func keyClass(label string) string {
	ev, err := editor.ParseKey(label)
	if err != nil {
		return "key"
	}
	switch ev.Kind {
	case editor.EventDigit, editor.EventDecimalPoint:
		return "key key-digit"
	case editor.EventEquals:
		return "key key-equals"
	case editor.EventOperator:
		return "key key-operator"
	default:
		return "key key-function"
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
