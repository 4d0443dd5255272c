// Package api implements the REST API for the keypad calculator: one-shot
// tokenize and evaluate calls, and stateful sessions driven by key presses.
package api

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
	"github.com/lemonberrylabs/keypad-calc/pkg/tape"
)

// Server is the API server for keypad-calc.
type Server struct {
	app       *fiber.App
	store     *store.Store
	formatter editor.Formatter
}

// Option configures a Server.
type Option func(*Server)

// WithFormatter sets the formatter used for display fields.
func WithFormatter(f editor.Formatter) Option {
	return func(s *Server) { s.formatter = f }
}

// New creates a new API server.
func New(s *store.Store, opts ...Option) *Server {
	srv := &Server{
		store:     s,
		formatter: editor.DefaultFormatter,
	}
	for _, opt := range opts {
		opt(srv)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())

	// Expressions
	app.Post("/v1/tokenize", srv.tokenize)
	app.Post("/v1/evaluate", srv.evaluate)

	// Sessions
	app.Post("/v1/sessions", srv.createSession)
	app.Get("/v1/sessions", srv.listSessions)
	app.Get("/v1/sessions/:session", srv.getSession)
	app.Delete("/v1/sessions/:session", srv.deleteSession)
	app.Post("/v1/sessions/:session\\:press", srv.press)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing and for
// registering the web UI on the same listener).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Expression Handlers ---

type expressionRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	tokens, err := calc.Tokenize(req.Expression)
	if err != nil {
		return sendEngineError(c, err)
	}

	items := make([]fiber.Map, len(tokens))
	for i, tok := range tokens {
		items[i] = tokenToJSON(tok)
	}
	return c.JSON(fiber.Map{
		"expression": req.Expression,
		"tokens":     items,
	})
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	value, err := calc.Compute(req.Expression)
	if err != nil {
		return sendEngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"expression": req.Expression,
		"value":      value,
		"canonical":  calc.FormatCanonical(value),
		"display":    calc.FormatDisplay(value, s.formatter.Precision),
	})
}

// --- Session Handlers ---

func (s *Server) createSession(c *fiber.Ctx) error {
	sess, err := s.store.CreateSession(c.Query("sessionId"))
	if err != nil {
		return sendStoreError(c, err)
	}
	return c.Status(200).JSON(s.sessionToJSON(sess))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.store.GetSession(store.SessionName(c.Params("session")))
	if err != nil {
		return sendStoreError(c, err)
	}
	return c.JSON(s.sessionToJSON(sess))
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	sessions := s.store.ListSessions()

	items := make([]fiber.Map, len(sessions))
	for i, sess := range sessions {
		items[i] = s.sessionToJSON(sess)
	}
	return c.JSON(fiber.Map{
		"sessions": items,
	})
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.store.DeleteSession(store.SessionName(c.Params("session"))); err != nil {
		return sendStoreError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// pressRequest carries either key labels or a string of one-character keys.
type pressRequest struct {
	Keys     []string `json:"keys"`
	Sequence string   `json:"sequence"`
}

func (s *Server) press(c *fiber.Ctx) error {
	var req pressRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	events, err := editor.ParseKeys(req.Keys)
	if err != nil {
		return sendError(c, 400, "INVALID_ARGUMENT", err.Error())
	}
	more, err := editor.SplitKeys(req.Sequence)
	if err != nil {
		return sendError(c, 400, "INVALID_ARGUMENT", err.Error())
	}
	events = append(events, more...)
	if len(events) == 0 {
		return sendError(c, 400, "INVALID_ARGUMENT", "keys or sequence is required")
	}

	sess, err := s.store.Press(store.SessionName(c.Params("session")), events...)
	if err != nil {
		return sendStoreError(c, err)
	}
	return c.JSON(s.sessionToJSON(sess))
}

// --- Tape Loading ---

// LoadTapes replays every tape in dir into a session named after the tape,
// so the sessions are ready to inspect when the server starts.
func (s *Server) LoadTapes(dir string) error {
	tapes, err := tape.LoadDir(dir)
	if err != nil {
		return err
	}

	loaded := 0
	for _, t := range tapes {
		id := strings.ToLower(t.Name)
		if id != t.Name {
			log.Printf("Warning: lowercased session ID %q (from tape %q)", id, t.Name)
		}

		sess, err := s.store.CreateSession(id)
		if err != nil {
			log.Printf("Warning: could not create session for tape %q: %v", t.Name, err)
			continue
		}
		sess, err = s.store.Press(sess.Name, t.Events()...)
		if err != nil {
			log.Printf("Warning: could not replay tape %q: %v", t.Name, err)
			continue
		}

		display := s.formatter.Display(sess.State)
		if t.Expect != nil && display != *t.Expect {
			log.Printf("Warning: tape %q shows %q, expected %q", t.Name, display, *t.Expect)
		}
		loaded++
		log.Printf("Loaded tape %q into %s", t.Name, sess.Name)
	}

	log.Printf("Loaded %d tape(s) from %s", loaded, dir)
	return nil
}

// --- Helpers ---

func sendError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// sendEngineError reports a tokenizer or evaluator failure. The reason is
// the error tag, e.g. "DivisionByZero".
func sendEngineError(c *fiber.Ctx, err error) error {
	var ce *calc.Error
	if !errors.As(err, &ce) {
		return sendError(c, 500, "INTERNAL", err.Error())
	}
	body := fiber.Map{
		"code":    400,
		"message": err.Error(),
		"status":  "INVALID_ARGUMENT",
		"reason":  ce.Kind.Tag(),
		"phase":   ce.Kind.Phase(),
	}
	if ce.Pos >= 0 {
		body["position"] = ce.Pos
	}
	return c.Status(400).JSON(fiber.Map{"error": body})
}

func sendStoreError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return sendError(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return sendError(c, 409, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, store.ErrInvalidID):
		return sendError(c, 400, "INVALID_ARGUMENT", err.Error())
	default:
		return sendError(c, 500, "INTERNAL", err.Error())
	}
}

func tokenToJSON(tok calc.Token) fiber.Map {
	m := fiber.Map{
		"type":   tok.Type.String(),
		"lexeme": tok.Lexeme,
		"pos":    tok.Pos,
	}
	switch tok.Type {
	case calc.TokenNumber:
		m["value"] = tok.Value
	case calc.TokenOperator:
		m["operator"] = tok.Op.String()
	}
	return m
}

func (s *Server) sessionToJSON(sess *store.Session) fiber.Map {
	history := sess.History
	if history == nil {
		history = []store.Calculation{}
	}
	return fiber.Map{
		"name":       sess.Name,
		"display":    s.formatter.Display(sess.State),
		"buffer":     sess.State.Buffer.String(),
		"failed":     sess.State.Failed(),
		"presses":    sess.Presses,
		"history":    history,
		"createTime": sess.CreateTime.Format(time.RFC3339),
		"updateTime": sess.UpdateTime.Format(time.RFC3339),
	}
}
