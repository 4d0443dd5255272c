// Package store provides in-memory storage for calculator sessions.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
)

// DefaultHistoryLimit is the number of calculations kept per session.
const DefaultHistoryLimit = 50

// Lookup errors, matched with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid session ID")
)

var validSessionID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// Calculation records one "=" press.
type Calculation struct {
	Expression string    `json:"expression"`
	Value      float64   `json:"value"`
	Error      string    `json:"error,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Time       time.Time `json:"time"`
}

// Failed reports whether the calculation produced an error.
func (c Calculation) Failed() bool { return c.Error != "" }

// Session is one calculator screen: its editor state and past results.
type Session struct {
	Name       string        `json:"name"`
	State      editor.State  `json:"-"`
	History    []Calculation `json:"history"`
	Presses    int64         `json:"presses"`
	CreateTime time.Time     `json:"createTime"`
	UpdateTime time.Time     `json:"updateTime"`
}

// ID returns the last segment of the session name.
func (s *Session) ID() string {
	return strings.TrimPrefix(s.Name, "sessions/")
}

func (s *Session) clone() *Session {
	c := *s
	c.History = append([]Calculation(nil), s.History...)
	return &c
}

// Option configures a Store.
type Option func(*Store)

// WithEditor sets the editor used by Press.
func WithEditor(e editor.Editor) Option {
	return func(s *Store) { s.editor = e }
}

// WithHistoryLimit caps the history kept per session.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// Store is a thread-safe in-memory storage for sessions. Press holds the
// write lock for the whole event batch, so each session has a single writer
// and an "=" finishes before the next event is applied.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	editor       editor.Editor
	historyLimit int
}

// New creates a new empty store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[string]*Session),
		editor:       editor.Default,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionName builds the full resource name for a session ID.
func SessionName(id string) string {
	return "sessions/" + id
}

// CreateSession creates an empty session. An empty id gets a random UUID.
func (s *Store) CreateSession(id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if !validSessionID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := SessionName(id)
	if _, exists := s.sessions[name]; exists {
		return nil, fmt.Errorf("session '%s' %w", name, ErrAlreadyExists)
	}

	now := time.Now()
	sess := &Session{
		Name:       name,
		CreateTime: now,
		UpdateTime: now,
	}
	s.sessions[name] = sess
	return sess.clone(), nil
}

// GetSession retrieves a session by its full name.
func (s *Store) GetSession(name string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[name]
	if !ok {
		return nil, fmt.Errorf("session '%s' %w", name, ErrNotFound)
	}
	return sess.clone(), nil
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreateTime.Equal(result[j].CreateTime) {
			return result[i].CreateTime.Before(result[j].CreateTime)
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[name]; !ok {
		return fmt.Errorf("session '%s' %w", name, ErrNotFound)
	}
	delete(s.sessions, name)
	return nil
}

// Press applies events to a session in order and records every evaluation
// in its history.
func (s *Store) Press(name string, events ...editor.Event) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[name]
	if !ok {
		return nil, fmt.Errorf("session '%s' %w", name, ErrNotFound)
	}

	for _, ev := range events {
		before := sess.State.Last
		sess.State = s.editor.Apply(sess.State, ev)
		sess.Presses++
		if last := sess.State.Last; last != nil && last != before {
			s.record(sess, last)
		}
	}
	sess.UpdateTime = time.Now()
	return sess.clone(), nil
}

func (s *Store) record(sess *Session, res *editor.Result) {
	c := Calculation{
		Expression: res.Expression,
		Value:      res.Value,
		Time:       time.Now(),
	}
	if res.Err != nil {
		c.Value = 0
		c.Error = res.Err.Error()
		c.Reason = calc.KindOf(res.Err).Tag()
	}
	sess.History = append(sess.History, c)
	if over := len(sess.History) - s.historyLimit; over > 0 {
		sess.History = append([]Calculation(nil), sess.History[over:]...)
	}
}
