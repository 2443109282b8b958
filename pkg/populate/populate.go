// Package populate runs the fetch, normalize and merge pipeline for one form
// instance at a time.
package populate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

var (
	// ErrInFlight is returned when the session already has a request outstanding.
	ErrInFlight = errors.New("a lookup is already running for this form")
	// ErrStaleResponse is returned when a newer request or an abandon happened
	// while the AI call was running. Its answer is discarded.
	ErrStaleResponse = errors.New("lookup result is stale and was discarded")
)

// Logger abstracts logging so callers can pass logrus or anything with the
// same methods.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Request asks for a lookup and carries the form snapshot to merge into.
type Request struct {
	Query ai.Query
	State merge.FormState
}

// Result is what the UI receives: the merge outcome, the normalization
// warnings, and a display summary.
type Result struct {
	merge.Outcome
	NoOp     bool                `json:"no_op"`
	Summary  string              `json:"summary"`
	Warnings []normalize.Warning `json:"warnings,omitempty"`
}

// Session serializes AI lookups for one form. At most one request is
// outstanding; the generation counter discards answers that arrive after a
// newer request started or the user abandoned the old one.
type Session struct {
	client ai.Client
	reg    *schema.Registry
	norm   *normalize.Normalizer
	log    Logger

	gen atomic.Int64

	mu       sync.Mutex
	inFlight bool
	owner    int64
}

// NewSession returns a session using client and reg. A nil reg selects the
// default registry and a nil logger discards messages.
func NewSession(client ai.Client, reg *schema.Registry, log Logger) *Session {
	if reg == nil {
		reg = schema.Default()
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Session{
		client: client,
		reg:    reg,
		norm:   normalize.New(reg, log),
		log:    log,
	}
}

// Busy reports whether a request is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Generation returns the current request generation.
func (s *Session) Generation() int64 {
	return s.gen.Load()
}

// Abandon releases the single-flight guard and invalidates the outstanding
// request. The AI call itself keeps running; its answer is dropped.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		s.log.Debugf("[populate] abandoning generation %d", s.owner)
	}
	s.gen.Add(1)
	s.inFlight = false
}

func (s *Session) begin() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return 0, ErrInFlight
	}
	s.inFlight = true
	s.owner = s.gen.Add(1)
	return s.owner, nil
}

func (s *Session) finish(gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight && s.owner == gen {
		s.inFlight = false
	}
}

// Populate looks req.Query up and merges the answer into req.State. A
// transport failure is returned as is and nothing is merged.
func (s *Session) Populate(ctx context.Context, req Request) (*Result, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.finish(gen)
	return s.run(ctx, gen, req)
}

func (s *Session) run(ctx context.Context, gen int64, req Request) (*Result, error) {
	section := strings.ToLower(strings.TrimSpace(req.Query.Section))
	req.Query.Section = section

	raw, err := s.client.Lookup(ctx, req.Query)
	if err != nil {
		s.log.Warnf("[populate] lookup for %q failed: %v", req.Query.SeedName, err)
		return nil, err
	}
	if s.gen.Load() != gen {
		s.log.Debugf("[populate] discarding stale answer for generation %d", gen)
		return nil, ErrStaleResponse
	}

	res := s.norm.Normalize(raw, section)
	out := merge.Merge(s.reg, req.State, res, merge.Options{SeedName: req.Query.SeedName})

	s.log.Infof("[populate] %q: %d fields normalized, %d dropped, %d changed",
		req.Query.SeedName, len(res.Fields), res.Dropped, len(out.Changes))

	return &Result{
		Outcome:  out,
		NoOp:     out.NoOp(),
		Summary:  out.Changes.Summary(s.reg),
		Warnings: res.Warnings,
	}, nil
}

// Sessions holds the session of every form with a lookup in flight. A form's
// session is dropped once its lookup finishes or is abandoned, so the table
// only ever holds busy forms.
type Sessions struct {
	client ai.Client
	reg    *schema.Registry
	log    Logger

	mu sync.Mutex
	m  map[string]*Session
}

// NewSessions returns an empty session table.
func NewSessions(client ai.Client, reg *schema.Registry, log Logger) *Sessions {
	return &Sessions{client: client, reg: reg, log: log, m: make(map[string]*Session)}
}

// Populate runs req in formID's session. It fails with ErrInFlight while
// another lookup for the same form is outstanding.
func (ss *Sessions) Populate(ctx context.Context, formID string, req Request) (*Result, error) {
	ss.mu.Lock()
	s, ok := ss.m[formID]
	if !ok {
		s = NewSession(ss.client, ss.reg, ss.log)
		ss.m[formID] = s
	}
	gen, err := s.begin()
	ss.mu.Unlock()
	if err != nil {
		return nil, err
	}

	defer ss.release(formID, s)
	defer s.finish(gen)
	return s.run(ctx, gen, req)
}

// Abandon abandons formID's outstanding request and drops its session. It
// reports whether the form had a session.
func (ss *Sessions) Abandon(formID string) bool {
	ss.mu.Lock()
	s, ok := ss.m[formID]
	delete(ss.m, formID)
	ss.mu.Unlock()
	if !ok {
		return false
	}
	s.Abandon()
	return true
}

// release drops s from the table unless it was replaced or picked up a new
// request in the meantime.
func (ss *Sessions) release(formID string, s *Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.m[formID] == s && !s.Busy() {
		delete(ss.m, formID)
	}
}

// Len returns the number of tracked forms.
func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}
