package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
)

// ErrNotFound is returned for an unknown or expired session or chart.
var ErrNotFound = errors.New("not found")

// ChartBlock is one chart added to a session.
type ChartBlock struct {
	ID      int            `json:"id"`
	Request charts.Request `json:"request"`
	Chart   *charts.Chart  `json:"chart"`
}

// Session is one uploaded file and everything derived from it. Raw is the
// dataset as loaded; Clean has sparse columns dropped and numeric nulls filled.
type Session struct {
	ID        string
	Name      string
	Raw       *dataset.Dataset
	Clean     *dataset.Dataset
	Load      *ingest.Result
	Issues    []analysis.Issue
	Cleaning  *analysis.CleanResult
	CreatedAt time.Time

	mu        sync.Mutex
	charts    []ChartBlock
	nextChart int
	lastUsed  time.Time
}

// NewSession validates and cleans a loaded file.
func NewSession(name string, res *ingest.Result, opt analysis.CleanOptions) *Session {
	clean, cr := analysis.Clean(res.Dataset, opt)
	return &Session{
		Name:     name,
		Raw:      res.Dataset,
		Clean:    clean,
		Load:     res,
		Issues:   analysis.Validate(res.Dataset),
		Cleaning: cr,
	}
}

// AddChart builds req against the cleaned dataset and stores it.
func (s *Session) AddChart(req charts.Request) (ChartBlock, error) {
	c, err := charts.Build(s.Clean, req)
	if err != nil {
		return ChartBlock{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChart++
	b := ChartBlock{ID: s.nextChart, Request: req, Chart: c}
	s.charts = append(s.charts, b)
	return b, nil
}

// Charts returns the session's charts in the order they were added.
func (s *Session) Charts() []ChartBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChartBlock{}, s.charts...)
}

// RemoveChart deletes the chart with id.
func (s *Session) RemoveChart(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.charts {
		if b.ID == id {
			s.charts = append(s.charts[:i], s.charts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("chart %d: %w", id, ErrNotFound)
}

// SessionStore holds live sessions. A session expires ttl after its last use.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	now func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, sessions: map[string]*Session{}, now: time.Now}
}

// Add assigns s an id and stores it.
func (st *SessionStore) Add(s *Session) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt = st.now()
	s.lastUsed = s.CreatedAt
	st.sessions[s.ID] = s
	return s.ID
}

// Get returns the live session with id and refreshes its expiry.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	now := st.now()
	if st.expired(s, now) {
		delete(st.sessions, id)
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.lastUsed = now
	return s, nil
}

// Delete removes the session with id.
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	delete(st.sessions, id)
	return nil
}

// List returns the live sessions, oldest first.
func (st *SessionStore) List() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		if !st.expired(s, now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sweep drops expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && !now.Before(s.lastUsed.Add(st.ttl))
}
