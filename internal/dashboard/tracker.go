package dashboard

import (
	"errors"
	"sync"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// ErrStale is returned by Tracker.Commit when a newer request was issued
// for the same session after the committing one started.
var ErrStale = errors.New("dashboard: result superseded by a newer request")

const defaultMaxSessions = 1024

type session struct {
	issued   uint64
	accepted *models.Dashboard
}

// Tracker tags each fetch with a monotonically increasing id and keeps only
// results belonging to the latest id issued for a session.
type Tracker struct {
	mu          sync.Mutex
	next        uint64
	sessions    map[string]*session
	maxSessions int
}

func NewTracker(maxSessions int) *Tracker {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Tracker{sessions: make(map[string]*session), maxSessions: maxSessions}
}

// Begin issues the id for a new request in key, superseding earlier ones.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	s, ok := t.sessions[key]
	if !ok {
		if len(t.sessions) >= t.maxSessions {
			t.evictOldestLocked()
		}
		s = &session{}
		t.sessions[key] = s
	}
	s.issued = t.next
	return t.next
}

// Commit stores d as the latest result for key if id is still current.
func (t *Tracker) Commit(key string, id uint64, d models.Dashboard) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[key]
	if !ok || s.issued != id {
		return ErrStale
	}
	d.RequestID = id
	s.accepted = &d
	return nil
}

func (t *Tracker) Latest(key string) (models.Dashboard, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[key]
	if !ok || s.accepted == nil {
		return models.Dashboard{}, false
	}
	return *s.accepted, true
}

func (t *Tracker) evictOldestLocked() {
	var oldestKey string
	var oldest uint64
	for k, s := range t.sessions {
		if oldestKey == "" || s.issued < oldest {
			oldestKey, oldest = k, s.issued
		}
	}
	delete(t.sessions, oldestKey)
}
