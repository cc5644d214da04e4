package dialogue

import (
	"sync"
	"time"
)

// Sessions owns the per-session flow state. A session is created on first
// use and dropped by Sweep once it is idle past the TTL.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*session
	ttl time.Duration
}

type session struct {
	mu      sync.Mutex
	flow    Flow
	touched time.Time
	// dead is set under mu when Sweep removes the session from the map.
	dead bool
}

// NewSessions returns a store whose flows expire after ttl of inactivity.
// ttl <= 0 disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{m: map[string]*session{}, ttl: ttl}
}

func (s *Sessions) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	s.ttl = ttl
	s.mu.Unlock()
}

func (s *Sessions) TTL() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl
}

// acquire returns the session for id with its mutex held.
func (s *Sessions) acquire(id string) *session {
	for {
		s.mu.Lock()
		ss, ok := s.m[id]
		if !ok {
			ss = &session{}
			s.m[id] = ss
		}
		s.mu.Unlock()

		ss.mu.Lock()
		if !ss.dead {
			return ss
		}
		ss.mu.Unlock()
	}
}

// expired reports whether the session's flow has been idle past ttl.
// Call with ss.mu held.
func (ss *session) expired(now time.Time, ttl time.Duration) bool {
	return ss.flow != nil && ttl > 0 && !ss.touched.IsZero() && now.Sub(ss.touched) > ttl
}

// Flow returns the active flow of id, or nil.
func (s *Sessions) Flow(id string) Flow {
	s.mu.Lock()
	ss, ok := s.m[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.flow
}

// Active counts sessions with a flow.
func (s *Sessions) Active() int {
	s.mu.Lock()
	all := make([]*session, 0, len(s.m))
	for _, ss := range s.m {
		all = append(all, ss)
	}
	s.mu.Unlock()

	n := 0
	for _, ss := range all {
		ss.mu.Lock()
		if ss.flow != nil {
			n++
		}
		ss.mu.Unlock()
	}
	return n
}

// Sweep drops sessions that have no flow or whose flow expired, and returns
// the ids whose flows expired. Sessions busy in Handle are skipped.
func (s *Sessions) Sweep(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, ss := range s.m {
		if !ss.mu.TryLock() {
			continue
		}
		switch {
		case ss.expired(now, s.ttl):
			expired = append(expired, id)
			fallthrough
		case ss.flow == nil:
			ss.flow = nil
			ss.dead = true
			delete(s.m, id)
		}
		ss.mu.Unlock()
	}
	return expired
}
