/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is a connected client's outbound channel. Send must not block.
type Conn interface {
	Send(v any) error
}

// Session pairs a connection with the identity that connected on it and a
// cached copy of that identity's progress. The cache only steers
// broadcasts; scoring always reads the store.
type Session struct {
	ID          string
	Identity    string
	Conn        Conn
	Points      int64
	Answered    int64
	ConnectedAt time.Time
}

func (s Session) CurrentQuestion() int64 {
	return s.Answered + 1
}

// Registry is the set of live sessions. One identity may hold several
// connections at once; Lookup returns the most recently registered.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[Conn]*Session
	latest   map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[Conn]*Session),
		latest:   make(map[string]*Session),
	}
}

func (r *Registry) Register(identity string, conn Conn, points, answered int64) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.sessions[identity]
	if !ok {
		conns = make(map[Conn]*Session)
		r.sessions[identity] = conns
	}

	s, ok := conns[conn]
	if !ok {
		s = &Session{
			ID:       uuid.NewString(),
			Identity: identity,
			Conn:     conn,
		}
		conns[conn] = s
		openSessions.Inc()
	}
	s.Points = points
	s.Answered = answered
	s.ConnectedAt = time.Now()

	r.latest[identity] = s

	return *s
}

func (r *Registry) Lookup(identity string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.latest[identity]
	if !ok {
		return Session{}, false
	}

	return *s, true
}

// UpdateSnapshot refreshes the cached progress of every connection held by
// identity. It reports whether any session was found.
func (r *Registry) UpdateSnapshot(identity string, points, answered int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.sessions[identity]
	for _, s := range conns {
		s.Points = points
		s.Answered = answered
	}

	return len(conns) > 0
}

// ForEachOpen calls fn with a copy of every session. The set is captured
// up front, so sessions removed while fn runs are still visited and fn must
// cope with a Send failing.
func (r *Registry) ForEachOpen(fn func(Session)) {
	r.mu.RLock()
	open := make([]Session, 0, len(r.latest))
	for _, conns := range r.sessions {
		for _, s := range conns {
			open = append(open, *s)
		}
	}
	r.mu.RUnlock()

	for _, s := range open {
		fn(s)
	}
}

func (r *Registry) Remove(identity string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(identity, conn)
}

func (r *Registry) removeLocked(identity string, conn Conn) bool {
	conns, ok := r.sessions[identity]
	if !ok {
		return false
	}

	s, ok := conns[conn]
	if !ok {
		return false
	}
	delete(conns, conn)
	openSessions.Dec()

	if len(conns) == 0 {
		delete(r.sessions, identity)
		delete(r.latest, identity)

		return true
	}

	if r.latest[identity] == s {
		var newest *Session
		for _, other := range conns {
			if newest == nil || other.ConnectedAt.After(newest.ConnectedAt) {
				newest = other
			}
		}
		r.latest[identity] = newest
	}

	return true
}

// Drop removes every session bound to conn and returns their identities.
func (r *Registry) Drop(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var identities []string
	for identity, conns := range r.sessions {
		if _, ok := conns[conn]; ok {
			identities = append(identities, identity)
		}
	}
	for _, identity := range identities {
		r.removeLocked(identity, conn)
	}

	return identities
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.sessions {
		n += len(conns)
	}

	return n
}

// Reset forgets every session.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conns := range r.sessions {
		openSessions.Sub(float64(len(conns)))
	}

	clear(r.sessions)
	clear(r.latest)
}
