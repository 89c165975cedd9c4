package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BioHazard786/warplink/internal/signaling"
)

// Registry routes relay events to sessions by room id, so one relay
// connection can carry any number of sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      slog.Default(),
	}
}

func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Room()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoom, s.Room())
	}
	r.sessions[s.Room()] = s
	return nil
}

func (r *Registry) Get(room string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[room]
	return s, ok
}

// Remove forgets the session for room without closing it.
func (r *Registry) Remove(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, room)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Dispatch delivers ev to the session of its room. A disconnect concerns
// every session on the connection.
func (r *Registry) Dispatch(ev signaling.Event) {
	if ev.Kind == signaling.EventDisconnected {
		for _, s := range r.snapshot() {
			s.Deliver(ev)
		}
		return
	}

	s, ok := r.Get(ev.Room)
	if !ok {
		r.log.Debug("event for unknown room dropped", "room", ev.Room, "kind", ev.Kind)
		return
	}
	s.Deliver(ev)
}

// Run dispatches events until the stream closes or ctx is done.
func (r *Registry) Run(ctx context.Context, events <-chan signaling.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Dispatch(ev)
		}
	}
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
