// Package auth holds the process-wide authentication state. Every
// component reads the current principal through this single channel; only
// the identity source writes it.
package auth

import "sync"

// Unsubscribe releases a principal-change subscription. Idempotent.
type Unsubscribe func()

// State is the single authentication state for the process. The zero
// principal means "signed out": reads fail closed, mutations error.
type State struct {
	mu     sync.Mutex
	uid    string
	subs   map[int64]func(uid string)
	nextID int64
}

func NewState() *State {
	return &State{subs: make(map[int64]func(string))}
}

// NewStaticState returns a state pre-signed-in as uid, for deployments
// where the principal is fixed by configuration.
func NewStaticState(uid string) *State {
	s := NewState()
	s.uid = uid
	return s
}

// Current returns the principal identifier, ok=false when signed out.
func (s *State) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid, s.uid != ""
}

// SetPrincipal records a sign-in (non-empty uid) or sign-out (empty) and
// notifies subscribers. Redundant sets are swallowed so downstream
// listeners never tear down and rebuild subscriptions for no change.
func (s *State) SetPrincipal(uid string) {
	s.mu.Lock()
	if s.uid == uid {
		s.mu.Unlock()
		return
	}
	s.uid = uid
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(uid)
	}
}

// OnChange registers a principal-change listener.
func (s *State) OnChange(fn func(uid string)) Unsubscribe {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
