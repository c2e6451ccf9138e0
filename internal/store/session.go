// Package store holds the client's shared mutable state: the session and
// the signed-in user's profile. Both stores change only through their
// transition methods and notify subscribers after every change.
package store

import (
	"sync"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

type listeners[T any] struct {
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) int {
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	l.next++
	l.fns[l.next] = fn
	return l.next
}

func (l *listeners[T]) snapshot() []func(T) {
	out := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		out = append(out, fn)
	}
	return out
}

// SessionStore is the single source of truth for whether the client is
// authenticated and with which token. IsAuthenticated always equals
// Token != "".
type SessionStore struct {
	mu        sync.Mutex
	state     models.Session
	listeners listeners[models.Session]
}

// NewSessionStore returns an empty, unauthenticated store
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// State returns a copy of the current session
func (s *SessionStore) State() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every transition. The returned func
// removes it.
func (s *SessionStore) Subscribe(fn func(models.Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.listeners.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners.fns, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) update(fn func(*models.Session)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.IsAuthenticated = s.state.Token != ""
	state := s.state
	fns := s.listeners.snapshot()
	s.mu.Unlock()

	for _, l := range fns {
		l(state)
	}
}

// LoginStart marks a login in progress and clears any previous error
func (s *SessionStore) LoginStart() {
	s.update(func(st *models.Session) {
		st.IsLoading = true
		st.Error = ""
	})
}

// LoginSuccess stores the tokens. An empty token leaves the session
// unauthenticated but still ends the loading state, which is how a
// registration without auto sign-in completes.
func (s *SessionStore) LoginSuccess(token, refreshToken string) {
	s.update(func(st *models.Session) {
		st.Token = token
		st.RefreshToken = refreshToken
		st.IsLoading = false
		st.Error = ""
	})
}

// LoginFailure drops both tokens and records message
func (s *SessionStore) LoginFailure(message string) {
	s.update(func(st *models.Session) {
		*st = models.Session{Error: message}
	})
}

// Logout resets the session to its initial empty state
func (s *SessionStore) Logout() {
	s.update(func(st *models.Session) {
		*st = models.Session{}
	})
}

// ClearError dismisses the current error
func (s *SessionStore) ClearError() {
	s.update(func(st *models.Session) {
		st.Error = ""
	})
}

// SetTokens replaces both tokens without touching the loading state
func (s *SessionStore) SetTokens(token, refreshToken string) {
	s.update(func(st *models.Session) {
		st.Token = token
		st.RefreshToken = refreshToken
	})
}

// Rehydrate replaces the state with a persisted one. A persisted loading
// flag is dropped since no request survives a restart.
func (s *SessionStore) Rehydrate(persisted models.Session) {
	s.update(func(st *models.Session) {
		*st = persisted
		st.IsLoading = false
	})
}
