package store

import (
	"sync"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// ProfileStore holds the signed-in user's profile. It is independent from
// SessionStore so either may be rehydrated first.
type ProfileStore struct {
	mu        sync.Mutex
	state     models.UserProfile
	listeners listeners[models.UserProfile]
}

// NewProfileStore returns a store with no profile
func NewProfileStore() *ProfileStore {
	return &ProfileStore{}
}

// State returns a copy of the current profile state. The returned User is
// a copy as well.
func (p *ProfileStore) State() models.UserProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyProfile(p.state)
}

// Subscribe registers fn to run after every transition
func (p *ProfileStore) Subscribe(fn func(models.UserProfile)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.listeners.add(fn)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners.fns, id)
		p.mu.Unlock()
	}
}

func (p *ProfileStore) update(fn func(*models.UserProfile)) {
	p.mu.Lock()
	fn(&p.state)
	state := copyProfile(p.state)
	fns := p.listeners.snapshot()
	p.mu.Unlock()

	for _, l := range fns {
		l(state)
	}
}

// SetUser stores user and marks the profile loaded
func (p *ProfileStore) SetUser(user models.User) {
	p.update(func(st *models.UserProfile) {
		st.Profile = &user
		st.IsProfileLoaded = true
	})
}

// RemoveUser clears the profile
func (p *ProfileStore) RemoveUser() {
	p.update(func(st *models.UserProfile) {
		*st = models.UserProfile{}
	})
}

// SetProfileLoaded sets the loaded flag without changing the profile
func (p *ProfileStore) SetProfileLoaded(loaded bool) {
	p.update(func(st *models.UserProfile) {
		st.IsProfileLoaded = loaded
	})
}

// Rehydrate replaces the state with a persisted one
func (p *ProfileStore) Rehydrate(persisted models.UserProfile) {
	p.update(func(st *models.UserProfile) {
		*st = copyProfile(persisted)
	})
}

func copyProfile(up models.UserProfile) models.UserProfile {
	if up.Profile != nil {
		u := *up.Profile
		up.Profile = &u
	}
	return up
}
