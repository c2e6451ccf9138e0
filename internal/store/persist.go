package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

const writeTimeout = 5 * time.Second

// Persister mirrors the session and profile stores into Storage under
// KeySnapshot. Changes are written only once hydration has finished, so a
// snapshot is never overwritten by the empty startup state.
type Persister struct {
	storage Storage
	session *SessionStore
	profile *ProfileStore
	log     *pterm.Logger

	writeMu  sync.Mutex
	ready    atomic.Bool
	once     sync.Once
	hydrated chan struct{}
	err      error
	unsub    []func()
}

// NewPersister wires storage to both stores. Nothing happens until Start
// or Hydrate is called.
func NewPersister(storage Storage, session *SessionStore, profile *ProfileStore, log *pterm.Logger) *Persister {
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Persister{
		storage:  storage,
		session:  session,
		profile:  profile,
		log:      log,
		hydrated: make(chan struct{}),
	}
}

// Start subscribes to both stores and rehydrates them in the background.
// Hydrated is closed when that finishes.
func (p *Persister) Start(ctx context.Context) {
	p.unsub = append(p.unsub,
		p.session.Subscribe(func(models.Session) { p.write() }),
		p.profile.Subscribe(func(models.UserProfile) { p.write() }),
	)
	go func() {
		_ = p.Hydrate(ctx)
	}()
}

// Stop unsubscribes from both stores
func (p *Persister) Stop() {
	for _, fn := range p.unsub {
		fn()
	}
	p.unsub = nil
}

// Hydrated is closed once the persisted snapshot has been applied, or
// found missing or corrupt.
func (p *Persister) Hydrated() <-chan struct{} {
	return p.hydrated
}

// IsHydrated reports whether Hydrated has been closed
func (p *Persister) IsHydrated() bool {
	return p.ready.Load()
}

// Err returns the hydration error, if any. It is only meaningful after
// Hydrated is closed.
func (p *Persister) Err() error {
	select {
	case <-p.hydrated:
		return p.err
	default:
		return nil
	}
}

// Hydrate loads the snapshot into both stores. It runs at most once; later
// calls wait for the first and return its result. A snapshot that cannot
// be decoded wipes all durable storage, resets both stores and yields an
// apperror StateCorruption error.
func (p *Persister) Hydrate(ctx context.Context) error {
	p.once.Do(func() {
		p.err = p.hydrate(ctx)
		p.ready.Store(true)
		close(p.hydrated)
	})
	<-p.hydrated
	return p.err
}

func (p *Persister) hydrate(ctx context.Context) error {
	raw, ok, err := p.storage.Get(ctx, KeySnapshot)
	if errors.Is(err, ErrCorrupt) {
		return p.wipe(ctx, err)
	}
	if err != nil {
		p.log.Warn("could not read persisted state", p.log.Args("error", err))
		return err
	}
	if !ok {
		p.log.Debug("no persisted state")
		return nil
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return p.wipe(ctx, err)
	}
	p.session.Rehydrate(snap.Auth)
	p.profile.Rehydrate(snap.User)
	p.log.Debug("rehydrated state", p.log.Args("authenticated", snap.Auth.IsAuthenticated, "profile", snap.User.Profile != nil))
	return nil
}

func (p *Persister) wipe(ctx context.Context, cause error) error {
	p.log.Error("persisted state is corrupt, clearing it", p.log.Args("error", cause))
	if err := p.storage.Clear(ctx); err != nil {
		p.log.Warn("could not clear storage", p.log.Args("error", err))
	}
	p.session.Logout()
	p.profile.RemoveUser()
	return apperror.NewStateCorruption("Saved session was corrupt and has been cleared. Please sign in again.", cause)
}

func (p *Persister) write() {
	if !p.ready.Load() {
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	// read both stores now rather than trusting the listener argument so
	// the newest state is always the one written last
	snap := models.Snapshot{Auth: p.session.State(), User: p.profile.State()}
	snap.Auth.IsLoading = false
	data, err := json.Marshal(snap)
	if err != nil {
		p.log.Warn("could not encode state", p.log.Args("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.storage.Set(ctx, KeySnapshot, string(data)); err != nil {
		p.log.Warn("could not persist state", p.log.Args("error", err))
	}
}
