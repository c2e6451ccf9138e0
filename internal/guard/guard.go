// Package guard decides whether a protected view may be shown, by
// reconciling the session and profile stores with durable storage.
package guard

import (
	"context"
	"io"
	"sync"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/store"
)

// Kind is the outcome of a guard evaluation
type Kind int

const (
	// Loading means no decision can be made yet: state is still being
	// restored or an auth request is in flight.
	Loading Kind = iota
	// Render means the protected view may be shown
	Render
	// Redirect means the user must go to Decision.To first
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Decision is what the caller should do with the requested location
type Decision struct {
	Kind Kind
	// To is the redirect target
	To string
	// From is the location that was requested, kept so the login flow can
	// return to it. Empty for profile-setup redirects.
	From string
}

// Hydration reports when persisted state has been restored.
// *store.Persister implements it.
type Hydration interface {
	Hydrated() <-chan struct{}
}

const (
	DefaultLoginRoute        = "/signup"
	DefaultProfileSetupRoute = "/profile-setup"
)

type options struct {
	loginRoute        string
	profileSetupRoute string
	requireProfile    bool
	log               *pterm.Logger
}

// Option configures a Guard
type Option func(*options)

// WithLoginRoute sets where unauthenticated users are sent
func WithLoginRoute(route string) Option {
	return func(o *options) { o.loginRoute = route }
}

// WithProfileSetupRoute sets where users without a profile are sent
func WithProfileSetupRoute(route string) Option {
	return func(o *options) { o.profileSetupRoute = route }
}

// WithRequireProfile controls whether a loaded profile is needed to render
func WithRequireProfile(require bool) Option {
	return func(o *options) { o.requireProfile = require }
}

// WithLogger sets the logger
func WithLogger(log *pterm.Logger) Option {
	return func(o *options) { o.log = log }
}

// tracked is the state the reconcile step depends on
type tracked struct {
	isAuthenticated bool
	hasToken        bool
	hasProfile      bool
	profileLoaded   bool
}

// Guard gates a protected view
type Guard struct {
	session   *store.SessionStore
	profile   *store.ProfileStore
	storage   store.Storage
	hydration Hydration
	opts      options

	mu         sync.Mutex
	last       tracked
	reconciled bool
}

// New returns a Guard. A nil hydration is treated as already hydrated.
func New(session *store.SessionStore, profile *store.ProfileStore, storage store.Storage, hydration Hydration, opts ...Option) *Guard {
	o := options{
		loginRoute:        DefaultLoginRoute,
		profileSetupRoute: DefaultProfileSetupRoute,
		requireProfile:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Guard{
		session:   session,
		profile:   profile,
		storage:   storage,
		hydration: hydration,
		opts:      o,
	}
}

func (g *Guard) hydrated() bool {
	if g.hydration == nil {
		return true
	}
	select {
	case <-g.hydration.Hydrated():
		return true
	default:
		return false
	}
}

func (g *Guard) durableToken(ctx context.Context) string {
	if g.storage == nil {
		return ""
	}
	tok, _, err := g.storage.Get(ctx, store.KeyToken)
	if err != nil {
		g.opts.log.Warn("could not read stored token", g.opts.log.Args("error", err))
		return ""
	}
	return tok
}

// Evaluate decides what to do with location right now. It never blocks on
// hydration; use Await for that.
func (g *Guard) Evaluate(ctx context.Context, location string) Decision {
	if !g.hydrated() {
		return Decision{Kind: Loading}
	}

	session := g.session.State()
	token := session.Token
	if token == "" {
		token = g.durableToken(ctx)
	}
	g.reconcile(ctx, session, token)

	if session.IsLoading {
		return Decision{Kind: Loading}
	}

	// a token in durable storage counts even when the session disagrees
	hasValidAuth := session.IsAuthenticated || token != ""
	if !hasValidAuth {
		g.opts.log.Debug("not authenticated, redirecting", g.opts.log.Args("to", g.opts.loginRoute, "from", location))
		return Decision{Kind: Redirect, To: g.opts.loginRoute, From: location}
	}

	if g.opts.requireProfile && g.profile.State().Profile == nil {
		g.opts.log.Debug("profile required, redirecting", g.opts.log.Args("to", g.opts.profileSetupRoute))
		return Decision{Kind: Redirect, To: g.opts.profileSetupRoute}
	}
	return Decision{Kind: Render}
}

// reconcile heals store disagreements. It acts only when the tracked state
// differs from the state left behind by the previous evaluation.
func (g *Guard) reconcile(ctx context.Context, session models.Session, token string) {
	now := g.track(session, token)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reconciled && now == g.last {
		return
	}

	hasValidAuth := now.isAuthenticated || now.hasToken
	if hasValidAuth && now.hasProfile && !now.profileLoaded {
		g.opts.log.Debug("marking profile loaded")
		g.profile.SetProfileLoaded(true)
	}
	if !now.hasToken && !now.isAuthenticated && now.hasProfile {
		g.opts.log.Warn("no token and not authenticated, clearing stale profile")
		g.profile.RemoveUser()
		if g.storage != nil {
			if err := g.storage.Delete(ctx, store.KeyToken); err != nil {
				g.opts.log.Warn("could not delete stored token", g.opts.log.Args("error", err))
			}
		}
	}

	g.last = g.track(session, token)
	g.reconciled = true
}

func (g *Guard) track(session models.Session, token string) tracked {
	up := g.profile.State()
	return tracked{
		isAuthenticated: session.IsAuthenticated,
		hasToken:        token != "",
		hasProfile:      up.Profile != nil,
		profileLoaded:   up.IsProfileLoaded,
	}
}

// Await waits for hydration and for any in-flight auth request to finish,
// then returns the decision for location.
func (g *Guard) Await(ctx context.Context, location string) (Decision, error) {
	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsub := g.session.Subscribe(func(models.Session) { notify() })
	defer unsub()

	if g.hydration != nil {
		select {
		case <-g.hydration.Hydrated():
		case <-ctx.Done():
			return Decision{Kind: Loading}, ctx.Err()
		}
	}

	for {
		d := g.Evaluate(ctx, location)
		if d.Kind != Loading {
			return d, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return d, ctx.Err()
		}
	}
}
