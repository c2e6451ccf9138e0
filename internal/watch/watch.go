// Package watch polls the job board on a cron schedule and reports jobs
// matching a saved search that have not been seen before.
package watch

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/robfig/cron/v3"

	"github.com/fr4nk3nst1ner/jobluu/internal/auth"
	"github.com/fr4nk3nst1ner/jobluu/internal/filter"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/store"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

// RefreshWindow is how close to expiry the session token may get before a
// poll refreshes it
const RefreshWindow = 5 * time.Minute

// JobSource lists jobs. *jobs.Service implements it.
type JobSource interface {
	GetAll(ctx context.Context) ([]models.JobRecord, error)
}

// Refresher renews the session token. *auth.Gateway implements it.
type Refresher interface {
	RefreshToken(ctx context.Context) error
}

// Options configures a Watcher
type Options struct {
	Jobs      JobSource
	Session   *store.SessionStore
	Refresher Refresher
	// Schedule is a standard cron spec or descriptor such as "@every 15m"
	Schedule string
	Search   models.FilterSpec
	Sort     models.SortKey
	// OnNew receives each batch of newly seen jobs
	OnNew func([]models.JobRecord)
	Log   *pterm.Logger
}

// Watcher runs a saved search periodically
type Watcher struct {
	opts Options
	cron *cron.Cron
	log  *pterm.Logger

	mu   sync.Mutex
	seen map[string]bool
}

// New validates opts and returns a Watcher
func New(opts Options) (*Watcher, error) {
	if opts.Jobs == nil {
		return nil, fmt.Errorf("watch: job source is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 15m"
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", opts.Schedule, err)
	}
	log := opts.Log
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	cl := cronLogger{log: log}
	return &Watcher{
		opts: opts,
		log:  log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		seen: make(map[string]bool),
	}, nil
}

// Start schedules polling and runs one poll immediately
func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.opts.Schedule, func() {
		w.poll(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	w.cron.Start()
	w.log.Info("watch started", w.log.Args("schedule", w.opts.Schedule))

	go w.poll(ctx)
	return nil
}

// Stop halts the schedule and waits for a running poll to finish
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("watch stopped")
}

func (w *Watcher) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Poll(ctx); err != nil {
		w.log.Warn("poll failed", w.log.Args("error", err))
	}
}

// Poll runs the saved search once and returns jobs not reported before.
// OnNew is called with them when there are any.
func (w *Watcher) Poll(ctx context.Context) ([]models.JobRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.refreshIfExpiring(ctx)

	all, err := w.opts.Jobs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	matches := filter.Jobs(all, w.opts.Search, w.opts.Sort)

	var fresh []models.JobRecord
	for _, j := range matches {
		key := jobKey(j)
		if w.seen[key] {
			continue
		}
		w.seen[key] = true
		fresh = append(fresh, j)
	}
	w.log.Debug("poll complete", w.log.Args("fetched", len(all), "matched", len(matches), "new", len(fresh)))

	if len(fresh) > 0 && w.opts.OnNew != nil {
		w.opts.OnNew(fresh)
	}
	return fresh, nil
}

func jobKey(j models.JobRecord) string {
	if j.ID != 0 {
		return strconv.FormatInt(j.ID, 10)
	}
	return utils.DedupKey(j.Company, j.Title)
}

// refreshIfExpiring renews the session token when it is close to expiry.
// A failed refresh is logged; the job listing does not need a session.
func (w *Watcher) refreshIfExpiring(ctx context.Context) {
	if w.opts.Session == nil || w.opts.Refresher == nil {
		return
	}
	st := w.opts.Session.State()
	if st.Token == "" || st.RefreshToken == "" || !auth.ExpiresWithin(st.Token, RefreshWindow) {
		return
	}
	w.log.Debug("session token expiring, refreshing")
	if err := w.opts.Refresher.RefreshToken(ctx); err != nil {
		w.log.Warn("token refresh failed", w.log.Args("error", err))
	}
}

// cronLogger routes cron's logging through pterm
type cronLogger struct {
	log *pterm.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Trace("cron: "+msg, c.log.Args(keysAndValues...))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, c.log.Args(append(keysAndValues, "error", err)...))
}
