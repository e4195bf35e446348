// internal/commit/session.go
package commit

import (
	"context"
	"sync"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/events"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
)

// DefaultInterval is the commit period of search and review walks
const DefaultInterval = 10 * time.Second

// Options configure a session
type Options struct {
	Store    storage.Store
	Exporter export.Service
	// Interval is the commit period of search and review walks
	Interval time.Duration
	// StopOnError stops the worker at the first error event
	StopOnError bool
	Logger      utils.Logger
	Observer    Observer
}

func (o Options) withDefaults() Options {
	if o.Store == nil {
		o.Store = storage.NewMemoryStore()
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = utils.NewNopLogger()
	}
	return o
}

// session is the part shared by the site sessions: it owns the committer
// and the event subscriptions, and applies the flush policies
type session struct {
	committer *Committer
	worker    worker.Worker
	opts      Options
	logger    utils.Logger
	subs      []*events.Subscription
	clear     func()
}

func (s *session) init(w worker.Worker, opts Options) {
	s.worker = w
	s.opts = opts
	s.logger = opts.Logger.WithFields(map[string]interface{}{
		"component": "commit",
		"site":      string(w.Site()),
	})
	s.committer = newCommitter(w.Site(), s.logger, opts.Observer)
	if opts.StopOnError {
		s.subscribe(events.Subscribe(w.Channel(), worker.EventError, func(ctx context.Context, e worker.ErrorEvent) error {
			s.logger.WithField("url", e.URL).Warnf("stopping after error: %s", e.Message)
			w.Stop()
			return nil
		}))
	}
}

func (s *session) subscribe(sub *events.Subscription) {
	s.subs = append(s.subs, sub)
}

// Commit flushes every buffer of the session
func (s *session) Commit(ctx context.Context) error {
	return s.committer.Commit(ctx)
}

// Close detaches the session from its worker
func (s *session) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// runInterval clears the buffers, runs fn and commits every interval while
// it runs, then commits once more. The last commit runs even when ctx is
// cancelled.
func (s *session) runInterval(ctx context.Context, fn func(ctx context.Context) error) error {
	s.clear()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = s.committer.Commit(context.WithoutCancel(ctx))
			}
		}
	}()

	runErr := fn(ctx)
	close(done)
	wg.Wait()
	return finish(runErr, s.committer.Commit(context.WithoutCancel(ctx)))
}

// runBoundary clears the buffers and commits after every input and once at
// the end. fn receives a progress callback that commits, then calls next.
func (s *session) runBoundary(ctx context.Context, next worker.Progress, fn func(ctx context.Context, progress worker.Progress) error) error {
	s.clear()

	progress := func(remains []string) {
		_ = s.committer.Commit(context.WithoutCancel(ctx))
		if next != nil {
			next(remains)
		}
	}
	runErr := fn(ctx, progress)
	return finish(runErr, s.committer.Commit(context.WithoutCancel(ctx)))
}

func finish(runErr, commitErr error) error {
	if runErr != nil {
		return runErr
	}
	return commitErr
}
