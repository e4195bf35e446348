// internal/worker/base.go
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/events"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// ErrWorkerBusy is returned when a run is requested while one is active
var ErrWorkerBusy = utils.Sentinel(utils.ErrCodeWorkerBusy, "worker is already running")

// DefaultMaxPages caps every pagination loop
const DefaultMaxPages = 400

// Input outcomes reported to an Observer
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Observer receives per-input outcomes
type Observer interface {
	ObserveInput(site, traversal, outcome string)
}

// Progress receives the inputs still to be processed after each input
type Progress func(remains []string)

// TaskOptions are shared by every Run…Task call
type TaskOptions struct {
	Progress Progress
}

// Deps are the collaborators a worker drives
type Deps struct {
	Tabs     browser.Tabs
	Executor remote.Executor
	Bridge   *remote.Bridge
	Walker   walker.Options
	MaxPages int
	Logger   utils.Logger
	Observer Observer
}

// Status is a snapshot of a worker's current or last run
type Status struct {
	Site       types.Site      `json:"site"`
	State      types.RunStatus `json:"state"`
	Traversal  types.Traversal `json:"traversal,omitempty"`
	Remaining  int             `json:"remaining"`
	Processed  int             `json:"processed"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
}

// Worker is the surface shared by all site workers
type Worker interface {
	Site() types.Site
	Channel() *events.Channel
	Stop()
	Status() Status
}

// Base holds the event channel and interrupt flag of a site worker. Site
// workers embed it and inherit On, Once, Off, Emit and Stop.
type Base struct {
	site      types.Site
	channel   *events.Channel
	interrupt atomic.Bool
	running   atomic.Bool
	logger    utils.Logger
	observer  Observer
	maxPages  int

	mu      sync.Mutex
	status  Status
	skipped bool
}

func (b *Base) init(site types.Site, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	b.maxPages = deps.MaxPages
	if b.maxPages <= 0 {
		b.maxPages = DefaultMaxPages
	}
	b.site = site
	b.channel = events.NewChannel()
	b.logger = logger.WithFields(map[string]interface{}{"component": "worker", "site": string(site)})
	b.observer = deps.Observer
	b.status = Status{Site: site, State: types.StatusIdle}
}

// Site returns the site the worker serves
func (b *Base) Site() types.Site { return b.site }

// Channel returns the worker's event channel
func (b *Base) Channel() *events.Channel { return b.channel }

// On subscribes to a worker event
func (b *Base) On(name string, handler events.Handler) *events.Subscription {
	return b.channel.On(name, handler)
}

// Once subscribes to the next occurrence of a worker event
func (b *Base) Once(name string, handler events.Handler) *events.Subscription {
	return b.channel.Once(name, handler)
}

// Off removes a subscription
func (b *Base) Off(sub *events.Subscription) {
	b.channel.Off(sub)
}

// Emit publishes an event. Handler failures are logged; they never abort
// the traversal that discovered the data.
func (b *Base) Emit(ctx context.Context, name string, payload interface{}) {
	if err := b.channel.Emit(ctx, name, payload); err != nil {
		b.logger.WithField("event", name).Errorf("event handler failed: %v", err)
	}
}

// Stop raises the interrupt. The current run halts at its next checkpoint;
// calling Stop while idle has no effect on later runs.
func (b *Base) Stop() {
	if b.running.Load() {
		b.interrupt.Store(true)
		b.logger.Info("stop requested")
	}
}

// Interrupted reports whether Stop was called during the current run
func (b *Base) Interrupted() bool {
	return b.interrupt.Load()
}

// Status returns a snapshot of the current or last run
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Guard runs fn and reports its failure on the error event before returning
// it to the caller
func (b *Base) Guard(ctx context.Context, url string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	event := ErrorEvent{Message: err.Error(), URL: url, Code: string(utils.CodeOf(err))}
	b.Emit(context.WithoutCancel(ctx), EventError, event)
	b.mu.Lock()
	b.status.LastError = err.Error()
	b.mu.Unlock()
	return err
}

// runInputs drives one Run…Task: inputs are consumed from the front, each
// is traversed by each, progress gets the remainder after every input. The
// loop stops early when interrupted or when ctx is done. A failed input is
// counted and the loop moves on.
func (b *Base) runInputs(ctx context.Context, traversal types.Traversal, inputs []string, progress Progress, each func(ctx context.Context, input string) error) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrWorkerBusy
	}
	b.interrupt.Store(false)
	defer func() {
		b.interrupt.Store(false)
		b.running.Store(false)
	}()

	started := time.Now()
	b.mu.Lock()
	b.status = Status{
		Site:      b.site,
		State:     types.StatusRunning,
		Traversal: traversal,
		Remaining: len(inputs),
		StartedAt: &started,
	}
	b.mu.Unlock()

	logger := b.logger.WithField("traversal", string(traversal))
	logger.Infof("run started with %d inputs", len(inputs))

	remains := append([]string(nil), inputs...)
	for len(remains) > 0 {
		if b.interrupt.Load() || ctx.Err() != nil {
			break
		}
		input := remains[0]
		remains = remains[1:]

		b.mu.Lock()
		b.skipped = false
		b.mu.Unlock()

		err := each(ctx, input)
		outcome := OutcomeSuccess
		b.mu.Lock()
		b.status.Remaining = len(remains)
		b.status.Processed++
		switch {
		case err != nil:
			outcome = OutcomeFailed
			b.status.Failed++
		case b.skipped:
			outcome = OutcomeSkipped
		}
		b.mu.Unlock()
		if err != nil {
			logger.WithField("input", input).Warnf("input failed: %v", err)
		}
		b.observe(traversal, outcome)

		if progress != nil {
			progress(append([]string(nil), remains...))
		}
	}

	finished := time.Now()
	state := types.StatusCompleted
	var runErr error
	switch {
	case ctx.Err() != nil:
		state = types.StatusCancelled
		runErr = ctx.Err()
	case b.interrupt.Load() || len(remains) > 0:
		state = types.StatusCancelled
	}

	b.mu.Lock()
	b.status.State = state
	b.status.FinishedAt = &finished
	snapshot := b.status
	b.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"processed": snapshot.Processed,
		"failed":    snapshot.Failed,
		"skipped":   snapshot.Skipped,
		"state":     string(state),
		"elapsed":   finished.Sub(started).String(),
	}).Info("run finished")
	return runErr
}

// skip marks the current input as left out because its page is unusable.
// runInputs reports it once, as skipped.
func (b *Base) skip(traversal types.Traversal, input string) {
	b.mu.Lock()
	b.status.Skipped++
	b.skipped = true
	b.mu.Unlock()
	b.logger.WithFields(map[string]interface{}{"traversal": string(traversal), "input": input}).Info("page unusable, skipping")
}

func (b *Base) observe(traversal types.Traversal, outcome string) {
	if b.observer != nil {
		b.observer.ObserveInput(string(b.site), string(traversal), outcome)
	}
}

// closeTab closes h even when ctx has already been cancelled
func closeTab(ctx context.Context, tabs browser.Tabs, h remote.Handle, logger utils.Logger) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := tabs.CloseContext(closeCtx, h); err != nil {
		logger.WithField("handle", h.String()).Warnf("failed to close tab: %v", err)
	}
}

// IsCancellation reports whether err was caused by the run's context ending
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		utils.CodeOf(err) == utils.ErrCodeContextCanceled
}
