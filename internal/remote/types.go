// internal/remote/types.go
package remote

import (
	"context"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Handle identifies a remote execution context (a browser tab)
type Handle string

// String returns the handle as a plain string
func (h Handle) String() string { return string(h) }

// Script is a serializable async function of the form
// `async (payload) => result`, evaluated inside a tab
type Script struct {
	Name   string
	Source string
}

// Evaluator runs expressions inside a tab. It is implemented by the browser
// provider.
type Evaluator interface {
	// Evaluate runs expression, awaiting the returned promise, and returns
	// the JSON encoding of its result.
	Evaluate(ctx context.Context, h Handle, expression string) ([]byte, error)

	// WaitReady blocks until the tab has finished navigating.
	WaitReady(ctx context.Context, h Handle) error
}

// Executor runs scripts inside a tab under a timeout
type Executor interface {
	Execute(ctx context.Context, h Handle, script Script, payload interface{}, out interface{}, opts ...Option) error
}

// Observer receives the outcome of every remote call
type Observer interface {
	ObserveRemoteCall(script, outcome string, elapsed time.Duration)
}

// Call outcomes reported to an Observer
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeFailed  = "failed"
)

// Errors returned by Execute. Compare with errors.Is.
var (
	ErrRemoteTimeout = utils.Sentinel(utils.ErrCodeRemoteTimeout, "remote execution timed out")
	ErrRemoteFailed  = utils.Sentinel(utils.ErrCodeRemoteFailed, "remote execution failed")
)

// DefaultTimeout bounds a call when neither the executor nor the call
// sets one
const DefaultTimeout = 30 * time.Second

type callOptions struct {
	timeout   time.Duration
	waitReady bool
}

// Option adjusts a single Execute call
type Option func(*callOptions)

// WithTimeout overrides the executor's timeout for one call
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WaitReady makes the call wait for the tab to finish navigating before the
// script is injected. The wait counts against the call's timeout.
func WaitReady() Option {
	return func(o *callOptions) {
		o.waitReady = true
	}
}
