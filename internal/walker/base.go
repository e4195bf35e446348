// internal/walker/base.go
package walker

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

//go:embed scripts/*/*.js
var scriptFS embed.FS

// loadScript reads an embedded script by its name, e.g. "amazon/search_probe"
func loadScript(name string) remote.Script {
	data, err := scriptFS.ReadFile("scripts/" + name + ".js")
	if err != nil {
		panic(fmt.Sprintf("walker: missing script %s: %v", name, err))
	}
	source := strings.TrimSpace(string(data))
	source = strings.TrimSuffix(source, ";")
	return remote.Script{Name: name, Source: source}
}

// Options configures an injector
type Options struct {
	// Timeout bounds every remote call made by the injector
	Timeout time.Duration
	// Poll bounds wait-for-state loops
	Poll Poll
	// Settle is the pause after steps that trigger navigation
	Settle time.Duration
	// Limiter paces remote calls; nil disables pacing
	Limiter *utils.RateLimiter
	Logger  utils.Logger
}

// SlowTimeout is the call timeout for sites whose pages take long to settle
const SlowTimeout = 60 * time.Second

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Timeout: remote.DefaultTimeout,
		Poll:    DefaultPoll(),
		Settle:  time.Second,
	}
}

// Injector runs named steps in one tab. Site walkers embed it.
type Injector struct {
	exec    remote.Executor
	handle  remote.Handle
	timeout time.Duration
	poll    Poll
	settle  time.Duration
	limiter *utils.RateLimiter
	logger  utils.Logger
}

func newInjector(exec remote.Executor, h remote.Handle, opts Options) Injector {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Poll.isZero() {
		opts.Poll = defaults.Poll
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return Injector{
		exec:    exec,
		handle:  h,
		timeout: opts.Timeout,
		poll:    opts.Poll,
		settle:  opts.Settle,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
}

// Handle returns the tab the injector runs in
func (in *Injector) Handle() remote.Handle {
	return in.handle
}

// run executes script once under the injector's timeout
func (in *Injector) run(ctx context.Context, script remote.Script, payload, out interface{}, opts ...remote.Option) error {
	if in.limiter != nil {
		if err := in.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	opts = append([]remote.Option{remote.WithTimeout(in.timeout)}, opts...)
	return in.exec.Execute(ctx, in.handle, script, payload, out, opts...)
}

// settleDown pauses after a navigating step
func (in *Injector) settleDown(ctx context.Context) error {
	return Sleep(ctx, in.settle)
}
