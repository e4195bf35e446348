// internal/remote/executor.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// TabExecutor implements Executor on top of an Evaluator
type TabExecutor struct {
	evaluator Evaluator
	timeout   time.Duration
	logger    utils.Logger
	observer  Observer
}

// ExecutorOption configures a TabExecutor
type ExecutorOption func(*TabExecutor)

// WithDefaultTimeout sets the timeout used when a call does not set one
func WithDefaultTimeout(d time.Duration) ExecutorOption {
	return func(e *TabExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the executor's logger
func WithLogger(logger utils.Logger) ExecutorOption {
	return func(e *TabExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver reports every call outcome to observer
func WithObserver(observer Observer) ExecutorOption {
	return func(e *TabExecutor) {
		e.observer = observer
	}
}

// NewTabExecutor creates an executor that evaluates scripts through evaluator
func NewTabExecutor(evaluator Evaluator, opts ...ExecutorOption) *TabExecutor {
	e := &TabExecutor{
		evaluator: evaluator,
		timeout:   DefaultTimeout,
		logger:    utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type evalResult struct {
	data []byte
	err  error
}

// Execute runs script inside h with payload as its only argument and decodes
// the result into out (which may be nil). The call returns ErrRemoteTimeout
// once the timeout elapses even if the evaluator has not returned; the
// evaluation is left to finish on its own.
func (e *TabExecutor) Execute(ctx context.Context, h Handle, script Script, payload interface{}, out interface{}, opts ...Option) error {
	o := callOptions{timeout: e.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	expression, err := buildExpression(script, payload)
	if err != nil {
		return utils.NewError(utils.ErrCodeInvalidInput, "cannot encode script payload").
			WithCause(err).
			WithContext("script", script.Name).
			Build()
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan evalResult, 1)
	go func() {
		if o.waitReady {
			if err := e.evaluator.WaitReady(callCtx, h); err != nil {
				done <- evalResult{err: fmt.Errorf("wait ready: %w", err)}
				return
			}
		}
		data, err := e.evaluator.Evaluate(callCtx, h, expression)
		done <- evalResult{data: data, err: err}
	}()

	var res evalResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		if ctx.Err() != nil {
			e.observe(script, OutcomeFailed, start)
			return utils.NewError(utils.ErrCodeContextCanceled, "remote call cancelled").
				WithCause(ctx.Err()).
				WithContext("script", script.Name).
				Build()
		}
		e.observe(script, OutcomeTimeout, start)
		e.logger.WithFields(map[string]interface{}{
			"script":  script.Name,
			"handle":  h.String(),
			"timeout": o.timeout.String(),
		}).Warn("remote call timed out")
		return utils.NewError(utils.ErrCodeRemoteTimeout, "remote execution timed out").
			WithContext("script", script.Name).
			WithContext("timeout", o.timeout.String()).
			WithRetryable(true).
			Build()
	}

	if res.err != nil {
		e.observe(script, OutcomeFailed, start)
		code := utils.ErrCodeRemoteFailed
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			code = utils.ErrCodeRemoteTimeout
		}
		return utils.NewError(code, "remote execution failed").
			WithCause(res.err).
			WithContext("script", script.Name).
			WithContext("handle", h.String()).
			Build()
	}

	e.observe(script, OutcomeSuccess, start)
	if out == nil {
		return nil
	}
	data := bytes.TrimSpace(res.data)
	if len(data) == 0 {
		data = []byte("null")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return utils.NewError(utils.ErrCodeRemoteFailed, "unexpected remote result").
			WithCause(err).
			WithContext("script", script.Name).
			Build()
	}
	return nil
}

func (e *TabExecutor) observe(script Script, outcome string, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveRemoteCall(script.Name, outcome, time.Since(start))
	}
}

// buildExpression applies the script to its JSON encoded payload. An
// undefined result is normalised to null.
func buildExpression(script Script, payload interface{}) (string, error) {
	arg := []byte("undefined")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return "", err
		}
		arg = encoded
	}
	return fmt.Sprintf("(async () => { const r = await (%s)(%s); return r === undefined ? null : r; })()", script.Source, arg), nil
}
