// Package remotetest provides a scripted Executor for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Responder produces the result of one call
type Responder func(h remote.Handle, payload json.RawMessage) (interface{}, error)

// Call records one Execute invocation
type Call struct {
	Handle  remote.Handle
	Script  string
	Payload json.RawMessage
}

// Executor answers scripts by name. Each script has a queue of responders;
// the last one repeats once the queue is drained.
type Executor struct {
	mu         sync.Mutex
	responders map[string][]Responder
	calls      []Call
	hook       func(call Call)
}

// NewExecutor creates an executor with no scripted responses
func NewExecutor() *Executor {
	return &Executor{responders: make(map[string][]Responder)}
}

// On appends responders for script
func (e *Executor) On(script string, rs ...Responder) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responders[script] = append(e.responders[script], rs...)
	return e
}

// Return appends fixed results for script, one per call
func (e *Executor) Return(script string, values ...interface{}) *Executor {
	for _, v := range values {
		v := v
		e.On(script, func(remote.Handle, json.RawMessage) (interface{}, error) { return v, nil })
	}
	return e
}

// Fail makes script fail with err
func (e *Executor) Fail(script string, err error) *Executor {
	return e.On(script, func(remote.Handle, json.RawMessage) (interface{}, error) { return nil, err })
}

// Hook runs fn before every call is answered
func (e *Executor) Hook(fn func(call Call)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hook = fn
}

// Execute implements remote.Executor
func (e *Executor) Execute(ctx context.Context, h remote.Handle, script remote.Script, payload interface{}, out interface{}, opts ...remote.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	call := Call{Handle: h, Script: script.Name, Payload: raw}

	e.mu.Lock()
	e.calls = append(e.calls, call)
	hook := e.hook
	queue := e.responders[script.Name]
	var responder Responder
	switch {
	case len(queue) > 1:
		responder = queue[0]
		e.responders[script.Name] = queue[1:]
	case len(queue) == 1:
		responder = queue[0]
	}
	e.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if responder == nil {
		return utils.NewError(utils.ErrCodeRemoteFailed, fmt.Sprintf("no response scripted for %s", script.Name)).Build()
	}

	result, err := responder(h, raw)
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeRemoteFailed, "remote execution failed")
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Calls returns the recorded calls, optionally only those of script
func (e *Executor) Calls(script string) []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Call
	for _, c := range e.calls {
		if script == "" || c.Script == script {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times script was executed
func (e *Executor) Count(script string) int {
	return len(e.Calls(script))
}
