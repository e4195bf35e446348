// internal/remote/executor_test.go
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	mu          sync.Mutex
	result      string
	err         error
	block       chan struct{}
	readyCalls  int
	expressions []string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, h Handle, expression string) ([]byte, error) {
	f.mu.Lock()
	f.expressions = append(f.expressions, expression)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		// ignores ctx on purpose, like a page that never settles
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.result), nil
}

func (f *fakeEvaluator) WaitReady(ctx context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveRemoteCall(script, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, script+":"+outcome)
}

var echoScript = Script{Name: "echo", Source: "async (p) => p"}

func TestExecuteDecodesResult(t *testing.T) {
	eval := &fakeEvaluator{result: `{"title":"T","count":3}`}
	obs := &recordingObserver{}
	exec := NewTabExecutor(eval, WithObserver(obs))

	var out struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}
	err := exec.Execute(context.Background(), "tab-1", echoScript, map[string]string{"k": "v"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "T", out.Title)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, []string{"echo:success"}, obs.outcomes)
	require.Len(t, eval.expressions, 1)
	assert.True(t, strings.Contains(eval.expressions[0], `({"k":"v"})`), eval.expressions[0])
}

func TestExecuteNullResult(t *testing.T) {
	eval := &fakeEvaluator{result: ""}
	exec := NewTabExecutor(eval)

	var out []string
	require.NoError(t, exec.Execute(context.Background(), "tab-1", echoScript, nil, &out))
	assert.Nil(t, out)
	assert.Contains(t, eval.expressions[0], "(undefined)")
}

func TestExecuteTimesOutOnNeverResolvingScript(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	eval := &fakeEvaluator{block: block}
	obs := &recordingObserver{}
	exec := NewTabExecutor(eval, WithObserver(obs))

	start := time.Now()
	err := exec.Execute(context.Background(), "tab-1", echoScript, nil, nil, WithTimeout(50*time.Millisecond))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteTimeout))
	assert.False(t, errors.Is(err, ErrRemoteFailed))
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, []string{"echo:timeout"}, obs.outcomes)

	// a hung call does not block the next one
	eval2 := &fakeEvaluator{result: `"ok"`}
	exec2 := NewTabExecutor(eval2)
	var out string
	require.NoError(t, exec2.Execute(context.Background(), "tab-1", echoScript, nil, &out))
	assert.Equal(t, "ok", out)
}

func TestExecuteFailure(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("exception: Cannot read properties of null")}
	exec := NewTabExecutor(eval)

	err := exec.Execute(context.Background(), "tab-1", echoScript, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteFailed))
	assert.Contains(t, err.Error(), "Cannot read properties")
}

func TestExecuteCancelledByCaller(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	exec := NewTabExecutor(&fakeEvaluator{block: block})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := exec.Execute(ctx, "tab-1", echoScript, nil, nil, WithTimeout(5*time.Second))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRemoteTimeout))
}

func TestExecuteWaitReady(t *testing.T) {
	eval := &fakeEvaluator{result: "true"}
	exec := NewTabExecutor(eval)

	var ok bool
	require.NoError(t, exec.Execute(context.Background(), "tab-1", echoScript, nil, &ok, WaitReady()))
	assert.True(t, ok)
	assert.Equal(t, 1, eval.readyCalls)
}

func TestExecuteBadPayload(t *testing.T) {
	exec := NewTabExecutor(&fakeEvaluator{})
	err := exec.Execute(context.Background(), "tab-1", echoScript, make(chan int), nil)
	assert.Error(t, err)
}

func TestBridgeRequest(t *testing.T) {
	b := NewBridge(time.Second)
	b.Register(OpDOMToImage, func(ctx context.Context, h Handle, payload json.RawMessage) (interface{}, error) {
		var req DOMToImageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return DOMToImageResponse{B64: string(h) + ":" + req.Selector}, nil
	})

	var resp DOMToImageResponse
	require.NoError(t, b.Request(context.Background(), "tab-9", OpDOMToImage, DOMToImageRequest{Selector: "#aplus"}, &resp))
	assert.Equal(t, "tab-9:#aplus", resp.B64)

	err := b.Request(context.Background(), "tab-9", "unknown-op", nil, nil)
	assert.True(t, errors.Is(err, ErrRemoteFailed))
}
