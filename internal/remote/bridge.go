// internal/remote/bridge.go
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Operation names served over the bridge
const (
	OpDOMToImage = "dom-to-image"
)

// OperationFunc serves one bridge operation for a tab
type OperationFunc func(ctx context.Context, h Handle, payload json.RawMessage) (interface{}, error)

// Bridge is a request/response channel addressed by tab and operation
// name. It carries the few operations that cannot run as an injected
// function, such as capturing an element as an image.
type Bridge struct {
	mu         sync.RWMutex
	operations map[string]OperationFunc
	timeout    time.Duration
}

// NewBridge creates a bridge whose requests are bounded by timeout
func NewBridge(timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		operations: make(map[string]OperationFunc),
		timeout:    timeout,
	}
}

// Register serves op with fn, replacing any previous handler
func (b *Bridge) Register(op string, fn OperationFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operations[op] = fn
}

// Request sends payload to op for tab h and decodes the response into out
func (b *Bridge) Request(ctx context.Context, h Handle, op string, payload interface{}, out interface{}) error {
	b.mu.RLock()
	fn, ok := b.operations[op]
	b.mu.RUnlock()
	if !ok {
		return utils.NewError(utils.ErrCodeRemoteFailed, "no handler for bridge operation").
			WithContext("operation", op).
			Build()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := fn(ctx, h, raw)
	if err != nil {
		code := utils.ErrCodeRemoteFailed
		if ctx.Err() == context.DeadlineExceeded {
			code = utils.ErrCodeRemoteTimeout
		}
		return utils.NewError(code, "bridge operation failed").
			WithCause(err).
			WithContext("operation", op).
			WithContext("handle", h.String()).
			Build()
	}
	if out == nil {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode %s response: %w", op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// DOMToImageRequest asks for a PNG capture of the element matching Selector
type DOMToImageRequest struct {
	Selector string `json:"selector"`
}

// DOMToImageResponse carries the base64 encoded PNG
type DOMToImageResponse struct {
	B64 string `json:"b64"`
}
