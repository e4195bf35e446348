// internal/events/channel.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler receives the payload of an emitted event
type Handler func(ctx context.Context, payload interface{}) error

// Subscription identifies one registered handler
type Subscription struct {
	channel *Channel
	name    string
	id      uint64
}

// Unsubscribe removes the handler from its channel. It is safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.channel != nil {
		s.channel.Off(s)
	}
}

type entry struct {
	id      uint64
	handler Handler
	once    bool
}

// Channel is a named publish/subscribe bus. Emits are serialized: an Emit
// does not start until the previous one has returned, and each subscriber
// sees events in emit order.
type Channel struct {
	mu       sync.RWMutex
	emitMu   sync.Mutex
	nextID   uint64
	handlers map[string][]entry
}

// NewChannel creates an empty channel
func NewChannel() *Channel {
	return &Channel{handlers: make(map[string][]entry)}
}

// On registers handler for name
func (c *Channel) On(name string, handler Handler) *Subscription {
	return c.add(name, handler, false)
}

// Once registers handler for the next emit of name only
func (c *Channel) Once(name string, handler Handler) *Subscription {
	return c.add(name, handler, true)
}

func (c *Channel) add(name string, handler Handler, once bool) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.handlers[name] = append(c.handlers[name], entry{id: c.nextID, handler: handler, once: once})
	return &Subscription{channel: c, name: name, id: c.nextID}
}

// Off removes a subscription
func (c *Channel) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(sub.name, sub.id)
}

func (c *Channel) removeLocked(name string, id uint64) {
	list := c.handlers[name]
	for i, e := range list {
		if e.id == id {
			c.handlers[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(c.handlers[name]) == 0 {
		delete(c.handlers, name)
	}
}

// Listeners returns the number of handlers registered for name
func (c *Channel) Listeners(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers[name])
}

// Emit delivers payload to every handler registered for name, in
// subscription order. A handler that fails or panics does not stop delivery
// to the rest; their errors are joined into the returned error.
func (c *Channel) Emit(ctx context.Context, name string, payload interface{}) error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	list := append([]entry(nil), c.handlers[name]...)
	for _, e := range list {
		if e.once {
			c.removeLocked(name, e.id)
		}
	}
	c.mu.Unlock()

	var errs []error
	for _, e := range list {
		if err := invoke(ctx, e.handler, payload); err != nil {
			errs = append(errs, fmt.Errorf("handler for %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, handler Handler, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}

// Subscribe registers a handler that receives payloads of type T. Payloads of
// any other type are reported as errors from Emit.
func Subscribe[T any](c *Channel, name string, handler func(ctx context.Context, payload T) error) *Subscription {
	return c.On(name, func(ctx context.Context, payload interface{}) error {
		typed, ok := payload.(T)
		if !ok {
			var zero T
			return fmt.Errorf("unexpected payload %T for %q, want %T", payload, name, zero)
		}
		return handler(ctx, typed)
	})
}
