// internal/storage/store.go
package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Store is a durable key-value store whose values are JSON documents.
// Writers tag changes with an origin so watchers can ignore their own
// writes.
type Store interface {
	// Get decodes the value of key into out. It reports false when the key
	// is absent.
	Get(ctx context.Context, key string, out interface{}) (bool, error)

	// Set stores value under key
	Set(ctx context.Context, key string, value interface{}, origin string) error

	// Remove deletes key
	Remove(ctx context.Context, key string, origin string) error

	// OnChange calls fn after every change of key ("*" for every key). The
	// returned function cancels the subscription.
	OnChange(key string, fn ChangeFunc, opts ...WatchOption) (cancel func())

	Close() error
}

// AllKeys subscribes OnChange to every key
const AllKeys = "*"

// Change describes one write
type Change struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value,omitempty"`
	Origin  string          `json:"origin,omitempty"`
	Removed bool            `json:"removed,omitempty"`
}

// ChangeFunc receives changes
type ChangeFunc func(Change)

// WatchOption filters the changes a watcher receives
type WatchOption func(*watcher)

// IgnoreOrigin drops changes written with any of origins
func IgnoreOrigin(origins ...string) WatchOption {
	return func(w *watcher) {
		for _, o := range origins {
			w.ignore[o] = true
		}
	}
}

type watcher struct {
	key    string
	fn     ChangeFunc
	ignore map[string]bool
}

func (w *watcher) wants(c Change) bool {
	return (w.key == AllKeys || w.key == c.Key) && !w.ignore[c.Origin]
}

// notifier fans changes out to in-process watchers
type notifier struct {
	mu       sync.RWMutex
	next     uint64
	watchers map[uint64]*watcher
}

func newNotifier() *notifier {
	return &notifier{watchers: make(map[uint64]*watcher)}
}

func (n *notifier) add(key string, fn ChangeFunc, opts ...WatchOption) func() {
	w := &watcher{key: key, fn: fn, ignore: make(map[string]bool)}
	for _, opt := range opts {
		opt(w)
	}
	n.mu.Lock()
	n.next++
	id := n.next
	n.watchers[id] = w
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.watchers, id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) notify(c Change) {
	n.mu.RLock()
	matched := make([]*watcher, 0, len(n.watchers))
	for _, w := range n.watchers {
		if w.wants(c) {
			matched = append(matched, w)
		}
	}
	n.mu.RUnlock()

	for _, w := range matched {
		w.fn(c)
	}
}

func encode(key string, value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeStoreFailed, "failed to encode value").
			WithCause(err).
			WithContext("key", key).
			Build()
	}
	return data, nil
}

func decode(key string, data []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return utils.NewError(utils.ErrCodeStoreFailed, "failed to decode value").
			WithCause(err).
			WithContext("key", key).
			Build()
	}
	return nil
}

func storeError(err error, op, key string) error {
	return utils.NewError(utils.ErrCodeStoreFailed, op+" failed").
		WithCause(err).
		WithContext("key", key).
		WithRetryable(true).
		Build()
}
