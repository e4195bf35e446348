// internal/commit/buffer.go
package commit

import (
	"sync"

	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// SearchBuffer holds search results not yet committed, in arrival order
type SearchBuffer struct {
	mu    sync.Mutex
	items []types.AmazonSearchItem
}

// Add appends items
func (b *SearchBuffer) Add(items ...types.AmazonSearchItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Take returns the buffered items and empties the buffer
func (b *SearchBuffer) Take() []types.AmazonSearchItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}

// Restore puts a snapshot back in front of anything buffered since
func (b *SearchBuffer) Restore(snapshot []types.AmazonSearchItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(append([]types.AmazonSearchItem(nil), snapshot...), b.items...)
}

// Len returns the number of buffered items
func (b *SearchBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear drops everything buffered
func (b *SearchBuffer) Clear() {
	b.Take()
}

// DetailBuffer accumulates partial records by key. Partials for the same key
// are merged with types.MergePartial.
type DetailBuffer[T types.Keyed] struct {
	mu    sync.Mutex
	items map[string]T
}

// NewDetailBuffer creates an empty buffer
func NewDetailBuffer[T types.Keyed]() *DetailBuffer[T] {
	return &DetailBuffer[T]{items: make(map[string]T)}
}

// Add merges item into the buffered record with the same key
func (b *DetailBuffer[T]) Add(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.items[item.Key()]
	if !ok {
		b.items[item.Key()] = item
		return nil
	}
	merged, err := types.MergePartial(current, item)
	if err != nil {
		return err
	}
	b.items[item.Key()] = merged
	return nil
}

// Take returns the buffered records and empties the buffer
func (b *DetailBuffer[T]) Take() map[string]T {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = make(map[string]T)
	return items
}

// Restore merges a snapshot back. Partials buffered after the snapshot was
// taken are newer and win over it.
func (b *DetailBuffer[T]) Restore(snapshot map[string]T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, old := range snapshot {
		newer, ok := b.items[k]
		if !ok {
			b.items[k] = old
			continue
		}
		merged, err := types.MergePartial(old, newer)
		if err != nil {
			return err
		}
		b.items[k] = merged
	}
	return nil
}

// Len returns the number of buffered keys
func (b *DetailBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear drops everything buffered
func (b *DetailBuffer[T]) Clear() {
	b.Take()
}

// ReviewBuffer collects reviews per product key. A review id seen before
// for the same key is ignored.
type ReviewBuffer[R types.Review] struct {
	mu    sync.Mutex
	items map[string][]R
}

// NewReviewBuffer creates an empty buffer
func NewReviewBuffer[R types.Review]() *ReviewBuffer[R] {
	return &ReviewBuffer[R]{items: make(map[string][]R)}
}

// Add appends the unseen reviews of key
func (b *ReviewBuffer[R]) Add(key string, reviews []R) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = types.AppendUniqueReviews(b.items[key], reviews)
}

// Take returns the buffered reviews and empties the buffer
func (b *ReviewBuffer[R]) Take() map[string][]R {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = make(map[string][]R)
	return items
}

// Restore puts a snapshot back ahead of reviews buffered since
func (b *ReviewBuffer[R]) Restore(snapshot map[string][]R) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, old := range snapshot {
		b.items[k] = types.AppendUniqueReviews(append([]R(nil), old...), b.items[k])
	}
}

// Len returns the number of buffered reviews
func (b *ReviewBuffer[R]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, list := range b.items {
		n += len(list)
	}
	return n
}

// Clear drops everything buffered
func (b *ReviewBuffer[R]) Clear() {
	b.Take()
}
