// internal/storage/collections.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// Keys of the site collections
const (
	KeyAmazonSearchItems    = "amazon:search-items"
	KeyAmazonDetailItems    = "amazon:detail-items"
	KeyAmazonReviews        = "amazon:reviews"
	KeyHomedepotDetailItems = "homedepot:detail-items"
	KeyHomedepotReviews     = "homedepot:reviews"
	KeyLowesDetailItems     = "lowes:detail-items"
)

// OriginEngine tags writes made by the commit layer
const OriginEngine = "engine"

// Collection is one typed document of a Store. Updates through one
// Collection value are serialized.
type Collection[T any] struct {
	store  Store
	key    string
	origin string
	mu     sync.Mutex
}

// NewCollection binds key of store to type T
func NewCollection[T any](store Store, key, origin string) *Collection[T] {
	return &Collection[T]{store: store, key: key, origin: origin}
}

// Key returns the store key
func (c *Collection[T]) Key() string { return c.key }

// Load returns the stored document, or the zero value when absent
func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	var v T
	_, err := c.store.Get(ctx, c.key, &v)
	return v, err
}

// Save replaces the stored document
func (c *Collection[T]) Save(ctx context.Context, v T) error {
	return c.store.Set(ctx, c.key, v, c.origin)
}

// Update applies fn to the stored document and saves the result
func (c *Collection[T]) Update(ctx context.Context, fn func(T) (T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return c.Save(ctx, next)
}

// Clear removes the stored document
func (c *Collection[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Remove(ctx, c.key, c.origin)
}

// UpsertSearchItems replaces entries with the same ASIN in place and
// appends the rest in order
func UpsertSearchItems(existing, incoming []types.AmazonSearchItem) []types.AmazonSearchItem {
	index := make(map[string]int, len(existing))
	out := append([]types.AmazonSearchItem(nil), existing...)
	for i, item := range out {
		index[item.ASIN] = i
	}
	for _, item := range incoming {
		if i, ok := index[item.ASIN]; ok {
			out[i] = item
			continue
		}
		index[item.ASIN] = len(out)
		out = append(out, item)
	}
	return out
}

// MergeDetails overlays every incoming partial onto the stored item with
// the same key
func MergeDetails[T types.Keyed](existing map[string]T, incoming map[string]T) (map[string]T, error) {
	out := make(map[string]T, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, patch := range incoming {
		base, ok := out[k]
		if !ok {
			out[k] = patch
			continue
		}
		merged, err := types.MergePartial(base, patch)
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}
	return out, nil
}

// MergeReviewSets merges incoming reviews into the stored list of every key
func MergeReviewSets[R types.Review](existing map[string][]R, incoming map[string][]R) map[string][]R {
	out := make(map[string][]R, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, reviews := range incoming {
		out[k] = types.MergeReviews(out[k], reviews)
	}
	return out
}

// AmazonCollections are the stored Amazon documents
type AmazonCollections struct {
	SearchItems *Collection[[]types.AmazonSearchItem]
	DetailItems *Collection[map[string]types.AmazonDetailItem]
	Reviews     *Collection[map[string][]types.AmazonReview]
}

// NewAmazonCollections binds the Amazon keys of store
func NewAmazonCollections(store Store) *AmazonCollections {
	return &AmazonCollections{
		SearchItems: NewCollection[[]types.AmazonSearchItem](store, KeyAmazonSearchItems, OriginEngine),
		DetailItems: NewCollection[map[string]types.AmazonDetailItem](store, KeyAmazonDetailItems, OriginEngine),
		Reviews:     NewCollection[map[string][]types.AmazonReview](store, KeyAmazonReviews, OriginEngine),
	}
}

// AllItems joins search and detail records by ASIN. Items appear in search
// order; ASINs known only from detail walks follow, sorted.
func (a *AmazonCollections) AllItems(ctx context.Context) ([]types.AmazonItem, error) {
	search, err := a.SearchItems.Load(ctx)
	if err != nil {
		return nil, err
	}
	details, err := a.DetailItems.Load(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]types.AmazonItem, 0, len(search)+len(details))
	seen := make(map[string]bool, len(search))
	for i := range search {
		s := search[i]
		if seen[s.ASIN] {
			continue
		}
		seen[s.ASIN] = true
		item := types.AmazonItem{ASIN: s.ASIN, Search: &s}
		if d, ok := details[s.ASIN]; ok {
			item.Detail = &d
			item.HasDetail = true
		}
		items = append(items, item)
	}

	rest := make([]string, 0, len(details))
	for asin := range details {
		if !seen[asin] {
			rest = append(rest, asin)
		}
	}
	sort.Strings(rest)
	for _, asin := range rest {
		d := details[asin]
		items = append(items, types.AmazonItem{ASIN: asin, Detail: &d, HasDetail: true})
	}
	return items, nil
}

// HomedepotCollections are the stored Home Depot documents
type HomedepotCollections struct {
	DetailItems *Collection[map[string]types.HomedepotDetailItem]
	Reviews     *Collection[map[string][]types.HomedepotReview]
}

// NewHomedepotCollections binds the Home Depot keys of store
func NewHomedepotCollections(store Store) *HomedepotCollections {
	return &HomedepotCollections{
		DetailItems: NewCollection[map[string]types.HomedepotDetailItem](store, KeyHomedepotDetailItems, OriginEngine),
		Reviews:     NewCollection[map[string][]types.HomedepotReview](store, KeyHomedepotReviews, OriginEngine),
	}
}

// LowesCollections are the stored Lowe's documents
type LowesCollections struct {
	DetailItems *Collection[map[string]types.LowesDetailItem]
}

// NewLowesCollections binds the Lowe's keys of store
func NewLowesCollections(store Store) *LowesCollections {
	return &LowesCollections{
		DetailItems: NewCollection[map[string]types.LowesDetailItem](store, KeyLowesDetailItems, OriginEngine),
	}
}
