// internal/commit/committer.go
package commit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// Observer receives the outcome of every collection flush
type Observer interface {
	ObserveCommit(site, collection string, records int, err error)
}

// flusher moves one buffer into its collection and the export service. It
// returns the number of records flushed.
type flusher struct {
	collection string
	flush      func(ctx context.Context) (int, error)
}

// Committer flushes a set of buffers. Commits are serialized.
type Committer struct {
	mu       sync.Mutex
	site     types.Site
	flushers []flusher
	logger   utils.Logger
	observer Observer
}

func newCommitter(site types.Site, logger utils.Logger, observer Observer) *Committer {
	return &Committer{
		site:     site,
		logger:   logger,
		observer: observer,
	}
}

func (c *Committer) add(collection string, flush func(ctx context.Context) (int, error)) {
	c.flushers = append(c.flushers, flusher{collection: collection, flush: flush})
}

// Commit flushes every buffer. A failed flush keeps its snapshot buffered
// and does not stop the others; the failures are logged and returned joined.
func (c *Committer) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, f := range c.flushers {
		n, err := f.flush(ctx)
		if c.observer != nil && (n > 0 || err != nil) {
			c.observer.ObserveCommit(string(c.site), f.collection, n, err)
		}
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"collection": f.collection,
				"records":    n,
			}).Errorf("commit failed, records kept for retry: %v", err)
			errs = append(errs, err)
			continue
		}
		if n > 0 {
			c.logger.WithFields(map[string]interface{}{
				"collection": f.collection,
				"records":    n,
			}).Debug("committed")
		}
	}
	return errors.Join(errs...)
}

func storeFailed(err error, collection string) error {
	return utils.NewError(utils.ErrCodeCommitFailed, "failed to merge into storage").
		WithCause(err).
		WithContext("collection", collection).
		WithRetryable(true).
		Build()
}

func post(ctx context.Context, svc export.Service, path string, records []map[string]interface{}) error {
	if svc == nil || len(records) == 0 {
		return nil
	}
	return svc.Post(ctx, path, records)
}

func searchFlusher(buf *SearchBuffer, col *storage.Collection[[]types.AmazonSearchItem], svc export.Service, path string) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		snapshot := buf.Take()
		if len(snapshot) == 0 {
			return 0, nil
		}
		err := col.Update(ctx, func(existing []types.AmazonSearchItem) ([]types.AmazonSearchItem, error) {
			return storage.UpsertSearchItems(existing, snapshot), nil
		})
		if err != nil {
			buf.Restore(snapshot)
			return len(snapshot), storeFailed(err, col.Key())
		}
		records, err := export.FlattenAll(snapshot)
		if err == nil {
			err = post(ctx, svc, path, records)
		}
		if err != nil {
			buf.Restore(snapshot)
			return len(snapshot), err
		}
		return len(snapshot), nil
	}
}

// detailFlusher exports the merged records of the flushed keys, so the
// export service always receives complete rows
func detailFlusher[T types.Keyed](buf *DetailBuffer[T], col *storage.Collection[map[string]T], svc export.Service, path string) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		snapshot := buf.Take()
		if len(snapshot) == 0 {
			return 0, nil
		}
		var merged map[string]T
		err := col.Update(ctx, func(existing map[string]T) (map[string]T, error) {
			m, err := storage.MergeDetails(existing, snapshot)
			merged = m
			return m, err
		})
		if err != nil {
			if rerr := buf.Restore(snapshot); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return len(snapshot), storeFailed(err, col.Key())
		}

		keys := sortedKeys(snapshot)
		rows := make([]T, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, merged[k])
		}
		records, err := export.FlattenAll(rows)
		if err == nil {
			err = post(ctx, svc, path, records)
		}
		if err != nil {
			if rerr := buf.Restore(snapshot); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return len(snapshot), err
		}
		return len(snapshot), nil
	}
}

// reviewFlusher exports every review with its product key under keyField
func reviewFlusher[R types.Review](buf *ReviewBuffer[R], col *storage.Collection[map[string][]R], svc export.Service, path, keyField string) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		snapshot := buf.Take()
		n := 0
		for _, list := range snapshot {
			n += len(list)
		}
		if n == 0 {
			return 0, nil
		}
		err := col.Update(ctx, func(existing map[string][]R) (map[string][]R, error) {
			return storage.MergeReviewSets(existing, snapshot), nil
		})
		if err != nil {
			buf.Restore(snapshot)
			return n, storeFailed(err, col.Key())
		}

		records := make([]map[string]interface{}, 0, n)
		for _, k := range sortedKeys(snapshot) {
			for _, r := range snapshot[k] {
				record, ferr := export.Flatten(r)
				if ferr != nil {
					err = ferr
					break
				}
				record[keyField] = k
				records = append(records, record)
			}
		}
		if err == nil {
			err = post(ctx, svc, path, records)
		}
		if err != nil {
			buf.Restore(snapshot)
			return n, err
		}
		return n, nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
