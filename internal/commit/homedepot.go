// internal/commit/homedepot.go
package commit

import (
	"context"

	"github.com/primedigitaltech/azon-seeker/internal/events"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// HomedepotSession buffers the events of a Home Depot worker
type HomedepotSession struct {
	session
	w           *worker.HomedepotWorker
	Collections *storage.HomedepotCollections
	Details     *DetailBuffer[types.HomedepotDetailItem]
	Reviews     *ReviewBuffer[types.HomedepotReview]
}

// NewHomedepotSession subscribes to w's events
func NewHomedepotSession(w *worker.HomedepotWorker, opts Options) *HomedepotSession {
	opts = opts.withDefaults()
	s := &HomedepotSession{
		w:           w,
		Collections: storage.NewHomedepotCollections(opts.Store),
		Details:     NewDetailBuffer[types.HomedepotDetailItem](),
		Reviews:     NewReviewBuffer[types.HomedepotReview](),
	}
	s.init(w, opts)
	s.clear = func() {
		s.Details.Clear()
		s.Reviews.Clear()
	}

	s.committer.add(storage.KeyHomedepotDetailItems,
		detailFlusher(s.Details, s.Collections.DetailItems, opts.Exporter, export.PathHomedepotDetailItems))
	s.committer.add(storage.KeyHomedepotReviews,
		reviewFlusher(s.Reviews, s.Collections.Reviews, opts.Exporter, export.PathHomedepotReviews, "OSMID"))

	ch := w.Channel()
	s.subscribe(events.Subscribe(ch, worker.EventDetailItemCollected, func(ctx context.Context, e worker.HomedepotItemCollected) error {
		return s.Details.Add(e.Item)
	}))
	s.subscribe(events.Subscribe(ch, worker.EventReviewCollected, func(ctx context.Context, e worker.HomedepotReviewsCollected) error {
		s.Reviews.Add(e.OSMID, e.Reviews)
		return nil
	}))
	return s
}

// RunDetail walks every product page, committing after each
func (s *HomedepotSession) RunDetail(ctx context.Context, osmids []string, opts worker.HomedepotOptions) error {
	return s.runBoundary(ctx, opts.Progress, func(ctx context.Context, progress worker.Progress) error {
		opts.Progress = progress
		return s.w.RunDetailPageTask(ctx, osmids, opts)
	})
}
