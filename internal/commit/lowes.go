// internal/commit/lowes.go
package commit

import (
	"context"

	"github.com/primedigitaltech/azon-seeker/internal/events"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// LowesSession buffers the events of a Lowe's worker
type LowesSession struct {
	session
	w           *worker.LowesWorker
	Collections *storage.LowesCollections
	Details     *DetailBuffer[types.LowesDetailItem]
}

// NewLowesSession subscribes to w's events
func NewLowesSession(w *worker.LowesWorker, opts Options) *LowesSession {
	opts = opts.withDefaults()
	s := &LowesSession{
		w:           w,
		Collections: storage.NewLowesCollections(opts.Store),
		Details:     NewDetailBuffer[types.LowesDetailItem](),
	}
	s.init(w, opts)
	s.clear = s.Details.Clear

	s.committer.add(storage.KeyLowesDetailItems,
		detailFlusher(s.Details, s.Collections.DetailItems, opts.Exporter, export.PathLowesDetailItems))

	s.subscribe(events.Subscribe(w.Channel(), worker.EventDetailBaseInfoCollected, func(ctx context.Context, e worker.LowesItemCollected) error {
		return s.Details.Add(e.Item)
	}))
	return s
}

// RunDetail walks every product link, committing after each
func (s *LowesSession) RunDetail(ctx context.Context, links []string, opts worker.TaskOptions) error {
	return s.runBoundary(ctx, opts.Progress, func(ctx context.Context, progress worker.Progress) error {
		opts.Progress = progress
		return s.w.RunDetailPageTask(ctx, links, opts)
	})
}
