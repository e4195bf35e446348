// internal/commit/amazon.go
package commit

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/events"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// AmazonSession buffers the events of an Amazon worker and commits them to
// the Amazon collections
type AmazonSession struct {
	session
	w           *worker.AmazonWorker
	exporter    export.Service
	Collections *storage.AmazonCollections
	Search      *SearchBuffer
	Details     *DetailBuffer[types.AmazonDetailItem]
	Reviews     *ReviewBuffer[types.AmazonReview]
}

// NewAmazonSession subscribes to w's events
func NewAmazonSession(w *worker.AmazonWorker, opts Options) *AmazonSession {
	opts = opts.withDefaults()
	s := &AmazonSession{
		w:           w,
		exporter:    opts.Exporter,
		Collections: storage.NewAmazonCollections(opts.Store),
		Search:      &SearchBuffer{},
		Details:     NewDetailBuffer[types.AmazonDetailItem](),
		Reviews:     NewReviewBuffer[types.AmazonReview](),
	}
	s.init(w, opts)
	s.clear = func() {
		s.Search.Clear()
		s.Details.Clear()
		s.Reviews.Clear()
	}

	s.committer.add(storage.KeyAmazonSearchItems,
		searchFlusher(s.Search, s.Collections.SearchItems, opts.Exporter, export.PathAmazonSearchItems))
	s.committer.add(storage.KeyAmazonDetailItems,
		detailFlusher(s.Details, s.Collections.DetailItems, opts.Exporter, export.PathAmazonDetailItems))
	s.committer.add(storage.KeyAmazonReviews,
		reviewFlusher(s.Reviews, s.Collections.Reviews, opts.Exporter, export.PathAmazonReviews, "asin"))

	ch := w.Channel()
	s.subscribe(events.Subscribe(ch, worker.EventItemLinksCollected, func(ctx context.Context, e worker.LinksCollected) error {
		s.Search.Add(e.Objs...)
		return nil
	}))
	for _, name := range []string{
		worker.EventItemBaseInfoCollected,
		worker.EventItemCategoryRankCollected,
		worker.EventItemImagesCollected,
		worker.EventItemExtraInfoCollected,
		worker.EventItemTopReviewsCollected,
	} {
		s.subscribe(events.Subscribe(ch, name, func(ctx context.Context, item types.AmazonDetailItem) error {
			return s.Details.Add(item)
		}))
	}
	s.subscribe(events.Subscribe(ch, worker.EventItemReviewCollected, func(ctx context.Context, e worker.ReviewsCollected) error {
		s.Reviews.Add(e.ASIN, e.Reviews)
		return nil
	}))
	s.subscribe(events.Subscribe(ch, worker.EventItemAPlusScreenshotCollected, s.uploadAPlus))
	return s
}

// uploadAPlus stores the screenshot through the export service and records
// its URL on the detail item
func (s *AmazonSession) uploadAPlus(ctx context.Context, e worker.APlusScreenshot) error {
	if s.exporter == nil {
		s.logger.WithField("asin", e.ASIN).Debug("no export service, a+ screenshot dropped")
		return nil
	}
	data := e.Base64Data
	if i := strings.Index(data, "base64,"); i >= 0 {
		data = data[i+len("base64,"):]
	}
	png, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("invalid a+ screenshot for %s: %w", e.ASIN, err)
	}
	url, err := s.exporter.UploadImage(ctx, e.ASIN+".png", png)
	if err != nil {
		return err
	}
	return s.Details.Add(types.AmazonDetailItem{ASIN: e.ASIN, APlus: url})
}

// RunSearch walks the search pages of every keyword, committing on the
// interval
func (s *AmazonSession) RunSearch(ctx context.Context, keywords []string, opts worker.TaskOptions) error {
	return s.runInterval(ctx, func(ctx context.Context) error {
		return s.w.RunSearchPageTask(ctx, keywords, opts)
	})
}

// RunDetail walks the detail page of every entry, committing after each
func (s *AmazonSession) RunDetail(ctx context.Context, entries []string, opts worker.DetailOptions) error {
	return s.runBoundary(ctx, opts.Progress, func(ctx context.Context, progress worker.Progress) error {
		opts.Progress = progress
		return s.w.RunDetailPageTask(ctx, entries, opts)
	})
}

// RunReview walks the reviews of every entry, committing on the interval
func (s *AmazonSession) RunReview(ctx context.Context, entries []string, opts worker.ReviewOptions) error {
	return s.runInterval(ctx, func(ctx context.Context) error {
		return s.w.RunReviewPageTask(ctx, entries, opts)
	})
}
