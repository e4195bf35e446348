// internal/worker/homedepot.go
package worker

import (
	"context"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

const homedepotBaseURL = "https://www.homedepot.com"

// HomedepotOptions select the optional steps of a Home Depot walk
type HomedepotOptions struct {
	TaskOptions
	Review bool
}

// HomedepotWorker drives detail and review traversals on Home Depot
type HomedepotWorker struct {
	Base
	tabs browser.Tabs
	exec remote.Executor
	opts walker.Options
}

// NewHomedepotWorker creates a Home Depot worker
func NewHomedepotWorker(deps Deps) *HomedepotWorker {
	w := &HomedepotWorker{tabs: deps.Tabs, exec: deps.Executor, opts: deps.Walker}
	w.init(types.SiteHomedepot, deps)
	return w
}

// WanderDetailPage opens the product page of osmid, emits the product and,
// when review is set, every page of its reviews
func (w *HomedepotWorker) WanderDetailPage(ctx context.Context, osmid string, review bool) error {
	osmid = strings.TrimSpace(osmid)
	link := HomedepotURL(osmid)
	return w.Guard(ctx, link, func(ctx context.Context) error {
		h, err := w.tabs.CreateContext(ctx, link)
		if err != nil {
			return err
		}
		defer closeTab(ctx, w.tabs, h, w.logger)

		page := walker.NewHomedepotDetailPage(w.exec, h, w.opts)
		loaded, err := page.WaitForLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			w.skip(types.TraversalDetail, osmid)
			return nil
		}

		item, err := page.Info(ctx)
		if err != nil {
			return err
		}
		images, err := page.ImageURLs(ctx)
		if err != nil {
			return err
		}
		item.OSMID = osmid
		item.ImageURLs = images
		item.Timestamp = types.Stamp()
		if item.Link == "" {
			item.Link = link
		}
		w.Emit(ctx, EventDetailItemCollected, HomedepotItemCollected{Item: item})

		if !review {
			return nil
		}
		return w.wanderReviews(ctx, page, osmid)
	})
}

func (w *HomedepotWorker) wanderReviews(ctx context.Context, page *walker.HomedepotDetailPage, osmid string) error {
	shown, err := page.WaitForReviews(ctx)
	if err != nil {
		return err
	}
	if !shown {
		w.logger.WithField("osmid", osmid).Info("no reviews shown")
		return nil
	}
	for pages := 0; pages < w.maxPages; pages++ {
		if w.Interrupted() {
			return nil
		}
		reviews, err := page.Reviews(ctx)
		if err != nil {
			return err
		}
		for i := range reviews {
			reviews[i].ID = types.HomedepotReviewID(osmid, reviews[i])
		}
		if len(reviews) > 0 {
			w.Emit(ctx, EventReviewCollected, HomedepotReviewsCollected{OSMID: osmid, Reviews: reviews})
		}
		next, err := page.TryJumpToNextPage(ctx)
		if err != nil {
			return err
		}
		if !next {
			return nil
		}
	}
	return nil
}

// RunDetailPageTask walks every OSM id in order
func (w *HomedepotWorker) RunDetailPageTask(ctx context.Context, osmids []string, opts HomedepotOptions) error {
	return w.runInputs(ctx, types.TraversalDetail, osmids, opts.Progress, func(ctx context.Context, osmid string) error {
		return w.WanderDetailPage(ctx, osmid, opts.Review)
	})
}
