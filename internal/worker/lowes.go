// internal/worker/lowes.go
package worker

import (
	"context"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// LowesWorker drives detail traversals on Lowe's
type LowesWorker struct {
	Base
	tabs browser.Tabs
	exec remote.Executor
	opts walker.Options
}

// NewLowesWorker creates a Lowe's worker
func NewLowesWorker(deps Deps) *LowesWorker {
	w := &LowesWorker{tabs: deps.Tabs, exec: deps.Executor, opts: deps.Walker}
	w.init(types.SiteLowes, deps)
	return w
}

// WanderDetailPage opens a product URL and emits its fields
func (w *LowesWorker) WanderDetailPage(ctx context.Context, link string) error {
	id, err := ParseLowesURL(link)
	if err != nil {
		return w.Guard(ctx, link, func(context.Context) error { return err })
	}
	return w.Guard(ctx, link, func(ctx context.Context) error {
		h, err := w.tabs.CreateContext(ctx, link)
		if err != nil {
			return err
		}
		defer closeTab(ctx, w.tabs, h, w.logger)

		page := walker.NewLowesDetailPage(w.exec, h, w.opts)
		loaded, err := page.WaitForLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			w.skip(types.TraversalDetail, link)
			return nil
		}
		item, err := page.BaseInfo(ctx)
		if err != nil {
			return err
		}
		item.OSMID = id
		item.Timestamp = types.Stamp()
		if item.Link == "" {
			item.Link = link
		}
		w.Emit(ctx, EventDetailBaseInfoCollected, LowesItemCollected{Item: item})
		return nil
	})
}

// RunDetailPageTask walks every product URL in order
func (w *LowesWorker) RunDetailPageTask(ctx context.Context, links []string, opts TaskOptions) error {
	return w.runInputs(ctx, types.TraversalDetail, links, opts.Progress, w.WanderDetailPage)
}
