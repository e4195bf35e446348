// internal/worker/amazon.go
package worker

import (
	"context"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

const amazonBaseURL = "https://www.amazon.com"

// DetailOptions select the optional steps of a detail walk
type DetailOptions struct {
	TaskOptions
	APlus      bool
	Extra      bool
	TopReviews bool
}

// ReviewOptions select how reviews are listed
type ReviewOptions struct {
	TaskOptions
	Recent bool
}

// AmazonWorker drives search, detail and review traversals on Amazon
type AmazonWorker struct {
	Base
	tabs   browser.Tabs
	exec   remote.Executor
	bridge *remote.Bridge
	opts   walker.Options
}

// NewAmazonWorker creates an Amazon worker
func NewAmazonWorker(deps Deps) *AmazonWorker {
	w := &AmazonWorker{
		tabs:   deps.Tabs,
		exec:   deps.Executor,
		bridge: deps.Bridge,
		opts:   deps.Walker,
	}
	w.init(types.SiteAmazon, deps)
	return w
}

// DoSearch shows the result page for keywords in the active tab, opening a
// new tab when the active one cannot be scripted. Navigation is skipped
// when the tab already shows those results.
func (w *AmazonWorker) DoSearch(ctx context.Context, keywords string) (remote.Handle, error) {
	target := SearchURL(keywords)
	var h remote.Handle
	err := w.Guard(ctx, target, func(ctx context.Context) error {
		tab, err := w.tabs.QueryActiveContext(ctx)
		if err != nil || browser.IsForbiddenURL(tab.URL) {
			h, err = w.tabs.CreateContext(ctx, amazonBaseURL+"/")
			if err != nil {
				return err
			}
			tab = browser.Tab{Handle: h, URL: amazonBaseURL + "/"}
		}
		h = tab.Handle
		if sameSearch(tab.URL, target) {
			return nil
		}
		if err := w.tabs.UpdateContext(ctx, h, target); err != nil {
			return err
		}
		if w.opts.Settle > 0 {
			return walker.Sleep(ctx, w.opts.Settle)
		}
		return nil
	})
	return h, err
}

// WanderSearchPage walks every result page shown in h, emitting one
// item-links-collected event per page. Ranks continue across pages.
func (w *AmazonWorker) WanderSearchPage(ctx context.Context, h remote.Handle, keywords string) error {
	return w.Guard(ctx, SearchURL(keywords), func(ctx context.Context) error {
		page := walker.NewAmazonSearchPage(w.exec, h, w.opts)
		offset := 0
		for pages := 0; ; pages++ {
			if w.Interrupted() {
				return nil
			}
			if pages >= w.maxPages {
				w.logger.WithField("keywords", keywords).Warnf("stopping after %d pages", pages)
				return nil
			}
			loaded, err := page.WaitForLoaded(ctx)
			if err != nil {
				return err
			}
			if !loaded {
				return utils.NewError(utils.ErrCodePageNotLoaded, "search result page did not load").
					WithContext("keywords", keywords).
					Build()
			}
			pattern, err := page.PagePattern(ctx)
			if err != nil {
				return err
			}
			listings, err := page.PageData(ctx, pattern)
			if err != nil {
				return err
			}
			current, err := page.CurrentPage(ctx)
			if err != nil {
				return err
			}

			now := types.Now()
			objs := make([]types.AmazonSearchItem, 0, len(listings))
			for i, l := range listings {
				objs = append(objs, types.AmazonSearchItem{
					Keywords:   keywords,
					Rank:       offset + i + 1,
					Page:       current,
					Link:       l.Link,
					Title:      l.Title,
					ASIN:       walker.ExtractASIN(l.Link),
					Price:      l.Price,
					ImageSrc:   l.ImageSrc,
					CreateTime: now,
				})
			}
			offset += len(objs)
			w.Emit(ctx, EventItemLinksCollected, LinksCollected{Objs: objs})

			next, err := page.DetermineHasNextPage(ctx)
			if err != nil {
				return err
			}
			if !next {
				return nil
			}
		}
	})
}

// WanderDetailPage opens entry in a new tab and emits what the detail page
// shows. Pages without product data are skipped without error.
func (w *AmazonWorker) WanderDetailPage(ctx context.Context, entry string, opts DetailOptions) error {
	asin, link, err := ParseEntry(entry)
	if err != nil {
		return w.Guard(ctx, entry, func(context.Context) error { return err })
	}
	return w.Guard(ctx, link, func(ctx context.Context) error {
		h, err := w.tabs.CreateContext(ctx, link)
		if err != nil {
			return err
		}
		defer closeTab(ctx, w.tabs, h, w.logger)

		page := walker.NewAmazonDetailPage(w.exec, h, w.opts)
		loaded, err := page.WaitForLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			w.skip(types.TraversalDetail, asin)
			return nil
		}

		base, err := page.BaseInfo(ctx)
		if err != nil {
			return err
		}
		rating, err := page.RatingInfo(ctx)
		if err != nil {
			return err
		}
		w.Emit(ctx, EventItemBaseInfoCollected, types.AmazonDetailItem{
			ASIN:          asin,
			Title:         base.Title,
			Timestamp:     types.Stamp(),
			BoughtInfo:    base.BoughtInfo,
			Price:         base.Price,
			Rating:        rating.Rating,
			RatingCount:   rating.RatingCount,
			Categories:    base.Categories,
			AvailableDate: base.AvailableDate,
			ShipFrom:      base.ShipFrom,
			SoldBy:        base.SoldBy,
		})

		rankText, err := page.RankText(ctx)
		if err != nil {
			return err
		}
		if ranks := ParseCategoryRanks(rankText); len(ranks) > 0 {
			item := types.AmazonDetailItem{ASIN: asin, Category1: &ranks[0]}
			if len(ranks) > 1 {
				item.Category2 = &ranks[1]
			}
			w.Emit(ctx, EventItemCategoryRankCollected, item)
		}

		images, err := page.ImageURLs(ctx)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			w.Emit(ctx, EventItemImagesCollected, types.AmazonDetailItem{ASIN: asin, ImageURLs: images})
		}

		if opts.TopReviews {
			reviews, err := page.TopReviews(ctx)
			if err != nil {
				return err
			}
			if len(reviews) > 0 {
				w.Emit(ctx, EventItemTopReviewsCollected, types.AmazonDetailItem{ASIN: asin, TopReviews: reviews})
			}
		}

		if opts.APlus && w.bridge != nil {
			present, err := page.ScanAPlus(ctx)
			if err != nil {
				return err
			}
			if present {
				b64, err := page.CaptureAPlus(ctx, w.bridge)
				if err != nil {
					return err
				}
				if b64 != "" {
					w.Emit(ctx, EventItemAPlusScreenshotCollected, APlusScreenshot{ASIN: asin, Base64Data: b64})
				}
			}
		}

		if opts.Extra {
			extra, err := page.ExtraInfo(ctx)
			if err != nil {
				return err
			}
			w.Emit(ctx, EventItemExtraInfoCollected, types.AmazonDetailItem{
				ASIN:              asin,
				Abouts:            extra.Abouts,
				Brand:             extra.Brand,
				Flavor:            extra.Flavor,
				UnitCount:         extra.UnitCount,
				ItemForm:          extra.ItemForm,
				ProductDimensions: extra.ProductDimensions,
			})
		}
		return nil
	})
}

// WanderReviewPage opens the review listing of asin and walks it once per
// star filter, emitting one item-review-collected event per page. The
// interrupt is honoured before every star and every page.
func (w *AmazonWorker) WanderReviewPage(ctx context.Context, entry string, opts ReviewOptions) error {
	asin, _, err := ParseEntry(entry)
	if err != nil {
		return w.Guard(ctx, entry, func(context.Context) error { return err })
	}
	link := ReviewURL(asin, opts.Recent)
	return w.Guard(ctx, link, func(ctx context.Context) error {
		h, err := w.tabs.CreateContext(ctx, link)
		if err != nil {
			return err
		}
		defer closeTab(ctx, w.tabs, h, w.logger)

		page := walker.NewAmazonReviewPage(w.exec, h, w.opts)
		loaded, err := page.WaitForLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			w.skip(types.TraversalReview, asin)
			return nil
		}

		for star := 1; star <= 5; star++ {
			if w.Interrupted() {
				return nil
			}
			if err := page.ShowStarsDropDown(ctx); err != nil {
				return err
			}
			if err := page.SelectStar(ctx, star); err != nil {
				return err
			}
			if err := w.wanderReviewStar(ctx, page, asin, star); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *AmazonWorker) wanderReviewStar(ctx context.Context, page *walker.AmazonReviewPage, asin string, star int) error {
	for pages := 0; pages < w.maxPages; pages++ {
		if w.Interrupted() {
			return nil
		}
		loaded, err := page.WaitForLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			w.logger.WithFields(map[string]interface{}{"asin": asin, "star": star}).Warn("review page did not load")
			return nil
		}
		reviews, err := page.SinglePageReviews(ctx)
		if err != nil {
			return err
		}
		if len(reviews) > 0 {
			w.Emit(ctx, EventItemReviewCollected, ReviewsCollected{ASIN: asin, Reviews: reviews})
		}
		next, err := page.JumpToNextPage(ctx)
		if err != nil {
			return err
		}
		if !next {
			return nil
		}
	}
	return nil
}

// RunSearchPageTask searches every keyword in order
func (w *AmazonWorker) RunSearchPageTask(ctx context.Context, keywords []string, opts TaskOptions) error {
	return w.runInputs(ctx, types.TraversalSearch, keywords, opts.Progress, func(ctx context.Context, kw string) error {
		kw = strings.TrimSpace(kw)
		h, err := w.DoSearch(ctx, kw)
		if err != nil {
			return err
		}
		return w.WanderSearchPage(ctx, h, kw)
	})
}

// RunDetailPageTask walks the detail page of every ASIN or URL in order
func (w *AmazonWorker) RunDetailPageTask(ctx context.Context, entries []string, opts DetailOptions) error {
	return w.runInputs(ctx, types.TraversalDetail, entries, opts.Progress, func(ctx context.Context, entry string) error {
		return w.WanderDetailPage(ctx, entry, opts)
	})
}

// RunReviewPageTask walks the reviews of every ASIN in order
func (w *AmazonWorker) RunReviewPageTask(ctx context.Context, entries []string, opts ReviewOptions) error {
	return w.runInputs(ctx, types.TraversalReview, entries, opts.Progress, func(ctx context.Context, entry string) error {
		return w.WanderReviewPage(ctx, entry, opts)
	})
}
