// internal/walker/lowes.go
package walker

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

var (
	lowesProbe    = loadScript("lowes/probe")
	lowesSnapshot = loadScript("lowes/snapshot")
)

// LowesDetailPage walks a Lowe's product page. Fields are read from an HTML
// snapshot of the rendered page rather than inside the tab.
type LowesDetailPage struct {
	Injector
}

// NewLowesDetailPage creates a detail page walker for tab h. Calls default
// to SlowTimeout.
func NewLowesDetailPage(exec remote.Executor, h remote.Handle, opts Options) *LowesDetailPage {
	if opts.Timeout <= 0 {
		opts.Timeout = SlowTimeout
	}
	return &LowesDetailPage{Injector: newInjector(exec, h, opts)}
}

// WaitForLoaded waits for the document to finish loading
func (p *LowesDetailPage) WaitForLoaded(ctx context.Context) (bool, error) {
	return p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		var complete bool
		if err := p.run(ctx, lowesProbe, nil, &complete); err != nil {
			return false, err
		}
		return complete, nil
	})
}

// BaseInfo snapshots the page and extracts the product fields
func (p *LowesDetailPage) BaseInfo(ctx context.Context) (types.LowesDetailItem, error) {
	var snap struct {
		URL  string `json:"url"`
		HTML string `json:"html"`
	}
	if err := p.run(ctx, lowesSnapshot, nil, &snap); err != nil {
		return types.LowesDetailItem{}, err
	}
	item, err := ParseLowesDetail(snap.HTML)
	if err != nil {
		return item, err
	}
	item.Link = snap.URL
	return item, nil
}

// ParseLowesDetail extracts product fields from a Lowe's product page
func ParseLowesDetail(html string) (types.LowesDetailItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.LowesDetailItem{}, fmt.Errorf("failed to parse page: %w", err)
	}

	text := func(selector string) string {
		return CleanText(doc.Find(selector).First().Text())
	}
	prefixed := func(prefix string) string {
		var value string
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := CleanText(s.Text())
			if strings.HasPrefix(t, prefix) {
				value = t
				return false
			}
			return true
		})
		return value
	}

	title := text("h1.product-brand-description")
	if title == "" {
		return types.LowesDetailItem{}, utils.NewError(utils.ErrCodeExtractionFailed, "product title not found").Build()
	}

	item := types.LowesDetailItem{
		Title:       title,
		BrandName:   text(`[data-component-name="RatingsNLinks"] a .label`),
		BoughtInfo:  text(`[data-component-name="ExclusiveBadge"]`),
		Price:       text(".screen-reader"),
		Rate:        text(".avgrating"),
		ReviewCount: ParseIntPrefix(text(`[data-testid="rating-trigger"] > div > div > span`)),
	}
	if src, ok := doc.Find("#mfe-gallery .productImage.tile-img").First().Attr("src"); ok {
		item.MainImageURL = src
	}
	if series := prefixed("Item #"); series != "" {
		series = strings.TrimPrefix(series, "Item #")
		item.ItemSeries = strings.TrimSpace(strings.ReplaceAll(series, "|", ""))
	}
	if series := prefixed("Model #"); series != "" {
		item.ModelSeries = strings.TrimSpace(strings.TrimPrefix(series, "Model #"))
	}
	return item, nil
}
