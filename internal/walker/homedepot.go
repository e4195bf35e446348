// internal/walker/homedepot.go
package walker

import (
	"context"
	"strings"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

var (
	homedepotDetailProbe     = loadScript("homedepot/detail_probe")
	homedepotDetailInfo      = loadScript("homedepot/detail_info")
	homedepotDetailImageURLs = loadScript("homedepot/detail_image_urls")
	homedepotReviewProbe     = loadScript("homedepot/review_probe")
	homedepotReviews         = loadScript("homedepot/reviews")
	homedepotReviewPager     = loadScript("homedepot/review_pager")
	homedepotReviewNext      = loadScript("homedepot/review_next")
)

// HomedepotLoadGrace is how long a page with a review marker may keep
// loading before it is treated as usable anyway
const HomedepotLoadGrace = 15 * time.Second

// HomedepotDetailPage walks a Home Depot product page
type HomedepotDetailPage struct {
	Injector
}

// NewHomedepotDetailPage creates a detail page walker for tab h. Calls
// default to SlowTimeout.
func NewHomedepotDetailPage(exec remote.Executor, h remote.Handle, opts Options) *HomedepotDetailPage {
	if opts.Timeout <= 0 {
		opts.Timeout = SlowTimeout
	}
	return &HomedepotDetailPage{Injector: newInjector(exec, h, opts)}
}

// WaitForLoaded expands the collapsed sections and waits for the ratings
// block. It returns false without error for products that are not
// available.
func (p *HomedepotDetailPage) WaitForLoaded(ctx context.Context) (bool, error) {
	start := time.Now()
	var probe struct {
		Skip     bool `json:"skip"`
		Marker   bool `json:"marker"`
		Complete bool `json:"complete"`
	}
	ready, err := p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, homedepotDetailProbe, nil, &probe); err != nil {
			return false, err
		}
		if probe.Skip {
			return true, nil
		}
		return probe.Marker && (probe.Complete || time.Since(start) > HomedepotLoadGrace), nil
	})
	if err != nil {
		return false, err
	}
	return ready && !probe.Skip, nil
}

// Info reads the product fields. OSMID, images and timestamp are left for
// the caller.
func (p *HomedepotDetailPage) Info(ctx context.Context) (types.HomedepotDetailItem, error) {
	var raw struct {
		Link         string `json:"link"`
		BrandName    string `json:"brandName"`
		Title        string `json:"title"`
		Price        string `json:"price"`
		Rate         string `json:"rate"`
		ReviewCount  string `json:"reviewCount"`
		MainImageURL string `json:"mainImageUrl"`
		ModelInfo    string `json:"modelInfo"`
	}
	if err := p.run(ctx, homedepotDetailInfo, nil, &raw); err != nil {
		return types.HomedepotDetailItem{}, err
	}

	item := types.HomedepotDetailItem{
		Link:         raw.Link,
		BrandName:    CleanText(raw.BrandName),
		Title:        CleanText(raw.Title),
		Price:        CleanText(raw.Price),
		ReviewCount:  ParseIntPrefix(raw.ReviewCount),
		MainImageURL: raw.MainImageURL,
		Rate:         leadingNumber.FindString(CleanText(raw.Rate)),
	}
	if i := strings.Index(raw.ModelInfo, "# "); i >= 0 {
		item.ModelInfo = CleanText(raw.ModelInfo[i+2:])
	}
	return item, nil
}

// ImageURLs returns the product images listed in the structured data
func (p *HomedepotDetailPage) ImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := p.run(ctx, homedepotDetailImageURLs, nil, &urls); err != nil {
		return nil, err
	}
	for i, u := range urls {
		urls[i] = strings.Trim(u, `"' `)
	}
	return Dedupe(urls), nil
}

// WaitForReviews opens the reviews tab and waits for the first review
func (p *HomedepotDetailPage) WaitForReviews(ctx context.Context) (bool, error) {
	return p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		var visible bool
		if err := p.run(ctx, homedepotReviewProbe, nil, &visible); err != nil {
			return false, err
		}
		return visible, nil
	})
}

// Reviews extracts the reviews of the current page. Ids are not assigned.
func (p *HomedepotDetailPage) Reviews(ctx context.Context) ([]types.HomedepotReview, error) {
	var reviews []types.HomedepotReview
	if err := p.run(ctx, homedepotReviews, nil, &reviews); err != nil {
		return nil, err
	}
	for i := range reviews {
		reviews[i].Title = CleanText(reviews[i].Title)
		reviews[i].Username = CleanText(reviews[i].Username)
		reviews[i].DateInfo = CleanText(reviews[i].DateInfo)
		reviews[i].Rating = CleanText(reviews[i].Rating)
		reviews[i].Content = strings.TrimSpace(reviews[i].Content)
	}
	return reviews, nil
}

type pagerState struct {
	Final  string `json:"final"`
	Anchor string `json:"anchor"`
}

// TryJumpToNextPage moves the review pager forward and waits for the new
// page to render. It returns false on the last page.
func (p *HomedepotDetailPage) TryJumpToNextPage(ctx context.Context) (bool, error) {
	if err := p.settleDown(ctx); err != nil {
		return false, err
	}
	var before pagerState
	if err := p.run(ctx, homedepotReviewPager, nil, &before); err != nil {
		return false, err
	}
	if before.Anchor == "" || before.Final == before.Anchor {
		return false, nil
	}

	var clicked bool
	if err := p.run(ctx, homedepotReviewNext, nil, &clicked); err != nil {
		return false, err
	}
	if !clicked {
		return false, nil
	}

	return p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		var now pagerState
		if err := p.run(ctx, homedepotReviewPager, nil, &now); err != nil {
			return false, err
		}
		return now.Anchor != before.Anchor, nil
	})
}
