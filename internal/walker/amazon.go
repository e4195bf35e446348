// internal/walker/amazon.go
package walker

import (
	"context"
	"net/url"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

var (
	amazonSearchProbe       = loadScript("amazon/search_probe")
	amazonSearchPattern     = loadScript("amazon/search_pattern")
	amazonSearchData        = loadScript("amazon/search_data")
	amazonSearchCurrentPage = loadScript("amazon/search_current_page")
	amazonSearchNextPage    = loadScript("amazon/search_next_page")

	amazonDetailProbe      = loadScript("amazon/detail_probe")
	amazonDetailBaseInfo   = loadScript("amazon/detail_base_info")
	amazonDetailRating     = loadScript("amazon/detail_rating")
	amazonDetailRankText   = loadScript("amazon/detail_rank_text")
	amazonDetailImageURLs  = loadScript("amazon/detail_image_urls")
	amazonDetailTopReviews = loadScript("amazon/detail_top_reviews")
	amazonDetailAPlusProbe = loadScript("amazon/detail_aplus_probe")
	amazonDetailExtraInfo  = loadScript("amazon/detail_extra_info")

	amazonReviewProbe      = loadScript("amazon/review_probe")
	amazonReviewDropdown   = loadScript("amazon/review_dropdown")
	amazonReviewSelectStar = loadScript("amazon/review_select_star")
	amazonReviewPage       = loadScript("amazon/review_page")
	amazonReviewNextPage   = loadScript("amazon/review_next_page")
)

// Pattern is one of the layouts a search result page may use
type Pattern string

const (
	// PatternList renders results as full-width rows
	PatternList Pattern = "pattern-1"
	// PatternGrid renders results as a grid of cards
	PatternGrid Pattern = "pattern-2"
)

// Listing is one raw entry of a search result page
type Listing struct {
	Link     string `json:"link"`
	Title    string `json:"title"`
	ImageSrc string `json:"imageSrc"`
	Price    string `json:"price"`
}

// AmazonSearchPage walks a search result page
type AmazonSearchPage struct {
	Injector
}

// NewAmazonSearchPage creates a search page walker for tab h
func NewAmazonSearchPage(exec remote.Executor, h remote.Handle, opts Options) *AmazonSearchPage {
	return &AmazonSearchPage{Injector: newInjector(exec, h, opts)}
}

type searchProbe struct {
	Next     bool `json:"next"`
	Complete bool `json:"complete"`
	Spinners int  `json:"spinners"`
}

// WaitForLoaded waits until the pagination bar (or a complete document) is
// present and no spinner is visible. It returns false when the page never
// settles.
func (p *AmazonSearchPage) WaitForLoaded(ctx context.Context) (bool, error) {
	var last searchProbe
	shown, err := p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, amazonSearchProbe, nil, &last); err != nil {
			return false, err
		}
		return last.Next || last.Complete, nil
	})
	if err != nil || !shown {
		return false, err
	}
	return p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, amazonSearchProbe, nil, &last); err != nil {
			return false, err
		}
		return last.Spinners == 0, nil
	})
}

// PagePattern detects the layout of the current result page
func (p *AmazonSearchPage) PagePattern(ctx context.Context) (Pattern, error) {
	var pattern string
	if err := p.run(ctx, amazonSearchPattern, nil, &pattern); err != nil {
		return "", err
	}
	switch Pattern(pattern) {
	case PatternList, PatternGrid:
		return Pattern(pattern), nil
	}
	return "", utils.NewError(utils.ErrCodePatternUnknown, "unrecognised search page layout").
		WithContext("pattern", pattern).
		Build()
}

// PageData extracts the product listings rendered with pattern. Entries
// whose link is not a product detail path are dropped; these are
// advertisements and editorial tiles.
func (p *AmazonSearchPage) PageData(ctx context.Context, pattern Pattern) ([]Listing, error) {
	var raw []Listing
	if err := p.run(ctx, amazonSearchData, map[string]string{"pattern": string(pattern)}, &raw); err != nil {
		return nil, err
	}
	listings := make([]Listing, 0, len(raw))
	for _, l := range raw {
		if !IsProductLink(l.Link) {
			continue
		}
		l.Title = CleanText(l.Title)
		l.Price = CleanText(l.Price)
		listings = append(listings, l)
	}
	return listings, nil
}

// CurrentPage returns the selected page number, 1 when unknown
func (p *AmazonSearchPage) CurrentPage(ctx context.Context) (int, error) {
	var page int
	if err := p.run(ctx, amazonSearchCurrentPage, nil, &page); err != nil {
		return 0, err
	}
	if page < 1 {
		page = 1
	}
	return page, nil
}

// DetermineHasNextPage clicks the enabled next control and reports whether
// it did. A true result means the tab is navigating to the next page.
func (p *AmazonSearchPage) DetermineHasNextPage(ctx context.Context) (bool, error) {
	var next bool
	if err := p.run(ctx, amazonSearchNextPage, nil, &next); err != nil {
		return false, err
	}
	if next {
		if err := p.settleDown(ctx); err != nil {
			return false, err
		}
	}
	return next, nil
}

// IsProductLink reports whether link points at a product detail page
func IsProductLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	return ExtractASIN(u.Path) != ""
}

// ExtractASIN returns the ASIN following /dp/ in s, or ""
func ExtractASIN(s string) string {
	i := strings.Index(s, "/dp/")
	if i < 0 {
		return ""
	}
	rest := s[i+len("/dp/"):]
	if len(rest) < 10 {
		return ""
	}
	candidate := rest[:10]
	if !IsASIN(candidate) {
		return ""
	}
	return candidate
}

// IsASIN reports whether s is a ten character ASIN
func IsASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// AmazonDetailPage walks a product detail page
type AmazonDetailPage struct {
	Injector
}

// NewAmazonDetailPage creates a detail page walker for tab h
func NewAmazonDetailPage(exec remote.Executor, h remote.Handle, opts Options) *AmazonDetailPage {
	return &AmazonDetailPage{Injector: newInjector(exec, h, opts)}
}

// WaitForLoaded waits for the product details block. It returns false
// without error for pages that carry no product data (music and video
// retail pages) and for pages that never finish loading.
func (p *AmazonDetailPage) WaitForLoaded(ctx context.Context) (bool, error) {
	var state string
	ready, err := p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, amazonDetailProbe, nil, &state); err != nil {
			return false, err
		}
		return state != "loading", nil
	})
	if err != nil {
		return false, err
	}
	return ready && state == "ready", nil
}

// AmazonBaseInfo is the headline block of a detail page
type AmazonBaseInfo struct {
	Title         string `json:"title"`
	Price         string `json:"price"`
	BoughtInfo    string `json:"boughtInfo"`
	AvailableDate string `json:"availableDate"`
	Categories    string `json:"categories"`
	ShipFrom      string `json:"shipFrom"`
	SoldBy        string `json:"soldBy"`
}

// BaseInfo reads title, price and seller fields
func (p *AmazonDetailPage) BaseInfo(ctx context.Context) (AmazonBaseInfo, error) {
	var info AmazonBaseInfo
	if err := p.run(ctx, amazonDetailBaseInfo, nil, &info); err != nil {
		return info, err
	}
	info.Title = CleanText(info.Title)
	info.Price = CleanText(info.Price)
	info.BoughtInfo = CleanText(info.BoughtInfo)
	info.AvailableDate = CleanText(info.AvailableDate)
	info.Categories = CleanText(info.Categories)
	info.ShipFrom = CleanText(info.ShipFrom)
	info.SoldBy = CleanText(info.SoldBy)
	return info, nil
}

// RatingInfo is the average rating and number of ratings
type RatingInfo struct {
	Rating      float64
	RatingCount int
}

// RatingInfo reads the rating block. Missing blocks give zero values.
func (p *AmazonDetailPage) RatingInfo(ctx context.Context) (RatingInfo, error) {
	var raw struct {
		Rating      string `json:"rating"`
		RatingCount string `json:"ratingCount"`
	}
	if err := p.run(ctx, amazonDetailRating, nil, &raw); err != nil {
		return RatingInfo{}, err
	}
	return RatingInfo{
		Rating:      ParseFloatPrefix(raw.Rating),
		RatingCount: ParseIntPrefix(raw.RatingCount),
	}, nil
}

// RankText returns the raw best sellers rank text, or "" when absent
func (p *AmazonDetailPage) RankText(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, amazonDetailRankText, nil, &text); err != nil {
		return "", err
	}
	return text, nil
}

// ImageURLs returns the distinct gallery image URLs
func (p *AmazonDetailPage) ImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := p.run(ctx, amazonDetailImageURLs, nil, &urls); err != nil {
		return nil, err
	}
	return Dedupe(urls), nil
}

// TopReviews returns the featured reviews shown on the detail page
func (p *AmazonDetailPage) TopReviews(ctx context.Context) ([]types.AmazonReview, error) {
	var reviews []types.AmazonReview
	if err := p.run(ctx, amazonDetailTopReviews, nil, &reviews); err != nil {
		return nil, err
	}
	return cleanAmazonReviews(reviews), nil
}

// ScanAPlus scrolls through the A+ content so its images render. It returns
// false when the page has no A+ block.
func (p *AmazonDetailPage) ScanAPlus(ctx context.Context) (bool, error) {
	var probe struct {
		Present bool `json:"present"`
		Done    bool `json:"done"`
	}
	if err := p.run(ctx, amazonDetailAPlusProbe, nil, &probe); err != nil {
		return false, err
	}
	if !probe.Present {
		return false, nil
	}
	if probe.Done {
		return true, nil
	}
	// scrolling steps are shorter than the load polls
	scroll := p.poll
	scroll.Interval /= 5
	scroll.Jitter /= 5
	scroll.MaxRounds *= 5
	return scroll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, amazonDetailAPlusProbe, nil, &probe); err != nil {
			return false, err
		}
		return !probe.Present || probe.Done, nil
	})
}

// APlusSelector locates the A+ content block
const APlusSelector = "#aplus_feature_div"

// CaptureAPlus returns a base64 PNG of the A+ block through bridge
func (p *AmazonDetailPage) CaptureAPlus(ctx context.Context, bridge *remote.Bridge) (string, error) {
	var resp remote.DOMToImageResponse
	if err := bridge.Request(ctx, p.handle, remote.OpDOMToImage, remote.DOMToImageRequest{Selector: APlusSelector}, &resp); err != nil {
		return "", err
	}
	return resp.B64, nil
}

// AmazonExtraInfo holds the optional product attribute fields
type AmazonExtraInfo struct {
	Abouts            []string `json:"abouts"`
	Brand             string   `json:"brand"`
	Flavor            string   `json:"flavor"`
	UnitCount         string   `json:"unitCount"`
	ItemForm          string   `json:"itemForm"`
	ProductDimensions string   `json:"productDimensions"`
}

// ExtraInfo reads the "About this item" bullets and attribute table
func (p *AmazonDetailPage) ExtraInfo(ctx context.Context) (AmazonExtraInfo, error) {
	var info AmazonExtraInfo
	if err := p.run(ctx, amazonDetailExtraInfo, nil, &info); err != nil {
		return info, err
	}
	abouts := make([]string, 0, len(info.Abouts))
	for _, a := range info.Abouts {
		if a = CleanText(a); a != "" {
			abouts = append(abouts, a)
		}
	}
	info.Abouts = abouts
	info.Brand = CleanText(info.Brand)
	info.Flavor = CleanText(info.Flavor)
	info.UnitCount = CleanText(info.UnitCount)
	info.ItemForm = CleanText(info.ItemForm)
	info.ProductDimensions = CleanText(info.ProductDimensions)
	return info, nil
}

// AmazonReviewPage walks the star-filtered review listing of a product
type AmazonReviewPage struct {
	Injector
}

// NewAmazonReviewPage creates a review page walker for tab h
func NewAmazonReviewPage(exec remote.Executor, h remote.Handle, opts Options) *AmazonReviewPage {
	return &AmazonReviewPage{Injector: newInjector(exec, h, opts)}
}

// WaitForLoaded waits for the review list to show and the loading overlay
// to disappear
func (p *AmazonReviewPage) WaitForLoaded(ctx context.Context) (bool, error) {
	var probe struct {
		Listed  bool `json:"listed"`
		Loading bool `json:"loading"`
	}
	return p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		if err := p.run(ctx, amazonReviewProbe, nil, &probe); err != nil {
			return false, err
		}
		return probe.Listed && !probe.Loading, nil
	})
}

// ShowStarsDropDown opens the star filter menu
func (p *AmazonReviewPage) ShowStarsDropDown(ctx context.Context) error {
	shown, err := p.poll.Until(ctx, func(ctx context.Context) (bool, error) {
		var expanded bool
		if err := p.run(ctx, amazonReviewDropdown, nil, &expanded); err != nil {
			return false, err
		}
		return expanded, nil
	})
	if err != nil {
		return err
	}
	if !shown {
		return utils.NewError(utils.ErrCodeNavigationFailed, "star filter menu did not open").Build()
	}
	return nil
}

// SelectStar filters the listing to star-star reviews
func (p *AmazonReviewPage) SelectStar(ctx context.Context, star int) error {
	var found bool
	if err := p.run(ctx, amazonReviewSelectStar, map[string]int{"star": star}, &found); err != nil {
		return err
	}
	if !found {
		return utils.NewError(utils.ErrCodeNavigationFailed, "star filter option not found").
			WithContext("star", star).
			Build()
	}
	return p.settleDown(ctx)
}

// SinglePageReviews extracts the reviews of the current page
func (p *AmazonReviewPage) SinglePageReviews(ctx context.Context) ([]types.AmazonReview, error) {
	var reviews []types.AmazonReview
	if err := p.run(ctx, amazonReviewPage, nil, &reviews); err != nil {
		return nil, err
	}
	return cleanAmazonReviews(reviews), nil
}

// JumpToNextPage clicks the enabled next page control and reports whether it
// did
func (p *AmazonReviewPage) JumpToNextPage(ctx context.Context) (bool, error) {
	var next bool
	if err := p.run(ctx, amazonReviewNextPage, nil, &next); err != nil {
		return false, err
	}
	if next {
		if err := p.settleDown(ctx); err != nil {
			return false, err
		}
	}
	return next, nil
}

func cleanAmazonReviews(reviews []types.AmazonReview) []types.AmazonReview {
	out := reviews[:0]
	for _, r := range reviews {
		if r.ID == "" {
			continue
		}
		r.Username = CleanText(r.Username)
		r.Title = CleanText(r.Title)
		r.Rating = CleanText(r.Rating)
		r.DateInfo = CleanText(r.DateInfo)
		r.Content = strings.TrimSpace(r.Content)
		out = append(out, r)
	}
	return out
}
