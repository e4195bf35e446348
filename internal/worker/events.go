// internal/worker/events.go
package worker

import "github.com/primedigitaltech/azon-seeker/pkg/types"

// Event names emitted by the site workers
const (
	// Amazon
	EventItemLinksCollected           = "item-links-collected"
	EventItemBaseInfoCollected        = "item-base-info-collected"
	EventItemCategoryRankCollected    = "item-category-rank-collected"
	EventItemImagesCollected          = "item-images-collected"
	EventItemAPlusScreenshotCollected = "item-aplus-screenshot-collected"
	EventItemExtraInfoCollected       = "item-extra-info-collected"
	EventItemTopReviewsCollected      = "item-top-reviews-collected"
	EventItemReviewCollected          = "item-review-collected"

	// Home Depot
	EventDetailItemCollected = "detail-item-collected"
	EventReviewCollected     = "review-collected"

	// Lowe's
	EventDetailBaseInfoCollected = "detail-base-info-collected"

	EventError = "error"
)

// LinksCollected carries one search result page. Ranks continue across
// pages of the same keyword.
type LinksCollected struct {
	Objs []types.AmazonSearchItem `json:"objs"`
}

// Amazon detail events carry a types.AmazonDetailItem holding only the
// fields the step discovered, keyed by ASIN.

// APlusScreenshot carries a base64 PNG of the A+ block of one product
type APlusScreenshot struct {
	ASIN       string `json:"asin"`
	Base64Data string `json:"base64data"`
}

// ReviewsCollected carries one page of Amazon reviews
type ReviewsCollected struct {
	ASIN    string               `json:"asin"`
	Reviews []types.AmazonReview `json:"reviews"`
}

// HomedepotItemCollected carries a Home Depot product
type HomedepotItemCollected struct {
	Item types.HomedepotDetailItem `json:"item"`
}

// HomedepotReviewsCollected carries one page of Home Depot reviews
type HomedepotReviewsCollected struct {
	OSMID   string                  `json:"OSMID"`
	Reviews []types.HomedepotReview `json:"reviews"`
}

// LowesItemCollected carries a Lowe's product
type LowesItemCollected struct {
	Item types.LowesDetailItem `json:"item"`
}

// ErrorEvent reports a failed input
type ErrorEvent struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Code    string `json:"code,omitempty"`
}
