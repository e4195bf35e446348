// pkg/types/amazon.go
package types

import "time"

// AmazonSearchItem is one entry of a search result listing
type AmazonSearchItem struct {
	Keywords   string    `json:"keywords"`
	Rank       int       `json:"rank"`
	Page       int       `json:"page"`
	Link       string    `json:"link"`
	Title      string    `json:"title"`
	ASIN       string    `json:"asin"`
	Price      string    `json:"price,omitempty"`
	ImageSrc   string    `json:"imageSrc"`
	CreateTime time.Time `json:"createTime"`
}

// CategoryRank is a best sellers rank inside one category
type CategoryRank struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// AmazonDetailItem accumulates everything known about one ASIN. Fields are
// filled by independent events and merged with MergePartial.
type AmazonDetailItem struct {
	ASIN              string         `json:"asin"`
	Title             string         `json:"title,omitempty"`
	Timestamp         *time.Time     `json:"timestamp,omitempty"`
	BoughtInfo        string         `json:"boughtInfo,omitempty"`
	Price             string         `json:"price,omitempty"`
	Rating            float64        `json:"rating,omitempty"`
	RatingCount       int            `json:"ratingCount,omitempty"`
	Categories        string         `json:"categories,omitempty"`
	AvailableDate     string         `json:"availableDate,omitempty"`
	Category1         *CategoryRank  `json:"category1,omitempty"`
	Category2         *CategoryRank  `json:"category2,omitempty"`
	ImageURLs         []string       `json:"imageUrls,omitempty"`
	APlus             string         `json:"aplus,omitempty"`
	ShipFrom          string         `json:"shipFrom,omitempty"`
	SoldBy            string         `json:"soldBy,omitempty"`
	Abouts            []string       `json:"abouts,omitempty"`
	Brand             string         `json:"brand,omitempty"`
	Flavor            string         `json:"flavor,omitempty"`
	UnitCount         string         `json:"unitCount,omitempty"`
	ItemForm          string         `json:"itemForm,omitempty"`
	ProductDimensions string         `json:"productDimensions,omitempty"`
	TopReviews        []AmazonReview `json:"topReviews,omitempty"`
}

// Key implements Keyed
func (d AmazonDetailItem) Key() string { return d.ASIN }

// AmazonReview is one customer review
type AmazonReview struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Title    string   `json:"title"`
	Rating   string   `json:"rating"`
	DateInfo string   `json:"dateInfo"`
	Content  string   `json:"content"`
	ImageSrc []string `json:"imageSrc,omitempty"`
}

// ReviewKey implements Review
func (r AmazonReview) ReviewKey() string { return r.ID }

// ReviewDate implements Review
func (r AmazonReview) ReviewDate() time.Time { return ParseReviewDate(r.DateInfo) }

// AmazonItem joins the search and detail views of one ASIN
type AmazonItem struct {
	ASIN      string            `json:"asin"`
	Search    *AmazonSearchItem `json:"search,omitempty"`
	Detail    *AmazonDetailItem `json:"detail,omitempty"`
	HasDetail bool              `json:"hasDetail"`
}
