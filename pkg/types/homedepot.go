// pkg/types/homedepot.go
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HomedepotDetailItem is a Home Depot product keyed by its OSM id
type HomedepotDetailItem struct {
	OSMID        string     `json:"OSMID"`
	Link         string     `json:"link,omitempty"`
	BrandName    string     `json:"brandName,omitempty"`
	Title        string     `json:"title,omitempty"`
	Price        string     `json:"price,omitempty"`
	Rate         string     `json:"rate,omitempty"`
	ReviewCount  int        `json:"reviewCount,omitempty"`
	MainImageURL string     `json:"mainImageUrl,omitempty"`
	ImageURLs    []string   `json:"imageUrls,omitempty"`
	ModelInfo    string     `json:"modelInfo,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// Key implements Keyed
func (d HomedepotDetailItem) Key() string { return d.OSMID }

// HomedepotReview is one Home Depot customer review
type HomedepotReview struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Title     string   `json:"title"`
	Rating    string   `json:"rating"`
	DateInfo  string   `json:"dateInfo"`
	Content   string   `json:"content"`
	Badges    []string `json:"badges,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

// ReviewKey implements Review
func (r HomedepotReview) ReviewKey() string { return r.ID }

// ReviewDate implements Review
func (r HomedepotReview) ReviewDate() time.Time { return ParseReviewDate(r.DateInfo) }

// HomedepotReviewID derives a stable id for a review, since the site does
// not expose one.
func HomedepotReviewID(osmid string, r HomedepotReview) string {
	name := strings.Join([]string{osmid, r.Username, r.DateInfo, r.Title}, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
