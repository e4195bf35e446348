// pkg/types/lowes.go
package types

import "time"

// LowesDetailItem is a Lowe's product keyed by its item id
type LowesDetailItem struct {
	OSMID        string     `json:"OSMID"`
	Link         string     `json:"link,omitempty"`
	BrandName    string     `json:"brandName,omitempty"`
	Title        string     `json:"title,omitempty"`
	Price        string     `json:"price,omitempty"`
	Rate         string     `json:"rate,omitempty"`
	ReviewCount  int        `json:"reviewCount,omitempty"`
	MainImageURL string     `json:"mainImageUrl,omitempty"`
	BoughtInfo   string     `json:"boughtInfo,omitempty"`
	ItemSeries   string     `json:"itemSeries,omitempty"`
	ModelSeries  string     `json:"modelSeries,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// Key implements Keyed
func (d LowesDetailItem) Key() string { return d.OSMID }
