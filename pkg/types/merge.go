// pkg/types/merge.go
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Keyed is a record stored under a natural identifier
type Keyed interface {
	Key() string
}

// Review is a record that can be de-duplicated and ordered by date
type Review interface {
	ReviewKey() string
	ReviewDate() time.Time
}

// MergePartial overlays the fields present in patch onto base. A field is
// present when it survives JSON encoding, so zero values tagged omitempty
// never clear what base already holds. Merging the same patch twice gives
// the same result as merging it once.
func MergePartial[T any](base, patch T) (T, error) {
	var merged T

	baseFields, err := toFields(base)
	if err != nil {
		return merged, err
	}
	patchFields, err := toFields(patch)
	if err != nil {
		return merged, err
	}
	for k, v := range patchFields {
		baseFields[k] = v
	}

	data, err := json.Marshal(baseFields)
	if err != nil {
		return merged, fmt.Errorf("failed to encode merged record: %w", err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return merged, fmt.Errorf("failed to decode merged record: %w", err)
	}
	return merged, nil
}

func toFields(v interface{}) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if string(data) == "null" {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return fields, nil
}

// MergeReviews merges incoming into existing. A review whose id is already
// present is replaced by the incoming copy; the result is ordered by review
// date, newest first, keeping the original order for equal dates.
func MergeReviews[R Review](existing, incoming []R) []R {
	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]R, 0, len(existing)+len(incoming))

	for _, r := range existing {
		if i, ok := index[r.ReviewKey()]; ok {
			merged[i] = r
			continue
		}
		index[r.ReviewKey()] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range incoming {
		if i, ok := index[r.ReviewKey()]; ok {
			merged[i] = r
			continue
		}
		index[r.ReviewKey()] = len(merged)
		merged = append(merged, r)
	}

	SortReviews(merged)
	return merged
}

// SortReviews orders reviews by date descending. Undated reviews sort last.
func SortReviews[R Review](reviews []R) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].ReviewDate().After(reviews[j].ReviewDate())
	})
}

// AppendUniqueReviews appends the incoming reviews whose id is not yet in
// list. The first copy seen wins.
func AppendUniqueReviews[R Review](list, incoming []R) []R {
	seen := make(map[string]struct{}, len(list)+len(incoming))
	for _, r := range list {
		seen[r.ReviewKey()] = struct{}{}
	}
	for _, r := range incoming {
		if _, ok := seen[r.ReviewKey()]; ok {
			continue
		}
		seen[r.ReviewKey()] = struct{}{}
		list = append(list, r)
	}
	return list
}

var reviewDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006/1/2",
}

// ParseReviewDate reads the date out of a review's date line, such as
// "Reviewed in the United States on March 4, 2024". It returns the zero
// time when no known layout matches.
func ParseReviewDate(info string) time.Time {
	s := strings.TrimSpace(info)
	if i := strings.LastIndex(s, " on "); i >= 0 {
		s = strings.TrimSpace(s[i+len(" on "):])
	}
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
