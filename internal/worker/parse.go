// internal/worker/parse.go
package worker

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

var (
	categoryRankRegex = regexp.MustCompile(`#([0-9,]+)\s+in\s+(\S[\s\w',.&()\-]+)`)
	seeTopRegex       = regexp.MustCompile(`\s*\(See\s+Top[^)]*\)`)
	amazonDetailURL   = regexp.MustCompile(`^https?://(www\.)?amazon\.com/.*dp/[A-Z0-9]{10}`)
	lowesItemID       = regexp.MustCompile(`^\d{4,}$`)
)

// ParseCategoryRanks extracts up to two best sellers ranks from the rank
// text of a detail page, e.g. "#1,234 in Home & Kitchen (See Top 100 in
// Home & Kitchen) #5 in Desk Lamps".
func ParseCategoryRanks(text string) []types.CategoryRank {
	var ranks []types.CategoryRank
	for _, m := range categoryRankRegex.FindAllStringSubmatch(text, -1) {
		rank, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(seeTopRegex.ReplaceAllString(m[2], ""))
		if name == "" {
			continue
		}
		ranks = append(ranks, types.CategoryRank{Name: name, Rank: rank})
		if len(ranks) == 2 {
			break
		}
	}
	return ranks
}

// ParseEntry accepts a bare ASIN or an Amazon detail page URL and returns
// the ASIN with the URL to open
func ParseEntry(entry string) (asin, link string, err error) {
	entry = strings.TrimSpace(entry)
	switch {
	case amazonDetailURL.MatchString(entry):
		return walker.ExtractASIN(entry), entry, nil
	case walker.IsASIN(entry):
		return entry, amazonBaseURL + "/dp/" + entry, nil
	}
	return "", "", utils.NewError(utils.ErrCodeInvalidInput, "not an ASIN or amazon detail url").
		WithContext("entry", entry).
		Build()
}

// SearchURL builds the result page URL for keywords
func SearchURL(keywords string) string {
	return amazonBaseURL + "/s?" + url.Values{"k": {keywords}}.Encode()
}

// ReviewURL builds the review listing URL of asin
func ReviewURL(asin string, recent bool) string {
	u := amazonBaseURL + "/product-reviews/" + asin + "/"
	if recent {
		u += "?" + url.Values{"sortBy": {"recent"}}.Encode()
	}
	return u
}

// sameSearch reports whether current already shows the results for target
func sameSearch(current, target string) bool {
	cu, err := url.Parse(current)
	if err != nil {
		return false
	}
	tu, err := url.Parse(target)
	if err != nil {
		return false
	}
	return cu.Host == tu.Host && cu.Path == tu.Path && cu.Query().Get("k") == tu.Query().Get("k")
}

// HomedepotURL builds the product page URL of osmid
func HomedepotURL(osmid string) string {
	return homedepotBaseURL + "/p/" + osmid
}

// ParseLowesURL validates a Lowe's product URL and returns its item id,
// the last numeric path segment
func ParseLowesURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.HasSuffix(u.Hostname(), "lowes.com") {
		return "", utils.NewError(utils.ErrCodeInvalidInput, "not a lowes url").
			WithContext("url", raw).
			Build()
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if !lowesItemID.MatchString(id) {
		return "", utils.NewError(utils.ErrCodeInvalidInput, "lowes url has no item id").
			WithContext("url", raw).
			Build()
	}
	return id, nil
}
