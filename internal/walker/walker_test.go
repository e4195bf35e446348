// internal/walker/walker_test.go
package walker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/remote/remotetest"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

func fastOptions() Options {
	return Options{
		Timeout: time.Second,
		Poll:    Poll{Interval: time.Millisecond, MaxRounds: 5},
	}
}

func TestEmbeddedScriptsAreExpressions(t *testing.T) {
	scripts := []remote.Script{
		amazonSearchProbe, amazonSearchData, amazonDetailProbe, amazonReviewSelectStar,
		homedepotDetailProbe, homedepotReviews, lowesSnapshot,
	}
	for _, s := range scripts {
		assert.NotEmpty(t, s.Source, s.Name)
		assert.Contains(t, s.Source[:12], "async", s.Name)
		assert.False(t, strings.HasSuffix(s.Source, ";"), s.Name)
	}
}

func TestPollUntil(t *testing.T) {
	calls := 0
	ok, err := Poll{Interval: time.Millisecond, MaxRounds: 10}.Until(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollExhaustionIsNotAnError(t *testing.T) {
	calls := 0
	ok, err := Poll{Interval: time.Millisecond, MaxRounds: 4}.Until(context.Background(), func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, calls)
}

func TestPollMaxDuration(t *testing.T) {
	start := time.Now()
	ok, err := Poll{Interval: 5 * time.Millisecond, MaxDuration: 30 * time.Millisecond}.Until(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollStopsOnErrorAndCancel(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll{Interval: time.Millisecond, MaxRounds: 4}.Until(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Poll{Interval: time.Second, MaxRounds: 4}.Until(ctx, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "Desk Lamp 2 pack", CleanText("  Desk Lamp \n\t２ pack "))
	assert.Equal(t, 4.5, ParseFloatPrefix("4.5 out of 5 stars"))
	assert.Equal(t, 12345, ParseIntPrefix("12,345 ratings"))
	assert.Equal(t, 0, ParseIntPrefix("no ratings"))
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "", "b", "a"}))
}

func TestASIN(t *testing.T) {
	assert.Equal(t, "B0ABCDEF12", ExtractASIN("https://www.amazon.com/Desk-Lamp/dp/B0ABCDEF12/ref=sr_1_1"))
	assert.Equal(t, "", ExtractASIN("https://www.amazon.com/gp/slredirect/picassoRedirect.html"))
	assert.Equal(t, "", ExtractASIN("/dp/b0abcdef12"))
	assert.True(t, IsASIN("B0ABCDEF12"))
	assert.False(t, IsASIN("B0ABCDEF1"))
	assert.True(t, IsProductLink("https://www.amazon.com/x/dp/B0ABCDEF12"))
	assert.False(t, IsProductLink("/x/dp/B0ABCDEF12"))
}

func TestAmazonSearchWaitForLoaded(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return(amazonSearchProbe.Name,
		map[string]interface{}{"next": false, "complete": false, "spinners": 0},
		map[string]interface{}{"next": true, "complete": false, "spinners": 2},
		map[string]interface{}{"next": true, "complete": true, "spinners": 1},
		map[string]interface{}{"next": true, "complete": true, "spinners": 0},
	)
	page := NewAmazonSearchPage(exec, "tab", fastOptions())

	ok, err := page.WaitForLoaded(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, exec.Count(amazonSearchProbe.Name))
}

func TestAmazonSearchPageData(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.On(amazonSearchData.Name, func(h remote.Handle, payload json.RawMessage) (interface{}, error) {
		var p map[string]string
		_ = json.Unmarshal(payload, &p)
		if p["pattern"] != string(PatternGrid) {
			return nil, errors.New("wrong pattern")
		}
		return []Listing{
			{Link: "https://www.amazon.com/Lamp/dp/B0ABCDEF12/ref=sr_1_1", Title: " Lamp One ", Price: "$19.99"},
			{Link: "https://www.amazon.com/sspa/click?ie=UTF8", Title: "Sponsored"},
			{Link: "https://www.amazon.com/Lamp/dp/B0ABCDEF34", Title: "Lamp Two"},
		}, nil
	})
	page := NewAmazonSearchPage(exec, "tab", fastOptions())

	listings, err := page.PageData(context.Background(), PatternGrid)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Lamp One", listings[0].Title)
	assert.Equal(t, "Lamp Two", listings[1].Title)
}

func TestAmazonSearchPatternUnknown(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonSearchPattern.Name, "unknown")
	page := NewAmazonSearchPage(exec, "tab", fastOptions())

	_, err := page.PagePattern(context.Background())
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodePatternUnknown, utils.CodeOf(err))
}

func TestAmazonDetailWaitForLoadedUnavailable(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonDetailProbe.Name, "loading", "unavailable")
	page := NewAmazonDetailPage(exec, "tab", fastOptions())

	ok, err := page.WaitForLoaded(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAmazonDetailWaitForLoadedNeverReady(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonDetailProbe.Name, "loading")
	page := NewAmazonDetailPage(exec, "tab", fastOptions())

	ok, err := page.WaitForLoaded(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, exec.Count(amazonDetailProbe.Name))
}

func TestAmazonDetailRatingInfo(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonDetailRating.Name,
		map[string]string{"rating": "4.6 out of 5 stars", "ratingCount": "1,024 ratings"})
	page := NewAmazonDetailPage(exec, "tab", fastOptions())

	info, err := page.RatingInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.6, info.Rating)
	assert.Equal(t, 1024, info.RatingCount)

	empty := NewAmazonDetailPage(remotetest.NewExecutor().Return(amazonDetailRating.Name, map[string]string{}), "tab", fastOptions())
	info, err = empty.RatingInfo(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.Rating)
	assert.Zero(t, info.RatingCount)
}

func TestAmazonDetailScanAPlus(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonDetailAPlusProbe.Name,
		map[string]bool{"present": true, "done": false},
		map[string]bool{"present": true, "done": false},
		map[string]bool{"present": true, "done": true},
	)
	page := NewAmazonDetailPage(exec, "tab", fastOptions())

	ok, err := page.ScanAPlus(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	none := NewAmazonDetailPage(remotetest.NewExecutor().Return(amazonDetailAPlusProbe.Name, map[string]bool{"present": false}), "tab", fastOptions())
	ok, err = none.ScanAPlus(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAmazonReviewSelectStarMissing(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonReviewSelectStar.Name, false)
	page := NewAmazonReviewPage(exec, "tab", fastOptions())

	err := page.SelectStar(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNavigationFailed, utils.CodeOf(err))

	calls := exec.Calls(amazonReviewSelectStar.Name)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"star":3}`, string(calls[0].Payload))
}

func TestAmazonReviewSinglePageDropsAnonymous(t *testing.T) {
	exec := remotetest.NewExecutor().Return(amazonReviewPage.Name, []map[string]interface{}{
		{"id": "R1", "username": "Ann", "title": " Great ", "dateInfo": "Reviewed in the United States on May 1, 2024"},
		{"id": "", "username": "ghost"},
	})
	page := NewAmazonReviewPage(exec, "tab", fastOptions())

	reviews, err := page.SinglePageReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Great", reviews[0].Title)
}

func TestHomedepotWaitForLoaded(t *testing.T) {
	exec := remotetest.NewExecutor().Return(homedepotDetailProbe.Name,
		map[string]bool{"skip": false, "marker": false, "complete": true},
		map[string]bool{"skip": false, "marker": true, "complete": true},
	)
	page := NewHomedepotDetailPage(exec, "tab", fastOptions())
	ok, err := page.WaitForLoaded(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	skip := remotetest.NewExecutor().Return(homedepotDetailProbe.Name, map[string]bool{"skip": true})
	page = NewHomedepotDetailPage(skip, "tab", fastOptions())
	ok, err = page.WaitForLoaded(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHomedepotInfo(t *testing.T) {
	exec := remotetest.NewExecutor().Return(homedepotDetailInfo.Name, map[string]string{
		"link":        "https://www.homedepot.com/p/315000000",
		"title":       "Cordless Drill",
		"price":       "$99.00",
		"rate":        "4.7 out of 5",
		"reviewCount": "(1,204)",
		"modelInfo":   "Model # DCD777C2",
	})
	page := NewHomedepotDetailPage(exec, "tab", fastOptions())

	item, err := page.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.7", item.Rate)
	assert.Equal(t, 1204, item.ReviewCount)
	assert.Equal(t, "DCD777C2", item.ModelInfo)
}

func TestHomedepotImageURLs(t *testing.T) {
	exec := remotetest.NewExecutor().Return(homedepotDetailImageURLs.Name, []string{`"https://img/1.jpg"`, `"https://img/1.jpg"`, `"https://img/2.jpg"`})
	page := NewHomedepotDetailPage(exec, "tab", fastOptions())

	urls, err := page.ImageURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, urls)
}

func TestHomedepotTryJumpToNextPage(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return(homedepotReviewPager.Name,
		map[string]string{"final": "30", "anchor": "10"},
		map[string]string{"final": "30", "anchor": "10"},
		map[string]string{"final": "30", "anchor": "20"},
	)
	exec.Return(homedepotReviewNext.Name, true)
	page := NewHomedepotDetailPage(exec, "tab", fastOptions())

	moved, err := page.TryJumpToNextPage(context.Background())
	require.NoError(t, err)
	assert.True(t, moved)

	last := remotetest.NewExecutor().Return(homedepotReviewPager.Name, map[string]string{"final": "30", "anchor": "30"})
	page = NewHomedepotDetailPage(last, "tab", fastOptions())
	moved, err = page.TryJumpToNextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 0, last.Count(homedepotReviewNext.Name))
}

const lowesFixture = `<html><body>
<h1 class="product-brand-description">Bagged  Mulch
 2-cu ft</h1>
<div data-component-name="RatingsNLinks"><a href="#"><span class="label">Scotts</span></a></div>
<div data-component-name="ExclusiveBadge">500+ bought</div>
<span class="screen-reader">$3.98
</span>
<span class="avgrating">4.3</span>
<div data-testid="rating-trigger"><div><div><span>2,315</span></div></div></div>
<div id="mfe-gallery"><img class="productImage tile-img" src="https://mobileimages.lowes.com/1.jpg"></div>
<p>Item #1234567 |</p>
<p>Model #88459440</p>
</body></html>`

func TestParseLowesDetail(t *testing.T) {
	item, err := ParseLowesDetail(lowesFixture)
	require.NoError(t, err)

	assert.Equal(t, "Bagged Mulch 2-cu ft", item.Title)
	assert.Equal(t, "Scotts", item.BrandName)
	assert.Equal(t, "500+ bought", item.BoughtInfo)
	assert.Equal(t, "$3.98", item.Price)
	assert.Equal(t, "4.3", item.Rate)
	assert.Equal(t, 2315, item.ReviewCount)
	assert.Equal(t, "https://mobileimages.lowes.com/1.jpg", item.MainImageURL)
	assert.Equal(t, "1234567", item.ItemSeries)
	assert.Equal(t, "88459440", item.ModelSeries)
}

func TestParseLowesDetailWithoutTitle(t *testing.T) {
	_, err := ParseLowesDetail("<html><body><p>nothing</p></body></html>")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeExtractionFailed, utils.CodeOf(err))
}

func TestLowesBaseInfo(t *testing.T) {
	exec := remotetest.NewExecutor().Return(lowesSnapshot.Name, map[string]string{
		"url":  "https://www.lowes.com/pd/mulch/1000",
		"html": lowesFixture,
	})
	page := NewLowesDetailPage(exec, "tab", fastOptions())

	item, err := page.BaseInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://www.lowes.com/pd/mulch/1000", item.Link)
	assert.Equal(t, "1234567", item.ItemSeries)
}
