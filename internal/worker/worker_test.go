// internal/worker/worker_test.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/remote/remotetest"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

type fakeTabs struct {
	mu      sync.Mutex
	active  browser.Tab
	next    int
	created []string
	updated []string
	closed  []remote.Handle
}

func (f *fakeTabs) CreateContext(_ context.Context, url string) (remote.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.created = append(f.created, url)
	return remote.Handle(fmt.Sprintf("tab-%d", f.next)), nil
}

func (f *fakeTabs) UpdateContext(_ context.Context, _ remote.Handle, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, url)
	return nil
}

func (f *fakeTabs) CloseContext(_ context.Context, h remote.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, h)
	return nil
}

func (f *fakeTabs) QueryActiveContext(context.Context) (browser.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeTabs) URL(_ context.Context, h remote.Handle) (string, error) {
	return f.active.URL, nil
}

func testDeps(tabs browser.Tabs, exec remote.Executor) Deps {
	return Deps{
		Tabs:     tabs,
		Executor: exec,
		Walker: walker.Options{
			Timeout: time.Second,
			Poll:    walker.Poll{Interval: time.Millisecond, MaxRounds: 5},
		},
		MaxPages: 10,
	}
}

type collector struct {
	mu       sync.Mutex
	payloads map[string][]interface{}
}

func collect(b *Base, names ...string) *collector {
	c := &collector{payloads: make(map[string][]interface{})}
	for _, name := range names {
		name := name
		b.On(name, func(_ context.Context, payload interface{}) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.payloads[name] = append(c.payloads[name], payload)
			return nil
		})
	}
	return c
}

func (c *collector) get(name string) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[name]
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveInput(site, traversal, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, site+"/"+traversal+"/"+outcome)
}

func (r *outcomeRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func listings(n int, prefix string) []walker.Listing {
	out := make([]walker.Listing, n)
	for i := range out {
		asin := fmt.Sprintf("B0%s%07d", prefix, i)
		out[i] = walker.Listing{
			Link:  "https://www.amazon.com/item/dp/" + asin,
			Title: "Item " + asin,
		}
	}
	return out
}

func TestParseCategoryRanks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []types.CategoryRank
	}{
		{
			name: "two ranks",
			text: "Best Sellers Rank: #1,234 in Home & Kitchen (See Top 100 in Home & Kitchen)\n#5 in Desk Lamps",
			want: []types.CategoryRank{{Name: "Home & Kitchen", Rank: 1234}, {Name: "Desk Lamps", Rank: 5}},
		},
		{
			name: "one rank",
			text: "#87 in Kitchen & Dining (See Top 100 in Kitchen & Dining)",
			want: []types.CategoryRank{{Name: "Kitchen & Dining", Rank: 87}},
		},
		{
			name: "extra ranks ignored",
			text: "#1 in A #2 in B #3 in C",
			want: []types.CategoryRank{{Name: "A", Rank: 1}, {Name: "B", Rank: 2}},
		},
		{name: "none", text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategoryRanks(tt.text))
		})
	}
}

func TestParseEntry(t *testing.T) {
	asin, link, err := ParseEntry("B0ABCDEF12")
	require.NoError(t, err)
	assert.Equal(t, "B0ABCDEF12", asin)
	assert.Equal(t, "https://www.amazon.com/dp/B0ABCDEF12", link)

	asin, link, err = ParseEntry("https://www.amazon.com/Desk-Lamp/dp/B0ABCDEF34?th=1")
	require.NoError(t, err)
	assert.Equal(t, "B0ABCDEF34", asin)
	assert.Equal(t, "https://www.amazon.com/Desk-Lamp/dp/B0ABCDEF34?th=1", link)

	_, _, err = ParseEntry("desk lamp")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeInvalidInput, utils.CodeOf(err))
}

func TestParseLowesURL(t *testing.T) {
	id, err := ParseLowesURL("https://www.lowes.com/pd/Scotts-Mulch/1000123456")
	require.NoError(t, err)
	assert.Equal(t, "1000123456", id)

	_, err = ParseLowesURL("https://www.homedepot.com/p/1000123456")
	assert.Error(t, err)
	_, err = ParseLowesURL("https://www.lowes.com/pl/mulch")
	assert.Error(t, err)
}

func TestSameSearch(t *testing.T) {
	assert.True(t, sameSearch("https://www.amazon.com/s?k=desk+lamp&page=2", SearchURL("desk lamp")))
	assert.False(t, sameSearch("https://www.amazon.com/s?k=lamp", SearchURL("desk lamp")))
	assert.False(t, sameSearch("https://www.amazon.com/", SearchURL("desk lamp")))
}

func TestRunSearchPageTaskContinuousRanks(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("amazon/search_probe", map[string]interface{}{"next": true, "complete": true, "spinners": 0})
	exec.Return("amazon/search_pattern", "pattern-2")
	exec.Return("amazon/search_data", listings(20, "A"), listings(15, "B"))
	exec.Return("amazon/search_current_page", 1, 2)
	exec.Return("amazon/search_next_page", true, false)
	tabs := &fakeTabs{active: browser.Tab{Handle: "tab-0", URL: "chrome://newtab/"}}

	w := NewAmazonWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventItemLinksCollected, EventError)

	var progress [][]string
	err := w.RunSearchPageTask(context.Background(), []string{"desk lamp"}, TaskOptions{
		Progress: func(remains []string) { progress = append(progress, remains) },
	})
	require.NoError(t, err)

	assert.Empty(t, c.get(EventError))
	pages := c.get(EventItemLinksCollected)
	require.Len(t, pages, 2)

	var ranks []int
	for _, p := range pages {
		for _, item := range p.(LinksCollected).Objs {
			ranks = append(ranks, item.Rank)
			assert.Equal(t, "desk lamp", item.Keywords)
			assert.True(t, walker.IsASIN(item.ASIN))
		}
	}
	require.Len(t, ranks, 35)
	for i, r := range ranks {
		assert.Equal(t, i+1, r)
	}
	assert.Equal(t, 2, pages[1].(LinksCollected).Objs[0].Page)

	// forbidden active tab is replaced by a new one, then navigated
	assert.Equal(t, []string{"https://www.amazon.com/"}, tabs.created)
	assert.Equal(t, []string{SearchURL("desk lamp")}, tabs.updated)
	require.Len(t, progress, 1)
	assert.Empty(t, progress[0])

	status := w.Status()
	assert.Equal(t, types.StatusCompleted, status.State)
	assert.Equal(t, 1, status.Processed)
}

func TestRunSearchPageTaskStopMidPagination(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("amazon/search_probe", map[string]interface{}{"next": true, "complete": true, "spinners": 0})
	exec.Return("amazon/search_pattern", "pattern-2")
	exec.Return("amazon/search_data", listings(20, "A"))
	exec.Return("amazon/search_current_page", 1)
	exec.Return("amazon/search_next_page", true)
	tabs := &fakeTabs{active: browser.Tab{Handle: "tab-0", URL: "https://www.amazon.com/"}}

	w := NewAmazonWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventItemLinksCollected, EventError)
	exec.Hook(func(call remotetest.Call) {
		if call.Script == "amazon/search_next_page" {
			w.Stop()
		}
	})

	err := w.RunSearchPageTask(context.Background(), []string{"desk lamp", "floor lamp"}, TaskOptions{})
	require.NoError(t, err)

	assert.Empty(t, c.get(EventError))
	assert.Len(t, c.get(EventItemLinksCollected), 1)
	assert.Len(t, exec.Calls("amazon/search_next_page"), 1)
	assert.Equal(t, []string{SearchURL("desk lamp")}, tabs.updated)

	status := w.Status()
	assert.Equal(t, types.StatusCancelled, status.State)
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, 1, status.Remaining)
	assert.False(t, w.Interrupted())
}

func TestDoSearchSkipsNavigationWhenShown(t *testing.T) {
	tabs := &fakeTabs{active: browser.Tab{Handle: "tab-0", URL: "https://www.amazon.com/s?k=desk+lamp&page=3"}}
	w := NewAmazonWorker(testDeps(tabs, remotetest.NewExecutor()))

	h, err := w.DoSearch(context.Background(), "desk lamp")
	require.NoError(t, err)
	assert.Equal(t, remote.Handle("tab-0"), h)
	assert.Empty(t, tabs.created)
	assert.Empty(t, tabs.updated)
}

func TestRunDetailPageTaskSkipsUnavailable(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.On("amazon/detail_probe", func(h remote.Handle, _ json.RawMessage) (interface{}, error) {
		if h == "tab-1" {
			return "unavailable", nil
		}
		return "ready", nil
	})
	exec.Return("amazon/detail_base_info", map[string]string{"title": " Desk  Lamp ", "price": "$19.99"})
	exec.Return("amazon/detail_rating", map[string]string{"rating": "4.5 out of 5 stars", "ratingCount": "1,234 ratings"})
	exec.Return("amazon/detail_rank_text", "#1,234 in Home & Kitchen (See Top 100 in Home & Kitchen) #5 in Desk Lamps")
	exec.Return("amazon/detail_image_urls", []string{"https://m.media-amazon.com/1.jpg", "https://m.media-amazon.com/1.jpg"})
	tabs := &fakeTabs{}
	observer := &outcomeRecorder{}

	deps := testDeps(tabs, exec)
	deps.Observer = observer
	w := NewAmazonWorker(deps)
	c := collect(&w.Base, EventItemBaseInfoCollected, EventItemCategoryRankCollected, EventItemImagesCollected, EventError)

	err := w.RunDetailPageTask(context.Background(), []string{"B0ABCDEF12", "B0ABCDEF34"}, DetailOptions{})
	require.NoError(t, err)

	assert.Empty(t, c.get(EventError))
	base := c.get(EventItemBaseInfoCollected)
	require.Len(t, base, 1)
	item := base[0].(types.AmazonDetailItem)
	assert.Equal(t, "B0ABCDEF34", item.ASIN)
	assert.Equal(t, "Desk Lamp", item.Title)
	assert.Equal(t, 4.5, item.Rating)
	assert.Equal(t, 1234, item.RatingCount)
	assert.NotNil(t, item.Timestamp)

	ranks := c.get(EventItemCategoryRankCollected)
	require.Len(t, ranks, 1)
	rank := ranks[0].(types.AmazonDetailItem)
	assert.Equal(t, &types.CategoryRank{Name: "Home & Kitchen", Rank: 1234}, rank.Category1)
	assert.Equal(t, &types.CategoryRank{Name: "Desk Lamps", Rank: 5}, rank.Category2)

	images := c.get(EventItemImagesCollected)
	require.Len(t, images, 1)
	assert.Len(t, images[0].(types.AmazonDetailItem).ImageURLs, 1)

	status := w.Status()
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 1, status.Skipped)
	assert.Equal(t, 0, status.Failed)
	assert.Len(t, tabs.closed, 2)

	// one outcome per input
	assert.Equal(t, []string{"amazon/detail/skipped", "amazon/detail/success"}, observer.get())
}

func TestWanderDetailPageTopReviews(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("amazon/detail_probe", "ready")
	exec.Return("amazon/detail_base_info", map[string]string{"title": "Desk Lamp"})
	exec.Return("amazon/detail_rating", map[string]string{})
	exec.Return("amazon/detail_rank_text", "")
	exec.Return("amazon/detail_image_urls", []string{})
	exec.Return("amazon/detail_top_reviews", []types.AmazonReview{{ID: "R1", Title: "Bright"}})
	w := NewAmazonWorker(testDeps(&fakeTabs{}, exec))
	c := collect(&w.Base, EventItemTopReviewsCollected, EventItemReviewCollected, EventError)

	require.NoError(t, w.WanderDetailPage(context.Background(), "B0ABCDEF12", DetailOptions{TopReviews: true}))

	assert.Empty(t, c.get(EventError))
	assert.Empty(t, c.get(EventItemReviewCollected))
	top := c.get(EventItemTopReviewsCollected)
	require.Len(t, top, 1)
	item := top[0].(types.AmazonDetailItem)
	assert.Equal(t, "B0ABCDEF12", item.ASIN)
	require.Len(t, item.TopReviews, 1)
	assert.Equal(t, "R1", item.TopReviews[0].ID)
}

func TestRunDetailPageTaskReportsBadInputAndContinues(t *testing.T) {
	exec := remotetest.NewExecutor().Return("amazon/detail_probe", "unavailable")
	tabs := &fakeTabs{}
	w := NewAmazonWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventError)

	err := w.RunDetailPageTask(context.Background(), []string{"not an asin", "B0ABCDEF12"}, DetailOptions{})
	require.NoError(t, err)

	errs := c.get(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, string(utils.ErrCodeInvalidInput), errs[0].(ErrorEvent).Code)
	assert.Equal(t, "not an asin", errs[0].(ErrorEvent).URL)
	assert.Len(t, tabs.created, 1)
	assert.Equal(t, 1, w.Status().Failed)
}

func TestWanderDetailPageRemoteFailureEmitsError(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("amazon/detail_probe", "ready")
	exec.Fail("amazon/detail_base_info", fmt.Errorf("boom"))
	tabs := &fakeTabs{}
	w := NewAmazonWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventError)

	err := w.WanderDetailPage(context.Background(), "B0ABCDEF12", DetailOptions{})
	require.Error(t, err)
	require.Len(t, c.get(EventError), 1)
	assert.Equal(t, "https://www.amazon.com/dp/B0ABCDEF12", c.get(EventError)[0].(ErrorEvent).URL)
	assert.Len(t, tabs.closed, 1)
}

func TestRunReviewPageTaskStopMidStar(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("amazon/review_probe", map[string]bool{"listed": true, "loading": false})
	exec.Return("amazon/review_dropdown", true)
	exec.Return("amazon/review_select_star", true)
	exec.Return("amazon/review_page", []types.AmazonReview{{ID: "R1", Title: "ok"}})
	exec.Return("amazon/review_next_page", true)
	tabs := &fakeTabs{}

	deps := testDeps(tabs, exec)
	deps.MaxPages = 3
	w := NewAmazonWorker(deps)
	c := collect(&w.Base, EventItemReviewCollected)

	var mu sync.Mutex
	var stars []int
	exec.Hook(func(call remotetest.Call) {
		if call.Script != "amazon/review_select_star" {
			return
		}
		var p struct {
			Star int `json:"star"`
		}
		_ = json.Unmarshal(call.Payload, &p)
		mu.Lock()
		stars = append(stars, p.Star)
		mu.Unlock()
		if p.Star == 3 {
			w.Stop()
		}
	})

	err := w.RunReviewPageTask(context.Background(), []string{"B0ABCDEF12", "B0ABCDEF34"}, ReviewOptions{Recent: true})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, stars)
	// stars 1 and 2 each hit the page cap
	assert.Len(t, c.get(EventItemReviewCollected), 6)
	assert.Equal(t, []string{ReviewURL("B0ABCDEF12", true)}, tabs.created)
	assert.Equal(t, types.StatusCancelled, w.Status().State)
	assert.False(t, w.Interrupted())
}

func TestRunWhileBusy(t *testing.T) {
	w := NewAmazonWorker(testDeps(&fakeTabs{}, remotetest.NewExecutor()))
	w.running.Store(true)

	err := w.RunSearchPageTask(context.Background(), []string{"lamp"}, TaskOptions{})
	assert.ErrorIs(t, err, ErrWorkerBusy)
}

func TestStopWhileIdleDoesNotLeak(t *testing.T) {
	exec := remotetest.NewExecutor().Return("amazon/detail_probe", "unavailable")
	w := NewAmazonWorker(testDeps(&fakeTabs{}, exec))

	w.Stop()
	require.NoError(t, w.RunDetailPageTask(context.Background(), []string{"B0ABCDEF12"}, DetailOptions{}))
	assert.Equal(t, 1, w.Status().Processed)
	assert.Equal(t, types.StatusCompleted, w.Status().State)
}

func TestRunCancelledContext(t *testing.T) {
	w := NewAmazonWorker(testDeps(&fakeTabs{}, remotetest.NewExecutor()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.RunDetailPageTask(ctx, []string{"B0ABCDEF12"}, DetailOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StatusCancelled, w.Status().State)
	assert.Equal(t, 0, w.Status().Processed)
}

func TestHomedepotReviewsGetStableIDs(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("homedepot/detail_probe", map[string]bool{"skip": false, "marker": true, "complete": true})
	exec.Return("homedepot/detail_info", map[string]string{"title": "Cordless Drill", "rate": "4.7 out of 5"})
	exec.Return("homedepot/detail_image_urls", []string{"https://img/1.jpg"})
	exec.Return("homedepot/review_probe", true)
	exec.Return("homedepot/reviews", []types.HomedepotReview{
		{Username: "pat", Title: "Solid", DateInfo: "Jan 2, 2024"},
		{Username: "sam", Title: "Meh", DateInfo: "Jan 3, 2024"},
	})
	exec.Return("homedepot/review_pager", map[string]string{"final": "1", "anchor": "1"})
	tabs := &fakeTabs{}

	w := NewHomedepotWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventDetailItemCollected, EventReviewCollected)

	err := w.RunDetailPageTask(context.Background(), []string{"315000000"}, HomedepotOptions{Review: true})
	require.NoError(t, err)

	items := c.get(EventDetailItemCollected)
	require.Len(t, items, 1)
	item := items[0].(HomedepotItemCollected).Item
	assert.Equal(t, "315000000", item.OSMID)
	assert.Equal(t, "https://www.homedepot.com/p/315000000", item.Link)
	assert.Equal(t, []string{"https://img/1.jpg"}, item.ImageURLs)

	pages := c.get(EventReviewCollected)
	require.Len(t, pages, 1)
	reviews := pages[0].(HomedepotReviewsCollected).Reviews
	require.Len(t, reviews, 2)
	assert.Equal(t, types.HomedepotReviewID("315000000", reviews[0]), reviews[0].ID)
	assert.NotEqual(t, reviews[0].ID, reviews[1].ID)
}

func TestHomedepotStopMidReviewPagination(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("homedepot/detail_probe", map[string]bool{"skip": false, "marker": true, "complete": true})
	exec.Return("homedepot/detail_info", map[string]string{"title": "Cordless Drill"})
	exec.Return("homedepot/detail_image_urls", []string{})
	exec.Return("homedepot/review_probe", true)
	exec.Return("homedepot/reviews", []types.HomedepotReview{{Username: "pat", Title: "Solid", DateInfo: "Jan 2, 2024"}})
	var mu sync.Mutex
	anchor := 0
	exec.On("homedepot/review_pager", func(remote.Handle, json.RawMessage) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		anchor++
		return map[string]string{"final": "9", "anchor": fmt.Sprint(anchor)}, nil
	})
	exec.Return("homedepot/review_next", true)
	tabs := &fakeTabs{}

	w := NewHomedepotWorker(testDeps(tabs, exec))
	c := collect(&w.Base, EventReviewCollected, EventError)
	exec.Hook(func(call remotetest.Call) {
		if call.Script == "homedepot/review_next" {
			w.Stop()
		}
	})

	err := w.RunDetailPageTask(context.Background(), []string{"315000000", "315000001"}, HomedepotOptions{Review: true})
	require.NoError(t, err)

	assert.Empty(t, c.get(EventError))
	assert.Len(t, c.get(EventReviewCollected), 1)
	assert.Len(t, exec.Calls("homedepot/reviews"), 1)
	assert.Equal(t, []string{HomedepotURL("315000000")}, tabs.created)
	assert.Len(t, tabs.closed, 1)
	assert.Equal(t, types.StatusCancelled, w.Status().State)
}

func TestLowesWorkerEmitsDetail(t *testing.T) {
	exec := remotetest.NewExecutor()
	exec.Return("lowes/probe", true)
	exec.Return("lowes/snapshot", map[string]string{
		"url":  "https://www.lowes.com/pd/Scotts-Mulch/1000123456",
		"html": `<html><body><h1 class="product-brand-description">Scotts Mulch</h1><p>Model #88459440</p></body></html>`,
	})
	w := NewLowesWorker(testDeps(&fakeTabs{}, exec))
	c := collect(&w.Base, EventDetailBaseInfoCollected, EventError)

	err := w.RunDetailPageTask(context.Background(), []string{"https://www.lowes.com/pd/Scotts-Mulch/1000123456", "lowes mulch"}, TaskOptions{})
	require.NoError(t, err)

	items := c.get(EventDetailBaseInfoCollected)
	require.Len(t, items, 1)
	item := items[0].(LowesItemCollected).Item
	assert.Equal(t, "1000123456", item.OSMID)
	assert.Equal(t, "Scotts Mulch", item.Title)
	assert.Equal(t, "88459440", item.ModelSeries)
	assert.Len(t, c.get(EventError), 1)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(testDeps(&fakeTabs{}, remotetest.NewExecutor()))
	for _, site := range types.ValidSites() {
		w, err := r.Get(site)
		require.NoError(t, err)
		assert.Equal(t, site, w.Site())
		assert.Equal(t, types.StatusIdle, w.Status().State)
	}
	_, err := r.Get("ebay")
	assert.Error(t, err)
	r.StopAll()
}
