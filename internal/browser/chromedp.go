// internal/browser/chromedp.go
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

type tabState struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeProvider implements Provider using chromedp. Each tab gets its own
// chromedp context derived from a single browser context.
type ChromeProvider struct {
	config        *BrowserConfig
	logger        utils.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[remote.Handle]*tabState

	tabsOpened  atomic.Int64
	tabsClosed  atomic.Int64
	navigations atomic.Int64
	evaluations atomic.Int64
	captures    atomic.Int64
	errors      atomic.Int64
}

// NewChromeProvider attaches to or launches a browser
func NewChromeProvider(config *BrowserConfig, logger utils.Logger) (*ChromeProvider, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if config.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	} else {
		opts := []chromedp.ExecAllocatorOption{
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		}
		if config.Headless {
			opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
		}
		if config.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(config.ExecPath))
		}
		if config.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
		}
		if config.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(config.UserAgent))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	p := &ChromeProvider{
		config:        config,
		logger:        logger.WithField("component", "browser"),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[remote.Handle]*tabState),
	}

	// The first Run owns the browser; it must not run under a derived
	// context or cancelling that context would kill the browser.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	timeout := config.StartupTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case err := <-started:
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-time.After(timeout):
		p.Close()
		return nil, fmt.Errorf("browser did not start within %s", timeout)
	}

	p.logger.WithField("remote", config.RemoteURL != "").Info("browser ready")
	return p, nil
}

// run executes actions in tabCtx and aborts them when ctx is done
func (p *ChromeProvider) run(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		p.errors.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// tab returns the chromedp context of h, attaching to the target if the tab
// was not opened by this provider
func (p *ChromeProvider) tab(h remote.Handle) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.tabs[h]; ok {
		return state.ctx, nil
	}

	tabCtx, cancel := chromedp.NewContext(p.browserCtx, chromedp.WithTargetID(target.ID(h)))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		p.errors.Add(1)
		return nil, fmt.Errorf("failed to attach to tab %s: %w", h, err)
	}
	p.tabs[h] = &tabState{ctx: tabCtx, cancel: cancel}
	return tabCtx, nil
}

// CreateContext opens a new tab and navigates it to url
func (p *ChromeProvider) CreateContext(ctx context.Context, url string) (remote.Handle, error) {
	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		p.errors.Add(1)
		return "", fmt.Errorf("failed to open tab: %w", err)
	}

	h := remote.Handle(chromedp.FromContext(tabCtx).Target.TargetID)
	p.mu.Lock()
	p.tabs[h] = &tabState{ctx: tabCtx, cancel: cancel}
	p.mu.Unlock()
	p.tabsOpened.Add(1)

	if url != "" {
		if err := p.run(ctx, tabCtx, chromedp.Navigate(url)); err != nil {
			_ = p.CloseContext(context.Background(), h)
			return "", fmt.Errorf("navigation to %s failed: %w", url, err)
		}
		p.navigations.Add(1)
	}

	p.logger.WithFields(map[string]interface{}{"handle": h.String(), "url": url}).Debug("tab opened")
	return h, nil
}

// UpdateContext navigates h to url
func (p *ChromeProvider) UpdateContext(ctx context.Context, h remote.Handle, url string) error {
	tabCtx, err := p.tab(h)
	if err != nil {
		return err
	}
	if err := p.run(ctx, tabCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	p.navigations.Add(1)
	return nil
}

// CloseContext closes h and releases its chromedp context
func (p *ChromeProvider) CloseContext(ctx context.Context, h remote.Handle) error {
	tabCtx, err := p.tab(h)
	if err != nil {
		return err
	}
	closeErr := p.run(ctx, tabCtx, page.Close())

	p.mu.Lock()
	if state, ok := p.tabs[h]; ok {
		state.cancel()
		delete(p.tabs, h)
	}
	p.mu.Unlock()
	p.tabsClosed.Add(1)

	if closeErr != nil {
		return fmt.Errorf("failed to close tab %s: %w", h, closeErr)
	}
	return nil
}

// QueryActiveContext returns the first page target of the browser
func (p *ChromeProvider) QueryActiveContext(ctx context.Context) (Tab, error) {
	runCtx, cancel := context.WithCancel(p.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		p.errors.Add(1)
		return Tab{}, fmt.Errorf("failed to list tabs: %w", err)
	}
	for _, info := range infos {
		if info.Type == "page" {
			return Tab{Handle: remote.Handle(info.TargetID), URL: info.URL, Title: info.Title}, nil
		}
	}
	return Tab{}, fmt.Errorf("no open tab")
}

// URL returns the current location of h
func (p *ChromeProvider) URL(ctx context.Context, h remote.Handle) (string, error) {
	tabCtx, err := p.tab(h)
	if err != nil {
		return "", err
	}
	var location string
	if err := p.run(ctx, tabCtx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

// Evaluate runs expression in h, awaiting promises, and returns the JSON
// encoded result
func (p *ChromeProvider) Evaluate(ctx context.Context, h remote.Handle, expression string) ([]byte, error) {
	tabCtx, err := p.tab(h)
	if err != nil {
		return nil, err
	}
	p.evaluations.Add(1)

	var res []byte
	err = p.run(ctx, tabCtx, chromedp.Evaluate(expression, &res, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
		return params.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// WaitReady waits until the document of h has finished loading
func (p *ChromeProvider) WaitReady(ctx context.Context, h remote.Handle) error {
	tabCtx, err := p.tab(h)
	if err != nil {
		return err
	}
	var ready bool
	return p.run(ctx, tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll("document.readyState === 'complete'", &ready, chromedp.WithPollingInterval(200*time.Millisecond)),
	)
}

// Capture returns a PNG of the first element matching selector
func (p *ChromeProvider) Capture(ctx context.Context, h remote.Handle, selector string) ([]byte, error) {
	tabCtx, err := p.tab(h)
	if err != nil {
		return nil, err
	}
	var buf []byte
	if err := p.run(ctx, tabCtx, chromedp.ScrollIntoView(selector, chromedp.ByQuery), chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capture of %s failed: %w", selector, err)
	}
	p.captures.Add(1)
	return buf, nil
}

// RegisterBridge serves the bridge operations backed by this browser
func (p *ChromeProvider) RegisterBridge(b *remote.Bridge) {
	RegisterCapture(b, p)
}

// RegisterCapture serves dom-to-image requests with c
func RegisterCapture(b *remote.Bridge, c Capturer) {
	b.Register(remote.OpDOMToImage, func(ctx context.Context, h remote.Handle, payload json.RawMessage) (interface{}, error) {
		var req remote.DOMToImageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("invalid dom-to-image request: %w", err)
		}
		if req.Selector == "" {
			return nil, fmt.Errorf("dom-to-image request without selector")
		}
		png, err := c.Capture(ctx, h, req.Selector)
		if err != nil {
			return nil, err
		}
		return remote.DOMToImageResponse{B64: base64.StdEncoding.EncodeToString(png)}, nil
	})
}

// Stats returns tab usage statistics
func (p *ChromeProvider) Stats() ProviderStats {
	return ProviderStats{
		TabsOpened:  p.tabsOpened.Load(),
		TabsClosed:  p.tabsClosed.Load(),
		Navigations: p.navigations.Load(),
		Evaluations: p.evaluations.Load(),
		Captures:    p.captures.Load(),
		Errors:      p.errors.Load(),
	}
}

// Close releases every tab context and the browser
func (p *ChromeProvider) Close() error {
	p.mu.Lock()
	for h, state := range p.tabs {
		state.cancel()
		delete(p.tabs, h)
	}
	p.mu.Unlock()

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	return nil
}
