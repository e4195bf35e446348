// internal/browser/types.go
package browser

import (
	"context"
	"strings"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
)

// BrowserConfig defines how the provider reaches a browser
type BrowserConfig struct {
	// RemoteURL attaches to an already running browser through its remote
	// debugging endpoint (ws:// or http://). When empty a browser is launched.
	RemoteURL      string        `yaml:"remote_url,omitempty" json:"remote_url,omitempty"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	Headless       bool          `yaml:"headless" json:"headless"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	StartupTimeout time.Duration `yaml:"startup_timeout" json:"startup_timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       false, // sessions run in a visible window
		StartupTimeout: 30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// Tab describes an open tab
type Tab struct {
	Handle remote.Handle `json:"handle"`
	URL    string        `json:"url"`
	Title  string        `json:"title,omitempty"`
}

// Tabs manages remote execution contexts
type Tabs interface {
	// CreateContext opens a new tab on url
	CreateContext(ctx context.Context, url string) (remote.Handle, error)

	// UpdateContext navigates an existing tab
	UpdateContext(ctx context.Context, h remote.Handle, url string) error

	// CloseContext closes a tab
	CloseContext(ctx context.Context, h remote.Handle) error

	// QueryActiveContext returns the foreground tab
	QueryActiveContext(ctx context.Context) (Tab, error)

	// URL returns the current location of a tab
	URL(ctx context.Context, h remote.Handle) (string, error)
}

// Capturer renders part of a page to an image
type Capturer interface {
	// Capture returns a PNG of the first element matching selector
	Capture(ctx context.Context, h remote.Handle, selector string) ([]byte, error)
}

// Provider is everything the engine needs from a browser
type Provider interface {
	Tabs
	Capturer
	remote.Evaluator
	Close() error
}

// ProviderStats contains tab usage statistics
type ProviderStats struct {
	TabsOpened  int64 `json:"tabs_opened"`
	TabsClosed  int64 `json:"tabs_closed"`
	Navigations int64 `json:"navigations"`
	Evaluations int64 `json:"evaluations"`
	Captures    int64 `json:"captures"`
	Errors      int64 `json:"errors"`
}

var forbiddenPrefixes = []string{
	"chrome-extension://",
	"chrome-search://",
	"chrome://",
	"devtools://",
	"edge://",
	"about:",
	"https://chrome.google.com/webstore",
}

// IsForbiddenURL reports whether scripts cannot be injected into a page at
// url, in which case a fresh tab must be used instead
func IsForbiddenURL(url string) bool {
	if url == "" {
		return true
	}
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
