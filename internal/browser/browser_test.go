// internal/browser/browser_test.go
package browser

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/remote"
)

func TestDefaultBrowserConfig(t *testing.T) {
	config := DefaultBrowserConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}

	if config.Headless {
		t.Error("Expected a visible browser by default")
	}

	if config.RemoteURL != "" {
		t.Error("Expected no remote url by default")
	}

	if config.ViewportWidth != 1920 {
		t.Errorf("Expected viewport width 1920, got %d", config.ViewportWidth)
	}

	if config.StartupTimeout != 30*time.Second {
		t.Errorf("Expected startup timeout 30s, got %s", config.StartupTimeout)
	}
}

func TestIsForbiddenURL(t *testing.T) {
	tests := []struct {
		url       string
		forbidden bool
	}{
		{"", true},
		{"chrome://newtab/", true},
		{"chrome-extension://abc/sidepanel.html", true},
		{"devtools://devtools/bundled/inspector.html", true},
		{"about:blank", true},
		{"https://chrome.google.com/webstore/detail/x", true},
		{"https://www.amazon.com/s?k=desk", false},
		{"http://localhost:8080/", false},
	}

	for _, tt := range tests {
		if got := IsForbiddenURL(tt.url); got != tt.forbidden {
			t.Errorf("IsForbiddenURL(%q) = %v, want %v", tt.url, got, tt.forbidden)
		}
	}
}

type fakeCapturer struct {
	selector string
}

func (f *fakeCapturer) Capture(ctx context.Context, h remote.Handle, selector string) ([]byte, error) {
	f.selector = selector
	return []byte("png-bytes"), nil
}

func TestRegisterCapture(t *testing.T) {
	bridge := remote.NewBridge(time.Second)
	capturer := &fakeCapturer{}
	RegisterCapture(bridge, capturer)

	var resp remote.DOMToImageResponse
	err := bridge.Request(context.Background(), "tab-1", remote.OpDOMToImage, remote.DOMToImageRequest{Selector: "#aplus"}, &resp)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if capturer.selector != "#aplus" {
		t.Errorf("Expected selector #aplus, got %q", capturer.selector)
	}

	decoded, err := base64.StdEncoding.DecodeString(resp.B64)
	if err != nil {
		t.Fatalf("Invalid base64: %v", err)
	}
	if string(decoded) != "png-bytes" {
		t.Errorf("Unexpected capture payload %q", decoded)
	}

	if err := bridge.Request(context.Background(), "tab-1", remote.OpDOMToImage, remote.DOMToImageRequest{}, nil); err == nil {
		t.Error("Expected error for missing selector")
	}
}

func TestChromeProvider(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}

	config := DefaultBrowserConfig()
	config.Headless = true
	config.StartupTimeout = 10 * time.Second

	provider, err := NewChromeProvider(config, nil)
	if err != nil {
		t.Skipf("Skipping browser test - Chrome may not be available: %v", err)
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	h, err := provider.CreateContext(ctx, "data:text/html,<html><body><h1>Test</h1></body></html>")
	if err != nil {
		t.Fatalf("Failed to open tab: %v", err)
	}

	executor := remote.NewTabExecutor(provider)
	var title string
	script := remote.Script{Name: "heading", Source: "async () => document.querySelector('h1').innerText"}
	if err := executor.Execute(ctx, h, script, nil, &title, remote.WaitReady()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if title != "Test" {
		t.Errorf("Expected heading Test, got %q", title)
	}

	if err := provider.CloseContext(ctx, h); err != nil {
		t.Errorf("Failed to close tab: %v", err)
	}

	stats := provider.Stats()
	if stats.TabsOpened != 1 || stats.TabsClosed != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}
