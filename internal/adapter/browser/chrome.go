package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeOpener drives a visible Chrome window and reuses it across calls.
type ChromeOpener struct {
	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	logger        *slog.Logger
}

// NewChromeOpener creates an opener; Chrome is launched lazily on first Open.
func NewChromeOpener(timeout time.Duration, logger *slog.Logger) *ChromeOpener {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeOpener{timeout: timeout, logger: logger}
}

func (o *ChromeOpener) Name() string { return "chrome" }

// Open navigates the Chrome window to url.
func (o *ChromeOpener) Open(ctx context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.browserCtx == nil || o.browserCtx.Err() != nil {
		o.launch()
	}

	// chromedp binds the tab to the context of its first Run, so a derived
	// timeout would tear the window down when it expires.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(o.browserCtx, chromedp.Navigate(url)) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		o.logger.Info("opened app in chrome", "url", url)
		return nil
	case <-time.After(o.timeout):
		return fmt.Errorf("navigate: timed out after %v", o.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch starts a fresh Chrome, releasing any previous allocator first.
// Callers hold o.mu.
func (o *ChromeOpener) launch() {
	o.release()
	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])
	opts = append(opts,
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1280, 900),
	)
	var allocCtx context.Context
	allocCtx, o.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	o.browserCtx, o.browserCancel = chromedp.NewContext(allocCtx)
	o.logger.Info("chromedp launching local browser")
}

// Close shuts Chrome down.
func (o *ChromeOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.release()
	return nil
}

func (o *ChromeOpener) release() {
	if o.browserCancel != nil {
		o.browserCancel()
	}
	if o.allocCancel != nil {
		o.allocCancel()
	}
	o.browserCtx, o.browserCancel, o.allocCancel = nil, nil, nil
}
