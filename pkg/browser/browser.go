// Package browser wraps chromedp with the small surface the profile
// fetcher needs: launch a headless Chrome once, open an isolated tab
// per fetch, navigate, and capture markup plus a full-page screenshot
// from the same page load.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// Options configures the shared Chrome process.
type Options struct {
	Headless  bool
	UserAgent string

	// SessionStatePath points at a saved session state JSON (cookies
	// captured by the login command). Empty means anonymous browsing.
	SessionStatePath string
}

// Browser owns a Chrome exec allocator. One Browser is shared across
// fetches; each fetch gets its own tab context.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	opts        Options
}

// Launch starts the allocator. The Chrome process itself starts lazily
// with the first tab.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	return &Browser{allocCtx: allocCtx, allocCancel: allocCancel, opts: opts}, nil
}

// Close tears down the allocator and any remaining tabs.
func (b *Browser) Close() {
	b.allocCancel()
}

// Tab is one isolated browsing context. Always Close it; the caller
// owns the lifecycle on every exit path.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTab opens a fresh tab, optionally seeded with saved session
// cookies. ctx bounds the seeding only: the tab itself outlives it and
// stays usable for post-deadline diagnostics until Close. The caller
// owns Close on every exit path.
func (b *Browser) NewTab(ctx context.Context) (*Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	t := &Tab{ctx: tabCtx, cancel: tabCancel}

	if b.opts.SessionStatePath != "" {
		state, err := LoadSessionState(b.opts.SessionStatePath)
		if err != nil {
			tabCancel()
			return nil, eris.Wrap(err, "browser: load session state")
		}
		if err := t.run(ctx, seedCookies(state.Cookies)); err != nil {
			tabCancel()
			return nil, eris.Wrap(err, "browser: seed session cookies")
		}
	}

	return t, nil
}

// Close releases the tab.
func (t *Tab) Close() {
	t.cancel()
}

// Navigate loads url and waits for the DOM-ready signal on body. It
// does not wait for network idle: the target site keeps long-polling
// connections open that would stall that wait forever.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	err := t.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrap(err, "browser: navigate")
}

// Settle sleeps briefly inside the tab to let client-side rendering
// finish after DOM-ready.
func (t *Tab) Settle(ctx context.Context, d time.Duration) error {
	return eris.Wrap(t.run(ctx, chromedp.Sleep(d)), "browser: settle")
}

// WaitVisible waits up to timeout for a selector to appear. Callers
// treat a miss as non-fatal: some profiles render without the marker.
func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := t.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return eris.Wrapf(err, "browser: wait visible %s", selector)
}

// HTML returns the full document markup.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: capture html")
	}
	return html, nil
}

// Screenshot returns full-page PNG bytes.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, eris.Wrap(err, "browser: capture screenshot")
	}
	return buf, nil
}

// Title returns the current page title.
func (t *Tab) Title(ctx context.Context) (string, error) {
	var title string
	if err := t.run(ctx, chromedp.Title(&title)); err != nil {
		return "", eris.Wrap(err, "browser: read title")
	}
	return title, nil
}

// Location returns the URL the tab actually landed on (after redirects).
func (t *Tab) Location(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", eris.Wrap(err, "browser: read location")
	}
	return loc, nil
}

// run executes actions on the tab, bounded by the caller's context.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(t.ctx, actions...)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
