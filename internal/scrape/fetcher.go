package scrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/resilience"
)

// Result is the raw evidence from one fetch attempt. Screenshot and
// HTML always come from the same page load so the classifier sees a
// consistent view. Ephemeral: owned by the caller, never persisted.
type Result struct {
	Screenshot []byte
	HTML       string
	FinalURL   string
	PageTitle  string
}

// Session is one isolated browsing context. *browser.Tab satisfies it;
// tests substitute fakes.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Settle(ctx context.Context, d time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Title(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Close()
}

// Engine opens browsing sessions. Implemented by pkg/browser.
type Engine interface {
	OpenSession(ctx context.Context) (Session, error)
}

// FetchError is the terminal scraping failure surfaced to callers. The
// message is user-actionable: for walls it names the detected reason
// and points at the session-reuse escape hatch.
type FetchError struct {
	Message string
	cause   error
}

func (e *FetchError) Error() string { return e.Message }
func (e *FetchError) Unwrap() error { return e.cause }

// NewFetchError builds a FetchError with an actionable message and an
// optional underlying cause.
func NewFetchError(msg string, cause error) *FetchError {
	return &FetchError{Message: msg, cause: cause}
}

// profileMarker is a selector expected on rendered member profiles.
// Waiting for it is best-effort: some profiles render without it.
const profileMarker = "main"

// Options configures fetch behavior.
type Options struct {
	// Timeout bounds each attempt (navigation through capture).
	Timeout time.Duration

	// SettleDelay is a fixed pause after DOM-ready for client-side
	// rendering.
	SettleDelay time.Duration

	// MarkerWait bounds the optional wait for the profile marker.
	MarkerWait time.Duration

	// ArtifactDir receives diagnostic markup/screenshot dumps on
	// failure. Empty disables capture.
	ArtifactDir string
}

// Fetcher retrieves profile pages through the browser engine.
type Fetcher struct {
	engine Engine
	opts   Options
	log    *zap.Logger
}

// NewFetcher creates a Fetcher. Zero durations get conservative defaults.
func NewFetcher(engine Engine, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	if opts.MarkerWait <= 0 {
		opts.MarkerWait = 2 * time.Second
	}
	return &Fetcher{engine: engine, opts: opts, log: zap.L().Named("scrape")}
}

// Fetch validates url, loads the page, and returns its evidence. A
// timed-out attempt is retried exactly once with a fresh session;
// non-timeout failures are terminal on the first attempt. A detected
// wall fails the fetch even though bytes were technically retrievable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	url, err := model.ValidateProfileURL(rawURL)
	if err != nil {
		return nil, err
	}

	res, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Second,
		ShouldRetry:    resilience.IsTimeout,
		OnRetry:        resilience.RetryLogger("browser", "fetch"),
	}, func(ctx context.Context) (*Result, error) {
		return f.attempt(ctx, url)
	})
	if err != nil {
		if resilience.IsTimeout(err) {
			return nil, &FetchError{Message: "could not load profile (timeout after retry)", cause: err}
		}
		return nil, &FetchError{Message: "could not load profile", cause: err}
	}

	if verdict := DetectWall(res.HTML); verdict.IsWall {
		f.writeArtifacts(url, "error", res.HTML, res.Screenshot)
		return nil, &FetchError{Message: fmt.Sprintf(
			"profile blocked by %s; if this persists, capture an authenticated session with the login command and set scrape.session_state_path",
			verdict.Reason,
		)}
	}

	return res, nil
}

// attempt runs one bounded fetch in a fresh session. The session is
// released on every exit path.
func (f *Fetcher) attempt(ctx context.Context, url string) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	sess, err := f.engine.OpenSession(attemptCtx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Navigate(attemptCtx, url); err != nil {
		f.captureFromSession(sess, url, err)
		return nil, err
	}

	if err := sess.Settle(attemptCtx, f.opts.SettleDelay); err != nil {
		f.captureFromSession(sess, url, err)
		return nil, err
	}

	// The marker wait only narrows the race with client-side hydration.
	if err := sess.WaitVisible(attemptCtx, profileMarker, f.opts.MarkerWait); err != nil {
		f.log.Debug("profile marker not visible, continuing",
			zap.String("url", url), zap.Error(err))
	}

	screenshot, err := sess.Screenshot(attemptCtx)
	if err != nil {
		f.captureFromSession(sess, url, err)
		return nil, err
	}
	html, err := sess.HTML(attemptCtx)
	if err != nil {
		f.captureFromSession(sess, url, err)
		return nil, err
	}

	title, err := sess.Title(attemptCtx)
	if err != nil {
		title = ""
	}
	finalURL, err := sess.Location(attemptCtx)
	if err != nil {
		finalURL = url
	}

	return &Result{
		Screenshot: screenshot,
		HTML:       html,
		FinalURL:   finalURL,
		PageTitle:  title,
	}, nil
}

// captureFromSession grabs whatever evidence the failed page still has.
// The attempt deadline may already have fired, so captures run under a
// short independent deadline; the session itself stays open until the
// caller closes it.
func (f *Fetcher) captureFromSession(sess Session, url string, cause error) {
	if f.opts.ArtifactDir == "" {
		return
	}

	kind := "error"
	if resilience.IsTimeout(cause) {
		kind = "timeout"
	}

	capCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	html, err := sess.HTML(capCtx)
	if err != nil {
		f.log.Debug("artifact html capture failed", zap.Error(err))
	}
	png, err := sess.Screenshot(capCtx)
	if err != nil {
		f.log.Debug("artifact screenshot capture failed", zap.Error(err))
	}
	f.writeArtifacts(url, kind, html, png)
}
