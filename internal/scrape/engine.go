package scrape

import (
	"context"

	"github.com/sells-group/profile-enrich/pkg/browser"
)

// chromeEngine adapts *browser.Browser to the Engine interface.
type chromeEngine struct {
	b *browser.Browser
}

// NewChromeEngine wraps a launched browser as a session engine.
func NewChromeEngine(b *browser.Browser) Engine {
	return chromeEngine{b: b}
}

func (e chromeEngine) OpenSession(ctx context.Context) (Session, error) {
	return e.b.NewTab(ctx)
}
