package browser

import (
	"context"
	"encoding/json"
	"os"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// SessionState is a captured authenticated browsing session. The file
// contains auth cookies — treat it like a password.
type SessionState struct {
	Cookies []Cookie `json:"cookies"`
}

// Cookie mirrors the fields needed to replay a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// LoadSessionState reads a session state JSON from disk.
func LoadSessionState(path string) (*SessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: read session state %s", path)
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrap(err, "browser: parse session state")
	}
	return &state, nil
}

// SaveSessionState writes the tab's current cookies to path. Used by
// the one-time login command after manual sign-in.
func (t *Tab) SaveSessionState(ctx context.Context, path string) error {
	var cookies []*network.Cookie
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return eris.Wrap(err, "browser: get cookies")
	}

	state := SessionState{Cookies: make([]Cookie, 0, len(cookies))}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return eris.Wrap(err, "browser: marshal session state")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrapf(err, "browser: write session state %s", path)
	}
	return nil
}

// seedCookies installs saved cookies into a fresh tab before the first
// navigation.
func seedCookies(cookies []Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(timeFromEpoch(c.Expires))
				p = p.WithExpires(&expires)
			}
			if err := p.Do(ctx); err != nil {
				return eris.Wrapf(err, "set cookie %s", c.Name)
			}
		}
		return nil
	})
}
