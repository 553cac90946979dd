package scrape

import "strings"

// Verdict classifies fetched markup as a real profile page or a wall
// (login/paywall/verification screen served instead of content).
type Verdict struct {
	IsWall bool
	Reason string
}

// wallMarker pairs a lowercase substring with a human-readable reason.
// Matching runs against the full markup, not the visible text: anti-bot
// markers often sit in boilerplate that never renders.
type wallMarker struct {
	needle string
	reason string
}

// wallMarkers lists phrases that only appear on blocking screens.
// Generic security/captcha vocabulary is deliberately absent — words
// like "security" show up on legitimately rendered profiles too and
// would cause false positives.
var wallMarkers = []wallMarker{
	{"sign in to linkedin", "sign-in wall"},
	{"join linkedin", "sign-up wall"},
	{"sign in to view", "sign-in wall"},
	{"authwall", "auth wall"},
	{"checkpoint/challenge", "checkpoint challenge"},
	{"security verification", "security verification screen"},
	{"let&#39;s do a quick security check", "security check screen"},
	{"we&#39;ve noticed some unusual activity", "unusual activity screen"},
	{"unusual activity from your account", "unusual activity screen"},
	{"verify your identity", "identity verification screen"},
	{"this page isn&#39;t available", "page unavailable"},
	{"you&#39;ve reached the limit", "rate limited"},
}

// profileTokens are markers expected on a rendered member profile.
// Absence of every one of them means the page is not a profile, even
// if no wall phrase matched.
var profileTokens = []string{
	"pv-top-card",
	"top-card-layout",
	"experience",
	"education",
	"about",
	"linkedin.com/in/",
}

// DetectWall classifies raw markup. Pure and deterministic so it stays
// unit-testable without a browser. First match wins.
func DetectWall(html string) Verdict {
	if strings.TrimSpace(html) == "" {
		return Verdict{IsWall: true, Reason: "empty content"}
	}

	lower := strings.ToLower(html)

	for _, m := range wallMarkers {
		if strings.Contains(lower, m.needle) {
			return Verdict{IsWall: true, Reason: m.reason}
		}
	}

	for _, tok := range profileTokens {
		if strings.Contains(lower, tok) {
			return Verdict{IsWall: false}
		}
	}

	return Verdict{IsWall: true, Reason: "does not look like a profile page"}
}
