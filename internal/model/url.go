package model

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// profileURLRe matches LinkedIn member profile URLs. Company, job, and
// other section URLs are rejected on purpose: the fetcher's wall
// heuristics and the classifier prompt are tuned for /in/ pages only.
var profileURLRe = regexp.MustCompile(`(?i)^https?://(www\.)?linkedin\.com/in/[A-Za-z0-9\-_%]+/?(\?.*)?$`)

// ErrInvalidProfileURL is returned for URLs that do not look like a
// member profile. Callers surface it before any network activity.
var ErrInvalidProfileURL = eris.New("invalid profile URL: expected linkedin.com/in/<handle>")

// ValidateProfileURL trims and validates a user-supplied profile URL.
// Every URL that reaches the fetcher has passed this check.
func ValidateProfileURL(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if !profileURLRe.MatchString(normalized) {
		return "", ErrInvalidProfileURL
	}
	return normalized, nil
}
