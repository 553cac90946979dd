package classify

import (
	"regexp"
	"strings"
)

// Hints are cheap best-effort extractions from markup used to seed the
// candidate generator and the prompt. Absence is fine: empty hints just
// mean no candidates and no prompt line.
type Hints struct {
	Name    string
	Company string
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	siteNameRe = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:site_name["'][^>]+content=["']([^"']+)["']`)
)

// ExtractHints pulls a probable name and company from the page title.
// Profile titles follow "Name - Role - Company | SiteName" (any middle
// segments optional). Fire-and-forget: malformed titles yield empty
// hints, never an error.
func ExtractHints(html string) Hints {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return Hints{}
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return Hints{}
	}

	// Strip the trailing "| SiteName" using the og:site_name meta when
	// present, else anything after the last pipe.
	if sm := siteNameRe.FindStringSubmatch(html); sm != nil {
		title = strings.TrimSuffix(title, "| "+strings.TrimSpace(sm[1]))
		title = strings.TrimSpace(title)
	}
	if i := strings.LastIndex(title, "|"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}

	parts := strings.Split(title, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	h := Hints{Name: parts[0]}
	if len(parts) > 1 && parts[len(parts)-1] != "" {
		h.Company = parts[len(parts)-1]
	}
	return h
}
