// Package email generates plausible corporate email addresses from a
// person's name and an organization hint. Candidates are deterministic,
// ranked by observed pattern frequency, and never verified: they exist
// to give the classifier concrete options and the caller something to
// check downstream.
package email

import (
	"regexp"
	"strings"
)

// Candidate is one unverified address hypothesis.
type Candidate struct {
	Address string `json:"address"`
	Pattern string `json:"pattern"`
}

// knownDomains maps ambiguous organization names to real domains.
// Naive normalization would guess wrong for these (e.g. "rbc" could be
// royalbank.com). Keep this list small and intentional.
var knownDomains = map[string]string{
	"rbc":                  "rbc.com",
	"royal bank of canada": "rbc.com",
	"rbc capital markets":  "rbc.com",
}

var (
	domainLikeRe  = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]+`)
	tokenStripRe  = regexp.MustCompile(`[^A-Za-z'-]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// normalizeDomain turns an organization name into a plausible email
// domain. If the input already looks like a domain it is kept as-is;
// otherwise the curated table is consulted, then the name is collapsed
// to lowercase alphanumerics with ".com" appended. This does not
// research the real domain; it is a best-effort fallback.
func normalizeDomain(organization string) string {
	c := strings.ToLower(strings.TrimSpace(organization))
	if c == "" {
		return ""
	}

	if d, ok := knownDomains[c]; ok {
		return d
	}

	if strings.Contains(c, ".") && !strings.Contains(c, " ") && domainLikeRe.MatchString(c) {
		return c
	}

	// "Borealis AI" -> "borealisai.com"
	base := nonAlnumRe.ReplaceAllString(c, "")
	if base == "" {
		return ""
	}
	return base + ".com"
}

// splitName extracts lowercase first and last tokens from a full name.
// Punctuation other than hyphen/apostrophe is stripped per token; a
// single-token name yields an empty last.
func splitName(fullName string) (first, last string) {
	tokens := whitespaceRe.Split(strings.TrimSpace(fullName), -1)

	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = tokenStripRe.ReplaceAllString(t, "")
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}

	if len(cleaned) == 0 {
		return "", ""
	}

	first = strings.ToLower(cleaned[0])
	if len(cleaned) > 1 {
		last = strings.ToLower(cleaned[len(cleaned)-1])
	}
	return first, last
}

// Candidates returns ranked address hypotheses for a (name, organization)
// pair. The order encodes prior probability: first.last is by far the
// most common corporate convention, so it leads. Returns nil when either
// a usable first name or a resolvable domain is missing — guessing with
// half the inputs would only produce noise.
func Candidates(name, organization string) []Candidate {
	first, last := splitName(name)
	domain := normalizeDomain(organization)

	if first == "" || domain == "" {
		return nil
	}

	if last == "" {
		return []Candidate{{Address: first + "@" + domain, Pattern: "first@domain"}}
	}

	fi := first[:1]
	li := last[:1]

	candidates := []Candidate{
		{Address: first + "." + last + "@" + domain, Pattern: "first.last@domain"},
		{Address: first + last + "@" + domain, Pattern: "firstlast@domain"},
		{Address: fi + last + "@" + domain, Pattern: "flast@domain"},
		{Address: first + li + "@" + domain, Pattern: "firstl@domain"},
		{Address: first + "_" + last + "@" + domain, Pattern: "first_last@domain"},
		{Address: last + "." + first + "@" + domain, Pattern: "last.first@domain"},
	}

	// Short names can make distinct patterns coincide; dedup keeping
	// the first (highest-ranked) occurrence.
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Address]; ok {
			continue
		}
		seen[c.Address] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Addresses returns just the address strings from candidates, in order.
func Addresses(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Address
	}
	return out
}
