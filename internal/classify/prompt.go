package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/profile-enrich/internal/email"
)

// markupExcerptLimit bounds how much raw markup is sent to the model.
// Full profile markup runs to hundreds of KB; the first slice carries
// the top card and contact section, which is what matters.
const markupExcerptLimit = 12000

// maxCandidateHints caps how many pre-generated candidates go into the
// prompt.
const maxCandidateHints = 8

const systemPrompt = `You are an expert professional-profile analyst.

Return JSON only. No markdown. No commentary.

Extract the fields in this exact schema:
{
  "name": string | null,
  "email": string | null,
  "email_explicit": string | null,
  "email_inferred": string | null,
  "email_inference_notes": string | null,
  "email_candidates": string[],
  "current_role": string | null,
  "current_company": string | null,
  "unique_hooks": string[],
  "portfolio_links": string[],
  "communication_style": string | null,
  "suggested_angles": string[]
}

Rules:
- If a string is unknown, return null.
- If a list is unknown/empty, return [].
- Email rules:
  - If an email is explicitly visible in the screenshot/HTML, put it in "email_explicit".
  - Copy the provided candidate addresses into "email_candidates" verbatim.
  - You MAY infer a likely work email using common patterns (e.g. first.last@company.com)
    *only when you can confidently identify* both the person's name and their current
    company/domain. Put the guess in "email_inferred" and explain the pattern and
    assumptions in "email_inference_notes".
  - If you cannot infer confidently, set email_inferred and email_inference_notes to null.
  - Set "email" to the best available address: prefer email_explicit, else email_inferred, else null.`

// buildUserMessage assembles the analysis request: target URL, cheap
// hints, candidate addresses, and a bounded markup excerpt.
func buildUserMessage(url string, hints Hints, candidates []email.Candidate, html string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this professional profile: %s\n\n", url)
	b.WriteString("Return JSON only (no code fences).\n\n")

	if hints.Name != "" {
		fmt.Fprintf(&b, "Probable name (from page title): %s\n", hints.Name)
	}
	if hints.Company != "" {
		fmt.Fprintf(&b, "Probable company (from page title): %s\n", hints.Company)
	}

	if len(candidates) > 0 {
		b.WriteString("\nPre-generated email candidates (most conventional pattern first):\n")
		n := len(candidates)
		if n > maxCandidateHints {
			n = maxCandidateHints
		}
		for _, c := range candidates[:n] {
			fmt.Fprintf(&b, "- %s\n", c.Address)
		}
	}

	excerpt := html
	if len(excerpt) > markupExcerptLimit {
		excerpt = excerpt[:markupExcerptLimit]
	}
	fmt.Fprintf(&b, "\nHTML context (may be partial):\n%s\n", excerpt)

	return b.String()
}
