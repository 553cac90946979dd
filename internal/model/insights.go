package model

// ProfileInsights is the canonical enrichment result extracted from a
// profile page by the vision classifier and post-processed by the
// orchestrator.
type ProfileInsights struct {
	Name *string `json:"name"`

	// Email handling:
	// - Email is the best email to display/use (explicit preferred,
	//   else inferred, else nil).
	// - EmailExplicit is set only when an address is directly visible
	//   in the screenshot/HTML.
	// - EmailInferred is a pattern-based guess (lower confidence).
	Email               *string `json:"email"`
	EmailExplicit       *string `json:"email_explicit"`
	EmailInferred       *string `json:"email_inferred"`
	EmailInferenceNotes *string `json:"email_inference_notes"`

	// EmailCandidates lists plausible addresses generated from
	// name/company patterns, ranked most conventional first.
	EmailCandidates []string `json:"email_candidates"`

	CurrentRole    *string `json:"current_role"`
	CurrentCompany *string `json:"current_company"`

	UniqueHooks        []string `json:"unique_hooks"`
	PortfolioLinks     []string `json:"portfolio_links"`
	CommunicationStyle *string  `json:"communication_style"`
	SuggestedAngles    []string `json:"suggested_angles"`
}

// ResolveEmail recomputes the Email field from the explicit-over-inferred
// precedence rule. Called unconditionally as the last merge step so the
// invariant holds even when the classifier omitted the field.
func (i *ProfileInsights) ResolveEmail() {
	switch {
	case i.EmailExplicit != nil && *i.EmailExplicit != "":
		i.Email = i.EmailExplicit
	case i.EmailInferred != nil && *i.EmailInferred != "":
		i.Email = i.EmailInferred
	default:
		i.Email = nil
	}
}

// BestEmail returns the resolved email or empty string.
func (i *ProfileInsights) BestEmail() string {
	if i.Email != nil {
		return *i.Email
	}
	return ""
}
