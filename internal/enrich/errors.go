package enrich

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-enrich/internal/classify"
	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/scrape"
)

// FailureKind is the closed taxonomy of enrichment failures. Callers
// branch on the kind, not on error strings.
type FailureKind string

const (
	FailureInvalidURL FailureKind = "invalid_url"
	FailureScrape     FailureKind = "scraping_failure"
	FailureClassify   FailureKind = "classification_failure"
	FailureInternal   FailureKind = "internal"
)

// KindOf maps an enrichment error onto the failure taxonomy. Anything
// outside the three domain failures (store errors, context
// cancellation, bugs) is FailureInternal.
func KindOf(err error) FailureKind {
	var (
		fetchErr    *scrape.FetchError
		classifyErr *classify.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrInvalidProfileURL):
		return FailureInvalidURL
	case errors.As(err, &fetchErr):
		return FailureScrape
	case errors.As(err, &classifyErr):
		return FailureClassify
	default:
		return FailureInternal
	}
}

// panicError marks a panic recovered inside the batch loop.
type panicError struct{ value any }

func (e *panicError) Error() string {
	return fmt.Sprintf("unexpected error: panic: %v", e.value)
}

// FailureMessage renders an error for persistence or API responses.
// Domain failures carry actionable messages verbatim; everything else
// is collapsed to the root cause's type so internal details never leak
// into stored rows.
func FailureMessage(err error) string {
	var pErr *panicError
	if errors.As(err, &pErr) {
		return pErr.Error()
	}
	if KindOf(err) == FailureInternal {
		return fmt.Sprintf("unexpected error: %T", eris.Cause(err))
	}
	return err.Error()
}
