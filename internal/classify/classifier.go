// Package classify turns raw profile evidence (screenshot + markup)
// into structured ProfileInsights via the vision model, then enforces
// the email invariants the model cannot be trusted to keep.
package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/profile-enrich/internal/email"
	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/pkg/anthropic"
)

// Error is the classification failure surfaced to callers. Transport,
// quota/auth, and parse problems all map here, with distinct messages.
type Error struct {
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classification Error with an actionable message
// and an optional underlying cause.
func NewError(msg string, cause error) *Error {
	return &Error{Message: msg, cause: cause}
}

// rawLogLimit bounds how much of an unparseable reply is logged.
const rawLogLimit = 5000

// inferredFallbackNote marks an email the adapter (not the model)
// promoted from the candidate list.
const inferredFallbackNote = "inferred from common corporate email patterns (low confidence, unverified)"

// Request carries one classification job.
type Request struct {
	URL        string
	HTML       string
	Screenshot []byte
}

// Options configures the classifier.
type Options struct {
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int64
}

// Classifier drives the vision model.
type Classifier struct {
	ai   anthropic.Client
	opts Options
	log  *zap.Logger
}

// New creates a Classifier. Zero values get conservative defaults.
func New(ai anthropic.Client, opts Options) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 2048
	}
	return &Classifier{ai: ai, opts: opts, log: zap.L().Named("classify")}
}

// Classify analyzes a profile and returns insights plus the raw model
// text. The call is bounded by the configured timeout; there is no
// retry — a slow or unavailable classifier fails the enrichment rather
// than compounding latency.
func (c *Classifier) Classify(ctx context.Context, req Request) (*model.ProfileInsights, string, error) {
	hints := ExtractHints(req.HTML)
	candidates := email.Candidates(hints.Name, hints.Company)

	userMessage := buildUserMessage(req.URL, hints, candidates, req.HTML)

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	temp := 0.2
	resp, err := c.ai.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxOutputTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: userMessage,
			Image: &anthropic.Image{
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(req.Screenshot),
			},
		}},
	})
	if err != nil {
		if anthropic.IsAuthOrQuota(err) {
			return nil, "", &Error{Message: "classifier rejected the request (auth/quota/model); check the configured API key and model", cause: err}
		}
		return nil, "", &Error{Message: "classifier call failed", cause: err}
	}
	resp.Usage.LogCost(c.opts.Model, "classify")

	rawText := strings.TrimSpace(resp.Text)
	insights, err := c.parseInsights(rawText)
	if err != nil {
		return nil, "", err
	}

	c.enforce(insights, candidates)
	return insights, rawText, nil
}

// insightsPayload is the strict wire shape of the model's reply.
// Decoding fails closed on any type mismatch, including wrong types
// for list fields.
type insightsPayload struct {
	Name                *string  `json:"name"`
	Email               *string  `json:"email"`
	EmailExplicit       *string  `json:"email_explicit"`
	EmailInferred       *string  `json:"email_inferred"`
	EmailInferenceNotes *string  `json:"email_inference_notes"`
	EmailCandidates     []string `json:"email_candidates"`
	CurrentRole         *string  `json:"current_role"`
	CurrentCompany      *string  `json:"current_company"`
	UniqueHooks         []string `json:"unique_hooks"`
	PortfolioLinks      []string `json:"portfolio_links"`
	CommunicationStyle  *string  `json:"communication_style"`
	SuggestedAngles     []string `json:"suggested_angles"`
}

// parseInsights strips optional code fences and decodes the reply. A
// parse failure logs a bounded slice of the raw text for diagnosis and
// surfaces a ClassifyError distinct from transport failures.
func (c *Classifier) parseInsights(rawText string) (*model.ProfileInsights, error) {
	cleaned := stripCodeFences(rawText)

	var payload insightsPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		logged := rawText
		if len(logged) > rawLogLimit {
			logged = logged[:rawLogLimit]
		}
		c.log.Error("classifier returned invalid JSON",
			zap.String("raw", logged), zap.Error(err))
		return nil, &Error{Message: "could not parse classifier response", cause: err}
	}

	return &model.ProfileInsights{
		Name:                payload.Name,
		Email:               payload.Email,
		EmailExplicit:       payload.EmailExplicit,
		EmailInferred:       payload.EmailInferred,
		EmailInferenceNotes: payload.EmailInferenceNotes,
		EmailCandidates:     payload.EmailCandidates,
		CurrentRole:         payload.CurrentRole,
		CurrentCompany:      payload.CurrentCompany,
		UniqueHooks:         payload.UniqueHooks,
		PortfolioLinks:      payload.PortfolioLinks,
		CommunicationStyle:  payload.CommunicationStyle,
		SuggestedAngles:     payload.SuggestedAngles,
	}, nil
}

// enforce applies the invariants the model frequently drops: candidate
// backfill, top-candidate inference fallback, and email precedence
// (recomputed unconditionally as the final step).
func (c *Classifier) enforce(insights *model.ProfileInsights, candidates []email.Candidate) {
	if len(insights.EmailCandidates) == 0 && len(candidates) > 0 {
		insights.EmailCandidates = email.Addresses(candidates)
	}

	noExplicit := insights.EmailExplicit == nil || *insights.EmailExplicit == ""
	noInferred := insights.EmailInferred == nil || *insights.EmailInferred == ""
	if noExplicit && noInferred && len(insights.EmailCandidates) > 0 {
		top := insights.EmailCandidates[0]
		note := inferredFallbackNote
		insights.EmailInferred = &top
		insights.EmailInferenceNotes = &note
	}

	insights.ResolveEmail()
}

// stripCodeFences removes an optional ```json wrapper some replies
// arrive in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
