package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-enrich/internal/classify"
	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/scrape"
	"github.com/sells-group/profile-enrich/internal/store"
)

// Fetcher loads a profile page and captures its screenshot and markup.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*scrape.Result, error)
}

// Classifier extracts structured insights from a fetched page.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) (*model.ProfileInsights, string, error)
}

// Service orchestrates a single profile enrichment: validate the URL,
// fetch the page, classify it, persist the result, and return what was
// actually stored.
type Service struct {
	fetcher    Fetcher
	classifier Classifier
	store      store.Store
}

// NewService creates a Service with all dependencies.
func NewService(f Fetcher, c Classifier, st store.Store) *Service {
	return &Service{fetcher: f, classifier: c, store: st}
}

// Enrich runs the full pipeline for one profile URL. The returned
// record is read back from the store after the transaction commits, so
// callers see exactly what persisted.
func (s *Service) Enrich(ctx context.Context, rawURL string) (*model.EnrichmentRecord, error) {
	url, err := model.ValidateProfileURL(rawURL)
	if err != nil {
		return nil, err
	}

	log := zap.L().Named("enrich").With(zap.String("url", url))
	start := time.Now()

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	insights, rawText, err := s.classifier.Classify(ctx, classify.Request{
		URL:        url,
		HTML:       page.HTML,
		Screenshot: page.Screenshot,
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.store.SaveEnrichment(ctx, url, *insights, rawText, time.Now().UTC())
	if err != nil {
		return nil, eris.Wrap(err, "enrich: save enrichment")
	}

	log.Info("profile enriched",
		zap.String("profile_id", rec.ProfileID),
		zap.Bool("email_found", rec.Insights.BestEmail() != ""),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

// RegisterTarget queues a profile URL for batch enrichment. Registration
// is idempotent; the bool reports whether the target is new.
func (s *Service) RegisterTarget(ctx context.Context, rawURL string) (*model.Target, bool, error) {
	url, err := model.ValidateProfileURL(rawURL)
	if err != nil {
		return nil, false, err
	}
	return s.store.CreateTarget(ctx, url)
}

// ListTargets returns queued targets, optionally filtered by status.
func (s *Service) ListTargets(ctx context.Context, status model.TargetStatus, limit int) ([]model.Target, error) {
	if status != "" && !model.ValidTargetStatus(status) {
		return nil, eris.Errorf("enrich: unknown target status %q", status)
	}
	return s.store.ListTargets(ctx, store.TargetFilter{Status: status, Limit: limit})
}
