package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-enrich/internal/classify"
	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/scrape"
	"github.com/sells-group/profile-enrich/internal/store"
)

type fakeFetcher struct {
	result *scrape.Result
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*scrape.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeClassifier struct {
	fn func(req classify.Request) (*model.ProfileInsights, string, error)
}

func (f *fakeClassifier) Classify(_ context.Context, req classify.Request) (*model.ProfileInsights, string, error) {
	return f.fn(req)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string { return &s }

func testInsights() *model.ProfileInsights {
	i := &model.ProfileInsights{
		Name:           strPtr("Jane Doe"),
		EmailExplicit:  strPtr("jane@acme.com"),
		CurrentRole:    strPtr("Staff Engineer"),
		CurrentCompany: strPtr("Acme"),
	}
	i.ResolveEmail()
	return i
}

func TestService_Enrich_PersistsAndReadsBack(t *testing.T) {
	st := newTestStore(t)
	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main>profile</main>", Screenshot: []byte{1, 2}}}
	classifier := &fakeClassifier{fn: func(req classify.Request) (*model.ProfileInsights, string, error) {
		assert.Equal(t, "<main>profile</main>", req.HTML)
		assert.Equal(t, []byte{1, 2}, req.Screenshot)
		return testInsights(), `{"name":"Jane Doe"}`, nil
	}}
	svc := NewService(fetcher, classifier, st)

	rec, err := svc.Enrich(context.Background(), "https://www.linkedin.com/in/jane-doe")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ProfileID)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", rec.ProfileURL)
	assert.Equal(t, "jane@acme.com", rec.Insights.BestEmail())

	// The record reflects the stored row, not the in-memory value.
	p, err := st.GetProfileByURL(context.Background(), rec.ProfileURL)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, rec.ProfileID, p.ID)

	snap, err := st.GetSnapshot(context.Background(), rec.ProfileID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, `{"name":"Jane Doe"}`, snap.RawClassifier)
}

func TestService_Enrich_InvalidURLSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := NewService(fetcher, &fakeClassifier{}, newTestStore(t))

	_, err := svc.Enrich(context.Background(), "https://example.com/in/jane")
	require.Error(t, err)
	assert.Equal(t, FailureInvalidURL, KindOf(err))
	assert.Zero(t, fetcher.calls)
}

func TestService_Enrich_FetchFailureKind(t *testing.T) {
	fetcher := &fakeFetcher{err: scrape.NewFetchError("could not load profile", errors.New("boom"))}
	svc := NewService(fetcher, &fakeClassifier{}, newTestStore(t))

	_, err := svc.Enrich(context.Background(), "https://linkedin.com/in/jane-doe")
	require.Error(t, err)
	assert.Equal(t, FailureScrape, KindOf(err))
	assert.Equal(t, "could not load profile", FailureMessage(err))
}

func TestService_Enrich_ClassifyFailureKind(t *testing.T) {
	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main></main>"}}
	classifier := &fakeClassifier{fn: func(classify.Request) (*model.ProfileInsights, string, error) {
		return nil, "", classify.NewError("could not parse classifier response", nil)
	}}
	svc := NewService(fetcher, classifier, newTestStore(t))

	_, err := svc.Enrich(context.Background(), "https://linkedin.com/in/jane-doe")
	require.Error(t, err)
	assert.Equal(t, FailureClassify, KindOf(err))
}

func TestService_RegisterTarget(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &fakeClassifier{}, newTestStore(t))
	ctx := context.Background()

	tgt, created, err := svc.RegisterTarget(ctx, "https://linkedin.com/in/jane-doe")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.TargetStatusPending, tgt.Status)

	again, created, err := svc.RegisterTarget(ctx, "https://linkedin.com/in/jane-doe")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, tgt.ID, again.ID)

	_, _, err = svc.RegisterTarget(ctx, "not-a-url")
	require.Error(t, err)
	assert.Equal(t, FailureInvalidURL, KindOf(err))
}

func TestService_ListTargets_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &fakeClassifier{}, newTestStore(t))

	_, err := svc.ListTargets(context.Background(), model.TargetStatus("bogus"), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target status")
}

func TestKindOf_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"invalid url", model.ErrInvalidProfileURL, FailureInvalidURL},
		{"fetch", scrape.NewFetchError("blocked", nil), FailureScrape},
		{"classify", classify.NewError("bad json", nil), FailureClassify},
		{"anything else", errors.New("disk full"), FailureInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFailureMessage_CollapsesInternalErrors(t *testing.T) {
	msg := FailureMessage(errors.New("sensitive detail"))
	assert.Contains(t, msg, "unexpected error:")
	assert.NotContains(t, msg, "sensitive detail")
}
