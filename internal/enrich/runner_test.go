package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-enrich/internal/classify"
	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/scrape"
	"github.com/sells-group/profile-enrich/internal/store"
)

func registerURLs(t *testing.T, st store.Store, urls ...string) {
	t.Helper()
	for _, u := range urls {
		_, _, err := st.CreateTarget(context.Background(), u)
		require.NoError(t, err)
	}
}

func targetByURL(t *testing.T, st store.Store, status model.TargetStatus, url string) *model.Target {
	t.Helper()
	targets, err := st.ListTargets(context.Background(), store.TargetFilter{Status: status})
	require.NoError(t, err)
	for i := range targets {
		if targets[i].ProfileURL == url {
			return &targets[i]
		}
	}
	return nil
}

func TestRunner_RunPass_MixedOutcomes(t *testing.T) {
	st := newTestStore(t)
	registerURLs(t, st,
		"https://linkedin.com/in/good",
		"https://linkedin.com/in/blocked",
		"https://linkedin.com/in/also-good",
	)

	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main></main>"}}
	classifier := &fakeClassifier{fn: func(req classify.Request) (*model.ProfileInsights, string, error) {
		if strings.Contains(req.URL, "blocked") {
			return nil, "", classify.NewError("could not parse classifier response", nil)
		}
		return testInsights(), "raw", nil
	}}
	runner := NewRunner(NewService(fetcher, classifier, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{Attempted: 3, Succeeded: 2, Failed: 1}, stats)

	failed := targetByURL(t, st, model.TargetStatusFailed, "https://linkedin.com/in/blocked")
	require.NotNil(t, failed)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "could not parse classifier response", *failed.LastError)

	succeeded := targetByURL(t, st, model.TargetStatusSucceeded, "https://linkedin.com/in/good")
	require.NotNil(t, succeeded)
	assert.Nil(t, succeeded.LastError)
	require.NotNil(t, succeeded.LastEnrichedAt)

	// Successful items have a persisted snapshot.
	p, err := st.GetProfileByURL(context.Background(), "https://linkedin.com/in/good")
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestRunner_RunPass_EmptyQueue(t *testing.T) {
	st := newTestStore(t)
	runner := NewRunner(NewService(&fakeFetcher{}, &fakeClassifier{}, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{}, stats)
}

func TestRunner_RunPass_HonorsLimit(t *testing.T) {
	st := newTestStore(t)
	registerURLs(t, st,
		"https://linkedin.com/in/one",
		"https://linkedin.com/in/two",
		"https://linkedin.com/in/three",
	)

	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main></main>"}}
	classifier := &fakeClassifier{fn: func(classify.Request) (*model.ProfileInsights, string, error) {
		return testInsights(), "raw", nil
	}}
	runner := NewRunner(NewService(fetcher, classifier, st), st, 0)

	stats := runner.RunPass(context.Background(), 2)
	assert.Equal(t, model.BatchStats{Attempted: 2, Succeeded: 2}, stats)

	// Oldest-first: the third registration is still pending.
	pending, err := st.ListTargets(context.Background(), store.TargetFilter{Status: model.TargetStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "https://linkedin.com/in/three", pending[0].ProfileURL)
}

func TestRunner_RunPass_RecoversPanic(t *testing.T) {
	st := newTestStore(t)
	registerURLs(t, st, "https://linkedin.com/in/cursed", "https://linkedin.com/in/fine")

	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main></main>"}}
	classifier := &fakeClassifier{fn: func(req classify.Request) (*model.ProfileInsights, string, error) {
		if strings.Contains(req.URL, "cursed") {
			panic("nil dereference in parser")
		}
		return testInsights(), "raw", nil
	}}
	runner := NewRunner(NewService(fetcher, classifier, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{Attempted: 2, Succeeded: 1, Failed: 1}, stats)

	failed := targetByURL(t, st, model.TargetStatusFailed, "https://linkedin.com/in/cursed")
	require.NotNil(t, failed)
	require.NotNil(t, failed.LastError)
	assert.Contains(t, *failed.LastError, "unexpected error: panic: nil dereference in parser")
}

func TestRunner_RunPass_BoundsLastError(t *testing.T) {
	st := newTestStore(t)
	registerURLs(t, st, "https://linkedin.com/in/verbose")

	fetcher := &fakeFetcher{err: scrape.NewFetchError(strings.Repeat("x", 5000), nil)}
	runner := NewRunner(NewService(fetcher, &fakeClassifier{}, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{Attempted: 1, Failed: 1}, stats)

	failed := targetByURL(t, st, model.TargetStatusFailed, "https://linkedin.com/in/verbose")
	require.NotNil(t, failed)
	require.NotNil(t, failed.LastError)
	assert.Len(t, *failed.LastError, lastErrorLimit)
}

// funcFetcher scripts per-call behavior.
type funcFetcher struct {
	fn func(ctx context.Context, url string) (*scrape.Result, error)
}

func (f *funcFetcher) Fetch(ctx context.Context, url string) (*scrape.Result, error) {
	return f.fn(ctx, url)
}

func TestRunner_RunPass_SurvivesCallerCancellation(t *testing.T) {
	st := newTestStore(t)
	registerURLs(t, st,
		"https://linkedin.com/in/first",
		"https://linkedin.com/in/second",
	)

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &funcFetcher{fn: func(fctx context.Context, url string) (*scrape.Result, error) {
		// The caller goes away while the first item is in flight.
		cancel()
		if strings.Contains(url, "first") {
			return nil, scrape.NewFetchError("could not load profile", nil)
		}
		require.NoError(t, fctx.Err(), "pass must be detached from caller cancellation")
		return &scrape.Result{HTML: "<main></main>"}, nil
	}}
	classifier := &fakeClassifier{fn: func(classify.Request) (*model.ProfileInsights, string, error) {
		return testInsights(), "raw", nil
	}}
	runner := NewRunner(NewService(fetcher, classifier, st), st, 6000)

	stats := runner.RunPass(ctx, 10)
	assert.Equal(t, model.BatchStats{Attempted: 2, Succeeded: 1, Failed: 1}, stats)

	// Both outcomes are persisted; nothing is stranded running or pending.
	failed := targetByURL(t, st, model.TargetStatusFailed, "https://linkedin.com/in/first")
	require.NotNil(t, failed)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "could not load profile", *failed.LastError)

	succeeded := targetByURL(t, st, model.TargetStatusSucceeded, "https://linkedin.com/in/second")
	require.NotNil(t, succeeded)

	for _, status := range []model.TargetStatus{model.TargetStatusPending, model.TargetStatusRunning} {
		leftover, err := st.ListTargets(context.Background(), store.TargetFilter{Status: status})
		require.NoError(t, err)
		assert.Empty(t, leftover, "no target may end the pass %s", status)
	}
}

// runningFailStore refuses the running transition and records whether
// the runner then tries to mark the target failed.
type runningFailStore struct {
	store.Store
	failedCalls int
}

func (s *runningFailStore) MarkTargetRunning(context.Context, string) error {
	return errors.New("database is locked")
}

func (s *runningFailStore) MarkTargetFailed(ctx context.Context, id string, lastError string) error {
	s.failedCalls++
	return s.Store.MarkTargetFailed(ctx, id, lastError)
}

func TestRunner_RunPass_UnclaimableTargetStaysPending(t *testing.T) {
	inner := newTestStore(t)
	registerURLs(t, inner, "https://linkedin.com/in/stuck")
	st := &runningFailStore{Store: inner}

	fetcher := &fakeFetcher{result: &scrape.Result{HTML: "<main></main>"}}
	runner := NewRunner(NewService(fetcher, &fakeClassifier{}, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{Attempted: 1, Failed: 1}, stats)

	// A target that never reached running is not marked failed; it
	// stays pending for a later pass.
	assert.Zero(t, st.failedCalls)
	pending := targetByURL(t, inner, model.TargetStatusPending, "https://linkedin.com/in/stuck")
	require.NotNil(t, pending)
	assert.Nil(t, pending.LastError)
}

func TestRunner_RunPass_InvalidStoredURLFailsItem(t *testing.T) {
	st := newTestStore(t)
	// A target whose URL no longer validates must fail in isolation.
	registerURLs(t, st, "https://example.com/not-linkedin")

	runner := NewRunner(NewService(&fakeFetcher{}, &fakeClassifier{}, st), st, 0)

	stats := runner.RunPass(context.Background(), 10)
	assert.Equal(t, model.BatchStats{Attempted: 1, Failed: 1}, stats)

	failed := targetByURL(t, st, model.TargetStatusFailed, "https://example.com/not-linkedin")
	require.NotNil(t, failed)
	require.NotNil(t, failed.LastError)
	assert.Contains(t, *failed.LastError, "invalid profile URL")
}
