package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-enrich/internal/classify"
	"github.com/sells-group/profile-enrich/internal/enrich"
	"github.com/sells-group/profile-enrich/internal/scrape"
	"github.com/sells-group/profile-enrich/internal/store"
	anthropicpkg "github.com/sells-group/profile-enrich/pkg/anthropic"
	"github.com/sells-group/profile-enrich/pkg/browser"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "profile-enrich.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// pipelineEnv bundles the wired pipeline for commands that enrich.
type pipelineEnv struct {
	Store   store.Store
	Service *enrich.Service
	Runner  *enrich.Runner

	browser *browser.Browser
}

// initPipeline wires store, browser, fetcher, and classifier from config.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Anthropic.Key == "" {
		st.Close()
		return nil, eris.New("anthropic API key is required (ENRICH_ANTHROPIC_KEY)")
	}

	b, err := browser.Launch(ctx, browser.Options{
		Headless:         cfg.Scrape.Headless,
		UserAgent:        cfg.Scrape.UserAgent,
		SessionStatePath: cfg.Scrape.SessionStatePath,
	})
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "launch browser")
	}

	fetcher := scrape.NewFetcher(scrape.NewChromeEngine(b), scrape.Options{
		Timeout:     time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		SettleDelay: time.Duration(cfg.Scrape.SettleMillis) * time.Millisecond,
		ArtifactDir: cfg.Scrape.ArtifactDir,
	})

	classifier := classify.New(anthropicpkg.NewClient(cfg.Anthropic.Key), classify.Options{
		Model:           cfg.Anthropic.VisionModel,
		Timeout:         time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		MaxOutputTokens: int64(cfg.Anthropic.MaxOutputTokens),
	})

	svc := enrich.NewService(fetcher, classifier, st)
	return &pipelineEnv{
		Store:   st,
		Service: svc,
		Runner:  enrich.NewRunner(svc, st, cfg.Batch.ItemsPerMinute),
		browser: b,
	}, nil
}

func (e *pipelineEnv) Close() {
	if e.browser != nil {
		e.browser.Close()
	}
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}
