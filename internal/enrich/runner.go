package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/store"
)

// lastErrorLimit bounds the error text persisted on a failed target.
const lastErrorLimit = 1000

// Runner drives batch enrichment over pending targets. Items run
// sequentially; one failure never aborts the pass.
type Runner struct {
	service *Service
	store   store.Store
	limiter *rate.Limiter
}

// NewRunner creates a Runner. itemsPerMinute <= 0 disables pacing.
func NewRunner(svc *Service, st store.Store, itemsPerMinute int) *Runner {
	var limiter *rate.Limiter
	if itemsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(itemsPerMinute)/60.0), 1)
	}
	return &Runner{service: svc, store: st, limiter: limiter}
}

// RunPass claims up to limit pending targets oldest-first and enriches
// each in turn. Every claimed target ends the pass as succeeded or
// failed; errors are recorded per item and never propagated. The stats
// always satisfy attempted == succeeded + failed.
//
// The pass runs to completion: caller cancellation (an HTTP client
// disconnecting, a CLI interrupt) never strands a target in running or
// leaves a reported failure unrecorded.
func (r *Runner) RunPass(ctx context.Context, limit int) model.BatchStats {
	log := zap.L().Named("batch")
	ctx = context.WithoutCancel(ctx)

	targets, err := r.store.ClaimPending(ctx, limit)
	if err != nil {
		log.Error("claim pending targets", zap.Error(err))
		return model.BatchStats{}
	}
	if len(targets) == 0 {
		log.Info("no pending targets")
		return model.BatchStats{}
	}

	stats := model.BatchStats{Attempted: len(targets)}
	for _, tgt := range targets {
		if r.limiter != nil {
			// Wait cannot be cancelled on the detached context.
			if err := r.limiter.Wait(ctx); err != nil {
				log.Warn("rate limiter wait", zap.Error(err))
			}
		}

		if err := r.store.MarkTargetRunning(ctx, tgt.ID); err != nil {
			// The row was never claimed; leave it pending for a later
			// pass instead of recording a failure it never ran into.
			log.Error("mark target running",
				zap.String("target_id", tgt.ID), zap.Error(err))
			stats.Failed++
			continue
		}

		if err := r.runOne(ctx, tgt); err != nil {
			r.failTarget(ctx, log, tgt, truncate(FailureMessage(err), lastErrorLimit))
			stats.Failed++
			continue
		}
		stats.Succeeded++
	}

	log.Info("batch pass complete",
		zap.Int("attempted", stats.Attempted),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return stats
}

// runOne enriches one already-running target and records the outcome.
// Panics are converted to errors so a single bad page cannot take down
// the pass.
func (r *Runner) runOne(ctx context.Context, tgt model.Target) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()

	record, err := r.service.Enrich(ctx, tgt.ProfileURL)
	if err != nil {
		return err
	}

	return r.store.MarkTargetSucceeded(ctx, tgt.ID, record.EnrichedAt)
}

func (r *Runner) failTarget(ctx context.Context, log *zap.Logger, tgt model.Target, msg string) {
	log.Warn("target enrichment failed",
		zap.String("target_id", tgt.ID),
		zap.String("url", tgt.ProfileURL),
		zap.String("reason", msg),
	)
	if err := r.store.MarkTargetFailed(ctx, tgt.ID, msg); err != nil {
		log.Error("mark target failed", zap.String("target_id", tgt.ID), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
