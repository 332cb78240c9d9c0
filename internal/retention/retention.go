package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"campusboard/pkg/config"
	"campusboard/pkg/logger"
	"campusboard/pkg/store"
)

// Start starts the retention scheduler if enabled. Retention prunes the
// feed and reply index rows of posts that have been soft-removed for
// longer than the configured window; the canonical records and the
// ledgers are kept. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult) (context.CancelFunc, error) {
	ret := eff.Config.Retention
	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := ret.Cron
	if cronExpr == "" {
		// daily at 02:00
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "removed_ttl_days", ret.RemovedTTLDays)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, eff, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression with gronx
// and sleeps until then.
func runScheduler(ctx context.Context, eff config.EffectiveConfigResult, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}

		if err := RunOnce(eff); err != nil {
			logger.Error("retention_run_error", "error", err)
		}
	}
}

// RunOnce performs a single retention sweep. Exposed so tests and admin
// tooling can trigger it on demand.
func RunOnce(eff config.EffectiveConfigResult) error {
	ttlDays := eff.Config.Retention.RemovedTTLDays
	if ttlDays <= 0 {
		ttlDays = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -ttlDays)
	start := time.Now()
	pruned, err := store.PruneRemovedIndexes(cutoff)
	if err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}
	logger.Info("retention_run_complete", "pruned", pruned, "cutoff", cutoff.Format(time.RFC3339), "elapsed", time.Since(start).String())
	return nil
}
