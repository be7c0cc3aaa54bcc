package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// snapshotLoop emits the periodic word-affect graph snapshot on a plain
// ticker (spec §5's periodic "snapshot" task kind): a ticker is sufficient
// here since the interval is sub-minute and needs no calendar semantics.
func (r *Runtime) snapshotLoop(ctx context.Context) error {
	interval := r.cfg.SnapshotInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.emitSnapshot(now)
		}
	}
}

// pruneLoop runs the pattern-prune and memory-forgetting sweep on a cron
// schedule (spec §4.2/§4.4's "periodic" maintenance, configurable via
// pattern_prune_cron rather than a fixed interval so an operator can, say,
// run it only during off-peak hours).
func (r *Runtime) pruneLoop(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.cfg.PatternPruneCron, func() {
		removed := r.pats.Prune(time.Now())
		if len(removed) > 0 {
			r.logger.Info("pruned patterns", "count", len(removed))
		}
		dropped := r.mem.ApplyForget(0.01)
		if len(dropped) > 0 {
			r.logger.Info("forgot memories", "count", len(dropped))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
