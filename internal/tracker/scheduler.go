package tracker

import (
	"context"
	"time"

	"docwatch/internal/logging"
	"docwatch/internal/services"
)

// Run drives the tracking loop until the context is cancelled. Each tick
// advances every registered item by at most one step.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.budgets.TickInterval)
	defer ticker.Stop()

	t.logger.Info("tracking loop started",
		logging.Duration("tick_interval", t.budgets.TickInterval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracking loop stopped")
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick processes every tracked item once. Finished items leave the registry
// and the snapshot is re-persisted when anything changed. Exported so hosts
// without a long-lived loop (one-shot CLI tracking, tests) can step the
// tracker directly.
func (t *Tracker) Tick(ctx context.Context) {
	removed := 0
	for _, id := range t.registry.All() {
		item, ok := t.registry.Get(id)
		if !ok {
			continue
		}
		if t.step(ctx, item) {
			t.registry.Remove(id)
			removed++
			t.logger.Info("submission finished tracking",
				logging.String(logging.FieldSubmissionID, id),
				logging.String(logging.FieldState, string(item.State)))
		}
	}
	if removed > 0 {
		t.persistSnapshot(ctx)
	}
}

// step runs one item through its handler with the loop's error policy: a
// handler error or panic consumes an attempt and the item stays tracked, so a
// flaky upstream burns budget instead of wedging the loop.
func (t *Tracker) step(ctx context.Context, item *Item) (done bool) {
	ctx = services.WithSubmissionID(ctx, item.SubmissionID)
	ctx = services.WithState(ctx, string(item.State))
	logger := logging.WithContext(ctx, t.logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", logging.Any("panic", r))
			item.Attempts++
			done = false
		}
	}()

	done, err := t.processItem(ctx, item)
	if err != nil {
		logger.Error("handler failed", logging.Error(err))
		if !done {
			item.Attempts++
		}
	}
	return done
}
