package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/service"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// RunResumer periodically picks up non-complete runs and drives them
// forward. This is what makes a restart transparent: runs interrupted
// by a crash resume from their first non-completed task on the next
// poll. Runs waiting on the human decision simply halt again.
type RunResumer struct {
	reviews  service.ReviewService
	interval time.Duration
	batch    int
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunResumer creates a run resumer polling at the given interval
func NewRunResumer(reviews service.ReviewService, interval time.Duration, batch int, logger *zap.Logger) *RunResumer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 10
	}
	return &RunResumer{
		reviews:  reviews,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Name returns the worker name
func (w *RunResumer) Name() string {
	return "run-resumer"
}

// Start begins the polling loop
func (w *RunResumer) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.resumePending(ctx)
			}
		}
	}()

	return nil
}

// Stop cancels the polling loop and waits for it to finish
func (w *RunResumer) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// resumePending drives every non-complete run one step further
func (w *RunResumer) resumePending(ctx context.Context) {
	runs, err := w.reviews.ListActiveRuns(ctx, w.batch)
	if err != nil {
		w.logger.Error("Failed to list active runs", zap.Error(err))
		return
	}

	for _, run := range runs {
		if ctx.Err() != nil {
			return
		}

		progress, err := w.reviews.Execute(ctx, run.ID)
		if err != nil {
			w.logger.Error("Failed to resume run",
				zap.String("run_id", run.ID),
				zap.Error(err))
			continue
		}

		if progress.Done() {
			w.logger.Info("Run resumed to completion",
				zap.String("run_id", run.ID))
		} else if run.Status != entity.RunStatusSectionsComplete {
			w.logger.Info("Run advanced",
				zap.String("run_id", run.ID),
				zap.String("next_task", progress.NextTask))
		}
	}
}
