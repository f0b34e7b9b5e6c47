// Package tasks runs the side effects of a submission (store write, emails,
// CRM sync) as detached background jobs. Their outcome is deliberately
// invisible to the submitter; this runner exists so that invisibility is a
// logged, drainable abstraction instead of bare goroutines.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultJobTimeout = 60 * time.Second

// Runner executes named jobs on background goroutines.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewRunner creates a Runner. timeout bounds each job; zero means the
// default.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Runner{timeout: timeout}
}

// Go runs fn on a new goroutine with its own deadline. Errors and panics are
// logged with the job name and id, never propagated.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	jobID := uuid.NewString()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("background job panicked",
					zap.String("job", name),
					zap.String("job_id", jobID),
					zap.Any("panic", rec),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			zap.L().Error("background job failed",
				zap.String("job", name),
				zap.String("job_id", jobID),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		zap.L().Debug("background job complete",
			zap.String("job", name),
			zap.String("job_id", jobID),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()
}

// Wait blocks until all in-flight jobs finish. Called on shutdown so pending
// writes and emails drain before the process exits.
func (r *Runner) Wait() {
	r.wg.Wait()
}
