package inventory

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
)

// maxPartitions caps the number of concurrent workers regardless of
// configuration, keeping API pressure bounded on large subject sets.
const maxPartitions = 200

// Task processes one subject and returns its result.
type Task func(ctx context.Context, subjectID string, workerID int) (SubjectResult, error)

// ExecutionBackend runs a task over a set of subjects and streams
// results as they complete. Run closes nothing; the caller owns the
// results channel. It returns the first task error, which aborts
// remaining work.
type ExecutionBackend interface {
	Name() string
	Run(ctx context.Context, subjects []string, task Task, results chan<- SubjectResult) error
}

// Sequential processes subjects one at a time in input order.
type Sequential struct{}

// Name returns "sequential".
func (Sequential) Name() string { return "sequential" }

// Run executes the task for each subject in order.
func (Sequential) Run(ctx context.Context, subjects []string, task Task, results chan<- SubjectResult) error {
	for _, subject := range subjects {
		res, err := task(ctx, subject, 0)
		if err != nil {
			return err
		}
		select {
		case results <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pool processes subjects concurrently with a bounded worker pool.
type Pool struct {
	Concurrency int
}

// Name returns "pool".
func (Pool) Name() string { return "pool" }

// Run fans subjects out across workers. Worker count is the
// configured concurrency bounded by the subject count and the
// partition cap.
func (p Pool) Run(ctx context.Context, subjects []string, task Task, results chan<- SubjectResult) error {
	workers := p.Concurrency
	if workers <= 0 {
		workers = 8
	}
	if workers > len(subjects) {
		workers = len(subjects)
	}
	if workers > maxPartitions {
		workers = maxPartitions
	}
	if workers == 0 {
		return nil
	}

	logging.Info("starting worker pool",
		zap.Int("workers", workers),
		zap.Int("subjects", len(subjects)))

	jobs := make(chan string)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, subject := range subjects {
			select {
			case jobs <- subject:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			for subject := range jobs {
				res, err := task(ctx, subject, workerID)
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	return g.Wait()
}
