// Package runner coordinates an inventory run: it fans subjects out
// over an execution backend, checkpoints after every completed
// subject, and resumes interrupted runs without repeating work.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/checkpoint"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/inventory"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
)

// ResumableError reports a run that stopped before completing all
// subjects. The checkpoint holds the completed results; rerunning
// picks up where this run stopped.
type ResumableError struct {
	Err       error
	Completed int
	Remaining int
}

func (e *ResumableError) Error() string {
	return fmt.Sprintf("run interrupted after %d of %d subjects: %v",
		e.Completed, e.Completed+e.Remaining, e.Err)
}

func (e *ResumableError) Unwrap() error { return e.Err }

// Coordinator drives one inventory run end to end.
type Coordinator struct {
	worker  *inventory.Worker
	backend inventory.ExecutionBackend
	store   *checkpoint.Store
}

// New creates a coordinator.
func New(worker *inventory.Worker, backend inventory.ExecutionBackend, store *checkpoint.Store) *Coordinator {
	return &Coordinator{worker: worker, backend: backend, store: store}
}

// Run processes all subjects, resuming from any existing checkpoint.
// The returned results always include results carried over from a
// resumed run. On interruption the checkpoint is flagged and a
// ResumableError is returned alongside the partial results.
func (c *Coordinator) Run(ctx context.Context, subjects []string) ([]inventory.SubjectResult, error) {
	rec := &checkpoint.Record{
		RunID:         uuid.NewString(),
		TotalSubjects: len(subjects),
	}

	prev, ok, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	remaining := subjects
	if ok {
		done := prev.CompletedSubjects()
		remaining = make([]string, 0, len(subjects))
		for _, s := range subjects {
			if !done[s] {
				remaining = append(remaining, s)
			}
		}
		rec.RunID = prev.RunID
		rec.Results = prev.Results
		logging.Info("resuming from checkpoint",
			zap.String("run_id", rec.RunID),
			zap.Int("completed", len(prev.Results)),
			zap.Int("remaining", len(remaining)))
	} else {
		logging.Info("starting new run",
			zap.String("run_id", rec.RunID),
			zap.Int("subjects", len(subjects)),
			zap.String("backend", c.backend.Name()))
	}

	if len(remaining) == 0 {
		if err := c.store.Clear(ctx); err != nil {
			logging.Warn("checkpoint clear failed", zap.Error(err))
		}
		return rec.Results, nil
	}

	results := make(chan inventory.SubjectResult)
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.backend.Run(ctx, remaining, c.worker.ProcessSubject, results)
		close(results)
	}()

	for res := range results {
		rec.Results = append(rec.Results, res)
		if err := c.store.Save(ctx, rec); err != nil {
			logging.Warn("checkpoint save failed", zap.Error(err))
		}
	}

	if err := <-runErr; err != nil {
		rec.Interrupted = true
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if saveErr := c.store.Save(saveCtx, rec); saveErr != nil {
			logging.Error("interrupted checkpoint save failed", zap.Error(saveErr))
		}
		return rec.Results, &ResumableError{
			Err:       err,
			Completed: len(rec.Results),
			Remaining: len(subjects) - len(rec.Results),
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		logging.Warn("checkpoint clear failed", zap.Error(err))
	}

	logging.Info("run complete",
		zap.String("run_id", rec.RunID),
		zap.Int("subjects", len(rec.Results)))
	return rec.Results, nil
}
