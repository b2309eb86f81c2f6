// Package checkpoint persists inventory run progress so an
// interrupted run can resume without repeating completed subjects.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/inventory"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/metrics"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage"
)

// Record is the persisted state of a run. It is written as a single
// JSON document and fully replaced on every save.
type Record struct {
	RunID                string                    `json:"run_id"`
	TotalSubjects        int                       `json:"total_subjects"`
	ProcessedCount       int                       `json:"processed_count"`
	LastCompletedSubject string                    `json:"last_completed_subject"`
	Timestamp            time.Time                 `json:"timestamp"`
	Interrupted          bool                      `json:"interrupted"`
	Results              []inventory.SubjectResult `json:"results"`
}

// Store saves and loads run checkpoints through a storage backend.
type Store struct {
	backend storage.Backend
	key     string
}

// NewStore creates a checkpoint store writing to the given key.
func NewStore(backend storage.Backend, key string) *Store {
	return &Store{backend: backend, key: key}
}

// Save writes the record, replacing any previous checkpoint. The
// processed count is derived from the results so the two cannot
// drift apart.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	rec.ProcessedCount = len(rec.Results)
	if n := len(rec.Results); n > 0 {
		rec.LastCompletedSubject = rec.Results[n-1].SubjectID
	}
	rec.Timestamp = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		metrics.RecordCheckpointWrite(false)
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.backend.PutObject(ctx, s.key, bytes.NewReader(data), int64(len(data))); err != nil {
		metrics.RecordCheckpointWrite(false)
		return fmt.Errorf("write checkpoint: %w", err)
	}

	metrics.RecordCheckpointWrite(true)
	logging.Debug("checkpoint saved",
		zap.String("run_id", rec.RunID),
		zap.Int("processed", rec.ProcessedCount),
		zap.Int("total", rec.TotalSubjects))
	return nil
}

// Load reads the current checkpoint. A missing checkpoint is not an
// error; ok is false and the run starts fresh.
func (s *Store) Load(ctx context.Context) (*Record, bool, error) {
	body, _, err := s.backend.GetObject(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	return &rec, true, nil
}

// Clear removes the checkpoint after a fully successful run.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.DeleteObject(ctx, s.key); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

// CompletedSubjects returns the set of subject IDs already recorded.
func (r *Record) CompletedSubjects() map[string]bool {
	done := make(map[string]bool, len(r.Results))
	for _, res := range r.Results {
		done[res.SubjectID] = true
	}
	return done
}
