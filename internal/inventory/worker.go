package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/metrics"
)

// Subject statuses.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// Source breakdown values describing which namespaces held files.
const (
	SourceNone      = "none"
	SourceDBFS      = "dbfs"
	SourceWorkspace = "workspace"
	SourceBoth      = "both"
)

// SubjectResult holds the aggregated inventory for one subject.
type SubjectResult struct {
	SubjectID       string  `json:"subject_id"`
	FileCount       int64   `json:"file_count"`
	DirCount        int64   `json:"dir_count"`
	TotalSizeBytes  int64   `json:"total_size_bytes"`
	TotalSizeGB     float64 `json:"total_size_gb"`
	Status          string  `json:"status"`
	SourceBreakdown string  `json:"source_breakdown"`
	ErrorDetail     string  `json:"error_detail,omitempty"`
	Truncated       bool    `json:"truncated,omitempty"`
	WorkerID        int     `json:"worker_id"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Worker walks every namespace for a subject and merges the counts.
type Worker struct {
	listers  []dbx.Lister
	maxDepth int
}

// NewWorker creates a worker walking the given namespaces in order.
func NewWorker(listers []dbx.Lister, maxDepth int) *Worker {
	if maxDepth <= 0 {
		maxDepth = MaxDepth
	}
	return &Worker{listers: listers, maxDepth: maxDepth}
}

// ProcessSubject walks each namespace's home directory for the
// subject and merges the results by addition. A failed namespace
// contributes zero and a note in ErrorDetail; the subject only
// errors when every namespace fails. Context cancellation aborts
// immediately.
func (w *Worker) ProcessSubject(ctx context.Context, subjectID string, workerID int) (SubjectResult, error) {
	start := time.Now()
	result := SubjectResult{
		SubjectID: subjectID,
		WorkerID:  workerID,
		StartTime: start.UTC().Format(time.RFC3339),
	}

	var (
		total       WalkStats
		perNS       = make(map[string]WalkStats, len(w.listers))
		failures    []string
		failedCount int
	)

	for _, lister := range w.listers {
		home := lister.HomePath(subjectID)
		stats, err := Walk(ctx, lister, home, w.maxDepth)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			failedCount++
			failures = append(failures, fmt.Sprintf("%s: %v", lister.Name(), err))
			logging.Warn("namespace walk failed",
				zap.String("subject", subjectID),
				zap.String("namespace", lister.Name()),
				zap.Error(err))
			continue
		}
		perNS[lister.Name()] = stats
		total.Add(stats)
	}

	result.EndTime = time.Now().UTC().Format(time.RFC3339)
	result.DurationSeconds = time.Since(start).Seconds()

	if failedCount == len(w.listers) {
		result.Status = StatusError
		result.SourceBreakdown = SourceNone
		result.ErrorDetail = strings.Join(failures, "; ")
		metrics.RecordSubject(result.Status, 0, 0, time.Since(start))
		return result, nil
	}

	result.FileCount = total.Files
	result.DirCount = total.Dirs
	result.TotalSizeBytes = total.Bytes
	result.TotalSizeGB = float64(total.Bytes) / (1024 * 1024 * 1024)
	result.Truncated = total.Truncated
	result.SourceBreakdown = breakdown(perNS)
	result.ErrorDetail = strings.Join(failures, "; ")

	if total.Files == 0 {
		result.Status = StatusEmpty
	} else {
		result.Status = StatusSuccess
	}

	metrics.RecordSubject(result.Status, total.Files, total.Bytes, time.Since(start))
	logging.Info("subject processed",
		zap.String("subject", subjectID),
		zap.Int64("files", total.Files),
		zap.Int64("bytes", total.Bytes),
		zap.String("status", result.Status),
		zap.String("sources", result.SourceBreakdown))

	return result, nil
}

func breakdown(perNS map[string]WalkStats) string {
	dbfs := perNS["dbfs"].Files > 0
	workspace := perNS["workspace"].Files > 0
	switch {
	case dbfs && workspace:
		return SourceBoth
	case dbfs:
		return SourceDBFS
	case workspace:
		return SourceWorkspace
	default:
		return SourceNone
	}
}
