// Package export renders inventory results as CSV artifacts and
// human-readable run summaries.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/inventory"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage"
)

// csvHeader is the stable column contract of the export.
var csvHeader = []string{
	"subject_id",
	"file_count",
	"total_size_bytes",
	"total_size_gb",
	"status",
	"source_breakdown",
	"error_detail",
}

// WriteCSV renders results as CSV and stores the artifact at key.
func WriteCSV(ctx context.Context, backend storage.Backend, key string, results []inventory.SubjectResult) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.SubjectID,
			strconv.FormatInt(r.FileCount, 10),
			strconv.FormatInt(r.TotalSizeBytes, 10),
			strconv.FormatFloat(r.TotalSizeGB, 'f', 2, 64),
			r.Status,
			r.SourceBreakdown,
			r.ErrorDetail,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.SubjectID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	data := buf.Bytes()
	if err := backend.PutObject(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("store csv: %w", err)
	}

	logging.Info("csv export written",
		zap.String("key", key),
		zap.Int("rows", len(results)),
		zap.Int("bytes", len(data)))
	return nil
}

// Summary aggregates results for reporting.
type Summary struct {
	Total      int
	Success    int
	Empty      int
	Errors     int
	TotalFiles int64
	TotalBytes int64
	Truncated  int
	Duration   time.Duration
}

// Summarize computes the summary of a result set.
func Summarize(results []inventory.SubjectResult, duration time.Duration) Summary {
	s := Summary{Total: len(results), Duration: duration}
	for _, r := range results {
		switch r.Status {
		case inventory.StatusSuccess:
			s.Success++
		case inventory.StatusEmpty:
			s.Empty++
		case inventory.StatusError:
			s.Errors++
		}
		s.TotalFiles += r.FileCount
		s.TotalBytes += r.TotalSizeBytes
		if r.Truncated {
			s.Truncated++
		}
	}
	return s
}

// Report renders a human-readable run summary with the largest
// subjects first.
func Report(results []inventory.SubjectResult, duration time.Duration, topN int) string {
	s := Summarize(results, duration)

	var b strings.Builder
	fmt.Fprintf(&b, "Inventory summary\n")
	fmt.Fprintf(&b, "  subjects:    %d (success %d, empty %d, error %d)\n",
		s.Total, s.Success, s.Empty, s.Errors)
	fmt.Fprintf(&b, "  files:       %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "  total size:  %s\n", FormatSize(s.TotalBytes))
	if s.Truncated > 0 {
		fmt.Fprintf(&b, "  truncated:   %d subjects hit the depth limit\n", s.Truncated)
	}
	fmt.Fprintf(&b, "  duration:    %s\n", FormatDuration(duration))

	if topN > 0 && len(results) > 0 {
		sorted := make([]inventory.SubjectResult, len(results))
		copy(sorted, results)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].TotalSizeBytes > sorted[j].TotalSizeBytes
		})
		if topN > len(sorted) {
			topN = len(sorted)
		}
		fmt.Fprintf(&b, "  largest:\n")
		for _, r := range sorted[:topN] {
			if r.TotalSizeBytes == 0 {
				break
			}
			fmt.Fprintf(&b, "    %-40s %10s  %d files\n",
				r.SubjectID, FormatSize(r.TotalSizeBytes), r.FileCount)
		}
	}

	return b.String()
}

// FormatSize renders a byte count with a binary unit suffix.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	value := float64(bytes)
	exp := -1
	for value >= unit && exp < len(units)-1 {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", value, units[exp])
}

// FormatDuration renders a duration as hours, minutes and seconds.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
