package export

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/inventory"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage/local"
)

func sampleResults() []inventory.SubjectResult {
	return []inventory.SubjectResult{
		{
			SubjectID:       "u1@example.com",
			FileCount:       3,
			TotalSizeBytes:  10540,
			TotalSizeGB:     float64(10540) / (1 << 30),
			Status:          inventory.StatusSuccess,
			SourceBreakdown: inventory.SourceBoth,
		},
		{
			SubjectID:       "u2@example.com",
			Status:          inventory.StatusEmpty,
			SourceBreakdown: inventory.SourceNone,
		},
		{
			SubjectID:       "u3@example.com",
			Status:          inventory.StatusError,
			SourceBreakdown: inventory.SourceNone,
			ErrorDetail:     "dbfs: listing failed",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	ctx := context.Background()
	backend, err := local.New(local.Config{RootPath: t.TempDir(), CreateDirs: true})
	if err != nil {
		t.Fatal(err)
	}

	if err := WriteCSV(ctx, backend, "report.csv", sampleResults()); err != nil {
		t.Fatal(err)
	}

	body, _, err := backend.GetObject(ctx, "report.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "subject_id,file_count,total_size_bytes,total_size_gb,status,source_breakdown,error_detail" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "u1@example.com,3,10540,0.00,success,both," {
		t.Errorf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[3], "error") || !strings.Contains(lines[3], "dbfs: listing failed") {
		t.Errorf("error row incomplete: %q", lines[3])
	}
}

func TestWriteCSVAfterInterrupt(t *testing.T) {
	// An interrupted run exports through a detached context even
	// though the run context is already canceled.
	backend, err := local.New(local.Config{RootPath: t.TempDir(), CreateDirs: true})
	if err != nil {
		t.Fatal(err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WriteCSV(context.WithoutCancel(runCtx), backend, "partial.csv", sampleResults()); err != nil {
		t.Fatalf("export after interrupt must succeed, got %v", err)
	}
	ok, err := backend.ObjectExists(context.Background(), "partial.csv")
	if err != nil || !ok {
		t.Fatalf("partial report missing, ok=%v err=%v", ok, err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults(), 90*time.Second)
	if s.Total != 3 || s.Success != 1 || s.Empty != 1 || s.Errors != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.TotalFiles != 3 || s.TotalBytes != 10540 {
		t.Errorf("unexpected totals %+v", s)
	}
}

func TestReportListsLargestSubjects(t *testing.T) {
	out := Report(sampleResults(), time.Minute, 5)
	if !strings.Contains(out, "subjects:    3") {
		t.Errorf("counts missing from report:\n%s", out)
	}
	if !strings.Contains(out, "u1@example.com") {
		t.Errorf("largest subject missing from report:\n%s", out)
	}
	// Zero-size subjects are not listed as largest.
	if strings.Contains(out, "largest") && strings.Contains(out, "u2@example.com") {
		t.Errorf("empty subject listed as largest:\n%s", out)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10.0 MB"},
		{3 << 30, "3.0 GB"},
		{5 << 40, "5.0 TB"},
		{2 << 50, "2.0 PB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.in); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{3*time.Hour + 5*time.Minute + 2*time.Second, "3h5m2s"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
