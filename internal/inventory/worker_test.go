package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
)

const estimate = dbx.WorkspaceSizeEstimate

// twoNamespaces builds the canonical scenario: u1 has two DBFS files
// plus a data directory with one more, and one workspace notebook;
// u2 has an empty DBFS home and no workspace home at all.
func twoNamespaces() []dbx.Lister {
	dbfs := &fakeLister{
		name: "dbfs",
		tree: map[string][]dbx.Entry{
			"/Users/u1": {
				file("/Users/u1/a.csv", 100),
				file("/Users/u1/b.csv", 200),
				dir("/Users/u1/data"),
			},
			"/Users/u1/data": {
				file("/Users/u1/data/c.csv", 50),
			},
			"/Users/u2": {},
		},
	}
	workspace := &fakeLister{
		name: "workspace",
		tree: map[string][]dbx.Entry{
			"/Users/u1": {
				{Path: "/Users/u1/nb", Name: "nb", Size: estimate, SizeEstimated: true},
			},
		},
	}
	return []dbx.Lister{dbfs, workspace}
}

func TestProcessSubjectMergesNamespaces(t *testing.T) {
	w := NewWorker(twoNamespaces(), 10)

	res, err := w.ProcessSubject(context.Background(), "u1", 3)
	if err != nil {
		t.Fatal(err)
	}

	if res.SubjectID != "u1" || res.WorkerID != 3 {
		t.Errorf("unexpected identity %+v", res)
	}
	if res.FileCount != 4 {
		t.Errorf("expected 4 files, got %d", res.FileCount)
	}
	if res.DirCount != 1 {
		t.Errorf("expected 1 directory, got %d", res.DirCount)
	}
	if want := int64(350 + estimate); res.TotalSizeBytes != want {
		t.Errorf("expected %d bytes, got %d", want, res.TotalSizeBytes)
	}
	if res.Status != StatusSuccess {
		t.Errorf("expected success, got %s", res.Status)
	}
	if res.SourceBreakdown != SourceBoth {
		t.Errorf("expected both sources, got %s", res.SourceBreakdown)
	}
	if res.DurationSeconds < 0 || res.StartTime == "" || res.EndTime == "" {
		t.Errorf("timing not recorded: %+v", res)
	}
}

func TestProcessSubjectEmpty(t *testing.T) {
	w := NewWorker(twoNamespaces(), 10)

	res, err := w.ProcessSubject(context.Background(), "u2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusEmpty {
		t.Errorf("expected empty status, got %s", res.Status)
	}
	if res.FileCount != 0 || res.TotalSizeBytes != 0 {
		t.Errorf("expected zero counts, got %+v", res)
	}
	if res.SourceBreakdown != SourceNone {
		t.Errorf("expected no sources, got %s", res.SourceBreakdown)
	}
}

func TestProcessSubjectPartialNamespaceFailure(t *testing.T) {
	dbfs := &fakeLister{
		name:      "dbfs",
		failPaths: map[string]bool{"/Users/u1": true},
	}
	workspace := &fakeLister{
		name: "workspace",
		tree: map[string][]dbx.Entry{
			"/Users/u1": {
				{Path: "/Users/u1/nb", Name: "nb", Size: estimate, SizeEstimated: true},
			},
		},
	}

	w := NewWorker([]dbx.Lister{dbfs, workspace}, 10)
	res, err := w.ProcessSubject(context.Background(), "u1", 0)
	if err != nil {
		t.Fatal(err)
	}

	// The surviving namespace still counts.
	if res.Status != StatusSuccess {
		t.Errorf("expected success despite one failed namespace, got %s", res.Status)
	}
	if res.FileCount != 1 || res.TotalSizeBytes != estimate {
		t.Errorf("unexpected counts %+v", res)
	}
	if res.SourceBreakdown != SourceWorkspace {
		t.Errorf("expected workspace-only breakdown, got %s", res.SourceBreakdown)
	}
	if !strings.Contains(res.ErrorDetail, "dbfs") {
		t.Errorf("failed namespace missing from detail: %q", res.ErrorDetail)
	}
}

func TestProcessSubjectAllNamespacesFail(t *testing.T) {
	dbfs := &fakeLister{name: "dbfs", failPaths: map[string]bool{"/Users/u1": true}}
	workspace := &fakeLister{name: "workspace", failPaths: map[string]bool{"/Users/u1": true}}

	w := NewWorker([]dbx.Lister{dbfs, workspace}, 10)
	res, err := w.ProcessSubject(context.Background(), "u1", 0)
	if err != nil {
		t.Fatal(err)
	}

	if res.Status != StatusError {
		t.Errorf("expected error status, got %s", res.Status)
	}
	if res.FileCount != 0 || res.DirCount != 0 || res.TotalSizeBytes != 0 {
		t.Errorf("error results must carry zero counts, got %+v", res)
	}
	if res.ErrorDetail == "" {
		t.Error("expected failure detail")
	}
}

func TestProcessSubjectCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorker(twoNamespaces(), 10)
	if _, err := w.ProcessSubject(ctx, "u1", 0); err == nil {
		t.Fatal("expected context error to propagate")
	}
}

func TestBreakdownValues(t *testing.T) {
	cases := []struct {
		dbfs, workspace int64
		want            string
	}{
		{0, 0, SourceNone},
		{1, 0, SourceDBFS},
		{0, 1, SourceWorkspace},
		{2, 3, SourceBoth},
	}
	for _, tc := range cases {
		got := breakdown(map[string]WalkStats{
			"dbfs":      {Files: tc.dbfs},
			"workspace": {Files: tc.workspace},
		})
		if got != tc.want {
			t.Errorf("breakdown(dbfs=%d, workspace=%d) = %s, want %s",
				tc.dbfs, tc.workspace, got, tc.want)
		}
	}
}
