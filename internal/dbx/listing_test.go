package dbx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
)

func newListingClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(credentials.Credentials{Host: srv.URL, Token: "t"}, ClientConfig{})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestDBFSListChildren(t *testing.T) {
	c := newListingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Path string `json:"path"`
		}
		json.Unmarshal(body, &req)
		if req.Path != "/Users/u1@example.com" {
			t.Errorf("unexpected path %q", req.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{
				{"path": "/Users/u1@example.com/a.parquet", "is_dir": false, "file_size": 100},
				{"path": "/Users/u1@example.com/data", "is_dir": true, "file_size": 0},
			},
		})
	}))

	dbfs := NewDBFS(c)
	entries, err := dbfs.ListChildren(context.Background(), "/Users/u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "a.parquet" || entries[0].Size != 100 || entries[0].IsDir {
		t.Errorf("unexpected file entry %+v", entries[0])
	}
	if !entries[1].IsDir {
		t.Errorf("expected directory entry, got %+v", entries[1])
	}
}

func TestDBFSMissingPathIsEmpty(t *testing.T) {
	c := newListingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code": "RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
	}))

	entries, err := NewDBFS(c).ListChildren(context.Background(), "/Users/nobody")
	if err != nil {
		t.Fatalf("missing path must not error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestDBFSListFailure(t *testing.T) {
	c := newListingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code": "PERMISSION_DENIED"}`, http.StatusForbidden)
	}))

	_, err := NewDBFS(c).ListChildren(context.Background(), "/Users/u1")
	if !errors.Is(err, ErrListFailed) {
		t.Fatalf("expected ErrListFailed, got %v", err)
	}
}

func TestWorkspaceListChildren(t *testing.T) {
	c := newListingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("path"); got != "/Users/u1@example.com" {
			t.Errorf("unexpected path %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"path": "/Users/u1@example.com/notebook1", "object_type": "NOTEBOOK", "object_id": 1},
				{"path": "/Users/u1@example.com/lib.whl", "object_type": "LIBRARY", "object_id": 2},
				{"path": "/Users/u1@example.com/projects", "object_type": "DIRECTORY", "object_id": 3},
			},
		})
	}))

	ws := NewWorkspace(c)
	entries, err := ws.ListChildren(context.Background(), "/Users/u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Non-directory objects carry the fixed size estimate.
	for _, e := range entries[:2] {
		if e.IsDir {
			t.Errorf("%s should not be a directory", e.Path)
		}
		if e.Size != WorkspaceSizeEstimate {
			t.Errorf("%s: expected estimated size %d, got %d", e.Path, WorkspaceSizeEstimate, e.Size)
		}
		if !e.SizeEstimated {
			t.Errorf("%s: size should be flagged as estimated", e.Path)
		}
	}
	if !entries[2].IsDir || entries[2].Size != 0 {
		t.Errorf("unexpected directory entry %+v", entries[2])
	}
}

func TestHomePaths(t *testing.T) {
	c := &Client{}
	if got := NewDBFS(c).HomePath("u1@example.com"); got != "/Users/u1@example.com" {
		t.Errorf("dbfs home = %q", got)
	}
	if got := NewWorkspace(c).HomePath("u1@example.com"); got != "/Users/u1@example.com" {
		t.Errorf("workspace home = %q", got)
	}
}
