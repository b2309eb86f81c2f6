package dbx

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// DBFS lists the Databricks File System via /api/2.0/dbfs/list.
// File sizes are exact in this namespace.
type DBFS struct {
	client *Client
}

// NewDBFS creates a DBFS namespace adapter.
func NewDBFS(client *Client) *DBFS {
	return &DBFS{client: client}
}

// Name returns "dbfs".
func (d *DBFS) Name() string { return "dbfs" }

// HomePath returns the DBFS home directory for a subject.
func (d *DBFS) HomePath(subject string) string {
	return "/Users/" + subject
}

type dbfsListRequest struct {
	Path string `json:"path"`
}

type dbfsFileInfo struct {
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	FileSize int64  `json:"file_size"`
}

type dbfsListResponse struct {
	Files []dbfsFileInfo `json:"files"`
}

// ListChildren lists the direct children of a DBFS path. A missing
// path is an empty result, not an error.
func (d *DBFS) ListChildren(ctx context.Context, dirPath string) ([]Entry, error) {
	var resp dbfsListResponse
	err := d.client.GetJSON(ctx, d.Name(), "/api/2.0/dbfs/list", nil, dbfsListRequest{Path: dirPath}, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dbfs list %s: %v", ErrListFailed, dirPath, err)
	}

	entries := make([]Entry, 0, len(resp.Files))
	for _, f := range resp.Files {
		entries = append(entries, Entry{
			Path:  f.Path,
			Name:  path.Base(f.Path),
			IsDir: f.IsDir,
			Size:  f.FileSize,
		})
	}
	return entries, nil
}
