package dbx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
)

// WorkspaceSizeEstimate is the fixed per-object size used for the
// workspace namespace: /api/2.0/workspace/list does not report object
// sizes, so totals from this namespace are estimates.
const WorkspaceSizeEstimate = 10 * 1024

// Workspace lists the notebook/workspace filesystem via
// /api/2.0/workspace/list.
type Workspace struct {
	client *Client
}

// NewWorkspace creates a Workspace namespace adapter.
func NewWorkspace(client *Client) *Workspace {
	return &Workspace{client: client}
}

// Name returns "workspace".
func (w *Workspace) Name() string { return "workspace" }

// HomePath returns the workspace home directory for a subject.
func (w *Workspace) HomePath(subject string) string {
	return "/Users/" + subject
}

type workspaceObject struct {
	Path       string `json:"path"`
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
}

type workspaceListResponse struct {
	Objects []workspaceObject `json:"objects"`
}

// ListChildren lists the direct children of a workspace path. Objects
// that are not directories (notebooks, files, libraries) are counted
// as files with an estimated size.
func (w *Workspace) ListChildren(ctx context.Context, dirPath string) ([]Entry, error) {
	query := url.Values{"path": {dirPath}}

	var resp workspaceListResponse
	err := w.client.GetJSON(ctx, w.Name(), "/api/2.0/workspace/list", query, nil, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: workspace list %s: %v", ErrListFailed, dirPath, err)
	}

	entries := make([]Entry, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		isDir := obj.ObjectType == "DIRECTORY"
		e := Entry{
			Path:  obj.Path,
			Name:  path.Base(obj.Path),
			IsDir: isDir,
		}
		if !isDir {
			e.Size = WorkspaceSizeEstimate
			e.SizeEstimated = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}
