// Package inventory implements the recursive directory walk and the
// per-subject aggregation that together produce an inventory of each
// subject's home directories.
package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
)

// MaxDepth is the default recursion cutoff. The root is depth 0 and
// directories through depth MaxDepth are listed; directories below
// the cutoff are counted but their contents are not visited.
const MaxDepth = 10

// WalkStats accumulates counts over one directory subtree.
type WalkStats struct {
	Files        int64
	Dirs         int64
	Bytes        int64
	Truncated    bool
	ListFailures int64
}

// Add merges other into s.
func (s *WalkStats) Add(other WalkStats) {
	s.Files += other.Files
	s.Dirs += other.Dirs
	s.Bytes += other.Bytes
	s.Truncated = s.Truncated || other.Truncated
	s.ListFailures += other.ListFailures
}

// Walk recursively lists path through the given lister, counting
// files and bytes depth-first with parents visited before children.
// A failed listing on the root path fails the walk; failures deeper
// in the tree stop descent below that path but are absorbed into
// the stats. Context cancellation aborts the walk at any depth.
func Walk(ctx context.Context, lister dbx.Lister, path string, maxDepth int) (WalkStats, error) {
	if maxDepth <= 0 {
		maxDepth = MaxDepth
	}

	var stats WalkStats
	entries, err := lister.ListChildren(ctx, path)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if entry.IsDir {
			stats.Dirs++
			if err := walk(ctx, lister, entry.Path, 1, maxDepth, &stats); err != nil {
				return stats, err
			}
		} else {
			stats.Files++
			stats.Bytes += entry.Size
		}
	}

	return stats, nil
}

func walk(ctx context.Context, lister dbx.Lister, path string, depth, maxDepth int, stats *WalkStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth > maxDepth {
		stats.Truncated = true
		logging.Debug("depth limit reached",
			zap.String("namespace", lister.Name()),
			zap.String("path", path),
			zap.Int("depth", depth))
		return nil
	}

	entries, err := lister.ListChildren(ctx, path)
	if err != nil {
		if errors.Is(err, dbx.ErrListFailed) {
			stats.ListFailures++
			logging.Warn("listing failed, skipping subtree",
				zap.String("namespace", lister.Name()),
				zap.String("path", path),
				zap.Error(err))
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir {
			stats.Dirs++
			if err := walk(ctx, lister, entry.Path, depth+1, maxDepth, stats); err != nil {
				return err
			}
		} else {
			stats.Files++
			stats.Bytes += entry.Size
		}
	}

	return nil
}
