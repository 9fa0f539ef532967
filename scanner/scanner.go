// Package scanner implements the filesystem-walk half of
// original_source/src/scanner/: it produces queue.Message values describing
// files under a root directory. Git history traversal is explicitly out of
// scope (spec.md treats "git traversal algorithms" as an external
// collaborator), so this package emits only FileInfo and a trailing
// RepositoryStatistics summary — a real CommitInfo producer is left for a
// git-aware component this repository does not implement.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/repostream/queuecore/producer"
	"github.com/repostream/queuecore/queue"
)

// Walk scans root and emits one producer.Result per regular file found,
// followed by a final RepositoryStatistics summary, then closes its output
// channel. It never emits to the returned channel after ctx is canceled.
func Walk(ctx context.Context, scanID, root string) <-chan producer.Result {
	out := make(chan producer.Result)

	go func() {
		defer close(out)

		var fileCount, totalLines uint64
		var totalSize uint64
		start := time.Now()

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			size := uint64(info.Size())
			lines := estimateLines(size)

			fileCount++
			totalSize += size
			totalLines += lines

			msg := queue.NewMessage(scanID, queue.Payload{
				Kind: queue.PayloadFileInfo,
				FileInfo: queue.FileInfo{
					Path:  rel,
					Size:  size,
					Lines: uint32(lines),
				},
			})

			select {
			case out <- producer.Result{Message: msg}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		if err != nil {
			select {
			case out <- producer.Result{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		ageDays := uint64(time.Since(start).Hours() / 24)
		summary := queue.NewMessage(scanID, queue.Payload{
			Kind: queue.PayloadRepositoryStatistics,
			RepositoryStats: queue.RepositoryStatistics{
				TotalFiles:     fileCount,
				RepositorySize: totalSize,
				AgeDays:        ageDays,
			},
		})
		select {
		case out <- producer.Result{Message: summary}:
		case <-ctx.Done():
		}
	}()

	return out
}

// estimateLines approximates a line count from file size without reading the
// file, assuming an average 40-byte line — good enough for the memory
// footprint and metrics this scanner feeds, not for exact line counts.
func estimateLines(size uint64) uint64 {
	const avgLineBytes = 40
	return size / avgLineBytes
}
