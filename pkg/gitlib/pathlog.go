package gitlib

import (
	"context"
	"time"
)

// LogEntry is one commit that changed a path, with the path's blob at that commit.
type LogEntry struct {
	Commit Hash
	When   time.Time
	Blob   Hash
}

// PathLog returns the commits reachable from `from` that changed path, newest
// first. A commit changed the path when its blob differs from the blob in every
// parent, so merges that took one side verbatim are skipped. Commits where the
// path does not exist are never reported. limit <= 0 means no limit.
func (r *Repository) PathLog(ctx context.Context, from Hash, path string, limit int) ([]LogEntry, error) {
	walk, err := r.Walk()
	if err != nil {
		return nil, err
	}
	defer walk.Free()

	walk.Sorting(SortTime)

	err = walk.Push(from)
	if err != nil {
		return nil, err
	}

	var entries []LogEntry

	err = walk.ForEach(func(commit *Commit) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		blob, exists, blobErr := commit.FileHash(path)
		if blobErr != nil {
			return blobErr
		}

		if !exists {
			return nil
		}

		changed, changedErr := changedAgainstParents(commit, path, blob)
		if changedErr != nil {
			return changedErr
		}

		if !changed {
			return nil
		}

		entries = append(entries, LogEntry{
			Commit: commit.Hash(),
			When:   commit.Author().When,
			Blob:   blob,
		})

		if limit > 0 && len(entries) >= limit {
			return ErrStopWalk
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func changedAgainstParents(commit *Commit, path string, blob Hash) (bool, error) {
	for i := range commit.NumParents() {
		parent, err := commit.Parent(i)
		if err != nil {
			return false, err
		}

		parentBlob, exists, err := parent.FileHash(path)
		parent.Free()

		if err != nil {
			return false, err
		}

		if exists && parentBlob == blob {
			return false, nil
		}
	}

	return true, nil
}

// BlobContents reads a blob by hash into a Go-owned slice.
func (r *Repository) BlobContents(ctx context.Context, hash Hash) ([]byte, error) {
	blob, err := r.LookupBlob(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	data := make([]byte, len(blob.Contents()))
	copy(data, blob.Contents())

	return data, nil
}
