package gitlib

import (
	"errors"
	"fmt"
	"io"

	git2go "github.com/libgit2/git2go/v34"
)

// Sort modes for [RevWalk.Sorting].
const (
	SortTime        = git2go.SortTime
	SortTopological = git2go.SortTopological
	SortReverse     = git2go.SortReverse
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// Hide marks a commit and all of its ancestors as uninteresting.
func (w *RevWalk) Hide(hash Hash) error {
	err := w.walk.Hide(hash.ToOid())
	if err != nil {
		return fmt.Errorf("hide from revwalk: %w", err)
	}

	return nil
}

// Sorting sets the sorting mode for the walker.
func (w *RevWalk) Sorting(mode git2go.SortType) {
	w.walk.Sorting(mode)
}

// Next returns the next commit hash in the walk, or [io.EOF] when exhausted.
func (w *RevWalk) Next() (Hash, error) {
	oid := new(git2go.Oid)

	nextErr := w.walk.Next(oid)
	if git2go.IsErrorCode(nextErr, git2go.ErrorCodeIterOver) {
		return Hash{}, io.EOF
	}

	if nextErr != nil {
		return Hash{}, fmt.Errorf("revwalk next: %w", nextErr)
	}

	return HashFromOid(oid), nil
}

// ForEach loads each commit in walk order and passes it to cb. The commit is
// freed after cb returns. Returning [ErrStopWalk] from cb ends the walk
// without an error.
func (w *RevWalk) ForEach(cb func(*Commit) error) error {
	for {
		hash, err := w.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		commit, err := w.repo.repo.LookupCommit(hash.ToOid())
		if err != nil {
			return fmt.Errorf("revwalk lookup %s: %w", hash, err)
		}

		wrapped := &Commit{commit: commit, repo: w.repo}
		cbErr := cb(wrapped)
		wrapped.Free()

		if errors.Is(cbErr, ErrStopWalk) {
			return nil
		}

		if cbErr != nil {
			return cbErr
		}
	}
}

// ErrStopWalk ends a [RevWalk.ForEach] early.
var ErrStopWalk = errors.New("stop walk")

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
