package gitlib

import (
	"context"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction represents the type of change in a diff.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified or renamed.
	Modify
)

// Change represents a single file change between two trees.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// Path returns the path the change is attributed to: the new path, or the
// old one for deletions.
func (c *Change) Path() string {
	if c.Action == Delete {
		return c.From.Name
	}

	return c.To.Name
}

// ChangeEntry represents one side of a change (old or new file).
type ChangeEntry struct {
	Name string
	Hash Hash
}

// Changes is a collection of Change objects.
type Changes []*Change

// Paths returns the attributed path of every change, in diff order.
func (cs Changes) Paths() []string {
	paths := make([]string, 0, len(cs))
	for _, c := range cs {
		paths = append(paths, c.Path())
	}

	return paths
}

// Surviving returns the paths that still exist after the change set,
// i.e. everything except deletions.
func (cs Changes) Surviving() []string {
	paths := make([]string, 0, len(cs))

	for _, c := range cs {
		if c.Action != Delete {
			paths = append(paths, c.To.Name)
		}
	}

	return paths
}

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// NumDeltas returns the number of deltas in the diff.
func (d *Diff) NumDeltas() (int, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return 0, fmt.Errorf("get num deltas: %w", err)
	}

	return numDeltas, nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	// Free errors are non-actionable in cleanup.
	_ = d.diff.Free() //nolint:errcheck
	d.diff = nil
}

// TreeDiff computes the changes between two trees using libgit2.
// Skips diff when both tree OIDs are equal (e.g. metadata-only commits).
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return make(Changes, 0), nil
	}

	diff, err := repo.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer diff.Free()

	numDeltas, numErr := diff.NumDeltas()
	if numErr != nil {
		return nil, fmt.Errorf("get num deltas: %w", numErr)
	}

	changes := make(Changes, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		from := ChangeEntry{Name: delta.OldFile.Path, Hash: HashFromOid(delta.OldFile.Oid)}
		to := ChangeEntry{Name: delta.NewFile.Path, Hash: HashFromOid(delta.NewFile.Oid)}

		switch delta.Status {
		case git2go.DeltaAdded:
			changes = append(changes, &Change{Action: Insert, To: to})
		case git2go.DeltaDeleted:
			changes = append(changes, &Change{Action: Delete, From: from})
		case git2go.DeltaModified, git2go.DeltaRenamed, git2go.DeltaCopied, git2go.DeltaTypeChange:
			changes = append(changes, &Change{Action: Modify, From: from, To: to})
		case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
			git2go.DeltaUnreadable, git2go.DeltaConflicted:
			// Not content changes.
			continue
		}
	}

	return changes, nil
}

// CommitChanges diffs a commit against its first parent. Root commits diff
// against the empty tree.
func CommitChanges(commit *Commit) (Changes, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	if commit.NumParents() == 0 {
		return TreeDiff(commit.repo, nil, tree)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}
	defer parent.Free()

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	defer parentTree.Free()

	return TreeDiff(commit.repo, parentTree, tree)
}

// ChangedFiles computes the tree diff between two commits.
func (r *Repository) ChangedFiles(ctx context.Context, base, head Hash) (Changes, error) {
	baseCommit, err := r.LookupCommit(ctx, base)
	if err != nil {
		return nil, err
	}
	defer baseCommit.Free()

	headCommit, err := r.LookupCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	defer headCommit.Free()

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, err
	}
	defer baseTree.Free()

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}
	defer headTree.Free()

	return TreeDiff(r, baseTree, headTree)
}
