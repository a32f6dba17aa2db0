package gitlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	snapshotPattern = "diggit-snapshot-*"
	dirPerm         = 0o755
	filePerm        = 0o644
)

// Snapshot is a disposable working copy of a repository pinned to one commit.
// It borrows the source object database through git alternates, so creating
// it copies no objects, while every write (index, refs, new objects, working
// tree) lands in the snapshot's own directory and never in the source.
type Snapshot struct {
	*Repository

	dir    string
	head   Hash
	config []byte
}

// NewSnapshot creates a snapshot of src checked out at head inside a fresh
// temporary directory under parentDir ("" uses the system temp dir).
func NewSnapshot(ctx context.Context, src *Repository, parentDir string, head Hash) (*Snapshot, error) {
	dir, err := os.MkdirTemp(parentDir, snapshotPattern)
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	snap, err := initShared(src, dir)
	if err != nil {
		return nil, errors.Join(err, os.RemoveAll(dir))
	}

	s := &Snapshot{Repository: snap, dir: dir, head: head}

	s.config, err = os.ReadFile(s.configPath())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("read snapshot config: %w", err), s.Close())
	}

	err = s.Restore(ctx)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	return s, nil
}

func initShared(src *Repository, dir string) (*Repository, error) {
	native, err := git2go.InitRepository(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init snapshot: %w", err)
	}

	gitDir := native.Path()
	native.Free()

	alternates := filepath.Join(gitDir, "objects", "info", "alternates")

	err = os.MkdirAll(filepath.Dir(alternates), dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create alternates dir: %w", err)
	}

	objects := filepath.Join(src.GitDir(), "objects")

	err = os.WriteFile(alternates, []byte(objects+"\n"), filePerm)
	if err != nil {
		return nil, fmt.Errorf("write alternates: %w", err)
	}

	// Reopen so the object database picks up the alternates file.
	return OpenRepository(dir)
}

// Dir returns the snapshot working directory.
func (s *Snapshot) Dir() string {
	return s.dir
}

// Head returns the commit the snapshot is pinned to.
func (s *Snapshot) Head() Hash {
	return s.head
}

// Restore puts the snapshot back to its pinned commit: HEAD detached at the
// commit, index and working tree hard reset, untracked and ignored files
// removed, every ref deleted and the repository config rewritten as created.
func (s *Snapshot) Restore(ctx context.Context) error {
	if s.config != nil {
		err := os.WriteFile(s.configPath(), s.config, filePerm)
		if err != nil {
			return fmt.Errorf("restore snapshot config: %w", err)
		}
	}

	err := s.ResetHard(ctx, s.head)
	if err != nil {
		return err
	}

	return s.deleteRefs()
}

func (s *Snapshot) configPath() string {
	return filepath.Join(s.GitDir(), "config")
}

// deleteRefs removes branches, tags and any other ref. HEAD is detached, so
// nothing the snapshot needs points through them.
func (r *Repository) deleteRefs() error {
	iter, err := r.repo.NewReferenceNameIterator()
	if err != nil {
		return fmt.Errorf("list refs: %w", err)
	}

	var names []string

	for {
		name, nextErr := iter.Next()
		if git2go.IsErrorCode(nextErr, git2go.ErrorCodeIterOver) {
			break
		}

		if nextErr != nil {
			iter.Free()

			return fmt.Errorf("list refs: %w", nextErr)
		}

		names = append(names, name)
	}

	iter.Free()

	for _, name := range names {
		ref, lookupErr := r.repo.References.Lookup(name)
		if lookupErr != nil {
			return fmt.Errorf("lookup ref %s: %w", name, lookupErr)
		}

		deleteErr := ref.Delete()
		ref.Free()

		if deleteErr != nil {
			return fmt.Errorf("delete ref %s: %w", name, deleteErr)
		}
	}

	return nil
}

// Close releases the repository and deletes the snapshot directory.
func (s *Snapshot) Close() error {
	s.Free()

	err := os.RemoveAll(s.dir)
	if err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}

	return nil
}

// ResetHard detaches HEAD at target and hard resets index and working tree to
// it, removing untracked and ignored files.
func (r *Repository) ResetHard(ctx context.Context, target Hash) error {
	commit, err := r.LookupCommit(ctx, target)
	if err != nil {
		return err
	}
	defer commit.Free()

	err = r.repo.SetHeadDetached(target.ToOid())
	if err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}

	opts := &git2go.CheckoutOptions{
		Strategy: git2go.CheckoutForce | git2go.CheckoutRemoveUntracked | git2go.CheckoutRemoveIgnored,
	}

	err = r.repo.ResetToCommit(commit.commit, git2go.ResetHard, opts)
	if err != nil {
		return fmt.Errorf("reset to %s: %w", target, err)
	}

	return r.removeUntracked()
}

func (r *Repository) removeUntracked() error {
	workdir := r.Workdir()
	if workdir == "" {
		return nil
	}

	list, err := r.repo.StatusList(&git2go.StatusOptions{
		Show: git2go.StatusShowIndexAndWorkdir,
		// Untracked directories are reported once and removed whole.
		Flags: git2go.StatusOptIncludeUntracked | git2go.StatusOptIncludeIgnored,
	})
	if err != nil {
		return fmt.Errorf("status list: %w", err)
	}
	defer list.Free()

	count, err := list.EntryCount()
	if err != nil {
		return fmt.Errorf("status count: %w", err)
	}

	for i := range count {
		entry, entryErr := list.ByIndex(i)
		if entryErr != nil {
			return fmt.Errorf("status entry: %w", entryErr)
		}

		if entry.Status&(git2go.StatusWtNew|git2go.StatusIgnored) == 0 {
			continue
		}

		rmErr := os.RemoveAll(filepath.Join(workdir, entry.IndexToWorkdir.NewFile.Path))
		if rmErr != nil {
			return fmt.Errorf("remove untracked: %w", rmErr)
		}
	}

	return nil
}
