// Package gitlibtest builds throwaway git repositories for tests.
package gitlibtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/gitlib"
)

// Repo is a scratch repository rooted in a test temp dir.
type Repo struct {
	t      testing.TB
	path   string
	native *git2go.Repository
}

// New initialises an empty non-bare repository. It is freed on test cleanup.
func New(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(native.Free)

	return &Repo{t: t, path: dir, native: native}
}

// Path returns the working directory.
func (r *Repo) Path() string {
	return r.path
}

// Open opens the repository through gitlib. It is freed on test cleanup.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.path, name)

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// Remove deletes a file from the working directory.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(filepath.Join(r.path, name)))
}

// Commit stages every change in the working directory and commits it on
// top of HEAD with both signatures dated when.
func (r *Repo) Commit(message string, when time.Time) gitlib.Hash {
	r.t.Helper()

	return r.commit(message, when)
}

// Merge records a merge commit of HEAD and other, using the current working
// directory contents as the merged tree.
func (r *Repo) Merge(other gitlib.Hash, message string, when time.Time) gitlib.Hash {
	r.t.Helper()

	return r.commit(message, when, other)
}

func (r *Repo) commit(message string, when time.Time, extra ...gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	var parents []*git2go.Commit

	head, err := r.native.Head()
	if err == nil {
		headCommit, lookupErr := r.native.LookupCommit(head.Target())
		require.NoError(r.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	for _, hash := range extra {
		parent, lookupErr := r.native.LookupCommit(hash.ToOid())
		require.NoError(r.t, lookupErr)

		parents = append(parents, parent)
	}

	defer func() {
		for _, parent := range parents {
			parent.Free()
		}
	}()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: when}

	oid, err := r.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	return gitlib.HashFromOid(oid)
}

// Checkout detaches HEAD at hash and forces the working tree to match it.
func (r *Repo) Checkout(hash gitlib.Hash) {
	r.t.Helper()

	require.NoError(r.t, r.native.SetHeadDetached(hash.ToOid()))
	require.NoError(r.t, r.native.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}))
}
