package gitlib

import (
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/directional-star/diggit/pkg/safeconv"
)

// Sentinel errors for commit access.
var (
	// ErrParentNotFound is returned when the requested parent commit is not found.
	ErrParentNotFound = errors.New("parent commit not found")
	// ErrFileNotFound is returned when a path does not exist in a commit's tree.
	ErrFileNotFound = errors.New("file not found in commit")
)

// Signature represents a git signature (author/committer).
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	sig := c.commit.Author()

	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}

// Message returns the commit message.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return safeconv.ToInt(c.commit.ParentCount())
}

// Parent returns the nth parent commit.
func (c *Commit) Parent(n int) (*Commit, error) {
	if n < 0 || n >= c.NumParents() {
		return nil, ErrParentNotFound
	}

	parent := c.commit.Parent(safeconv.ToUint(n))
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{commit: parent, repo: c.repo}, nil
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n int) Hash {
	return HashFromOid(c.commit.ParentId(safeconv.ToUint(n)))
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// FileHash returns the blob hash stored at path, and false when the path
// does not exist in this commit.
func (c *Commit) FileHash(path string) (Hash, bool, error) {
	tree, err := c.Tree()
	if err != nil {
		return Hash{}, false, err
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if errors.Is(err, ErrFileNotFound) {
		return Hash{}, false, nil
	}

	if err != nil {
		return Hash{}, false, err
	}

	if !entry.IsBlob() {
		return Hash{}, false, nil
	}

	return entry.Hash(), true, nil
}

// FileContents returns the contents of path at this commit along with its blob hash.
func (c *Commit) FileContents(path string) ([]byte, Hash, error) {
	hash, ok, err := c.FileHash(path)
	if err != nil {
		return nil, Hash{}, err
	}

	if !ok {
		return nil, Hash{}, fmt.Errorf("%w: %s@%s", ErrFileNotFound, path, c.Hash())
	}

	blob, err := c.repo.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, Hash{}, fmt.Errorf("lookup blob %s: %w", path, err)
	}
	defer blob.Free()

	// Contents aliases libgit2 memory that is released by Free.
	data := make([]byte, len(blob.Contents()))
	copy(data, blob.Contents())

	return data, hash, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}
