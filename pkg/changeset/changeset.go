// Package changeset extracts per-commit file-change sets from history and
// keeps them in an incrementally updated cache.
package changeset

import (
	"cmp"
	"slices"
)

// Changeset is the set of paths touched by one non-merge commit.
type Changeset struct {
	Commit    string   `json:"oid"`
	Files     []string `json:"changeset"`
	Timestamp int64    `json:"timestamp"`
}

// Files projects changesets onto their path lists, preserving order.
func Files(changesets []Changeset) [][]string {
	out := make([][]string, len(changesets))
	for i, cs := range changesets {
		out[i] = cs.Files
	}

	return out
}

// Limit returns at most n changesets from the front (newest first). n <= 0
// means no limit.
func Limit(changesets []Changeset, n int) []Changeset {
	if n <= 0 || n >= len(changesets) {
		return changesets
	}

	return changesets[:n]
}

// sortNewestFirst orders by timestamp descending, breaking ties by commit id
// so re-sorting an already sorted corpus is the identity.
func sortNewestFirst(changesets []Changeset) {
	slices.SortStableFunc(changesets, func(a, b Changeset) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}

		return cmp.Compare(a.Commit, b.Commit)
	})
}

// dedupe keeps the first entry per commit id.
func dedupe(changesets []Changeset) []Changeset {
	seen := make(map[string]struct{}, len(changesets))
	out := changesets[:0]

	for _, cs := range changesets {
		if _, dup := seen[cs.Commit]; dup {
			continue
		}

		seen[cs.Commit] = struct{}{}
		out = append(out, cs)
	}

	return out
}

// dropAfter removes the leading entries newer than cutoff.
func dropAfter(changesets []Changeset, cutoff int64) []Changeset {
	i := 0
	for i < len(changesets) && changesets[i].Timestamp > cutoff {
		i++
	}

	return changesets[i:]
}

// intern makes equal path strings share one backing value.
func intern(changesets []Changeset) {
	table := make(map[string]string)

	for _, cs := range changesets {
		for i, path := range cs.Files {
			if shared, ok := table[path]; ok {
				cs.Files[i] = shared

				continue
			}

			table[path] = path
		}
	}
}
