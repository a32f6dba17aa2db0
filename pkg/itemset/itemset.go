// Package itemset mines frequent itemsets (sets of files that change
// together) from a changeset corpus. Two interchangeable miners implement
// the same contract: FP-Growth for production and Apriori for comparison.
package itemset

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Algorithm names accepted by [New].
const (
	AlgorithmFPGrowth = "fp-growth"
	AlgorithmApriori  = "apriori"
)

// Corpus-size policy bounds for [MinSupportFor].
const (
	minSupportFloor   = 5
	minSupportCeiling = 10
	smallCorpus       = 5000
	largeCorpus       = 10000
	corpusStep        = 1000
)

// Sentinel errors.
var (
	ErrUnknownAlgorithm = errors.New("unknown itemset algorithm")
	ErrInvalidSupport   = errors.New("min support must be at least 1")
)

// ItemSet is a set of paths together with the number of transactions that
// contain all of them. Items are sorted lexically.
type ItemSet struct {
	Items   []string
	Support int
}

// Key returns a string uniquely identifying the item combination.
func (s ItemSet) Key() string {
	return Key(s.Items)
}

// Key joins sorted items into a map key.
func Key(items []string) string {
	return strings.Join(items, "\x00")
}

// Miner finds every itemset whose support is at least minSupport and whose
// size is at most maxItems (maxItems <= 0 means unbounded). Results are
// returned in [Sort] order.
type Miner interface {
	Name() string
	FrequentItemsets(ctx context.Context, transactions [][]string, minSupport, maxItems int) ([]ItemSet, error)
}

// New returns the miner registered under name. workers <= 0 uses GOMAXPROCS.
func New(name string, workers int) (Miner, error) {
	switch name {
	case AlgorithmFPGrowth, "":
		return NewFPGrowth(workers), nil
	case AlgorithmApriori:
		return NewApriori(workers), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// MinSupportFor is the support threshold used for a corpus of n changesets:
// 5 below 5,000, one more per further 1,000, capped at 10 from 10,000.
func MinSupportFor(n int) int {
	switch {
	case n < smallCorpus:
		return minSupportFloor
	case n >= largeCorpus:
		return minSupportCeiling
	default:
		return minSupportFloor + (n-smallCorpus)/corpusStep
	}
}

// Sort orders itemsets by size, then lexically by items.
func Sort(sets []ItemSet) {
	slices.SortFunc(sets, func(a, b ItemSet) int {
		if c := cmp.Compare(len(a.Items), len(b.Items)); c != 0 {
			return c
		}

		return slices.Compare(a.Items, b.Items)
	})
}

// Index maps itemsets by [ItemSet.Key] for support lookups.
func Index(sets []ItemSet) map[string]int {
	index := make(map[string]int, len(sets))
	for _, s := range sets {
		index[s.Key()] = s.Support
	}

	return index
}

func resolveWorkers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}

	return workers
}

func validate(minSupport int) error {
	if minSupport < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSupport, minSupport)
	}

	return nil
}
