package itemset

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/directional-star/diggit/pkg/observability"
)

// FPGrowth compresses the corpus into a prefix tree ordered by item
// frequency and mines it recursively through conditional trees, without
// generating candidates. Each frequent item's conditional subtree is mined
// by its own goroutine.
type FPGrowth struct {
	workers int
}

// NewFPGrowth creates an FP-Growth miner using up to workers goroutines.
func NewFPGrowth(workers int) *FPGrowth {
	return &FPGrowth{workers: resolveWorkers(workers)}
}

// Name implements Miner.
func (f *FPGrowth) Name() string {
	return AlgorithmFPGrowth
}

// FrequentItemsets implements Miner.
func (f *FPGrowth) FrequentItemsets(
	ctx context.Context, transactions [][]string, minSupport, maxItems int,
) (result []ItemSet, err error) {
	err = validate(minSupport)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "diggit.itemsets.mine",
		attribute.String("algorithm", AlgorithmFPGrowth),
		attribute.Int("transactions", len(transactions)),
		attribute.Int("min_support", minSupport))
	defer func() { observability.EndSpan(span, err) }()

	enc := encode(transactions, minSupport)

	tree := newFPTree()
	for _, row := range enc.rows {
		tree.insert(row, 1)
	}

	m := &fpMiner{minSupport: minSupport, maxItems: maxItems}
	perItem := make([][]idSet, len(enc.names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for id := range enc.names {
		g.Go(func() error {
			var found []idSet

			mineErr := m.mine(gctx, tree, id, nil, &found)
			perItem[id] = found

			return mineErr
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	for _, found := range perItem {
		for _, set := range found {
			result = append(result, enc.decode(set.ids, set.support))
		}
	}

	Sort(result)
	span.SetAttributes(attribute.Int("itemsets", len(result)))

	return result, nil
}

type idSet struct {
	ids     []int
	support int
}

type fpNode struct {
	item     int
	count    int
	parent   *fpNode
	children map[int]*fpNode
	next     *fpNode // Next node carrying the same item.
}

type fpTree struct {
	root   *fpNode
	heads  map[int]*fpNode
	counts map[int]int
}

func newFPTree() *fpTree {
	return &fpTree{
		root:   &fpNode{item: -1},
		heads:  make(map[int]*fpNode),
		counts: make(map[int]int),
	}
}

// insert adds an ascending id path with the given multiplicity.
func (t *fpTree) insert(path []int, count int) {
	node := t.root

	for _, item := range path {
		child := node.children[item]
		if child == nil {
			child = &fpNode{item: item, parent: node, next: t.heads[item]}

			if node.children == nil {
				node.children = make(map[int]*fpNode)
			}

			node.children[item] = child
			t.heads[item] = child
		}

		child.count += count
		t.counts[item] += count
		node = child
	}
}

// conditional builds the tree of prefix paths leading to item, keeping only
// items frequent within those paths. It returns nil when nothing survives.
func (t *fpTree) conditional(item, minSupport int) *fpTree {
	type prefixPath struct {
		path  []int
		count int
	}

	var base []prefixPath

	freq := make(map[int]int)

	for node := t.heads[item]; node != nil; node = node.next {
		var path []int
		for p := node.parent; p != t.root; p = p.parent {
			path = append(path, p.item)
		}

		if len(path) == 0 {
			continue
		}

		slices.Reverse(path)
		base = append(base, prefixPath{path: path, count: node.count})

		for _, it := range path {
			freq[it] += node.count
		}
	}

	cond := newFPTree()

	for _, prefix := range base {
		kept := make([]int, 0, len(prefix.path))

		for _, it := range prefix.path {
			if freq[it] >= minSupport {
				kept = append(kept, it)
			}
		}

		if len(kept) > 0 {
			cond.insert(kept, prefix.count)
		}
	}

	if len(cond.counts) == 0 {
		return nil
	}

	return cond
}

type fpMiner struct {
	minSupport int
	maxItems   int
}

// mine emits suffix+item and recurses into item's conditional tree.
func (m *fpMiner) mine(ctx context.Context, tree *fpTree, item int, suffix []int, out *[]idSet) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	set := make([]int, 0, len(suffix)+1)
	set = append(set, suffix...)
	set = append(set, item)

	*out = append(*out, idSet{ids: set, support: tree.counts[item]})

	if m.maxItems > 0 && len(set) >= m.maxItems {
		return nil
	}

	cond := tree.conditional(item, m.minSupport)
	if cond == nil {
		return nil
	}

	for next, count := range cond.counts {
		if count < m.minSupport {
			continue
		}

		err = m.mine(ctx, cond, next, set, out)
		if err != nil {
			return err
		}
	}

	return nil
}
