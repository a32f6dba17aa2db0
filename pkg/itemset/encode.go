package itemset

import (
	"cmp"
	"slices"
)

// encoding maps frequent items to dense ids. Ids are assigned by descending
// support, then name, so id order is the FP-tree insertion order.
type encoding struct {
	names   []string
	support []int
	rows    [][]int
}

// encode drops infrequent items, deduplicates each transaction and converts
// it to ascending ids. Transactions left empty are dropped.
func encode(transactions [][]string, minSupport int) *encoding {
	counts := make(map[string]int)

	for _, tx := range transactions {
		for _, item := range unique(tx) {
			counts[item]++
		}
	}

	names := make([]string, 0, len(counts))

	for item, count := range counts {
		if count >= minSupport {
			names = append(names, item)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	ids := make(map[string]int, len(names))
	support := make([]int, len(names))

	for id, name := range names {
		ids[name] = id
		support[id] = counts[name]
	}

	rows := make([][]int, 0, len(transactions))

	for _, tx := range transactions {
		row := make([]int, 0, len(tx))

		for _, item := range tx {
			if id, ok := ids[item]; ok {
				row = append(row, id)
			}
		}

		if len(row) == 0 {
			continue
		}

		slices.Sort(row)
		rows = append(rows, slices.Compact(row))
	}

	return &encoding{names: names, support: support, rows: rows}
}

// decode converts an id set back to a sorted name set.
func (e *encoding) decode(ids []int, support int) ItemSet {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = e.names[id]
	}

	slices.Sort(items)

	return ItemSet{Items: items, Support: support}
}

func unique(items []string) []string {
	if len(items) < 2 {
		return items
	}

	out := slices.Clone(items)
	slices.Sort(out)

	return slices.Compact(out)
}
