package itemset

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/directional-star/diggit/pkg/observability"
)

// Apriori mines level by level: frequent k-sets are joined into (k+1)-set
// candidates, candidates with an infrequent subset are pruned, and the rest
// are counted against the corpus in parallel shards.
type Apriori struct {
	workers int
}

// NewApriori creates an Apriori miner using up to workers goroutines for
// support counting.
func NewApriori(workers int) *Apriori {
	return &Apriori{workers: resolveWorkers(workers)}
}

// Name implements Miner.
func (a *Apriori) Name() string {
	return AlgorithmApriori
}

// FrequentItemsets implements Miner.
func (a *Apriori) FrequentItemsets(
	ctx context.Context, transactions [][]string, minSupport, maxItems int,
) (result []ItemSet, err error) {
	err = validate(minSupport)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "diggit.itemsets.mine",
		attribute.String("algorithm", AlgorithmApriori),
		attribute.Int("transactions", len(transactions)),
		attribute.Int("min_support", minSupport))
	defer func() { observability.EndSpan(span, err) }()

	enc := encode(transactions, minSupport)

	level := make([][]int, len(enc.names))

	for id := range enc.names {
		level[id] = []int{id}
		result = append(result, enc.decode(level[id], enc.support[id]))
	}

	for size := 2; len(level) > 1 && (maxItems <= 0 || size <= maxItems); size++ {
		candidates := joinAndPrune(level)
		if len(candidates) == 0 {
			break
		}

		counts, countErr := a.count(ctx, enc.rows, candidates, size)
		if countErr != nil {
			return nil, countErr
		}

		next := make([][]int, 0, len(candidates))

		for i, candidate := range candidates {
			if counts[i] >= minSupport {
				next = append(next, candidate)
				result = append(result, enc.decode(candidate, counts[i]))
			}
		}

		level = next
	}

	Sort(result)
	span.SetAttributes(attribute.Int("itemsets", len(result)))

	return result, nil
}

// joinAndPrune builds (k+1)-candidates from lexically sorted frequent k-sets.
// Two sets join when they share their first k-1 ids. A candidate survives
// only if every k-subset is frequent. Output stays lexically sorted.
func joinAndPrune(level [][]int) [][]int {
	frequent := make(map[string]struct{}, len(level))
	for _, set := range level {
		frequent[idsKey(set)] = struct{}{}
	}

	var candidates [][]int

	for i := range level {
		prefix := level[i][:len(level[i])-1]

		for j := i + 1; j < len(level) && slices.Equal(prefix, level[j][:len(level[j])-1]); j++ {
			candidate := make([]int, 0, len(level[i])+1)
			candidate = append(candidate, level[i]...)
			candidate = append(candidate, level[j][len(level[j])-1])

			if allSubsetsFrequent(candidate, frequent) {
				candidates = append(candidates, candidate)
			}
		}
	}

	return candidates
}

func allSubsetsFrequent(candidate []int, frequent map[string]struct{}) bool {
	subset := make([]int, 0, len(candidate)-1)

	// Dropping either of the last two ids yields a joined parent, known frequent.
	for skip := range len(candidate) - 2 {
		subset = subset[:0]
		subset = append(subset, candidate[:skip]...)
		subset = append(subset, candidate[skip+1:]...)

		if _, ok := frequent[idsKey(subset)]; !ok {
			return false
		}
	}

	return true
}

// count returns the support of each candidate. Rows are split into one shard
// per worker; shards count into private slices that are summed afterwards.
func (a *Apriori) count(ctx context.Context, rows [][]int, candidates [][]int, size int) ([]int, error) {
	byFirst := make(map[int][]int)
	for i, candidate := range candidates {
		byFirst[candidate[0]] = append(byFirst[candidate[0]], i)
	}

	shards := min(a.workers, max(len(rows), 1))
	partial := make([][]int, shards)
	shardLen := (len(rows) + shards - 1) / shards

	g, gctx := errgroup.WithContext(ctx)

	for shard := range shards {
		lo := min(shard*shardLen, len(rows))
		hi := min(lo+shardLen, len(rows))

		g.Go(func() error {
			counts := make([]int, len(candidates))

			for _, row := range rows[lo:hi] {
				err := gctx.Err()
				if err != nil {
					return err
				}

				if len(row) < size {
					continue
				}

				for pos, id := range row {
					for _, ci := range byFirst[id] {
						if isSubset(candidates[ci][1:], row[pos+1:]) {
							counts[ci]++
						}
					}
				}
			}

			partial[shard] = counts

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	total := make([]int, len(candidates))

	for _, counts := range partial {
		for i, c := range counts {
			total[i] += c
		}
	}

	return total, nil
}

// isSubset reports whether ascending ids needle all occur in ascending ids hay.
func isSubset(needle, hay []int) bool {
	if len(needle) > len(hay) {
		return false
	}

	j := 0

	for _, want := range needle {
		for j < len(hay) && hay[j] < want {
			j++
		}

		if j == len(hay) || hay[j] != want {
			return false
		}

		j++
	}

	return true
}

// idsKey packs ids into a compact map key.
func idsKey(ids []int) string {
	const width = 4

	buf := make([]byte, 0, len(ids)*width)
	for _, id := range ids {
		buf = append(buf, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	}

	return string(buf)
}
