package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/alg/stats"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/reporters/changepatterns"
)

const (
	defaultBenchmarkQueries = 1000
	defaultSupportRange     = "5..10"
	rangeSeparator          = ".."
)

// ErrInvalidRange is returned for a malformed --supports value.
var ErrInvalidRange = errors.New("invalid support range")

func newBenchmarkCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Time suggestion and mining",
	}

	cmd.AddCommand(newBenchmarkSuggestCommand(global))
	cmd.AddCommand(newBenchmarkMineCommand(global))

	return cmd
}

func newBenchmarkSuggestCommand(global *globalOptions) *cobra.Command {
	var (
		opts          miningOptions
		queries       int
		maxAntecedent int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Measure rule suggestion latency over past changesets",
		Long: `Mine the corpus once, then replay its changesets as queries against the
suggester and report latency percentiles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, global, observability.ModeBatch, func(ctx context.Context, s *session) error {
				m := opts.resolved(s)

				corpus, _, err := s.corpus(ctx, m)
				if err != nil {
					return err
				}

				miner, err := itemset.New(m.algorithm, s.cfg.Mining.Workers)
				if err != nil {
					return err
				}

				sets, err := miner.FrequentItemsets(ctx, corpus, m.minSupport, m.maxItems)
				if err != nil {
					return err
				}

				samples, rules := timeSuggestions(changepatterns.NewSuggester(sets), corpus, queries, maxAntecedent)

				tbl := newTable(cmd.OutOrStdout())
				tbl.AppendHeader(table.Row{"Queries", "Itemsets", "Rules", "Min", "Mean", "Median", "P95", "Max"})
				tbl.AppendRow(table.Row{
					count(len(samples)), count(len(sets)), count(rules),
					duration(stats.Min(samples)), duration(stats.Mean(samples)),
					duration(stats.Median(samples)),
					duration(stats.Percentile(samples, stats.PercentileP95)), duration(stats.Max(samples)),
				})
				tbl.Render()

				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVar(&queries, "queries", defaultBenchmarkQueries, "Changesets replayed as queries")
	cmd.Flags().IntVar(&maxAntecedent, "max-antecedent", changepatterns.DefaultMaxChangesetSize,
		"Largest antecedent considered")

	return cmd
}

// timeSuggestions replays up to n transactions and returns per-query seconds
// and the total number of rules produced.
func timeSuggestions(sg *changepatterns.Suggester, corpus [][]string, n, maxAntecedent int) ([]float64, int) {
	if n <= 0 || n > len(corpus) {
		n = len(corpus)
	}

	samples := make([]float64, 0, n)
	rules := 0

	for _, files := range corpus[:n] {
		start := time.Now()
		rules += len(sg.Suggest(files, maxAntecedent))
		samples = append(samples, time.Since(start).Seconds())
	}

	return samples, rules
}

func newBenchmarkMineCommand(global *globalOptions) *cobra.Command {
	var (
		opts     miningOptions
		supports string
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Measure mining wall-clock time across a support range",
		Long: `Mine the same corpus at every support from hi down to lo and report the
itemset count and elapsed time of each run.

Example:
  diggit benchmark mine --supports 5..10 --algorithm apriori`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lo, hi, err := parseSupportRange(supports)
			if err != nil {
				return err
			}

			return withSession(cmd, global, observability.ModeBatch, func(ctx context.Context, s *session) error {
				m := opts.resolved(s)

				corpus, _, err := s.corpus(ctx, m)
				if err != nil {
					return err
				}

				miner, err := itemset.New(m.algorithm, s.cfg.Mining.Workers)
				if err != nil {
					return err
				}

				tbl := newTable(cmd.OutOrStdout())
				tbl.AppendHeader(table.Row{"Algorithm", "Support", "Itemsets", "Elapsed"})

				for support := hi; support >= lo; support-- {
					start := time.Now()

					sets, err := miner.FrequentItemsets(ctx, corpus, support, m.maxItems)
					if err != nil {
						return err
					}

					elapsed := time.Since(start)
					s.providers.Metrics.RecordMining(ctx, miner.Name(), len(sets), elapsed)
					s.logger().InfoContext(ctx, "benchmark run", "support", support, "itemsets", len(sets), "elapsed", elapsed)

					tbl.AppendRow(table.Row{miner.Name(), support, count(len(sets)), duration(elapsed.Seconds())})
				}

				tbl.Render()

				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&supports, "supports", defaultSupportRange, "Inclusive support range lo..hi, run high to low")

	return cmd
}

// parseSupportRange parses "lo..hi" with 1 <= lo <= hi.
func parseSupportRange(raw string) (lo, hi int, err error) {
	loText, hiText, ok := strings.Cut(raw, rangeSeparator)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
	}

	lo, loErr := strconv.Atoi(strings.TrimSpace(loText))
	hi, hiErr := strconv.Atoi(strings.TrimSpace(hiText))

	if loErr != nil || hiErr != nil || lo < 1 || hi < lo {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
	}

	return lo, hi, nil
}
