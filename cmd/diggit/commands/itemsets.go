package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/changeset"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/persist"
)

// Export encodings.
const (
	ExportJSON = "json"
	ExportGob  = "gob"
)

const itemsetsBasename = "itemsets"

// ItemsetExport is the file written by "itemsets generate".
type ItemsetExport struct {
	GHPath     string            `json:"gh_path"`
	Head       string            `json:"head"`
	Algorithm  string            `json:"algorithm"`
	MinSupport int               `json:"min_support"`
	MaxItems   int               `json:"max_items"`
	Changesets int               `json:"changesets"`
	Itemsets   []itemset.ItemSet `json:"itemsets"`
}

// miningOptions are the flags shared by commands that mine itemsets. Zero
// values fall back to the mining section of the configuration.
type miningOptions struct {
	head       string
	algorithm  string
	minSupport int
	maxItems   int
	limit      int
}

func (m *miningOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.head, "head", "HEAD", "Revision whose history is mined")
	cmd.Flags().StringVar(&m.algorithm, "algorithm", "", "Mining algorithm: fp-growth, apriori (default from config)")
	cmd.Flags().IntVar(&m.minSupport, "min-support", 0, "Minimum itemset support (default from config)")
	cmd.Flags().IntVar(&m.maxItems, "max-items", 0, "Largest itemset size (default from config)")
	cmd.Flags().IntVar(&m.limit, "limit", 0, "Most recent changesets to mine (default from config)")
}

// resolved fills unset options from the configuration.
func (m miningOptions) resolved(s *session) miningOptions {
	if m.algorithm == "" {
		m.algorithm = s.cfg.Mining.Algorithm
	}

	if m.minSupport <= 0 {
		m.minSupport = s.cfg.Mining.MinSupport
	}

	if m.maxItems <= 0 {
		m.maxItems = s.cfg.Mining.MaxItems
	}

	if m.limit <= 0 {
		m.limit = s.cfg.Mining.Limit
	}

	return m
}

// corpus loads the most recent changesets of the mined revision.
func (s *session) corpus(ctx context.Context, m miningOptions) ([][]string, string, error) {
	sets, head, err := s.changesets(ctx, m.head)
	if err != nil {
		return nil, "", err
	}

	return changeset.Files(changeset.Limit(sets, m.limit)), head.String(), nil
}

func newItemsetsCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "itemsets",
		Short: "Mine frequent co-change itemsets",
	}

	cmd.AddCommand(newItemsetsGenerateCommand(global))

	return cmd
}

func newItemsetsGenerateCommand(global *globalOptions) *cobra.Command {
	var (
		opts   miningOptions
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Mine frequent itemsets from the changeset corpus and export them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := exportCodec(format)
			if err != nil {
				return err
			}

			return withSession(cmd, global, observability.ModeBatch, func(ctx context.Context, s *session) error {
				m := opts.resolved(s)

				corpus, head, err := s.corpus(ctx, m)
				if err != nil {
					return err
				}

				miner, err := itemset.New(m.algorithm, s.cfg.Mining.Workers)
				if err != nil {
					return err
				}

				start := time.Now()

				sets, err := miner.FrequentItemsets(ctx, corpus, m.minSupport, m.maxItems)
				if err != nil {
					return err
				}

				elapsed := time.Since(start)
				s.providers.Metrics.RecordMining(ctx, miner.Name(), len(sets), elapsed)

				persister := persist.NewPersister[ItemsetExport](itemsetsBasename, codec)

				err = persister.Save(outDir, &ItemsetExport{
					GHPath:     s.ghPath,
					Head:       head,
					Algorithm:  miner.Name(),
					MinSupport: m.minSupport,
					MaxItems:   m.maxItems,
					Changesets: len(corpus),
					Itemsets:   sets,
				})
				if err != nil {
					return err
				}

				success(cmd.OutOrStdout(), "Mined %s itemsets from %s changesets in %s -> %s",
					count(len(sets)), count(len(corpus)), duration(elapsed.Seconds()), persister.Path(outDir))

				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory the export is written to")
	cmd.Flags().StringVar(&format, "format", ExportJSON, "Export encoding: json, gob (lz4 compressed)")

	return cmd
}

func exportCodec(format string) (persist.Codec, error) {
	switch format {
	case ExportJSON:
		return persist.NewJSONCodec(), nil
	case ExportGob:
		return persist.NewLZ4Codec(persist.NewGobCodec()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
