package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/changeset"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
)

func newChangesetsCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changesets",
		Short: "Maintain the changeset cache",
	}

	cmd.AddCommand(newChangesetsWalkCommand(global))

	return cmd
}

func newChangesetsWalkCommand(global *globalOptions) *cobra.Command {
	var head string

	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Walk history from a revision and update the changeset cache",
		Long: `Walk every commit reachable from --head that the cache does not know yet and
store the merged changeset corpus under <gh-path>/changesets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, global, observability.ModeBatch, func(ctx context.Context, s *session) error {
				sets, _, err := s.changesets(ctx, head)
				if err != nil {
					return err
				}

				success(cmd.OutOrStdout(), "Walked %s changesets touching %s files (%s)",
					count(len(sets)), count(uniqueFiles(sets)), s.ghPath)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&head, "head", "HEAD", "Revision to walk from")

	return cmd
}

// changesets resolves rev and returns the cached-and-extended corpus up to it.
func (s *session) changesets(ctx context.Context, rev string) ([]changeset.Changeset, gitlib.Hash, error) {
	head, err := s.resolve(ctx, rev)
	if err != nil {
		return nil, gitlib.Hash{}, err
	}

	gen := changeset.NewGenerator(s.repo, s.store, s.ghPath,
		changeset.WithLogger(s.logger()), changeset.WithMetrics(s.providers.Metrics))

	sets, err := gen.Changesets(ctx, head)
	if err != nil {
		return nil, gitlib.Hash{}, err
	}

	return sets, head, nil
}

func uniqueFiles(sets []changeset.Changeset) int {
	seen := make(map[string]struct{})

	for _, cs := range sets {
		for _, f := range cs.Files {
			seen[f] = struct{}{}
		}
	}

	return len(seen)
}
