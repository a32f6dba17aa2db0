package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/pipeline"
	"github.com/directional-star/diggit/pkg/reporter"
)

type analyseCommand struct {
	global *globalOptions
	base   string
	head   string
	format string
}

func newAnalyseCommand(global *globalOptions) *cobra.Command {
	ac := &analyseCommand{global: global}

	cmd := &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Run every reporter over the base..head diff",
		Long: `Run ChangePatterns, Complexity and RefactorDiligence over the diff between
two revisions and print the resulting comments.

Examples:
  diggit analyse --base main --head feature
  diggit analyse -r ~/src/app --gh-path acme/app --base HEAD~3 --format json`,
		Args: cobra.NoArgs,
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.base, "base", "", "Base revision of the diff")
	cmd.Flags().StringVar(&ac.head, "head", "HEAD", "Head revision of the diff")
	cmd.Flags().StringVar(&ac.format, "format", FormatTable, "Output format: table, json")

	_ = cmd.MarkFlagRequired("base")

	return cmd
}

func (ac *analyseCommand) run(cmd *cobra.Command, _ []string) error {
	if ac.format != FormatTable && ac.format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ac.format)
	}

	return withSession(cmd, ac.global, observability.ModeCLI, func(ctx context.Context, s *session) error {
		base, err := s.resolve(ctx, ac.base)
		if err != nil {
			return err
		}

		head, err := s.resolve(ctx, ac.head)
		if err != nil {
			return err
		}

		p, err := pipeline.New(ctx, s.repo, reporter.Args{Base: base, Head: head, GHPath: s.ghPath},
			pipeline.WithReporters(pipeline.DefaultReporters(s.cfg.Mining.Workers)...),
			pipeline.WithCache(s.store),
			pipeline.WithLogger(s.logger()),
			pipeline.WithMetrics(s.providers.Metrics),
			pipeline.WithMaxFilesChanged(s.cfg.Pipeline.MaxFilesChanged),
			pipeline.WithWorkDir(s.cfg.Pipeline.WorkDir),
		)
		if err != nil {
			return err
		}

		comments, err := p.AggregateComments(ctx)
		if err != nil {
			return err
		}

		return renderComments(cmd.OutOrStdout(), ac.format, comments)
	})
}
