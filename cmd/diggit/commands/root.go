// Package commands implements CLI command handlers for diggit.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	repoPath    string
	ghPath      string
	metricsAddr string
	noColor     bool
}

// NewRootCommand assembles the diggit command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "diggit",
		Short: "diggit - code health comments from git history",
		Long: `diggit reviews a base..head diff against the repository's history.

Commands:
  analyse      Run every reporter over a diff
  changesets   Maintain the changeset cache
  itemsets     Mine frequent co-change itemsets
  benchmark    Time suggestion and mining`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: diggit.yaml in ., ./config, /etc/diggit)")
	flags.StringVarP(&opts.repoPath, "repo", "r", ".", "Path to the git repository")
	flags.StringVar(&opts.ghPath, "gh-path", "", "Project identifier used for cache keys (default: local/<repo dir>)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newAnalyseCommand(opts))
	rootCmd.AddCommand(newChangesetsCommand(opts))
	rootCmd.AddCommand(newItemsetsCommand(opts))
	rootCmd.AddCommand(newBenchmarkCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
