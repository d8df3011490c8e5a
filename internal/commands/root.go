package commands

import (
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/buildinfo"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	repo     string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "ledgerlens",
		Short:   "Bank statement parsing and review",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "ledgerlens repository directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(
		newInitCommand(),
		newTemplatesCommand(g),
		newDetectCommand(g),
		newParseCommand(g),
		newImportCommand(g),
		newInboxCommand(g),
		newReviewCommand(g),
	)

	return rootCmd
}
