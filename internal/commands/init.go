package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/gitops"
	"github.com/ledgerlens/ledgerlens/internal/importer"
	"github.com/ledgerlens/ledgerlens/internal/review"
)

func newInitCommand() *cobra.Command {
	var owner string
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledgerlens repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, owner, !noGit)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner of the statements (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(out io.Writer, dir, owner string, withGit bool) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"logs",
		review.Dir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(owner)
	if !withGit {
		cfg.Git.AutoCommit = false
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Parse caches are rebuilt from import/processed and stay out of history.
	gitignore := importer.ParsedDir + "/\n" + importer.LedgerDir + "/\n" + review.Dir + "/" + review.LockFile + "\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !withGit {
		fmt.Fprintf(out, "Initialized ledgerlens repository at %s\n", dir)
		return nil
	}

	if err := gitops.Init(dir); err != nil {
		return err
	}
	hash, err := gitops.CommitAll(dir, "init: ledgerlens repository for "+owner, gitops.Author{
		Name:  cfg.Git.AuthorName,
		Email: cfg.Git.AuthorEmail,
	})
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized ledgerlens repository at %s (%s)\n", dir, hash)
	return nil
}
