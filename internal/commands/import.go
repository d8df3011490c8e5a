package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/importer"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/runlog"
	"github.com/ledgerlens/ledgerlens/internal/template"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Parse every statement in import/ into the ledger cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRepo(cmd, g, true)
			if err != nil {
				return err
			}
			return runImport(cmd.OutOrStdout(), env, keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "leave imported files in import/")

	return cmd
}

// importSummary counts the outcome of one import run.
type importSummary struct {
	files, rows, skipped, needsReview int
}

func runImport(out io.Writer, env *repoEnv, keep bool) error {
	files, err := importer.Scan(env.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to import.")
		return nil
	}

	p := pipeline.New(env.reg, pipeline.Options{Logger: env.log})
	var (
		sum     importSummary
		entries []runlog.Entry
	)
	for _, fi := range files {
		log := env.log.With().Str("file", fi.Name).Logger()

		text, ok, err := importer.ReadStatement(fi.Path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		req, err := env.request(fi.Name, text, "", "")
		if err != nil {
			return err
		}

		res, err := p.Run(req)
		switch {
		case errors.Is(err, template.ErrUnknownTemplate), errors.Is(err, pipeline.ErrNoInput):
			// Leave the file in place so a template can be added for it.
			log.Warn().Err(err).Msg("skipped")
			sum.skipped++
			continue
		case err != nil:
			return fmt.Errorf("importing %s: %w", fi.Name, err)
		}

		if err := importer.WriteParsedFile(env.root, res.File); err != nil {
			return err
		}
		if err := importer.WriteLedger(env.root, res.File.FileID, res.Transactions); err != nil {
			return err
		}
		if !keep {
			if err := importer.MarkProcessed(env.root, fi.Name); err != nil {
				return err
			}
		}

		entries = append(entries, runlog.FromParsedFile(res.File))
		sum.files++
		sum.rows += len(res.Transactions)
		if res.File.NeedsReview() {
			sum.needsReview++
		}
		fmt.Fprintf(out, "%s: %d rows, %d warnings (%s)\n",
			fi.Name, len(res.Transactions), len(res.File.Warnings), res.File.TemplateID)
	}

	if len(entries) > 0 {
		if err := runlog.Append(env.root, entries); err != nil {
			env.log.Warn().Err(err).Msg("writing import log failed")
		}
		env.commit(fmt.Sprintf("import: %d statements, %d rows", sum.files, sum.rows))
	}

	fmt.Fprintf(out, "Imported %d files (%d rows), %d skipped, %d need review.\n",
		sum.files, sum.rows, sum.skipped, sum.needsReview)
	return nil
}
