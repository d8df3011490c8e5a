package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/detect"
	"github.com/ledgerlens/ledgerlens/internal/importer"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
)

func newDetectCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the template a statement text matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRepo(cmd, g, false)
			if err != nil {
				return err
			}
			text, err := readStatementArg(args[0])
			if err != nil {
				return err
			}
			m := detect.New(env.reg).DetectMatch(text)
			if m.TemplateID == detect.Unknown {
				fmt.Fprintln(cmd.OutOrStdout(), detect.Unknown)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", m.TemplateID, m.Method)
			return nil
		},
	}
}

type parseFlags struct {
	account  string
	template string
	json     bool
}

func newParseCommand(g *globalFlags) *cobra.Command {
	var f parseFlags

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a statement text without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRepo(cmd, g, false)
			if err != nil {
				return err
			}
			text, err := readStatementArg(args[0])
			if err != nil {
				return err
			}
			req, err := env.request(filepath.Base(args[0]), text, f.account, f.template)
			if err != nil {
				return err
			}
			res, err := pipeline.New(env.reg, pipeline.Options{Logger: env.log}).Run(req)
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printParse(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&f.account, "account", "", "configured bank account name")
	cmd.Flags().StringVar(&f.template, "template", "", "template id (skips detection)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the full result as JSON")

	return cmd
}

func readStatementArg(path string) (string, error) {
	text, ok, err := importer.ReadStatement(path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", path, pipeline.ErrNoInput)
	}
	return text, nil
}

// request builds a pipeline request. An explicit account wins over one
// matched from the file name; both fall back to the configured defaults.
func (e *repoEnv) request(fileName, text, accountName, templateID string) (pipeline.Request, error) {
	var (
		acct config.BankAccount
		ok   bool
	)
	if accountName != "" {
		if acct, ok = e.cfg.Account(accountName); !ok {
			return pipeline.Request{}, fmt.Errorf("unknown bank account %q", accountName)
		}
	} else {
		acct, ok = e.cfg.AccountForFile(fileName)
	}

	req := pipeline.Request{
		FileName:   fileName,
		Text:       text,
		BankID:     e.cfg.Defaults.BankID,
		Currency:   e.cfg.Defaults.Currency,
		TemplateID: templateID,
	}
	if ok {
		req.AccountID = acct.AccountID
		if acct.BankID != "" {
			req.BankID = acct.BankID
		}
		if acct.Currency != "" {
			req.Currency = acct.Currency
		}
		if req.TemplateID == "" {
			req.TemplateID = acct.Template
		}
	}
	return req, nil
}

func printParse(out io.Writer, res pipeline.Result) error {
	f := res.File
	fmt.Fprintf(out, "file %s\ntemplate %s\n", f.FileID, f.TemplateID)
	if res.Period != nil {
		fmt.Fprintf(out, "period %s\n", res.Period)
	}
	fmt.Fprintf(out, "continuity %s (%d/%d)\n\n", f.Continuity.Status, f.Continuity.Consistent, f.Continuity.Checked)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tDATE\tAMOUNT\tBALANCE\tCONF\tDESCRIPTION")
	for _, t := range res.Transactions {
		bal := ""
		if t.Balance.Valid {
			bal = t.Balance.Decimal.StringFixed(2)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\n",
			t.Source.RowIndex, t.Date, t.Amount.StringFixed(2), bal, t.Quality.Confidence, t.DescriptionRaw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(f.Warnings) > 0 {
		fmt.Fprintln(out, "\nwarnings:")
		for _, w := range f.Warnings {
			fmt.Fprintf(out, "  %s row=%d line=%d %s\n", w.Reason, w.RowIndex, w.LineIndex, w.Detail)
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
