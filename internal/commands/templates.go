package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/template"
)

func newTemplatesCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List registered statement templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRepo(cmd, g, false)
			if err != nil {
				return err
			}
			return printTemplates(cmd.OutOrStdout(), env.reg.All())
		},
	}
}

func printTemplates(out io.Writer, tpls []template.Config) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBANK\tVERSION\tSTRATEGY\tHEADER")
	for _, t := range tpls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Bank, t.Version, t.Parse.Strategy, strings.Join(t.HeaderAnchors, " | "))
	}
	return tw.Flush()
}
