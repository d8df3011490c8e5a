package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/id"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func newReviewCommand(g *globalFlags) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Resolve inbox items and manage suppression rules",
	}
	reviewCmd.AddCommand(
		newResolveCommand(g),
		newUnresolveCommand(g),
		newSuppressCommand(g, true),
		newSuppressCommand(g, false),
	)
	return reviewCmd
}

func newResolveCommand(g *globalFlags) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Mark inbox items or transactions as resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkReviewIDs(args); err != nil {
				return err
			}
			env, err := openRepo(cmd, g, true)
			if err != nil {
				return err
			}
			store, closeStore, err := env.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := store.Resolve(cmd.Context(), args, note)
			if err != nil {
				return err
			}
			env.commit(fmt.Sprintf("review: resolve %d item(s)", len(args)))
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d; %d resolved in total.\n", len(args), len(st.Resolved))
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note stored with the resolution")

	return cmd
}

func newUnresolveCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unresolve <id>...",
		Short: "Reopen resolved inbox items or transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkReviewIDs(args); err != nil {
				return err
			}
			env, err := openRepo(cmd, g, true)
			if err != nil {
				return err
			}
			store, closeStore, err := env.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := store.Unresolve(cmd.Context(), args)
			if err != nil {
				return err
			}
			env.commit(fmt.Sprintf("review: reopen %d item(s)", len(args)))
			fmt.Fprintf(cmd.OutOrStdout(), "Reopened %d; %d resolved in total.\n", len(args), len(st.Resolved))
			return nil
		},
	}
}

func newSuppressCommand(g *globalFlags, on bool) *cobra.Command {
	use, short, verb := "suppress", "Hide inbox items matching a rule key", "suppressed"
	if !on {
		use, short, verb = "unsuppress", "Remove a suppression rule", "unsuppressed"
	}

	return &cobra.Command{
		Use:   use + " <kind> <rule-key>",
		Short: short,
		Long: short + ".\n\nKinds: " + strings.Join([]string{
			string(model.KindUnknownMerchant),
			string(model.KindUncertainTransfer),
			string(model.KindParseIssue),
		}, ", ") + ". Rule keys are shown by `ledgerlens inbox`.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := model.InboxKind(strings.ToUpper(args[0]))
			env, err := openRepo(cmd, g, true)
			if err != nil {
				return err
			}
			store, closeStore, err := env.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			o, err := store.SetRule(cmd.Context(), kind, args[1], on)
			if err != nil {
				return err
			}
			env.commit(fmt.Sprintf("review: %s %s %s", use, kind, args[1]))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %q; %d %s rule(s).\n", kind, verb, args[1], len(o.Rules(kind)), kind)
			return nil
		},
	}
}

// checkReviewIDs accepts inbox item and transaction ids.
func checkReviewIDs(ids []string) error {
	for _, s := range ids {
		prefix := id.InboxItemPrefix
		if strings.HasPrefix(s, id.TransactionPrefix) {
			prefix = id.TransactionPrefix
		}
		if _, err := id.Parse(s, prefix); err != nil {
			return err
		}
	}
	return nil
}
