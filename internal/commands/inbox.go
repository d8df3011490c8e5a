package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/importer"
	"github.com/ledgerlens/ledgerlens/internal/inbox"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

type inboxFlags struct {
	all  bool
	kind string
	json bool
}

func newInboxCommand(g *globalFlags) *cobra.Command {
	var f inboxFlags

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List transactions and parse issues that need review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRepo(cmd, g, true)
			if err != nil {
				return err
			}
			return runInbox(cmd.Context(), cmd.OutOrStdout(), env, f)
		},
	}

	cmd.Flags().BoolVar(&f.all, "all", false, "include resolved and suppressed items")
	cmd.Flags().StringVar(&f.kind, "kind", "", "only show items of this kind")
	cmd.Flags().BoolVar(&f.json, "json", false, "print as JSON")

	return cmd
}

// inboxView is the JSON shape of the inbox command.
type inboxView struct {
	Items            []model.InboxItem       `json:"items"`
	Counts           map[model.InboxKind]int `json:"counts"`
	Totals           inbox.Totals            `json:"totals"`
	SuppressedByRule int                     `json:"suppressedByRule"`
}

func runInbox(ctx context.Context, out io.Writer, env *repoEnv, f inboxFlags) error {
	res, overrides, err := env.classify(ctx)
	if err != nil {
		return err
	}
	visible := inbox.Filter(res.Items, overrides)

	items := visible.Items
	if f.all {
		items = res.Items
	}
	if f.kind != "" {
		kind := model.InboxKind(strings.ToUpper(f.kind))
		var kept []model.InboxItem
		for _, it := range items {
			if it.Kind == kind {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	if f.json {
		return writeJSON(out, inboxView{
			Items:            items,
			Counts:           visible.Counts(),
			Totals:           res.Totals,
			SuppressedByRule: visible.SuppressedByRule,
		})
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "Inbox empty.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tRULE KEY\tREASON")
		for _, it := range items {
			key, _ := inbox.RuleKey(it)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Kind, itemStatus(it, overrides), key, it.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "%d open, %d resolved, %d suppressed\n",
		len(visible.Items), visible.Resolved, visible.SuppressedByRule)
	return nil
}

func itemStatus(it model.InboxItem, o model.InboxOverrides) string {
	switch {
	case it.Resolved:
		return "resolved"
	case inbox.IsSuppressed(it, o):
		return "suppressed"
	}
	return "open"
}

// classify rebuilds the inbox from the ledger cache and review state.
func (e *repoEnv) classify(ctx context.Context) (inbox.Result, model.InboxOverrides, error) {
	ledger, err := importer.ReadLedger(e.root)
	if err != nil {
		return inbox.Result{}, model.InboxOverrides{}, err
	}
	files, err := importer.ReadParsedFiles(e.root)
	if err != nil {
		return inbox.Result{}, model.InboxOverrides{}, err
	}

	store, closeStore, err := e.store(ctx)
	if err != nil {
		return inbox.Result{}, model.InboxOverrides{}, err
	}
	defer closeStore()

	state, err := store.ReviewState(ctx)
	if err != nil {
		return inbox.Result{}, model.InboxOverrides{}, err
	}
	overrides, err := store.Overrides(ctx)
	if err != nil {
		return inbox.Result{}, model.InboxOverrides{}, err
	}

	opts := inbox.DefaultOptions()
	if v := e.cfg.Thresholds.TransferConfidence; v > 0 {
		opts.TransferConfidence = v
	}
	if v := e.cfg.Thresholds.LowConfidence; v > 0 {
		opts.LowConfidence = v
	}
	res := inbox.Classify(inbox.Input{Transactions: ledger, Files: files, Review: state}, opts)
	e.log.Debug().
		Int("transactions", len(ledger)).
		Int("files", len(files)).
		Int("items", res.Totals.All).
		Msg("inbox classified")
	return res, overrides, nil
}
