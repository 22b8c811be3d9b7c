package command

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/inbox"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads in a workflow view or the simple surface",
		Example: `  inbox list --view waiting
  inbox list --search invoice --json
  inbox list --simple --filter pinned --filter sent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			viewName, _ := cmd.Flags().GetString("view")
			search, _ := cmd.Flags().GetString("search")
			simple, _ := cmd.Flags().GetBool("simple")
			filterNames, _ := cmd.Flags().GetStringSlice("filter")
			if len(filterNames) > 0 {
				simple = true
			}

			tc := cache.New(ctx.Store, ctx.Query())
			if err := tc.Invalidate(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}
			a := ctx.Annotator()
			me := ctx.Config.Actor.Email

			var items []inbox.Item
			if simple {
				filters, err := inbox.ParseFilters(filterNames)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				items = inbox.Simple(tc.Threads(), a, inbox.SimpleQuery{Filters: filters, Search: search, Me: me})
			} else {
				view, err := inbox.ParseView(viewName)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				items = inbox.Workflow(tc.Threads(), a, inbox.Query{View: view, Search: search, Me: me})
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No threads.")
				return nil
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().String("view", string(inbox.ViewUnassigned), "workflow view: "+viewNames())
	cmd.Flags().String("search", "", "only threads matching this text")
	cmd.Flags().Bool("simple", false, "use the simple surface instead of a workflow view")
	cmd.Flags().StringSlice("filter", nil, "simple surface filter toggle (repeatable)")

	return cmd
}

// NewCountsCmd creates the counts command.
func NewCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show the number of threads in each workflow view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			tc := cache.New(ctx.Store, ctx.Query())
			if err := tc.Invalidate(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}
			counts := inbox.CountViews(tc.Threads(), ctx.Annotator(), ctx.Config.Actor.Email)

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			for _, v := range inbox.Views {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", v.Title(), counts[v])
			}
			return nil
		},
	}
}

func printItems(w io.Writer, items []inbox.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDIR\tINTENT\tCATEGORY\tSUBJECT")
	for _, it := range items {
		intent := "-"
		if it.Annotation.Intent != nil {
			intent = string(it.Annotation.Intent.Bucket)
		}
		category := string(it.Annotation.Category.Value)
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Thread.ID, it.Annotation.Status, it.Annotation.Direction, intent, category, it.Thread.Subject)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func viewNames() string {
	names := make([]string, 0, len(inbox.Views))
	for _, v := range inbox.Views {
		names = append(names, string(v))
	}
	return strings.Join(names, "|")
}
