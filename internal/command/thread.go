package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/crossref"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/triage"
)

// NewThreadCmd creates the thread command group.
func NewThreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Show or change a single thread",
	}

	assign := threadActionCmd("assign <id> <email>", "Assign a thread to a team member", 2,
		func(ctx context.Context, cmd *cobra.Command, a *inbox.Actions, args []string) (string, error) {
			name, _ := cmd.Flags().GetString("name")
			return "Assigned.", a.Assign(ctx, args[0], args[1], name)
		})
	assign.Flags().String("name", "", "display name of the assignee")

	cmd.AddCommand(
		newThreadShowCmd(),
		threadActionCmd("status <id> <needs_action|waiting|fyi|done>", "Set the workflow status", 2,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Status updated.", a.SetStatus(ctx, args[0], triage.Status(args[1]))
			}),
		assign,
		threadActionCmd("unassign <id>", "Clear the assignee", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Unassigned.", a.Assign(ctx, args[0], "", "")
			}),
		threadActionCmd("close <id>", "Close a thread", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Closed.", a.Close(ctx, args[0])
			}),
		threadActionCmd("reopen <id>", "Reopen a closed thread", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Reopened.", a.Reopen(ctx, args[0])
			}),
		threadActionCmd("pin <id>", "Pin a thread", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Pinned.", a.Pin(ctx, args[0])
			}),
		threadActionCmd("unpin <id>", "Unpin a thread", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Unpinned.", a.Unpin(ctx, args[0])
			}),
		threadActionCmd("link-project <id> <project-id>", "Link a thread to a project", 2,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Linked.", a.LinkProject(ctx, args[0], args[1])
			}),
		threadActionCmd("link-contract <id> <contract-id>", "Link a thread to a contract", 2,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Linked.", a.LinkContract(ctx, args[0], args[1])
			}),
		threadActionCmd("note <id> <text>", "Add a note to a thread", 2,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Note added.", a.AddNote(ctx, args[0], args[1])
			}),
		threadActionCmd("delete <id>", "Hide a thread from every view", 1,
			func(ctx context.Context, _ *cobra.Command, a *inbox.Actions, args []string) (string, error) {
				return "Deleted.", a.Delete(ctx, args[0])
			}),
	)
	return cmd
}

type threadActionFunc func(ctx context.Context, cmd *cobra.Command, a *inbox.Actions, args []string) (string, error)

func threadActionCmd(use, short string, nargs int, fn threadActionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			tc := cache.New(ctx.Store, ctx.Query())
			actions := inbox.NewActions(ctx.Store, tc, ctx.Config.Actor, ctx.Logger)
			msg, err := fn(cmd.Context(), cmd, actions, args)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newThreadShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a thread with its annotations and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			t, err := ctx.Store.GetThread(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			notes, err := ctx.Store.GetNotes(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			item := inbox.Item{Thread: *t, Annotation: ctx.Annotator().Annotate(*t)}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"item": item, "notes": notes})
			}

			w := cmd.OutOrStdout()
			ann := item.Annotation
			fmt.Fprintf(w, "%s\n", t.Subject)
			fmt.Fprintf(w, "  status:    %s\n", ann.Status)
			fmt.Fprintf(w, "  direction: %s\n", ann.Direction)
			if ann.Intent != nil {
				fmt.Fprintf(w, "  intent:    %s (%s)\n", ann.Intent.Bucket, ann.Intent.Reason)
			}
			fmt.Fprintf(w, "  category:  %s %d (%s)\n", ann.Category.Value, ann.Category.Confidence, ann.Category.Reason)
			if strings.TrimSpace(t.AssignedTo) != "" {
				fmt.Fprintf(w, "  assigned:  %s\n", t.AssignedTo)
			}
			if refs := crossref.Unlinked(*t, nil); len(refs) > 0 {
				fmt.Fprintf(w, "  mentions:  %s\n", strings.Join(refs, ", "))
			}
			for _, n := range notes {
				fmt.Fprintf(w, "  - %s %s: %s\n", n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Author, n.Body)
			}
			return nil
		},
	}
}
