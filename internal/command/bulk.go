package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/cache"
)

// NewBulkCmd creates the bulk command.
func NewBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <action> <thread-id>...",
		Short: "Apply one action to many threads in paced chunks",
		Long: `Bulk applies an action to every listed thread. Threads are written in
chunks with a pause between chunks; the first failing chunk stops the run.

Actions: read, unread, close, assign, link-project, link-contract.`,
		Example: `  inbox bulk read t1 t2 t3
  inbox bulk link-project t1 t2 --target proj-42`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			target, _ := cmd.Flags().GetString("target")
			action, err := bulk.ParseAction(args[0], target, ctx.Config.Actor)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			cfg := ctx.Config
			tc := cache.New(ctx.Store, ctx.Query())
			b := bulk.NewBatcher(ctx.Store, tc, bulk.Options{
				ChunkSize: cfg.Bulk.ChunkSize,
				Pause:     cfg.BulkPause(),
				Author:    cfg.Actor.Email,
				Logger:    ctx.Logger,
			})

			res := b.Apply(cmd.Context(), bulk.NewSelection(args[1:]...), action)

			if ctx.JSONMode {
				report := map[string]any{
					"action":  res.Action,
					"applied": res.Applied,
					"total":   res.Total,
					"chunks":  res.Chunks,
				}
				if res.Err != nil {
					report["error"] = res.Err.Error()
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else if res.Notice != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.Notice.Message)
			}

			if res.Err != nil {
				return writeCommandError(cmd, res.Err)
			}
			return nil
		},
	}

	cmd.Flags().String("target", "", "project or contract id for link actions")
	return cmd
}
