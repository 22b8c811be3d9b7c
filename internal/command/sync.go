package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/cache"
	appsync "github.com/nhle/inbox-triage/internal/sync"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull new mail through the remote sync function once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			tc := cache.New(ctx.Store, ctx.Query())
			orch, err := ctx.Orchestrator(tc)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if orch == nil {
				return writeCommandError(cmd, errors.New("sync.function_url is not configured"))
			}

			res := orch.Run(cmd.Context(), appsync.TriggerRetry)

			if ctx.JSONMode {
				if err := writeJSON(cmd.OutOrStdout(), syncReport(res)); err != nil {
					return err
				}
			} else if res.Notice != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.Notice.Message)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Sync %s.\n", res.Outcome)
			}

			if res.Outcome == appsync.OutcomeFailed {
				return writeCommandError(cmd, res.Err)
			}
			return nil
		},
	}
}

type syncJSON struct {
	Outcome        string   `json:"outcome"`
	ThreadsSynced  int      `json:"threads_synced"`
	MessagesSynced int      `json:"messages_synced"`
	Errors         []string `json:"errors,omitempty"`
	LockedUntil    string   `json:"locked_until,omitempty"`
	Message        string   `json:"message,omitempty"`
}

func syncReport(res appsync.Result) syncJSON {
	out := syncJSON{Outcome: res.Outcome.String()}
	if res.Summary != nil {
		out.ThreadsSynced = res.Summary.ThreadsSynced
		out.MessagesSynced = res.Summary.MessagesSynced
		out.Errors = res.Summary.Errors
	}
	if !res.LockedUntil.IsZero() {
		out.LockedUntil = res.LockedUntil.Format(time.RFC3339)
	}
	if res.Notice != nil {
		out.Message = res.Notice.Message
	}
	return out
}
