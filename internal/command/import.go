package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/model"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Upsert thread records from a JSON array",
		Long:  "Import writes thread records into the local store the same way the mail sync does. Existing threads keep their workflow fields.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			threads, err := readThreads(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Store.UpsertThreads(cmd.Context(), threads); err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Logger.Info().Int("threads", len(threads)).Str("file", args[0]).Msg("threads imported")

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"imported": len(threads)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d threads.\n", len(threads))
			return nil
		},
	}
}

func readThreads(path string) ([]model.Thread, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var threads []model.Thread
	if err := json.Unmarshal(data, &threads); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, t := range threads {
		if t.ID == "" {
			return nil, fmt.Errorf("parsing %s: thread %d has no id", path, i)
		}
	}
	return threads, nil
}
