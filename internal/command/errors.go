package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/credential"
	"github.com/nhle/inbox-triage/internal/source"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case source.IsAuthError(err), errors.Is(err, credential.ErrNoToken):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: store a sync token with: inbox token set")
	case isSchemaError(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the local database looks out of date. Remove it and sync again.")
	}

	return err
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}
