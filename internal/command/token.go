package command

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/credential"
	"github.com/nhle/inbox-triage/internal/model"
)

// NewTokenCmd creates the token command group.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the sync function token in the system keyring",
	}
	cmd.AddCommand(newTokenSetCmd(), newTokenDeleteCmd())
	return cmd
}

func newTokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [token]",
		Short: "Store the sync function token (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tokenKey(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return writeCommandError(cmd, fmt.Errorf("reading token: %w", err))
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return writeCommandError(cmd, errors.New("token is empty"))
			}

			vault, err := credential.Open(model.ConfigDir())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := vault.SetSyncToken(key, token); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
			return nil
		},
	}
}

func newTokenDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored sync function token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tokenKey(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			vault, err := credential.Open(model.ConfigDir())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := vault.Delete(key); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return nil
		},
	}
}

func tokenKey(cmd *cobra.Command) (string, error) {
	cfg, err := model.LoadConfig(configPath(cmd))
	if err != nil {
		return "", err
	}
	return cfg.Sync.TokenKey, nil
}
