// Package command implements the inbox command line.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "inbox"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd builds the command tree. Running the root command without a
// subcommand opens the interactive session.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Triage shared email threads from the terminal",
		Long:          "Inbox sorts synced email threads into workflow views and keeps them in step with the remote mail sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runSession,
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/inbox-triage/config.yaml)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewListCmd(),
		NewCountsCmd(),
		NewSyncCmd(),
		NewImportCmd(),
		NewBulkCmd(),
		NewThreadCmd(),
		NewConfigCmd(),
		NewTokenCmd(),
	)

	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
