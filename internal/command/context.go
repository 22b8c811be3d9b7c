package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/credential"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/source"
	"github.com/nhle/inbox-triage/internal/source/mailsync"
	"github.com/nhle/inbox-triage/internal/store"
	appsync "github.com/nhle/inbox-triage/internal/sync"
	"github.com/nhle/inbox-triage/internal/triage"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	ConfigPath string
	Config     *model.AppConfig
	Store      *store.SQLiteStore
	Logger     zerolog.Logger
	JSONMode   bool

	logFile io.Closer
}

// GetContext loads the configuration, sets up logging and opens the
// record store. Log lines go to stderr unless a log file is configured or
// quiet is set, in which case they go to the file or nowhere.
func GetContext(cmd *cobra.Command, quiet bool) (*CommandContext, error) {
	path := configPath(cmd)
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	ctx := &CommandContext{ConfigPath: path, Config: cfg, JSONMode: jsonMode}

	var w io.Writer = cmd.ErrOrStderr()
	switch {
	case cfg.Log.File != "":
		f, err := openLogFile(cfg.Log.File)
		if err != nil {
			return nil, err
		}
		ctx.logFile = f
		w = f
	case quiet:
		w = io.Discard
	}
	ctx.Logger = cfg.SetupLogger(w)

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	ctx.Store = s
	return ctx, nil
}

// Close releases the store and the log file.
func (c *CommandContext) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("closing store")
		}
	}
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}

// Query returns the thread visibility query for the configured actor.
func (c *CommandContext) Query() store.ThreadQuery {
	return store.ThreadQuery{
		Actor:        c.Config.Actor.Email,
		AllMailboxes: c.Config.Actor.AllMailboxes,
	}
}

// Annotator returns a classifier set up for the configured organization.
func (c *CommandContext) Annotator() *triage.Annotator {
	org := triage.NewAddressSet(c.Config.Actor.Email, c.Config.Team)
	return triage.NewAnnotator(org, c.Config.Triage.CategoryThreshold)
}

// Syncer returns the remote sync client, or nil when no function URL is
// configured.
func (c *CommandContext) Syncer() (source.Syncer, error) {
	url := c.Config.Sync.FunctionURL
	if url == "" {
		return nil, nil
	}
	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		return nil, err
	}
	token, err := vault.SyncToken(c.Config.Sync.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("loading sync token: %w", err)
	}
	return mailsync.NewClient(url, token).WithLogger(c.Logger), nil
}

// Orchestrator wires the sync client to tc, or returns nil when sync is
// not configured.
func (c *CommandContext) Orchestrator(tc *cache.ThreadCache) (*appsync.Orchestrator, error) {
	remote, err := c.Syncer()
	if err != nil || remote == nil {
		return nil, err
	}
	return appsync.New(remote, tc, appsync.Options{
		MinInterval: c.Config.MinSyncInterval(),
		StaleAfter:  c.Config.StaleAfter(),
		Logger:      c.Logger,
	}), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
