package command

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/inbox-triage/internal/app"
	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/live"
	"github.com/nhle/inbox-triage/internal/model"
)

// runSession opens the interactive inbox.
func runSession(cmd *cobra.Command, _ []string) error {
	ctx, err := GetContext(cmd, true)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer ctx.Close()

	cfg := ctx.Config
	log := ctx.Logger
	if cfg.Log.File == "" {
		f, err := openLogFile(filepath.Join(model.ConfigDir(), "inbox.log"))
		if err == nil {
			defer f.Close()
			log = cfg.SetupLogger(f)
		}
	}

	tc := cache.New(ctx.Store, ctx.Query())
	orch, err := ctx.Orchestrator(tc)
	if err != nil {
		// The session still works against the local store.
		log.Warn().Err(err).Msg("mail sync disabled")
	}

	deps := app.Deps{
		Config:       cfg,
		Store:        ctx.Store,
		Cache:        tc,
		Orchestrator: orch,
		Batcher: bulk.NewBatcher(ctx.Store, tc, bulk.Options{
			ChunkSize: cfg.Bulk.ChunkSize,
			Pause:     cfg.BulkPause(),
			Author:    cfg.Actor.Email,
			Logger:    log,
		}),
		Actions: inbox.NewActions(ctx.Store, tc, cfg.Actor, log),
		Logger:  log,
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := live.New(cfg.Store.Path, cfg.DebounceWait(), log)
	if err != nil {
		log.Warn().Err(err).Msg("live updates disabled")
	} else {
		watcher.Start(runCtx)
		defer watcher.Close()
		deps.Watcher = watcher
	}

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen(), tea.WithReportFocus())

	model.WatchConfig(ctx.ConfigPath, func(next *model.AppConfig, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("config reload skipped")
			return
		}
		p.Send(app.ConfigChangedMsg{Config: next})
	})

	if _, err := p.Run(); err != nil {
		return writeCommandError(cmd, err)
	}
	return nil
}
