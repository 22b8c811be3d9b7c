// Package bulk applies one workflow action to many threads, in capped
// chunks with a pause between them so the record store's rate limit is
// respected.
package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
)

// DefaultChunkSize is the number of threads mutated concurrently.
const DefaultChunkSize = 10

// Invalidator refreshes the thread cache after writes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Options tunes a Batcher.
type Options struct {
	ChunkSize int

	// Pause is the minimum spacing between the start of two chunks.
	Pause time.Duration

	// Author is recorded on audit notes.
	Author string

	Logger zerolog.Logger
}

// Result summarises one bulk run.
type Result struct {
	Action string

	// Chunks holds the size of every chunk that was issued, in order.
	Chunks []int

	// Applied counts threads in chunks that settled without error.
	Applied int

	Total int
	Err   error

	// Notice is the single user-visible summary of the run.
	Notice *model.Notice
}

// ResultMsg is a tea.Msg carrying the result of a bulk run started by Cmd.
type ResultMsg struct {
	Result
}

// Batcher applies actions to selections.
type Batcher struct {
	sink      store.MutationSink
	cache     Invalidator
	chunkSize int
	limiter   *rate.Limiter
	log       zerolog.Logger

	mutex  sync.RWMutex
	author string
}

// NewBatcher creates a batcher writing through sink. cache may be nil.
func NewBatcher(sink store.MutationSink, cache Invalidator, opts Options) *Batcher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	limit := rate.Inf
	if opts.Pause > 0 {
		limit = rate.Every(opts.Pause)
	}
	return &Batcher{
		sink:      sink,
		cache:     cache,
		chunkSize: opts.ChunkSize,
		limiter:   rate.NewLimiter(limit, 1),
		author:    opts.Author,
		log:       opts.Logger.With().Str("component", "bulk").Logger(),
	}
}

// SetAuthor changes the author recorded on audit notes of later runs.
func (b *Batcher) SetAuthor(author string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.author = author
}

func (b *Batcher) currentAuthor() string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.author
}

// Cmd returns a tea.Cmd that applies action to sel and reports a
// ResultMsg.
func (b *Batcher) Cmd(sel *Selection, action Action) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Result: b.Apply(context.Background(), sel, action)}
	}
}

// Apply runs action over every thread in sel. Each chunk is issued
// concurrently and must settle before the next one starts. The first
// failing chunk aborts the run; writes already issued are kept. The
// selection is cleared only when every chunk succeeded.
func (b *Batcher) Apply(ctx context.Context, sel *Selection, action Action) Result {
	ids := sel.IDs()
	res := Result{Action: action.Name, Total: len(ids)}
	if len(ids) == 0 {
		return res
	}

	for i, chunk := range Chunk(ids, b.chunkSize) {
		if err := b.limiter.Wait(ctx); err != nil {
			res.Err = fmt.Errorf("waiting for chunk %d: %w", i+1, err)
			break
		}
		res.Chunks = append(res.Chunks, len(chunk))

		if err := b.applyChunk(ctx, chunk, action); err != nil {
			res.Err = fmt.Errorf("chunk %d: %w", i+1, err)
			break
		}
		res.Applied += len(chunk)
		b.log.Debug().Int("chunk", i+1).Int("size", len(chunk)).Msg("chunk settled")
	}

	if res.Err != nil {
		b.log.Error().Err(res.Err).Str("action", action.Name).
			Int("applied", res.Applied).Int("total", res.Total).Msg("bulk action failed")
		b.refresh(ctx)
		res.Notice = notice(model.NoticeError, fmt.Sprintf("Bulk action failed: threads were not all %s.", action.Verb))
		return res
	}

	sel.Clear()
	b.refresh(ctx)
	b.log.Info().Str("action", action.Name).Int("threads", res.Applied).Msg("bulk action completed")
	res.Notice = notice(model.NoticeInfo, fmt.Sprintf("%d %s %s.", res.Applied, plural(res.Applied), action.Verb))
	return res
}

func (b *Batcher) applyChunk(ctx context.Context, ids []string, action Action) error {
	author := b.currentAuthor()
	p := pool.New().WithContext(ctx).WithMaxGoroutines(len(ids))
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			if err := b.sink.UpdateThread(ctx, id, action.Patch); err != nil {
				return fmt.Errorf("updating thread %s: %w", id, err)
			}
			if action.Audit == "" {
				return nil
			}
			note := model.Note{ThreadID: id, Kind: model.NoteKindAudit, Body: action.Audit, Author: author}
			if err := b.sink.CreateNote(ctx, note); err != nil {
				return fmt.Errorf("recording audit note on %s: %w", id, err)
			}
			return nil
		})
	}
	return p.Wait()
}

func (b *Batcher) refresh(ctx context.Context) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Invalidate(ctx); err != nil {
		b.log.Warn().Err(err).Msg("refetch after bulk action failed")
	}
}

func plural(n int) string {
	if n == 1 {
		return "thread"
	}
	return "threads"
}

func notice(level model.NoticeLevel, msg string) *model.Notice {
	n := model.NewNotice(level, msg)
	return &n
}
