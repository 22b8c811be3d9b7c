package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inbox-triage/internal/model"
)

// defaultPageSize bounds a ListThreads page when the query sets no limit.
const defaultPageSize = 100

// threadColumns is the column order shared by every thread SELECT.
const threadColumns = `id, subject, snippet,
	last_message_date, last_internal_message_at, last_external_message_at,
	from_address, to_addresses, counterpart_name, last_direction,
	user_status, next_action_status, assigned_to, assigned_to_name,
	pinned_at, is_read, is_read_updated_at, project_id, contract_id,
	message_count, is_deleted, created_at, updated_at, last_message_ms`

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// Bulk writes run concurrently; wait for the write lock instead
		// of failing with SQLITE_BUSY.
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := newStore(db)
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func newStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertThreads inserts new threads and refreshes the sync-owned fields of
// existing ones. Workflow fields (status, assignment, pin, read state,
// links) are never overwritten by a re-sync.
func (s *SQLiteStore) UpsertThreads(ctx context.Context, threads []model.Thread) error {
	if len(threads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO threads (
			id, subject, snippet,
			last_message_date, last_message_ms,
			last_internal_message_at, last_external_message_at,
			from_address, to_addresses, counterpart_name, last_direction,
			user_status, next_action_status, assigned_to, assigned_to_name,
			pinned_at, is_read, is_read_updated_at, project_id, contract_id,
			message_count, is_deleted, created_at, updated_at
		) VALUES (
			?, ?, ?,
			?, ?,
			?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			snippet = excluded.snippet,
			last_message_date = excluded.last_message_date,
			last_message_ms = excluded.last_message_ms,
			last_internal_message_at = excluded.last_internal_message_at,
			last_external_message_at = excluded.last_external_message_at,
			from_address = excluded.from_address,
			to_addresses = excluded.to_addresses,
			counterpart_name = excluded.counterpart_name,
			last_direction = excluded.last_direction,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, t := range threads {
		if t.ID == "" {
			return errors.New("upserting thread: empty id")
		}
		to, err := json.Marshal(nonNil(t.ToAddresses))
		if err != nil {
			return fmt.Errorf("marshaling to_addresses for thread %s: %w", t.ID, err)
		}
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err = stmt.ExecContext(ctx,
			t.ID, t.Subject, t.Snippet,
			t.LastMessageDate, model.Millis(t.LastMessageDate),
			t.LastInternalMessageAt, t.LastExternalMessageAt,
			t.FromAddress, string(to), t.CounterpartName, t.LastDirection,
			t.UserStatus, t.NextActionStatus, model.NormalizeAddress(t.AssignedTo), t.AssignedToName,
			t.PinnedAt, boolToInt(t.IsRead), t.IsReadUpdatedAt, t.ProjectID, t.ContractID,
			t.MessageCount, boolToInt(t.IsDeleted), createdAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("upserting thread %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// likeEscaper quotes the LIKE wildcards in a literal, using \ as the
// escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListThreads returns one page of threads visible to q.Actor, newest
// first.
func (s *SQLiteStore) ListThreads(ctx context.Context, q ThreadQuery) (*ThreadPage, error) {
	var conditions []string
	var args []interface{}

	if !q.IncludeDeleted {
		conditions = append(conditions, "is_deleted = 0")
	}
	if !q.AllMailboxes {
		actor := model.NormalizeAddress(q.Actor)
		conditions = append(conditions,
			`(trim(assigned_to) = '' OR lower(assigned_to) = ? OR lower(from_address) = ? OR lower(to_addresses) LIKE ? ESCAPE '\')`)
		args = append(args, actor, actor, `%"`+likeEscaper.Replace(actor)+`"%`)
	}
	if !q.Cursor.IsZero() {
		conditions = append(conditions, "(last_message_ms < ? OR (last_message_ms = ? AND id > ?))")
		args = append(args, q.Cursor.BeforeMS, q.Cursor.BeforeMS, q.Cursor.AfterID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := "SELECT " + threadColumns + " FROM threads"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY last_message_ms DESC, id ASC LIMIT %d", limit+1)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	page := &ThreadPage{}
	var lastMS int64
	for rows.Next() {
		t, ms, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		if len(page.Threads) == limit {
			page.HasMore = true
			break
		}
		page.Threads = append(page.Threads, t)
		lastMS = ms
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating threads: %w", err)
	}

	if page.HasMore {
		last := page.Threads[len(page.Threads)-1]
		page.Next = Cursor{BeforeMS: lastMS, AfterID: last.ID}
	}
	return page, nil
}

// GetThread retrieves a single thread by its ID.
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+threadColumns+" FROM threads WHERE id = ?", id)

	t, _, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting thread %s: %w", id, ErrThreadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread %s: %w", id, err)
	}
	return &t, nil
}

// UpdateThread applies a partial patch. Setting IsRead also stamps the
// read-state timestamp.
func (s *SQLiteStore) UpdateThread(ctx context.Context, id string, patch model.ThreadPatch) error {
	if patch.Empty() {
		return nil
	}

	now := s.now().UTC()
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.UserStatus != nil {
		set("user_status", *patch.UserStatus)
	}
	if patch.NextActionStatus != nil {
		set("next_action_status", *patch.NextActionStatus)
	}
	if patch.AssignedTo != nil {
		set("assigned_to", model.NormalizeAddress(*patch.AssignedTo))
	}
	if patch.AssignedToName != nil {
		set("assigned_to_name", *patch.AssignedToName)
	}
	if patch.PinnedAt != nil {
		set("pinned_at", *patch.PinnedAt)
	}
	if patch.IsRead != nil {
		set("is_read", boolToInt(*patch.IsRead))
		set("is_read_updated_at", model.FormatTimestamp(now))
	}
	if patch.ProjectID != nil {
		set("project_id", *patch.ProjectID)
	}
	if patch.ContractID != nil {
		set("contract_id", *patch.ContractID)
	}
	if patch.IsDeleted != nil {
		set("is_deleted", boolToInt(*patch.IsDeleted))
	}
	set("updated_at", now)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE threads SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating thread %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating thread %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating thread %s: %w", id, ErrThreadNotFound)
	}
	return nil
}

// CreateNote records an audit entry or note against a thread.
func (s *SQLiteStore) CreateNote(ctx context.Context, note model.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Kind == "" {
		note.Kind = model.NoteKindNote
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, thread_id, kind, body, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		note.ID, note.ThreadID, note.Kind, note.Body, note.Author, note.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating note for thread %s: %w", note.ThreadID, err)
	}
	return nil
}

// GetNotes returns the notes for a thread, oldest first.
func (s *SQLiteStore) GetNotes(ctx context.Context, threadID string) ([]model.Note, error) {
	var notes []model.Note
	err := s.db.SelectContext(ctx, &notes, `
		SELECT id, thread_id, kind, body, author, created_at
		FROM notes WHERE thread_id = ? ORDER BY created_at, id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying notes for thread %s: %w", threadID, err)
	}
	return notes, nil
}

// rowScanner is satisfied by *sqlx.Rows and *sqlx.Row.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanThread scans a thread row selected with threadColumns and returns
// it with its stored last_message_ms.
func scanThread(row rowScanner) (model.Thread, int64, error) {
	var (
		t       model.Thread
		to      string
		isRead  int
		deleted int
		ms      int64
	)

	err := row.Scan(
		&t.ID, &t.Subject, &t.Snippet,
		&t.LastMessageDate, &t.LastInternalMessageAt, &t.LastExternalMessageAt,
		&t.FromAddress, &to, &t.CounterpartName, &t.LastDirection,
		&t.UserStatus, &t.NextActionStatus, &t.AssignedTo, &t.AssignedToName,
		&t.PinnedAt, &isRead, &t.IsReadUpdatedAt, &t.ProjectID, &t.ContractID,
		&t.MessageCount, &deleted, &t.CreatedAt, &t.UpdatedAt, &ms,
	)
	if err != nil {
		return model.Thread{}, 0, fmt.Errorf("scanning thread row: %w", err)
	}

	t.IsRead = isRead != 0
	t.IsDeleted = deleted != 0

	if to != "" {
		if err := json.Unmarshal([]byte(to), &t.ToAddresses); err != nil {
			return model.Thread{}, 0, fmt.Errorf("unmarshaling to_addresses for thread %s: %w", t.ID, err)
		}
	}

	return t, ms, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
