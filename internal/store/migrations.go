package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	id                       TEXT PRIMARY KEY,
	subject                  TEXT NOT NULL DEFAULT '',
	snippet                  TEXT NOT NULL DEFAULT '',
	last_message_date        TEXT NOT NULL DEFAULT '',
	last_message_ms          INTEGER NOT NULL DEFAULT 0,
	last_internal_message_at TEXT NOT NULL DEFAULT '',
	last_external_message_at TEXT NOT NULL DEFAULT '',
	from_address             TEXT NOT NULL DEFAULT '',
	to_addresses             TEXT NOT NULL DEFAULT '[]',
	counterpart_name         TEXT NOT NULL DEFAULT '',
	last_direction           TEXT NOT NULL DEFAULT '',
	user_status              TEXT NOT NULL DEFAULT '',
	next_action_status       TEXT NOT NULL DEFAULT '',
	assigned_to              TEXT NOT NULL DEFAULT '',
	assigned_to_name         TEXT NOT NULL DEFAULT '',
	pinned_at                TEXT NOT NULL DEFAULT '',
	is_read                  INTEGER NOT NULL DEFAULT 0,
	is_read_updated_at       TEXT NOT NULL DEFAULT '',
	project_id               TEXT NOT NULL DEFAULT '',
	contract_id              TEXT NOT NULL DEFAULT '',
	message_count            INTEGER NOT NULL DEFAULT 0,
	is_deleted               INTEGER NOT NULL DEFAULT 0,
	created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_threads_last_message ON threads(last_message_ms DESC, id);
CREATE INDEX IF NOT EXISTS idx_threads_assigned_to ON threads(assigned_to);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL DEFAULT 'note',
	body       TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_thread_id ON notes(thread_id, created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
