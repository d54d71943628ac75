package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/engram/internal/model"
)

// SchemaVersion is the current schema version recorded in the meta table.
// The version number is a fast path only: every migration step re-checks for
// its target table/column before applying.
const SchemaVersion = 5

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	event_type  TEXT NOT NULL
	            CHECK(event_type IN ('discovery','decision','warning','mutation','outcome')),
	agent_id    TEXT NOT NULL,
	content     TEXT NOT NULL
	            CHECK(length(content) <= 2000),
	scope       TEXT,
	status      TEXT NOT NULL DEFAULT 'active'
	            CHECK(status IN ('active','resolved','superseded')),
	priority    TEXT NOT NULL DEFAULT 'normal'
	            CHECK(priority IN ('critical','high','normal','low')),
	resolved_reason TEXT,
	superseded_by_event_id TEXT,
	session_id  TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type      ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_agent     ON events(agent_id);
CREATE INDEX IF NOT EXISTS idx_events_status    ON events(status);

CREATE TABLE IF NOT EXISTS event_links (
	from_id    TEXT NOT NULL,
	to_id      TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id)
);
CREATE INDEX IF NOT EXISTS idx_event_links_to ON event_links(to_id);

CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
	content,
	scope,
	content=events,
	content_rowid=rowid
);

CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
	INSERT INTO events_fts(rowid, content, scope)
	VALUES (new.rowid, new.content, new.scope);
END;

CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
	INSERT INTO events_fts(events_fts, rowid, content, scope)
	VALUES ('delete', old.rowid, old.content, old.scope);
END;

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	topic         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active'
	              CHECK(status IN ('active','paused','completed')),
	models        TEXT NOT NULL,
	system_prompt TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	summary       TEXT
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	conv_id    TEXT NOT NULL REFERENCES conversations(id),
	role       TEXT NOT NULL
	           CHECK(role IN ('system','user','assistant')),
	sender     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conv_messages_conv
	ON conversation_messages(conv_id, id);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	agent_id    TEXT NOT NULL,
	focus       TEXT NOT NULL,
	scope       TEXT,
	description TEXT,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(ended_at)
	WHERE ended_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_id);
`

// SQLiteStore implements Store using SQLite with WAL mode and FTS5.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// Create opens or creates a database at dbPath, creating parent directories
// and the full schema as needed, and brings it to the current version.
func Create(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %v", model.ErrStoreUnavailable, err)
	}
	return open(dbPath, true)
}

// Open opens an existing database at dbPath. It fails with ErrStoreUnavailable
// if the file is missing or not readable as SQLite.
func Open(dbPath string) (*SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %s (run 'engram init' first)", model.ErrStoreUnavailable, dbPath)
	}
	return open(dbPath, false)
}

func open(dbPath string, create bool) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	// Fail fast if the file is not readable as SQLite. No partial recovery.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", model.ErrStoreUnavailable, dbPath, err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if create {
		if _, err := db.Exec(schemaSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	return prefix + "-" + strings.ToLower(id.String())
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// migrate brings an initialized database to the current schema version.
// Migrations are forward-only and additive; each step detects "already
// applied" by checking for its target table or column, so re-running the
// chain is a no-op regardless of what the recorded version says.
func (s *SQLiteStore) migrate() error {
	ok, err := s.tableExists("meta")
	if err != nil {
		return err
	}
	if !ok {
		// Not yet initialized; nothing to migrate.
		return nil
	}

	ctx := context.Background()
	version := 1
	if raw, err := s.GetMeta(ctx, "schema_version"); err == nil && raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			version = v
		}
	}

	if version < 2 {
		ok, err := s.tableExists("event_links")
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.db.Exec(`
				CREATE TABLE event_links (
					from_id TEXT NOT NULL,
					to_id   TEXT NOT NULL,
					PRIMARY KEY (from_id, to_id)
				);
				CREATE INDEX idx_event_links_to ON event_links(to_id);
			`); err != nil {
				return fmt.Errorf("migrate to v2: %w", err)
			}
		}
		if err := s.SetMeta(ctx, "schema_version", "2"); err != nil {
			return err
		}
	}

	if version < 3 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS conversations (
				id            TEXT PRIMARY KEY,
				topic         TEXT NOT NULL,
				status        TEXT NOT NULL DEFAULT 'active'
				              CHECK(status IN ('active','paused','completed')),
				models        TEXT NOT NULL,
				system_prompt TEXT,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL,
				summary       TEXT
			);

			CREATE TABLE IF NOT EXISTS conversation_messages (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				conv_id    TEXT NOT NULL REFERENCES conversations(id),
				role       TEXT NOT NULL
				           CHECK(role IN ('system','user','assistant')),
				sender     TEXT NOT NULL,
				content    TEXT NOT NULL,
				created_at TEXT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_conv_messages_conv
				ON conversation_messages(conv_id, id);
		`); err != nil {
			return fmt.Errorf("migrate to v3: %w", err)
		}
		if err := s.SetMeta(ctx, "schema_version", "3"); err != nil {
			return err
		}
	}

	if version < 4 {
		cols, err := s.tableColumns("events")
		if err != nil {
			return err
		}
		add := map[string]string{
			"status":                 `ALTER TABLE events ADD COLUMN status TEXT NOT NULL DEFAULT 'active'`,
			"priority":               `ALTER TABLE events ADD COLUMN priority TEXT NOT NULL DEFAULT 'normal'`,
			"resolved_reason":        `ALTER TABLE events ADD COLUMN resolved_reason TEXT`,
			"superseded_by_event_id": `ALTER TABLE events ADD COLUMN superseded_by_event_id TEXT`,
		}
		for _, col := range []string{"status", "priority", "resolved_reason", "superseded_by_event_id"} {
			if !cols[col] {
				if _, err := s.db.Exec(add[col]); err != nil {
					return fmt.Errorf("migrate to v4: add %s: %w", col, err)
				}
			}
		}
		if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)`); err != nil {
			return fmt.Errorf("migrate to v4: %w", err)
		}
		if err := s.SetMeta(ctx, "schema_version", "4"); err != nil {
			return err
		}
	}

	if version < 5 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS sessions (
				id          TEXT PRIMARY KEY,
				agent_id    TEXT NOT NULL,
				focus       TEXT NOT NULL,
				scope       TEXT,
				description TEXT,
				started_at  TEXT NOT NULL,
				ended_at    TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(ended_at)
				WHERE ended_at IS NULL;
			CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_id);
		`); err != nil {
			return fmt.Errorf("migrate to v5: %w", err)
		}
		cols, err := s.tableColumns("events")
		if err != nil {
			return err
		}
		if !cols["session_id"] {
			if _, err := s.db.Exec(`ALTER TABLE events ADD COLUMN session_id TEXT`); err != nil {
				return fmt.Errorf("migrate to v5: add session_id: %w", err)
			}
		}
		if err := s.SetMeta(ctx, "schema_version", "5"); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) tableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// GetMeta reads from the meta key-value side table. Missing keys return "".
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta writes to the meta table (upsert).
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}
