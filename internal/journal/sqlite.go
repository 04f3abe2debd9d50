package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/door-controller/internal/logic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is a journal backed by a SQLite database file. Record only queues
// the insert; a single worker goroutine runs inserts and reads in order, so
// a read sees every activity recorded before it.
type SQLite struct {
	db     *sql.DB
	writer *worker
	hasher *Hasher
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(ctx context.Context, path string, h *Hasher) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := openDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db, writer: newWorker(db, queueSize), hasher: h}, nil
}

func openDSN(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal ping: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Record queues the insert of a and returns without waiting for it. When
// the queue is full the activity is dropped and ErrBacklog returned.
func (s *SQLite) Record(ctx context.Context, a logic.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := s.hasher.entryFor(a)
	var uid any
	if e.UIDHash != nil {
		uid = e.UIDHash
	}
	var armed int
	if e.Armed {
		armed = 1
	}
	return s.writer.enqueue(func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO activities(at_ms, type, state, method, uid_hash, attempts, armed)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			e.Time.UTC().UnixMilli(), string(e.Type), string(e.State), string(e.Method),
			uid, e.Attempts, armed,
		); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		return nil
	})
}

// Recent returns up to n entries, newest first.
func (s *SQLite) Recent(ctx context.Context, n int) ([]Entry, error) {
	var out []Entry
	err := s.writer.do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT id, at_ms, type, state, method, uid_hash, attempts, armed
FROM activities ORDER BY id DESC LIMIT ?;
`, n)
		if err != nil {
			return fmt.Errorf("query activities: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e            Entry
				atMs         int64
				typ, st, met string
				armed        int
			)
			if err := rows.Scan(&e.ID, &atMs, &typ, &st, &met, &e.UIDHash, &e.Attempts, &armed); err != nil {
				return fmt.Errorf("scan activity: %w", err)
			}
			e.Time = time.UnixMilli(atMs).UTC()
			e.Type = logic.ActivityType(typ)
			e.State = logic.State(st)
			e.Method = logic.Method(met)
			e.Armed = armed != 0
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountByUID returns how many activities carried the given card.
func (s *SQLite) CountByUID(ctx context.Context, uid string) (int, error) {
	var n int
	err := s.writer.do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM activities WHERE uid_hash = ?;", s.hasher.Hash(uid),
		).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

// Dropped returns how many activities were dropped on a full queue.
func (s *SQLite) Dropped() uint64 { return s.writer.dropped.Load() }

// Close waits for queued writes and closes the database. Record returns
// ErrClosed after Close.
func (s *SQLite) Close() error {
	s.writer.close()
	return s.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_ms INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	type migration struct {
		version int
		name    string
		sql     string
	}
	var ms []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name())
		if err != nil {
			return err
		}
		b, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		ms = append(ms, migration{version: v, name: e.Name(), sql: string(b)})
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].version < ms[j].version })

	for _, m := range ms {
		var v int
		err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = ?;", m.version).Scan(&v)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations(version, applied_at_ms) VALUES(?, ?);",
			m.version, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.name, err)
		}
	}
	return nil
}

// parseVersion reads the numeric prefix of a migration file, e.g.
// 0001_init.sql is version 1.
func parseVersion(filename string) (int, error) {
	prefix, _, _ := strings.Cut(filename, "_")
	s := strings.TrimLeft(prefix, "0")
	if s == "" {
		s = "0"
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad migration version %s: %w", filename, err)
	}
	return v, nil
}
