package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/johndauphine/partddl/internal/logging"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ddl_snapshots (
	id          TEXT PRIMARY KEY,
	schema_name TEXT NOT NULL,
	object_name TEXT NOT NULL,
	object_kind TEXT NOT NULL,
	ddl         TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	seq         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ddl_snapshots_object
	ON ddl_snapshots (schema_name, object_name, object_kind, seq);
`

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite store at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}

	logging.Debug("Opened SQLite snapshot store at %s", path)
	return &SQLiteStore{db: db}, nil
}

// Save stores s unless it matches the latest snapshot for the object.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		lastChecksum sql.NullString
		lastSeq      sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT checksum, seq FROM ddl_snapshots
		WHERE schema_name = ? AND object_name = ? AND object_kind = ?
		ORDER BY seq DESC LIMIT 1`,
		snap.Schema, snap.Object, snap.Kind).Scan(&lastChecksum, &lastSeq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("reading latest snapshot: %w", err)
	}
	if lastChecksum.Valid && lastChecksum.String == snap.Checksum {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ddl_snapshots (id, schema_name, object_name, object_kind, ddl, checksum, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Schema, snap.Object, snap.Kind, snap.DDL, snap.Checksum,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano), lastSeq.Int64+1)
	if err != nil {
		return false, fmt.Errorf("inserting snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing snapshot: %w", err)
	}
	return true, nil
}

// Latest returns the most recent snapshot for the object.
func (s *SQLiteStore) Latest(ctx context.Context, schema, object, kind string) (*Snapshot, error) {
	var (
		snap    Snapshot
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, schema_name, object_name, object_kind, ddl, checksum, created_at
		FROM ddl_snapshots
		WHERE schema_name = ? AND object_name = ? AND object_kind = ?
		ORDER BY seq DESC LIMIT 1`,
		schema, object, kind).Scan(&snap.ID, &snap.Schema, &snap.Object, &snap.Kind, &snap.DDL, &snap.Checksum, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot timestamp %q: %w", created, err)
	}
	return &snap, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
