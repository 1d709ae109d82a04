package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/johndauphine/partddl/internal/logging"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ddl_snapshots (
	id          UUID PRIMARY KEY,
	schema_name TEXT NOT NULL,
	object_name TEXT NOT NULL,
	object_kind TEXT NOT NULL,
	ddl         TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	seq         BIGINT NOT NULL,
	UNIQUE (schema_name, object_name, object_kind, seq)
)`

// PostgresStore keeps snapshots in a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the snapshot table exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}

	logging.Debug("Opened PostgreSQL snapshot store")
	return &PostgresStore{pool: pool}, nil
}

// Save stores s unless it matches the latest snapshot for the object.
func (p *PostgresStore) Save(ctx context.Context, snap Snapshot) (bool, error) {
	saved := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var (
			lastChecksum string
			lastSeq      int64
		)
		err := tx.QueryRow(ctx, `
			SELECT checksum, seq FROM ddl_snapshots
			WHERE schema_name = $1 AND object_name = $2 AND object_kind = $3
			ORDER BY seq DESC LIMIT 1
			FOR UPDATE`,
			snap.Schema, snap.Object, snap.Kind).Scan(&lastChecksum, &lastSeq)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reading latest snapshot: %w", err)
		}
		if err == nil && lastChecksum == snap.Checksum {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO ddl_snapshots (id, schema_name, object_name, object_kind, ddl, checksum, created_at, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			snap.ID, snap.Schema, snap.Object, snap.Kind, snap.DDL, snap.Checksum, snap.CreatedAt, lastSeq+1)
		if err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

// Latest returns the most recent snapshot for the object.
func (p *PostgresStore) Latest(ctx context.Context, schema, object, kind string) (*Snapshot, error) {
	var snap Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id::text, schema_name, object_name, object_kind, ddl, checksum, created_at
		FROM ddl_snapshots
		WHERE schema_name = $1 AND object_name = $2 AND object_kind = $3
		ORDER BY seq DESC LIMIT 1`,
		schema, object, kind).Scan(&snap.ID, &snap.Schema, &snap.Object, &snap.Kind, &snap.DDL, &snap.Checksum, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return &snap, nil
}

// Close closes the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
