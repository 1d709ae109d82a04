// Package snapshot stores rendered partition DDL so later runs can be
// diffed against it.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johndauphine/partddl/internal/dbconfig"
)

// ErrNotFound is returned by Latest when no snapshot exists for an object.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one stored rendering of an object's partition DDL.
type Snapshot struct {
	ID        string
	Schema    string
	Object    string
	Kind      string // TABLE or INDEX
	DDL       string
	Checksum  string
	CreatedAt time.Time
}

// New creates a snapshot with a fresh ID and checksum.
func New(schema, object, kind, ddl string) Snapshot {
	return Snapshot{
		ID:        uuid.NewString(),
		Schema:    schema,
		Object:    object,
		Kind:      kind,
		DDL:       ddl,
		Checksum:  Checksum(ddl),
		CreatedAt: time.Now().UTC(),
	}
}

// Checksum returns the hex SHA-256 of ddl.
func Checksum(ddl string) string {
	sum := sha256.Sum256([]byte(ddl))
	return hex.EncodeToString(sum[:])
}

// Store persists snapshots.
type Store interface {
	// Save stores s. Saving a snapshot whose checksum equals the latest one
	// for the same object is a no-op that reports saved=false.
	Save(ctx context.Context, s Snapshot) (saved bool, err error)
	// Latest returns the most recent snapshot for the object, or ErrNotFound.
	Latest(ctx context.Context, schema, object, kind string) (*Snapshot, error)
	Close() error
}

// Open opens the store described by cfg.
func Open(ctx context.Context, cfg dbconfig.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres", "postgresql", "pg":
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported snapshot store type %q", cfg.Type)
	}
}
