package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/godror/godror"
	"github.com/johndauphine/partddl/internal/catalog"
	"github.com/johndauphine/partddl/internal/dbconfig"
	"github.com/johndauphine/partddl/internal/logging"
	"github.com/johndauphine/partddl/internal/partition"
)

// Reader is a connection to an Oracle catalog.
type Reader struct {
	db       *sql.DB
	config   *dbconfig.SourceConfig
	maxConns int
	dialect  *Dialect
	banner   string
	major    int
}

// NewReader opens and verifies a connection to the configured database.
func NewReader(ctx context.Context, cfg *dbconfig.SourceConfig, maxConns int) (*Reader, error) {
	dialect := &Dialect{}
	dsn := dialect.BuildDSN(cfg)

	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	idleConns := maxConns / 4
	if idleConns < 1 {
		idleConns = 1
	}
	db.SetMaxIdleConns(idleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// V$VERSION needs SELECT privilege; capability gating falls back to the
	// configured version when it is unreadable.
	var banner string
	if err := db.QueryRowContext(ctx, "SELECT BANNER FROM V$VERSION WHERE ROWNUM = 1").Scan(&banner); err != nil {
		logging.Debug("Could not read V$VERSION: %v", err)
		banner = "Oracle (version unknown)"
	}
	major := ParseMajorVersion(banner)

	logging.Debug("Connected to Oracle source: %s:%d/%s (%s)", cfg.Host, cfg.Port, cfg.Database, banner)

	return &Reader{
		db:       db,
		config:   cfg,
		maxConns: maxConns,
		dialect:  dialect,
		banner:   banner,
		major:    major,
	}, nil
}

// Close closes all connections.
func (r *Reader) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection.
func (r *Reader) DB() *sql.DB {
	return r.db
}

// Dialect returns the Oracle dialect.
func (r *Reader) Dialect() *Dialect {
	return r.dialect
}

// Banner returns the server version banner.
func (r *Reader) Banner() string {
	return r.banner
}

// MajorVersion returns the detected major version, or 0 if unknown.
func (r *Reader) MajorVersion() int {
	return r.major
}

// DefaultSchema returns the configured schema, or the connecting user,
// upper-cased as Oracle stores unquoted names.
func (r *Reader) DefaultSchema() string {
	if r.config.Schema != "" {
		return strings.ToUpper(r.config.Schema)
	}
	return strings.ToUpper(r.config.User)
}

// Loader returns a partition metadata provider on this connection.
func (r *Reader) Loader() *catalog.Loader {
	return catalog.NewLoader(r.db)
}

// Capabilities returns the partition capabilities of the connected server.
// versionOverride, when positive, replaces the detected major version.
func (r *Reader) Capabilities(versionOverride int, retrieveLocalIndexSubpartitions bool) partition.Capabilities {
	major := r.major
	if versionOverride > 0 {
		major = versionOverride
	}
	return partition.CapabilitiesForVersion(major, retrieveLocalIndexSubpartitions)
}

var (
	releasePattern = regexp.MustCompile(`(?i)\brelease\s+(\d+)\.`)
	namePattern    = regexp.MustCompile(`(?i)\b(\d+)(?:ai|c|g|i)\b`)
)

// ParseMajorVersion extracts the major version from a V$VERSION banner such
// as "Oracle Database 19c Enterprise Edition Release 19.0.0.0.0 - Production".
// It returns 0 when no version is found.
func ParseMajorVersion(banner string) int {
	for _, re := range []*regexp.Regexp{releasePattern, namePattern} {
		if m := re.FindStringSubmatch(banner); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
