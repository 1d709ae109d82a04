// Package config loads the partddl YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/johndauphine/partddl/internal/dbconfig"
	"github.com/johndauphine/partddl/internal/logging"
	"github.com/johndauphine/partddl/internal/secrets"
	"gopkg.in/yaml.v3"
)

// Aliases so callers only need this package for the full config tree.
type (
	SourceConfig = dbconfig.SourceConfig
	StoreConfig  = dbconfig.StoreConfig
)

const (
	defaultSourceType = "oracle"
	defaultPort       = 1521
	defaultMaxConns   = 4
)

// sourceTypes lists the accepted source.type values.
var sourceTypes = map[string]bool{"oracle": true, "ora": true, "oracledb": true}

// ErrNoSource is returned when a command needs a catalog connection and the
// configuration has no source host or connect descriptor.
var ErrNoSource = errors.New("no source database configured")

// Config is the complete configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Partitions PartitionsConfig `yaml:"partitions"`
	Snapshot   StoreConfig      `yaml:"snapshot"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PartitionsConfig controls topology retrieval.
type PartitionsConfig struct {
	// RetrieveLocalIndexSubpartitions loads sub-partitions of LOCAL indexes,
	// which are skipped by default.
	RetrieveLocalIndexSubpartitions bool `yaml:"retrieve_local_index_subpartitions"`
	// OracleVersion overrides the detected major server version used to
	// gate compression and interval support (0 = detect).
	OracleVersion int `yaml:"oracle_version"`
	// MaxConnections bounds the catalog connection pool.
	MaxConnections int `yaml:"max_connections"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // text or json (default: text)
}

// Load reads, expands and validates the configuration at path.
// ${VAR} references are expanded from the environment before parsing, and
// a missing source password or snapshot DSN is filled from the secrets file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data, true)
}

// Parse parses configuration from YAML bytes without consulting secrets.
func Parse(data []byte) (*Config, error) {
	return parse(data, false)
}

func parse(data []byte, withSecrets bool) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if withSecrets {
		if err := cfg.applySecrets(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets() error {
	needPassword := c.Source.Password == "" && c.Source.User != ""
	needDSN := c.Snapshot.DSN == "" && isPostgresStore(c.Snapshot.Type)
	if !needPassword && !needDSN {
		return nil
	}

	s, err := secrets.Load()
	var notFound *secrets.SecretsNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading secrets: %w", err)
	}

	if needPassword {
		c.Source.Password = s.SourcePassword(c.Source.User, c.Source.Host)
	}
	if needDSN {
		c.Snapshot.DSN = s.Snapshot.DSN
	}
	return nil
}

func isPostgresStore(t string) bool {
	switch strings.ToLower(t) {
	case "postgres", "postgresql", "pg":
		return true
	}
	return false
}

// Default returns a configuration with defaults applied and no source.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = defaultSourceType
	}
	if c.Source.Port == 0 {
		c.Source.Port = defaultPort
	}
	if c.Partitions.MaxConnections == 0 {
		c.Partitions.MaxConnections = defaultMaxConns
	}

	if c.Snapshot.Type == "" {
		c.Snapshot.Type = "sqlite"
	}
	if c.Snapshot.Type == "sqlite" && c.Snapshot.Path == "" {
		c.Snapshot.Path = "partddl-snapshots.db"
	}
	if c.Snapshot.MaxConns == 0 {
		c.Snapshot.MaxConns = 4
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !sourceTypes[strings.ToLower(strings.TrimSpace(c.Source.Type))] {
		errs = append(errs, fmt.Sprintf("source.type: unsupported database type %q (only oracle catalogs are supported)", c.Source.Type))
	}
	if c.Source.Port < 0 || c.Source.Port > 65535 {
		errs = append(errs, fmt.Sprintf("source.port: %d out of range", c.Source.Port))
	}
	if c.Partitions.OracleVersion < 0 {
		errs = append(errs, "partitions.oracle_version: must not be negative")
	}
	if c.Partitions.MaxConnections < 1 {
		errs = append(errs, "partitions.max_connections: must be at least 1")
	}

	switch {
	case strings.EqualFold(c.Snapshot.Type, "sqlite"):
		if c.Snapshot.Path == "" {
			errs = append(errs, "snapshot.path: required for sqlite store")
		}
	case isPostgresStore(c.Snapshot.Type):
		if c.Snapshot.DSN == "" {
			errs = append(errs, "snapshot.dsn: required for postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("snapshot.type: unsupported store %q (use sqlite or postgres)", c.Snapshot.Type))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level: "+err.Error())
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("logging.format: %q (use text or json)", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// RequireSource returns ErrNoSource unless a catalog connection is configured.
func (c *Config) RequireSource() error {
	if c.Source.Host == "" && c.Source.TNSConnect == "" {
		return ErrNoSource
	}
	if c.Source.User == "" {
		return fmt.Errorf("%w: source.user is empty", ErrNoSource)
	}
	return nil
}

// ApplyLogging configures the logging package from the config.
func (c *Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	logging.SetFormat(c.Logging.Format)
	return nil
}
