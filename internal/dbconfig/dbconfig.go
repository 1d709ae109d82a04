// Package dbconfig provides database configuration types used by both
// the config package and the packages that open connections. This package
// exists so drivers and stores do not import the full config package.
package dbconfig

// SourceConfig holds the catalog source connection settings.
type SourceConfig struct {
	Type        string `yaml:"type"` // "oracle" (default)
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Database    string `yaml:"database"` // Service name for Easy Connect
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Schema      string `yaml:"schema"`       // Default owner; falls back to the user
	ServiceName string `yaml:"service_name"` // Overrides database when set
	TNSConnect  string `yaml:"tns_connect"`  // Full connect descriptor, overrides host/port
	Timezone    string `yaml:"timezone"`
	PoolMin     int    `yaml:"pool_min"`
	PoolMax     int    `yaml:"pool_max"`
}

// Service returns the service name to connect to.
func (c *SourceConfig) Service() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}
	return c.Database
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Type string `yaml:"type"` // "sqlite" (default) or "postgres"
	Path string `yaml:"path"` // SQLite database file
	DSN  string `yaml:"dsn"`  // PostgreSQL connection string
	// MaxConns bounds the PostgreSQL pool (default: 4).
	MaxConns int `yaml:"max_conns"`
}
