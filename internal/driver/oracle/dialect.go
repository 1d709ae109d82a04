package oracle

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/johndauphine/partddl/internal/dbconfig"
)

// prefetchRows bounds godror's row prefetch. HIGH_VALUE is a LONG column,
// so large prefetches mostly waste memory.
const prefetchRows = 200

// Dialect holds the Oracle-specific identifier and connection string rules.
type Dialect struct{}

// reservedWords are the V$RESERVED_WORDS entries that cannot appear unquoted.
var reservedWords = func() map[string]struct{} {
	words := strings.Fields(`
		ACCESS ADD ALL ALTER AND ANY AS ASC AUDIT BETWEEN BY CHAR CHECK
		CLUSTER COLUMN COMMENT COMPRESS CONNECT CREATE CURRENT DATE DECIMAL
		DEFAULT DELETE DESC DISTINCT DROP ELSE EXCLUSIVE EXISTS FILE FLOAT
		FOR FROM GRANT GROUP HAVING IDENTIFIED IMMEDIATE IN INCREMENT INDEX
		INITIAL INSERT INTEGER INTERSECT INTO IS LEVEL LIKE LOCK LONG
		MAXEXTENTS MINUS MLSLABEL MODE MODIFY NOAUDIT NOCOMPRESS NOT NOWAIT
		NULL NUMBER OF OFFLINE ON ONLINE OPTION OR ORDER PCTFREE PRIOR
		PUBLIC RAW RENAME RESOURCE REVOKE ROW ROWID ROWNUM ROWS SELECT
		SESSION SET SHARE SIZE SMALLINT START SUCCESSFUL SYNONYM SYSDATE
		TABLE THEN TO TRIGGER UID UNION UNIQUE UPDATE USER VALIDATE VALUES
		VARCHAR VARCHAR2 VIEW WHENEVER WHERE WITH`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// QuoteIdentifier returns name as it must appear in generated SQL.
// Catalog names arrive in their stored case and are never folded: a name
// that is a valid unquoted upper-case identifier is returned as-is, anything
// else is double-quoted.
func (d *Dialect) QuoteIdentifier(name string) string {
	if plainIdentifier(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func plainIdentifier(name string) bool {
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '$', r == '#':
		default:
			return false
		}
	}
	_, reserved := reservedWords[name]
	return !reserved
}

// QualifyTable returns schema.name with each part quoted as needed.
func (d *Dialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// BuildDSN builds a godror connection string for cfg. A TNS connect
// descriptor replaces the Easy Connect address and carries no parameters.
func (d *Dialect) BuildDSN(cfg *dbconfig.SourceConfig) string {
	creds := url.QueryEscape(cfg.User) + "/" + url.QueryEscape(cfg.Password)
	if cfg.TNSConnect != "" {
		return creds + "@" + cfg.TNSConnect
	}

	params := url.Values{}
	params.Set("prefetchCount", strconv.Itoa(prefetchRows))
	if cfg.PoolMin > 0 {
		params.Set("poolMinSessions", strconv.Itoa(cfg.PoolMin))
	}
	if cfg.PoolMax > 0 {
		params.Set("poolMaxSessions", strconv.Itoa(cfg.PoolMax))
	}
	if cfg.Timezone != "" {
		params.Set("timezone", cfg.Timezone)
	}

	return creds + "@" + cfg.Host + ":" + strconv.Itoa(cfg.Port) + "/" + cfg.Service() + "?" + params.Encode()
}
