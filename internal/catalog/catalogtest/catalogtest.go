// Package catalogtest provides a SQLite stand-in for the Oracle catalog
// views used in tests.
package catalogtest

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// FixtureDDL mirrors the catalog views the partition policies query.
const FixtureDDL = `
CREATE TABLE ALL_PART_TABLES (
	OWNER TEXT, TABLE_NAME TEXT, PARTITIONING_TYPE TEXT, SUBPARTITIONING_TYPE TEXT,
	PARTITION_COUNT INTEGER, PARTITIONING_KEY_COUNT INTEGER, SUBPARTITIONING_KEY_COUNT INTEGER,
	DEF_SUBPARTITION_COUNT INTEGER, "INTERVAL" TEXT
);
CREATE TABLE ALL_PART_INDEXES (
	OWNER TEXT, INDEX_NAME TEXT, TABLE_NAME TEXT, PARTITIONING_TYPE TEXT, SUBPARTITIONING_TYPE TEXT,
	PARTITION_COUNT INTEGER, PARTITIONING_KEY_COUNT INTEGER, SUBPARTITIONING_KEY_COUNT INTEGER,
	DEF_SUBPARTITION_COUNT INTEGER, LOCALITY TEXT
);
CREATE TABLE ALL_PART_KEY_COLUMNS (OWNER TEXT, NAME TEXT, OBJECT_TYPE TEXT, COLUMN_NAME TEXT, COLUMN_POSITION INTEGER);
CREATE TABLE ALL_SUBPART_KEY_COLUMNS (OWNER TEXT, NAME TEXT, OBJECT_TYPE TEXT, COLUMN_NAME TEXT, COLUMN_POSITION INTEGER);
CREATE TABLE ALL_TAB_PARTITIONS (
	TABLE_OWNER TEXT, TABLE_NAME TEXT, PARTITION_NAME TEXT, HIGH_VALUE TEXT,
	PARTITION_POSITION INTEGER, COMPRESSION TEXT
);
CREATE TABLE ALL_TAB_SUBPARTITIONS (
	TABLE_OWNER TEXT, TABLE_NAME TEXT, PARTITION_NAME TEXT, SUBPARTITION_NAME TEXT, HIGH_VALUE TEXT,
	SUBPARTITION_POSITION INTEGER, COMPRESSION TEXT
);
CREATE TABLE ALL_IND_PARTITIONS (
	INDEX_OWNER TEXT, INDEX_NAME TEXT, PARTITION_NAME TEXT, HIGH_VALUE TEXT,
	PARTITION_POSITION INTEGER, COMPRESSION TEXT
);
CREATE TABLE ALL_IND_SUBPARTITIONS (
	INDEX_OWNER TEXT, INDEX_NAME TEXT, PARTITION_NAME TEXT, SUBPARTITION_NAME TEXT, HIGH_VALUE TEXT,
	SUBPARTITION_POSITION INTEGER, COMPRESSION TEXT
);

INSERT INTO ALL_PART_TABLES VALUES
	('SH', 'SALES', 'RANGE', 'LIST', 2, 1, 1, 1, NULL),
	('SH', 'EVENTS', 'RANGE', 'NONE', 1, 1, 0, 0, 'NUMTOYMINTERVAL(1,''MONTH'')');
INSERT INTO ALL_PART_INDEXES VALUES
	('SH', 'SALES_IX', 'SALES', 'RANGE', 'LIST', 2, 1, 1, 1, 'LOCAL');

INSERT INTO ALL_PART_KEY_COLUMNS VALUES
	('SH', 'SALES', 'TABLE', 'SALE_DATE', 1),
	('SH', 'EVENTS', 'TABLE', 'CREATED_AT', 1),
	('SH', 'SALES_IX', 'INDEX', 'SALE_DATE', 1);
INSERT INTO ALL_SUBPART_KEY_COLUMNS VALUES
	('SH', 'SALES', 'TABLE', 'REGION', 1),
	('SH', 'SALES_IX', 'INDEX', 'REGION', 1);

INSERT INTO ALL_TAB_PARTITIONS VALUES
	('SH', 'SALES', 'P2024', 'DATE ''2025-01-01''', 2, 'ENABLED'),
	('SH', 'SALES', 'P2023', 'DATE ''2024-01-01''', 1, 'DISABLED'),
	('SH', 'EVENTS', 'P0', 'DATE ''2020-01-01''', 1, NULL);
INSERT INTO ALL_TAB_SUBPARTITIONS VALUES
	('SH', 'SALES', 'P2023', 'P2023_EAST', '''EAST''', 1, NULL),
	('SH', 'SALES', 'P2023', 'P2023_WEST', '''WEST''', 2, NULL),
	('SH', 'SALES', 'P2024', 'P2024_ALL', 'DEFAULT', 1, NULL),
	('SH', 'SALES', 'P1999', 'LOST', '''X''', 1, NULL);

INSERT INTO ALL_IND_PARTITIONS VALUES
	('SH', 'SALES_IX', 'P2023', NULL, 1, NULL),
	('SH', 'SALES_IX', 'P2024', NULL, 2, NULL);
INSERT INTO ALL_IND_SUBPARTITIONS VALUES
	('SH', 'SALES_IX', 'P2023', 'P2023_EAST', NULL, 1, NULL);
`

// Open returns an in-memory SQLite database holding the SH fixture schema:
// SALES (range/list composite with an orphaned sub-partition), EVENTS
// (interval range) and SALES_IX (local composite index).
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(FixtureDDL); err != nil {
		t.Fatalf("Failed to load catalog fixture: %v", err)
	}
	return db
}
