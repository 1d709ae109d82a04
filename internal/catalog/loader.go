// Package catalog runs partition metadata queries against a database/sql
// connection. The queries themselves come from the partition.KindPolicy in
// use, so the same Loader serves tables and indexes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/johndauphine/partddl/internal/partition"
)

// Loader implements partition.MetadataProvider over a *sql.DB.
type Loader struct {
	db *sql.DB
}

// NewLoader creates a Loader for db.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

var _ partition.MetadataProvider = (*Loader)(nil)

func bindObject(ref partition.ObjectRef) []any {
	return []any{sql.Named("owner", ref.Schema), sql.Named("name", ref.Name)}
}

// Definition loads the partitioning summary row.
func (l *Loader) Definition(ctx context.Context, ref partition.ObjectRef, policy partition.KindPolicy) (partition.DefinitionRow, bool, error) {
	var (
		row                                         partition.DefinitionRow
		partType, subType, locality, interval       sql.NullString
		partCount, keyCount, subKeyCount, defSubCnt sql.NullInt64
	)
	err := l.db.QueryRowContext(ctx, policy.Queries().Definition, bindObject(ref)...).Scan(
		&partType, &subType, &partCount, &keyCount, &subKeyCount, &defSubCnt, &locality, &interval)
	if errors.Is(err, sql.ErrNoRows) {
		return row, false, nil
	}
	if err != nil {
		return row, false, fmt.Errorf("querying partition definition for %s: %w", ref, err)
	}

	row.PartitioningType = partType.String
	row.SubpartitioningType = subType.String
	row.PartitionCount = int(partCount.Int64)
	row.PartitioningKeyCount = int(keyCount.Int64)
	row.SubpartitioningKeyCount = int(subKeyCount.Int64)
	row.DefaultSubpartitionCount = int(defSubCnt.Int64)
	row.Locality = locality.String
	row.Interval = interval.String
	return row, true, nil
}

// Columns loads the partitioning key columns.
func (l *Loader) Columns(ctx context.Context, ref partition.ObjectRef, policy partition.KindPolicy) ([]partition.ColumnRow, error) {
	return l.keyColumns(ctx, policy.Queries().Columns, ref)
}

// Subcolumns loads the sub-partitioning key columns.
func (l *Loader) Subcolumns(ctx context.Context, ref partition.ObjectRef, policy partition.KindPolicy) ([]partition.ColumnRow, error) {
	return l.keyColumns(ctx, policy.Queries().Subcolumns, ref)
}

func (l *Loader) keyColumns(ctx context.Context, query string, ref partition.ObjectRef) ([]partition.ColumnRow, error) {
	rows, err := l.db.QueryContext(ctx, query, bindObject(ref)...)
	if err != nil {
		return nil, fmt.Errorf("querying key columns for %s: %w", ref, err)
	}
	defer rows.Close()

	var cols []partition.ColumnRow
	for rows.Next() {
		var c partition.ColumnRow
		if err := rows.Scan(&c.Name, &c.Position); err != nil {
			return nil, fmt.Errorf("scanning key column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Partitions loads one row per partition.
func (l *Loader) Partitions(ctx context.Context, ref partition.ObjectRef, policy partition.KindPolicy) ([]partition.PartitionRow, error) {
	rows, err := l.db.QueryContext(ctx, policy.Queries().Partitions, bindObject(ref)...)
	if err != nil {
		return nil, fmt.Errorf("querying partitions for %s: %w", ref, err)
	}
	defer rows.Close()

	var parts []partition.PartitionRow
	for rows.Next() {
		var (
			p                     partition.PartitionRow
			highValue, compressed sql.NullString
		)
		if err := rows.Scan(&p.Name, &highValue, &p.Position, &compressed); err != nil {
			return nil, fmt.Errorf("scanning partition: %w", err)
		}
		p.HighValue = highValue.String
		p.Compression = compressed.String
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// Subpartitions loads one row per sub-partition.
func (l *Loader) Subpartitions(ctx context.Context, ref partition.ObjectRef, policy partition.KindPolicy) ([]partition.SubpartitionRow, error) {
	rows, err := l.db.QueryContext(ctx, policy.Queries().Subpartitions, bindObject(ref)...)
	if err != nil {
		return nil, fmt.Errorf("querying sub-partitions for %s: %w", ref, err)
	}
	defer rows.Close()

	var subs []partition.SubpartitionRow
	for rows.Next() {
		var (
			sp                    partition.SubpartitionRow
			highValue, compressed sql.NullString
		)
		if err := rows.Scan(&sp.Parent, &sp.Name, &highValue, &sp.Position, &compressed); err != nil {
			return nil, fmt.Errorf("scanning sub-partition: %w", err)
		}
		sp.HighValue = highValue.String
		sp.Compression = compressed.String
		subs = append(subs, sp)
	}
	return subs, rows.Err()
}

// ListPartitionedTables returns the names of partitioned tables in schema.
func (l *Loader) ListPartitionedTables(ctx context.Context, schema string) ([]string, error) {
	return l.listNames(ctx, `
		SELECT TABLE_NAME
		FROM ALL_PART_TABLES
		WHERE OWNER = :owner
		ORDER BY TABLE_NAME`, schema)
}

// ListPartitionedIndexes returns the names of partitioned indexes in schema.
func (l *Loader) ListPartitionedIndexes(ctx context.Context, schema string) ([]string, error) {
	return l.listNames(ctx, `
		SELECT INDEX_NAME
		FROM ALL_PART_INDEXES
		WHERE OWNER = :owner
		ORDER BY INDEX_NAME`, schema)
}

func (l *Loader) listNames(ctx context.Context, query, schema string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, query, sql.Named("owner", schema))
	if err != nil {
		return nil, fmt.Errorf("listing partitioned objects in %s: %w", schema, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning object name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
