package partition

import "fmt"

// Queries holds the five catalog query templates for one object kind.
// Every template binds :owner and :name and returns the columns in the
// order the provider scans them.
type Queries struct {
	Definition    string
	Columns       string
	Subcolumns    string
	Partitions    string
	Subpartitions string
}

// Capabilities are the version- and configuration-dependent switches a
// policy is built from.
type Capabilities struct {
	CompressionAvailable            bool
	SupportsIntervalPartitioning    bool
	RetrieveLocalIndexSubpartitions bool
}

// CapabilitiesForVersion derives capabilities from the server major
// version. Partition COMPRESSION is read from 10 on, INTERVAL from 11 on.
// A major version of 0 (unknown) enables nothing optional.
func CapabilitiesForVersion(major int, retrieveLocalIndexSubpartitions bool) Capabilities {
	return Capabilities{
		CompressionAvailable:            major >= 10,
		SupportsIntervalPartitioning:    major >= 11,
		RetrieveLocalIndexSubpartitions: retrieveLocalIndexSubpartitions,
	}
}

// KindPolicy supplies the per-kind differences used by Builder: the query
// templates and the feature flags.
type KindPolicy interface {
	Kind() Kind
	Queries() Queries
	CompressionAvailable() bool
	SupportsLocality() bool
	SupportsIntervalPartitioning() bool
	// ShouldRetrieveSubpartitions is consulted after the partition stage.
	ShouldRetrieveSubpartitions(d *Draft) bool
}

// PolicyFor returns the policy for kind.
func PolicyFor(kind Kind, caps Capabilities) KindPolicy {
	if kind == KindIndex {
		return NewIndexPolicy(caps)
	}
	return NewTablePolicy(caps)
}

// TablePolicy reads table partitioning from the ALL_PART_TABLES family of
// catalog views.
type TablePolicy struct {
	caps Capabilities
}

// NewTablePolicy creates a table policy.
func NewTablePolicy(caps Capabilities) *TablePolicy {
	return &TablePolicy{caps: caps}
}

func (p *TablePolicy) Kind() Kind                         { return KindTable }
func (p *TablePolicy) CompressionAvailable() bool         { return p.caps.CompressionAvailable }
func (p *TablePolicy) SupportsLocality() bool             { return false }
func (p *TablePolicy) SupportsIntervalPartitioning() bool { return p.caps.SupportsIntervalPartitioning }

// ShouldRetrieveSubpartitions skips templated sub-partitioning.
func (p *TablePolicy) ShouldRetrieveSubpartitions(d *Draft) bool {
	return d.DefaultSubpartitionCount <= 1
}

func (p *TablePolicy) Queries() Queries {
	interval := "NULL"
	if p.caps.SupportsIntervalPartitioning {
		interval = `"INTERVAL"`
	}
	compression := "NULL"
	if p.caps.CompressionAvailable {
		compression = "COMPRESSION"
	}

	return Queries{
		Definition: fmt.Sprintf(`
		SELECT PARTITIONING_TYPE, SUBPARTITIONING_TYPE, PARTITION_COUNT,
			PARTITIONING_KEY_COUNT, SUBPARTITIONING_KEY_COUNT, DEF_SUBPARTITION_COUNT,
			NULL AS LOCALITY, %s AS INTERVAL_EXPR
		FROM ALL_PART_TABLES
		WHERE OWNER = :owner AND TABLE_NAME = :name`, interval),
		Columns:    keyColumnsQuery("ALL_PART_KEY_COLUMNS", "TABLE"),
		Subcolumns: keyColumnsQuery("ALL_SUBPART_KEY_COLUMNS", "TABLE"),
		Partitions: fmt.Sprintf(`
		SELECT PARTITION_NAME, HIGH_VALUE, PARTITION_POSITION, %s AS COMPRESSION_FLAG
		FROM ALL_TAB_PARTITIONS
		WHERE TABLE_OWNER = :owner AND TABLE_NAME = :name
		ORDER BY PARTITION_POSITION`, compression),
		Subpartitions: fmt.Sprintf(`
		SELECT PARTITION_NAME, SUBPARTITION_NAME, HIGH_VALUE, SUBPARTITION_POSITION, %s AS COMPRESSION_FLAG
		FROM ALL_TAB_SUBPARTITIONS
		WHERE TABLE_OWNER = :owner AND TABLE_NAME = :name
		ORDER BY PARTITION_NAME, SUBPARTITION_POSITION`, compression),
	}
}

// IndexPolicy reads index partitioning from the ALL_PART_INDEXES family of
// catalog views.
type IndexPolicy struct {
	caps Capabilities
}

// NewIndexPolicy creates an index policy. Interval partitioning never
// applies to indexes, whatever caps says.
func NewIndexPolicy(caps Capabilities) *IndexPolicy {
	caps.SupportsIntervalPartitioning = false
	return &IndexPolicy{caps: caps}
}

func (p *IndexPolicy) Kind() Kind                         { return KindIndex }
func (p *IndexPolicy) CompressionAvailable() bool         { return p.caps.CompressionAvailable }
func (p *IndexPolicy) SupportsLocality() bool             { return true }
func (p *IndexPolicy) SupportsIntervalPartitioning() bool { return false }

// ShouldRetrieveSubpartitions skips templated sub-partitioning and, unless
// configured otherwise, the sub-partitions of local indexes, which mirror
// the table's one for one.
func (p *IndexPolicy) ShouldRetrieveSubpartitions(d *Draft) bool {
	if d.DefaultSubpartitionCount > 1 {
		return false
	}
	if d.Locality == LocalityLocal && !p.caps.RetrieveLocalIndexSubpartitions {
		return false
	}
	return true
}

func (p *IndexPolicy) Queries() Queries {
	compression := "NULL"
	if p.caps.CompressionAvailable {
		compression = "COMPRESSION"
	}

	return Queries{
		Definition: `
		SELECT PARTITIONING_TYPE, SUBPARTITIONING_TYPE, PARTITION_COUNT,
			PARTITIONING_KEY_COUNT, SUBPARTITIONING_KEY_COUNT, DEF_SUBPARTITION_COUNT,
			LOCALITY, NULL AS INTERVAL_EXPR
		FROM ALL_PART_INDEXES
		WHERE OWNER = :owner AND INDEX_NAME = :name`,
		Columns:    keyColumnsQuery("ALL_PART_KEY_COLUMNS", "INDEX"),
		Subcolumns: keyColumnsQuery("ALL_SUBPART_KEY_COLUMNS", "INDEX"),
		Partitions: fmt.Sprintf(`
		SELECT PARTITION_NAME, HIGH_VALUE, PARTITION_POSITION, %s AS COMPRESSION_FLAG
		FROM ALL_IND_PARTITIONS
		WHERE INDEX_OWNER = :owner AND INDEX_NAME = :name
		ORDER BY PARTITION_POSITION`, compression),
		Subpartitions: fmt.Sprintf(`
		SELECT PARTITION_NAME, SUBPARTITION_NAME, HIGH_VALUE, SUBPARTITION_POSITION, %s AS COMPRESSION_FLAG
		FROM ALL_IND_SUBPARTITIONS
		WHERE INDEX_OWNER = :owner AND INDEX_NAME = :name
		ORDER BY PARTITION_NAME, SUBPARTITION_POSITION`, compression),
	}
}

func keyColumnsQuery(view, objectType string) string {
	return fmt.Sprintf(`
		SELECT COLUMN_NAME, COLUMN_POSITION
		FROM %s
		WHERE OWNER = :owner AND NAME = :name AND OBJECT_TYPE = '%s'
		ORDER BY COLUMN_POSITION`, view, objectType)
}
