package partition

import "context"

// DefinitionRow is the summary row for a partitioned object.
type DefinitionRow struct {
	PartitioningType         string
	SubpartitioningType      string
	PartitionCount           int
	PartitioningKeyCount     int
	SubpartitioningKeyCount  int
	DefaultSubpartitionCount int
	Locality                 string // indexes only
	Interval                 string // only when interval partitioning is supported
}

// ColumnRow is one partitioning or sub-partitioning key column.
type ColumnRow struct {
	Name     string
	Position int
}

// PartitionRow is one partition as reported by the catalog.
type PartitionRow struct {
	Name        string
	HighValue   string
	Position    int
	Compression string // empty unless compression is available
}

// SubpartitionRow is one sub-partition together with its parent's name.
type SubpartitionRow struct {
	Parent      string
	Name        string
	HighValue   string
	Position    int
	Compression string
}

// MetadataProvider runs the catalog queries described by a KindPolicy.
// Implementations are called sequentially by one build; sharing a provider
// between concurrent builds is the caller's concern.
type MetadataProvider interface {
	// Definition returns the object's summary row. found is false when the
	// object is not partitioned.
	Definition(ctx context.Context, ref ObjectRef, policy KindPolicy) (row DefinitionRow, found bool, err error)
	Columns(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]ColumnRow, error)
	Subcolumns(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]ColumnRow, error)
	Partitions(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]PartitionRow, error)
	Subpartitions(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]SubpartitionRow, error)
}
