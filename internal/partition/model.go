// Package partition reconstructs the partitioning topology of a table or
// index from catalog metadata and renders it back as partition DDL.
//
// A PartitionedObject is produced by Builder.Build from five ordered catalog
// queries and is read-only afterwards. Render turns it into the
// "PARTITION BY ..." fragment embedded by CREATE TABLE / CREATE INDEX
// statements.
package partition

import (
	"slices"
	"strings"

	"github.com/johndauphine/partddl/internal/logging"
)

// Kind is the type of partitioned object.
type Kind int

const (
	KindTable Kind = iota
	KindIndex
)

func (k Kind) String() string {
	if k == KindIndex {
		return "INDEX"
	}
	return "TABLE"
}

// ParseKind parses "table" or "index" (case-insensitive).
func ParseKind(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TABLE":
		return KindTable, true
	case "INDEX":
		return KindIndex, true
	}
	return KindTable, false
}

// Strategy is a partitioning or sub-partitioning method.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyRange
	StrategyList
	StrategyHash
	StrategySystem
)

// String returns the DDL keyword for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyRange:
		return "RANGE"
	case StrategyList:
		return "LIST"
	case StrategyHash:
		return "HASH"
	case StrategySystem:
		return "SYSTEM"
	default:
		return "NONE"
	}
}

// ParseStrategy maps catalog partitioning type text to a Strategy.
// Empty text is None; unrecognized text is None and logged.
func ParseStrategy(s string) Strategy {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RANGE":
		return StrategyRange
	case "LIST":
		return StrategyList
	case "HASH":
		return StrategyHash
	case "SYSTEM":
		return StrategySystem
	case "", "NONE":
		return StrategyNone
	}
	logging.Warn("Unsupported partitioning type %q, treating as NONE", s)
	return StrategyNone
}

// Locality says whether an index is partitioned with its table.
type Locality int

const (
	LocalityNotApplicable Locality = iota
	LocalityGlobal
	LocalityLocal
)

func (l Locality) String() string {
	switch l {
	case LocalityGlobal:
		return "GLOBAL"
	case LocalityLocal:
		return "LOCAL"
	default:
		return ""
	}
}

// ParseLocality maps ALL_PART_INDEXES.LOCALITY text to a Locality.
func ParseLocality(s string) Locality {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GLOBAL":
		return LocalityGlobal
	case "LOCAL":
		return LocalityLocal
	default:
		return LocalityNotApplicable
	}
}

// Compression is the optional per-partition compression attribute.
type Compression int

const (
	CompressionUnset Compression = iota
	CompressionEnabled
	CompressionDisabled
)

// ParseCompression maps the catalog COMPRESSION column. Values other than
// ENABLED and DISABLED (NONE, NULL, N/A) leave compression unset.
func ParseCompression(s string) Compression {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ENABLED":
		return CompressionEnabled
	case "DISABLED":
		return CompressionDisabled
	default:
		return CompressionUnset
	}
}

// Keyword returns COMPRESS or NOCOMPRESS, or "" when unset.
func (c Compression) Keyword() string {
	switch c {
	case CompressionEnabled:
		return "COMPRESS"
	case CompressionDisabled:
		return "NOCOMPRESS"
	default:
		return ""
	}
}

// ObjectRef identifies a table or index in the catalog.
type ObjectRef struct {
	Schema string
	Name   string
}

func (r ObjectRef) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Subpartition is one division of a partition.
type Subpartition struct {
	Name        string
	Position    int
	HighValue   string // empty when the catalog reports no boundary
	Compression Compression
	Parent      string // name of the owning partition
}

// Partition is one division of a partitioned object.
type Partition struct {
	Name          string
	Position      int
	HighValue     string
	Compression   Compression
	Subpartitions []Subpartition
}

func (p Partition) clone() Partition {
	p.Subpartitions = slices.Clone(p.Subpartitions)
	return p
}

// PartitionedObject is the partitioning topology of one table or index.
// Values are created by Builder.Build and never modified afterwards;
// accessors hand out copies.
type PartitionedObject struct {
	ref                  ObjectRef
	kind                 Kind
	strategy             Strategy
	columns              []string
	subStrategy          Strategy
	subColumns           []string
	defaultSubpartitions int
	locality             Locality
	interval             string
	partitions           []Partition
}

// Ref returns the schema-qualified name of the object.
func (o *PartitionedObject) Ref() ObjectRef { return o.ref }

// Kind returns whether the object is a table or an index.
func (o *PartitionedObject) Kind() Kind { return o.kind }

// IsPartitioned reports whether the object has partitioning key columns.
func (o *PartitionedObject) IsPartitioned() bool { return len(o.columns) > 0 }

func (o *PartitionedObject) Strategy() Strategy { return o.strategy }

// PartitionColumns returns the partitioning key in key order.
func (o *PartitionedObject) PartitionColumns() []string { return slices.Clone(o.columns) }

func (o *PartitionedObject) SubpartitionStrategy() Strategy { return o.subStrategy }

// SubpartitionColumns returns the sub-partitioning key in key order.
func (o *PartitionedObject) SubpartitionColumns() []string { return slices.Clone(o.subColumns) }

// DefaultSubpartitionCount is the templated sub-partition count. Above one,
// sub-partitions are not enumerated individually.
func (o *PartitionedObject) DefaultSubpartitionCount() int { return o.defaultSubpartitions }

// Locality is only meaningful for indexes.
func (o *PartitionedObject) Locality() Locality { return o.locality }

// Interval returns the interval expression of an interval-partitioned
// table, or "".
func (o *PartitionedObject) Interval() string { return o.interval }

// Partitions returns the partitions ordered by position.
func (o *PartitionedObject) Partitions() []Partition {
	out := make([]Partition, len(o.partitions))
	for i, p := range o.partitions {
		out[i] = p.clone()
	}
	return out
}

// Partition looks up a partition by exact name.
func (o *PartitionedObject) Partition(name string) (Partition, bool) {
	for _, p := range o.partitions {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Partition{}, false
}
