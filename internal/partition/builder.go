package partition

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/johndauphine/partddl/internal/logging"
)

// Stage identifies one of the ordered catalog queries of a build.
type Stage int

const (
	StageDefinition Stage = iota + 1
	StageSubcolumns
	StageColumns
	StagePartitions
	StageSubpartitions
)

func (s Stage) String() string {
	switch s {
	case StageDefinition:
		return "definition"
	case StageSubcolumns:
		return "sub-partition columns"
	case StageColumns:
		return "partition columns"
	case StagePartitions:
		return "partitions"
	case StageSubpartitions:
		return "sub-partitions"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// QueryError reports a failed catalog query after the definition stage.
// The object returned alongside it holds whatever earlier stages loaded.
type QueryError struct {
	Stage  Stage
	Object ObjectRef
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("loading %s for %s: %v", e.Stage, e.Object, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Draft accumulates stage results before a PartitionedObject is
// materialized. Policies see it when deciding whether to load
// sub-partitions.
type Draft struct {
	Ref                      ObjectRef
	Kind                     Kind
	Strategy                 Strategy
	PartitionColumns         []string
	SubpartitionStrategy     Strategy
	SubpartitionColumns      []string
	DefaultSubpartitionCount int
	Locality                 Locality
	Interval                 string
	Partitions               []Partition
}

// Materialize copies the draft into an immutable PartitionedObject.
// Partitions and sub-partitions are ordered by position and sub-partition
// parent names are set from their owning partition.
func (d *Draft) Materialize() *PartitionedObject {
	obj := &PartitionedObject{
		ref:                  d.Ref,
		kind:                 d.Kind,
		strategy:             d.Strategy,
		columns:              slices.Clone(d.PartitionColumns),
		subStrategy:          d.SubpartitionStrategy,
		subColumns:           slices.Clone(d.SubpartitionColumns),
		defaultSubpartitions: d.DefaultSubpartitionCount,
		locality:             d.Locality,
		interval:             d.Interval,
	}
	if len(obj.columns) == 0 {
		return obj
	}

	obj.partitions = make([]Partition, len(d.Partitions))
	for i, p := range d.Partitions {
		p = p.clone()
		for j := range p.Subpartitions {
			p.Subpartitions[j].Parent = p.Name
		}
		slices.SortStableFunc(p.Subpartitions, func(a, b Subpartition) int { return a.Position - b.Position })
		obj.partitions[i] = p
	}
	slices.SortStableFunc(obj.partitions, func(a, b Partition) int { return a.Position - b.Position })
	return obj
}

// lookup finds a loaded partition by exact, case-sensitive name.
func (d *Draft) lookup(name string) (int, bool) {
	for i := range d.Partitions {
		if d.Partitions[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Builder assembles PartitionedObjects from a MetadataProvider. It holds
// no per-build state and may be shared between goroutines as long as each
// concurrent build is given a provider it may use exclusively.
type Builder struct {
	provider MetadataProvider
}

// NewBuilder creates a Builder reading from provider.
func NewBuilder(provider MetadataProvider) *Builder {
	return &Builder{provider: provider}
}

// Build loads the partitioning topology of ref.
//
// An object the catalog does not report as partitioned, or whose definition
// query fails, is returned as not partitioned with a nil error. A failure in
// any later stage returns a *QueryError together with the object built from
// the stages that completed.
func (b *Builder) Build(ctx context.Context, ref ObjectRef, policy KindPolicy) (*PartitionedObject, error) {
	d := &Draft{Ref: ref, Kind: policy.Kind()}

	def, found, err := b.provider.Definition(ctx, ref, policy)
	if err != nil {
		logging.Debug("Partition definition query failed for %s %s, treating as not partitioned: %v", d.Kind, ref, err)
		return d.Materialize(), nil
	}
	if !found {
		return d.Materialize(), nil
	}
	b.applyDefinition(d, def, policy)

	if def.SubpartitioningKeyCount > 0 {
		cols, err := b.provider.Subcolumns(ctx, ref, policy)
		if err != nil {
			return d.Materialize(), &QueryError{Stage: StageSubcolumns, Object: ref, Err: err}
		}
		d.SubpartitionColumns = columnNames(cols)
	}

	cols, err := b.provider.Columns(ctx, ref, policy)
	if err != nil {
		return d.Materialize(), &QueryError{Stage: StageColumns, Object: ref, Err: err}
	}
	d.PartitionColumns = columnNames(cols)

	parts, err := b.provider.Partitions(ctx, ref, policy)
	if err != nil {
		return d.Materialize(), &QueryError{Stage: StagePartitions, Object: ref, Err: err}
	}
	d.Partitions = make([]Partition, 0, len(parts))
	for _, row := range parts {
		p := Partition{
			Name:      row.Name,
			Position:  row.Position,
			HighValue: strings.TrimSpace(row.HighValue),
		}
		if policy.CompressionAvailable() {
			p.Compression = ParseCompression(row.Compression)
		}
		d.Partitions = append(d.Partitions, p)
	}

	if !policy.ShouldRetrieveSubpartitions(d) {
		return d.Materialize(), nil
	}

	subs, err := b.provider.Subpartitions(ctx, ref, policy)
	if err != nil {
		return d.Materialize(), &QueryError{Stage: StageSubpartitions, Object: ref, Err: err}
	}
	for _, row := range subs {
		i, ok := d.lookup(row.Parent)
		if !ok {
			logging.Debug("Dropping sub-partition %s of %s: parent partition %q not loaded", row.Name, ref, row.Parent)
			continue
		}
		sp := Subpartition{
			Name:      row.Name,
			Position:  row.Position,
			HighValue: strings.TrimSpace(row.HighValue),
			Parent:    d.Partitions[i].Name,
		}
		if policy.CompressionAvailable() {
			sp.Compression = ParseCompression(row.Compression)
		}
		d.Partitions[i].Subpartitions = append(d.Partitions[i].Subpartitions, sp)
	}

	return d.Materialize(), nil
}

func (b *Builder) applyDefinition(d *Draft, def DefinitionRow, policy KindPolicy) {
	d.Strategy = ParseStrategy(def.PartitioningType)
	d.SubpartitionStrategy = ParseStrategy(def.SubpartitioningType)
	if def.DefaultSubpartitionCount > 0 {
		d.DefaultSubpartitionCount = def.DefaultSubpartitionCount
	}
	d.Locality = LocalityNotApplicable
	if policy.SupportsLocality() {
		d.Locality = ParseLocality(def.Locality)
	}
	if policy.SupportsIntervalPartitioning() {
		d.Interval = strings.TrimSpace(def.Interval)
	}
}

// columnNames returns the names ordered by key position.
func columnNames(rows []ColumnRow) []string {
	rows = slices.Clone(rows)
	slices.SortStableFunc(rows, func(a, b ColumnRow) int { return a.Position - b.Position })
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names
}
