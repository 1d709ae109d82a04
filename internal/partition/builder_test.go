package partition

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// fakeProvider serves canned rows and records which stages ran.
type fakeProvider struct {
	def      DefinitionRow
	found    bool
	defErr   error
	cols     []ColumnRow
	subcols  []ColumnRow
	parts    []PartitionRow
	subparts []SubpartitionRow
	errs     map[Stage]error
	calls    []Stage
}

func (f *fakeProvider) Definition(ctx context.Context, ref ObjectRef, policy KindPolicy) (DefinitionRow, bool, error) {
	f.calls = append(f.calls, StageDefinition)
	return f.def, f.found, f.defErr
}

func (f *fakeProvider) Columns(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]ColumnRow, error) {
	f.calls = append(f.calls, StageColumns)
	return f.cols, f.errs[StageColumns]
}

func (f *fakeProvider) Subcolumns(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]ColumnRow, error) {
	f.calls = append(f.calls, StageSubcolumns)
	return f.subcols, f.errs[StageSubcolumns]
}

func (f *fakeProvider) Partitions(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]PartitionRow, error) {
	f.calls = append(f.calls, StagePartitions)
	return f.parts, f.errs[StagePartitions]
}

func (f *fakeProvider) Subpartitions(ctx context.Context, ref ObjectRef, policy KindPolicy) ([]SubpartitionRow, error) {
	f.calls = append(f.calls, StageSubpartitions)
	return f.subparts, f.errs[StageSubpartitions]
}

func compositeProvider() *fakeProvider {
	return &fakeProvider{
		found: true,
		def: DefinitionRow{
			PartitioningType:         "RANGE",
			SubpartitioningType:      "LIST",
			PartitionCount:           2,
			PartitioningKeyCount:     1,
			SubpartitioningKeyCount:  1,
			DefaultSubpartitionCount: 1,
		},
		cols:    []ColumnRow{{Name: "SALE_DATE", Position: 1}},
		subcols: []ColumnRow{{Name: "REGION", Position: 1}},
		parts: []PartitionRow{
			{Name: "P2024", HighValue: "DATE '2025-01-01'", Position: 2, Compression: "ENABLED"},
			{Name: "P2023", HighValue: "DATE '2024-01-01'", Position: 1, Compression: "DISABLED"},
		},
		subparts: []SubpartitionRow{
			{Parent: "P2023", Name: "P2023_WEST", HighValue: "'WEST'", Position: 2},
			{Parent: "P2023", Name: "P2023_EAST", HighValue: "'EAST'", Position: 1},
			{Parent: "P2024", Name: "P2024_ALL", HighValue: "DEFAULT", Position: 1},
			{Parent: "P1999", Name: "ORPHAN", HighValue: "'X'", Position: 1},
		},
	}
}

var sales = ObjectRef{Schema: "SH", Name: "SALES"}

func TestBuildNotPartitioned(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"no definition row", &fakeProvider{}},
		{"definition query fails", &fakeProvider{defErr: errors.New("ORA-00942: table or view does not exist")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := NewBuilder(tt.provider).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
			if err != nil {
				t.Fatalf("Build() error = %v, want nil", err)
			}
			if obj.IsPartitioned() {
				t.Error("IsPartitioned() = true, want false")
			}
			if len(obj.Partitions()) != 0 {
				t.Errorf("Partitions() = %v, want empty", obj.Partitions())
			}
			if !reflect.DeepEqual(tt.provider.calls, []Stage{StageDefinition}) {
				t.Errorf("stages run = %v, want only definition", tt.provider.calls)
			}
			if obj.Ref() != sales {
				t.Errorf("Ref() = %v, want %v", obj.Ref(), sales)
			}
		})
	}
}

func TestBuildComposite(t *testing.T) {
	p := compositeProvider()
	obj, err := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{CompressionAvailable: true}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantCalls := []Stage{StageDefinition, StageSubcolumns, StageColumns, StagePartitions, StageSubpartitions}
	if !reflect.DeepEqual(p.calls, wantCalls) {
		t.Errorf("stages run = %v, want %v", p.calls, wantCalls)
	}

	if !obj.IsPartitioned() {
		t.Fatal("IsPartitioned() = false")
	}
	if obj.Strategy() != StrategyRange || obj.SubpartitionStrategy() != StrategyList {
		t.Errorf("strategies = %v/%v, want RANGE/LIST", obj.Strategy(), obj.SubpartitionStrategy())
	}
	if !reflect.DeepEqual(obj.PartitionColumns(), []string{"SALE_DATE"}) {
		t.Errorf("PartitionColumns() = %v", obj.PartitionColumns())
	}
	if !reflect.DeepEqual(obj.SubpartitionColumns(), []string{"REGION"}) {
		t.Errorf("SubpartitionColumns() = %v", obj.SubpartitionColumns())
	}
	if obj.Locality() != LocalityNotApplicable {
		t.Errorf("Locality() = %v, want not applicable for a table", obj.Locality())
	}

	parts := obj.Partitions()
	if len(parts) != 2 || parts[0].Name != "P2023" || parts[1].Name != "P2024" {
		t.Fatalf("partitions not ordered by position: %+v", parts)
	}
	if parts[0].Compression != CompressionDisabled || parts[1].Compression != CompressionEnabled {
		t.Errorf("compression = %v/%v", parts[0].Compression, parts[1].Compression)
	}

	subs := parts[0].Subpartitions
	if len(subs) != 2 || subs[0].Name != "P2023_EAST" || subs[1].Name != "P2023_WEST" {
		t.Fatalf("P2023 sub-partitions = %+v", subs)
	}
	for _, sp := range subs {
		if sp.Parent != "P2023" {
			t.Errorf("sub-partition %s parent = %q", sp.Name, sp.Parent)
		}
	}
	if len(parts[1].Subpartitions) != 1 {
		t.Errorf("P2024 sub-partitions = %+v", parts[1].Subpartitions)
	}

	for _, part := range parts {
		for _, sp := range part.Subpartitions {
			if sp.Name == "ORPHAN" {
				t.Error("orphaned sub-partition attached")
			}
		}
	}
}

func TestBuildCompressionIgnoredWhenUnavailable(t *testing.T) {
	obj, err := NewBuilder(compositeProvider()).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, p := range obj.Partitions() {
		if p.Compression != CompressionUnset {
			t.Errorf("partition %s compression = %v, want unset", p.Name, p.Compression)
		}
	}
}

func TestBuildSkipsSubcolumnsWithoutSubpartitionKey(t *testing.T) {
	p := compositeProvider()
	p.def.SubpartitioningType = "NONE"
	p.def.SubpartitioningKeyCount = 0
	p.subparts = nil

	if _, err := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, s := range p.calls {
		if s == StageSubcolumns {
			t.Errorf("sub-column stage ran without a sub-partitioning key: %v", p.calls)
		}
	}
}

func TestBuildTemplatedSubpartitions(t *testing.T) {
	p := compositeProvider()
	p.def.DefaultSubpartitionCount = 4

	obj, err := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if obj.DefaultSubpartitionCount() != 4 {
		t.Errorf("DefaultSubpartitionCount() = %d, want 4", obj.DefaultSubpartitionCount())
	}
	if len(obj.SubpartitionColumns()) == 0 {
		t.Error("sub-partition columns should still be loaded")
	}
	for _, part := range obj.Partitions() {
		if len(part.Subpartitions) != 0 {
			t.Errorf("partition %s has %d sub-partitions, want none", part.Name, len(part.Subpartitions))
		}
	}
	if p.calls[len(p.calls)-1] == StageSubpartitions {
		t.Error("sub-partition stage ran for templated sub-partitioning")
	}
}

func TestBuildLocalIndexSubpartitions(t *testing.T) {
	tests := []struct {
		name          string
		locality      string
		retrieveLocal bool
		wantSubs      bool
	}{
		{"local index skipped by default", "LOCAL", false, false},
		{"local index retrieved when configured", "LOCAL", true, true},
		{"global index always retrieved", "GLOBAL", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compositeProvider()
			p.def.Locality = tt.locality
			policy := NewIndexPolicy(Capabilities{RetrieveLocalIndexSubpartitions: tt.retrieveLocal})

			obj, err := NewBuilder(p).Build(context.Background(), ObjectRef{Schema: "SH", Name: "SALES_IX"}, policy)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if obj.Kind() != KindIndex {
				t.Errorf("Kind() = %v", obj.Kind())
			}
			if obj.Locality() != ParseLocality(tt.locality) {
				t.Errorf("Locality() = %v, want %s", obj.Locality(), tt.locality)
			}
			gotSubs := len(obj.Partitions()[0].Subpartitions) > 0
			if gotSubs != tt.wantSubs {
				t.Errorf("sub-partitions loaded = %v, want %v", gotSubs, tt.wantSubs)
			}
		})
	}
}

func TestBuildStageFailures(t *testing.T) {
	boom := errors.New("ORA-01031: insufficient privileges")

	tests := []struct {
		stage          Stage
		wantPartitions int
	}{
		{StageSubcolumns, 0},
		{StageColumns, 0},
		{StagePartitions, 0},
		{StageSubpartitions, 2},
	}

	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			p := compositeProvider()
			p.errs = map[Stage]error{tt.stage: boom}

			obj, err := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
			if err == nil {
				t.Fatal("Build() error = nil, want failure")
			}
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("error %T is not a *QueryError", err)
			}
			if qe.Stage != tt.stage || qe.Object != sales {
				t.Errorf("QueryError = %+v", qe)
			}
			if !errors.Is(err, boom) {
				t.Error("QueryError does not wrap the provider error")
			}
			if obj == nil {
				t.Fatal("partial object is nil")
			}
			if got := len(obj.Partitions()); got != tt.wantPartitions {
				t.Errorf("partial object has %d partitions, want %d", got, tt.wantPartitions)
			}
			if p.calls[len(p.calls)-1] != tt.stage {
				t.Errorf("build continued after failed stage: %v", p.calls)
			}
		})
	}
}

func TestBuildAttachesSubpartitionsByExactName(t *testing.T) {
	p := compositeProvider()
	p.subparts = append(p.subparts,
		SubpartitionRow{Parent: "p2023", Name: "LOWER_PARENT", HighValue: "'NORTH'", Position: 3},
		SubpartitionRow{Parent: " P2023", Name: "SPACED_PARENT", HighValue: "'SOUTH'", Position: 4},
	)

	obj, err := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var names []string
	for _, part := range obj.Partitions() {
		for _, sp := range part.Subpartitions {
			names = append(names, sp.Name)
		}
	}
	want := []string{"P2023_EAST", "P2023_WEST", "P2024_ALL"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("sub-partitions = %v, want %v", names, want)
	}
}

func TestBuildIntervalOnlyWhenSupported(t *testing.T) {
	p := compositeProvider()
	p.def.Interval = "NUMTOYMINTERVAL(1,'MONTH')"

	obj, _ := NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{SupportsIntervalPartitioning: true}))
	if obj.Interval() != "NUMTOYMINTERVAL(1,'MONTH')" {
		t.Errorf("Interval() = %q", obj.Interval())
	}

	obj, _ = NewBuilder(p).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
	if obj.Interval() != "" {
		t.Errorf("Interval() without support = %q, want empty", obj.Interval())
	}

	obj, _ = NewBuilder(p).Build(context.Background(), sales, NewIndexPolicy(Capabilities{SupportsIntervalPartitioning: true}))
	if obj.Interval() != "" {
		t.Errorf("index Interval() = %q, want empty", obj.Interval())
	}
}

func TestPartitionedObjectIsImmutable(t *testing.T) {
	obj, err := NewBuilder(compositeProvider()).Build(context.Background(), sales, NewTablePolicy(Capabilities{}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	parts := obj.Partitions()
	parts[0].Name = "CHANGED"
	parts[0].Subpartitions[0].Name = "CHANGED"
	cols := obj.PartitionColumns()
	cols[0] = "CHANGED"

	if obj.Partitions()[0].Name != "P2023" {
		t.Error("partition slice shared with caller")
	}
	if obj.Partitions()[0].Subpartitions[0].Name != "P2023_EAST" {
		t.Error("sub-partition slice shared with caller")
	}
	if obj.PartitionColumns()[0] != "SALE_DATE" {
		t.Error("column slice shared with caller")
	}

	got, ok := obj.Partition("P2024")
	if !ok || got.Position != 2 {
		t.Errorf("Partition(P2024) = %+v, %v", got, ok)
	}
	if _, ok := obj.Partition("p2024"); ok {
		t.Error("partition lookup must be case-sensitive")
	}
}
