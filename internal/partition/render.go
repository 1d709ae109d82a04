package partition

import (
	"strconv"
	"strings"

	"github.com/johndauphine/partddl/internal/util"
)

// RenderMode selects how partition clauses are written.
type RenderMode int

const (
	// TableDefinition writes partition boundaries.
	TableDefinition RenderMode = iota
	// IndexDefinition omits boundaries; index partitions inherit them from
	// the table.
	IndexDefinition
)

func (m RenderMode) String() string {
	if m == IndexDefinition {
		return "index"
	}
	return "table"
}

// ParseRenderMode parses "table" or "index".
func ParseRenderMode(s string) (RenderMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return TableDefinition, true
	case "index":
		return IndexDefinition, true
	}
	return TableDefinition, false
}

// ModeFor returns the natural render mode for an object kind.
func ModeFor(kind Kind) RenderMode {
	if kind == KindIndex {
		return IndexDefinition
	}
	return TableDefinition
}

const indent = "  "

// Render returns the partitioning clause of obj, without a trailing newline
// or statement delimiter. Unpartitioned objects render as "".
//
// Partition names are right-padded to the longest sibling name so the
// clauses line up. Downstream diffs depend on this layout; keep it stable.
func Render(obj *PartitionedObject, mode RenderMode) string {
	if obj == nil || !obj.IsPartitioned() {
		return ""
	}

	var lines []string

	head := "PARTITION BY " + obj.strategy.String() + " (" + strings.Join(obj.columns, ", ") + ")"
	if obj.kind == KindIndex && (obj.locality == LocalityGlobal || obj.locality == LocalityLocal) {
		head = obj.locality.String() + " " + head
	}
	lines = append(lines, head)

	if obj.interval != "" && mode == TableDefinition {
		lines = append(lines, "INTERVAL ("+obj.interval+")")
	}

	if obj.subStrategy != StrategyNone {
		sub := "SUBPARTITION BY " + obj.subStrategy.String() + " (" + strings.Join(obj.subColumns, ", ") + ")"
		if obj.defaultSubpartitions > 1 {
			sub += " SUBPARTITIONS " + strconv.Itoa(obj.defaultSubpartitions)
		}
		lines = append(lines, sub)
	}

	lines = append(lines, "(")
	width := partitionNameWidth(obj.partitions)
	for i, p := range obj.partitions {
		block := strings.Split(RenderPartition(obj, p, mode, width), "\n")
		if i < len(obj.partitions)-1 {
			block[len(block)-1] += ","
		}
		for _, l := range block {
			lines = append(lines, indent+l)
		}
	}
	lines = append(lines, ")")

	return strings.Join(lines, "\n")
}

// RenderPartition renders one partition clause, followed by its
// sub-partition block when it has sub-partitions. The block's parentheses
// sit one indent deeper than PARTITION and its entries two. nameWidth is the padding
// width for the partition name.
func RenderPartition(obj *PartitionedObject, p Partition, mode RenderMode, nameWidth int) string {
	var sb strings.Builder
	sb.WriteString("PARTITION ")
	sb.WriteString(util.PadRight(p.Name, nameWidth))
	sb.WriteString(boundaryClause(obj.strategy, p.HighValue, mode))
	sb.WriteString(compressionClause(p.Compression, p.HighValue))

	if len(p.Subpartitions) == 0 {
		return sb.String()
	}

	subWidth := 0
	for _, sp := range p.Subpartitions {
		subWidth = max(subWidth, util.DisplayWidth(sp.Name))
	}

	sb.WriteString("\n" + indent + "(")
	for i, sp := range p.Subpartitions {
		sb.WriteString("\n" + indent + indent + "SUBPARTITION ")
		sb.WriteString(util.PadRight(sp.Name, subWidth))
		sb.WriteString(boundaryClause(obj.subStrategy, sp.HighValue, mode))
		sb.WriteString(compressionClause(sp.Compression, sp.HighValue))
		if i < len(p.Subpartitions)-1 {
			sb.WriteString(",")
		}
	}
	sb.WriteString("\n" + indent + ")")
	return sb.String()
}

func partitionNameWidth(parts []Partition) int {
	width := 0
	for _, p := range parts {
		width = max(width, util.DisplayWidth(p.Name))
	}
	return width
}

func boundaryClause(strategy Strategy, highValue string, mode RenderMode) string {
	if mode == IndexDefinition || highValue == "" {
		return ""
	}
	if strategy == StrategyRange {
		return " VALUES LESS THAN (" + highValue + ")"
	}
	return " VALUES (" + highValue + ")"
}

// compressionClause only emits a keyword when the boundary text contains a
// quote. The rule is kept as reports have always been produced this way;
// see DESIGN.md before changing it.
func compressionClause(c Compression, highValue string) string {
	kw := c.Keyword()
	if kw == "" || !strings.Contains(highValue, "'") {
		return ""
	}
	return " " + kw
}
