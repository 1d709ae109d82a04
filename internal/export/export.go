// Package export renders partition DDL for many catalog objects at once.
package export

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/johndauphine/partddl/internal/logging"
	"github.com/johndauphine/partddl/internal/partition"
	"github.com/johndauphine/partddl/internal/progress"
	"github.com/johndauphine/partddl/internal/snapshot"
	"golang.org/x/sync/errgroup"
)

// Catalog supplies partition metadata and the partitioned objects of a schema.
type Catalog interface {
	partition.MetadataProvider
	ListPartitionedTables(ctx context.Context, schema string) ([]string, error)
	ListPartitionedIndexes(ctx context.Context, schema string) ([]string, error)
}

// Target is one object to export.
type Target struct {
	Ref  partition.ObjectRef
	Kind partition.Kind
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s", t.Kind, t.Ref)
}

// Item is a successfully rendered object.
type Item struct {
	Target
	DDL         string
	Partitioned bool
	// Saved is true when a new snapshot was written for the object.
	Saved bool
}

// Failure records an object whose build, render or save failed.
type Failure struct {
	Target
	Err error
}

// Result holds the outcome of an export. Items keep target order.
type Result struct {
	Items    []Item
	Failures []Failure
}

// Options configures an Exporter.
type Options struct {
	// Store receives a snapshot of every rendered object when non-nil.
	Store snapshot.Store
	// Progress is advanced once per object when non-nil.
	Progress *progress.Tracker
	// Concurrency bounds parallel builds (default 1).
	Concurrency int
}

// Exporter builds and renders objects from a catalog.
type Exporter struct {
	catalog Catalog
	caps    partition.Capabilities
	opts    Options
}

// New creates an Exporter.
func New(catalog Catalog, caps partition.Capabilities, opts Options) *Exporter {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Exporter{catalog: catalog, caps: caps, opts: opts}
}

// Object builds and renders a single object. Table objects render in
// TableDefinition mode and indexes in IndexDefinition mode.
func (e *Exporter) Object(ctx context.Context, target Target) (Item, error) {
	return e.ObjectWithMode(ctx, target, partition.ModeFor(target.Kind))
}

// ObjectWithMode builds a single object and renders it in mode.
func (e *Exporter) ObjectWithMode(ctx context.Context, target Target, mode partition.RenderMode) (Item, error) {
	policy := partition.PolicyFor(target.Kind, e.caps)
	obj, err := partition.NewBuilder(e.catalog).Build(ctx, target.Ref, policy)
	if err != nil {
		return Item{Target: target}, err
	}

	item := Item{
		Target:      target,
		DDL:         partition.Render(obj, mode),
		Partitioned: obj.IsPartitioned(),
	}
	return item, nil
}

// Resolve lists the partitioned tables and indexes of schema. When names is
// non-empty only those objects are returned, in the order given; a name that
// is neither a partitioned table nor index is an error.
func (e *Exporter) Resolve(ctx context.Context, schema string, names []string) ([]Target, error) {
	tables, err := e.catalog.ListPartitionedTables(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("listing partitioned tables: %w", err)
	}
	indexes, err := e.catalog.ListPartitionedIndexes(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("listing partitioned indexes: %w", err)
	}

	if len(names) == 0 {
		targets := make([]Target, 0, len(tables)+len(indexes))
		for _, name := range tables {
			targets = append(targets, Target{Ref: partition.ObjectRef{Schema: schema, Name: name}, Kind: partition.KindTable})
		}
		for _, name := range indexes {
			targets = append(targets, Target{Ref: partition.ObjectRef{Schema: schema, Name: name}, Kind: partition.KindIndex})
		}
		return targets, nil
	}

	var (
		targets []Target
		missing []string
	)
	for _, name := range names {
		ref := partition.ObjectRef{Schema: schema, Name: strings.ToUpper(name)}
		switch {
		case slices.Contains(tables, ref.Name):
			targets = append(targets, Target{Ref: ref, Kind: partition.KindTable})
		case slices.Contains(indexes, ref.Name):
			targets = append(targets, Target{Ref: ref, Kind: partition.KindIndex})
		default:
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("not partitioned in schema %s: %s", schema, strings.Join(missing, ", "))
	}
	return targets, nil
}

// Run exports every target. A failing object is recorded in
// Result.Failures and the remaining objects are still exported. The
// returned error is non-nil only when ctx is cancelled.
func (e *Exporter) Run(ctx context.Context, targets []Target) (*Result, error) {
	items := make([]*Item, len(targets))
	failures := make([]*Failure, len(targets))

	if e.opts.Progress != nil {
		e.opts.Progress.SetTotal(int64(len(targets)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			item, err := e.export(gctx, target)
			if err != nil {
				logObjectFailure(target, err)
				failures[i] = &Failure{Target: target, Err: err}
				if e.opts.Progress != nil {
					e.opts.Progress.Fail()
				}
				return nil
			}

			items[i] = &item
			if e.opts.Progress != nil {
				e.opts.Progress.Add(1)
			}
			return nil
		})
	}

	waitErr := g.Wait()
	if e.opts.Progress != nil {
		e.opts.Progress.Finish()
	}

	result := &Result{}
	for i := range targets {
		if items[i] != nil {
			result.Items = append(result.Items, *items[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}
	if waitErr != nil {
		return result, waitErr
	}
	return result, ctx.Err()
}

func (e *Exporter) export(ctx context.Context, target Target) (Item, error) {
	item, err := e.Object(ctx, target)
	if err != nil {
		return item, err
	}
	if !item.Partitioned {
		return item, fmt.Errorf("%s is no longer partitioned", target)
	}

	if e.opts.Store != nil {
		snap := snapshot.New(target.Ref.Schema, target.Ref.Name, target.Kind.String(), item.DDL)
		saved, err := e.opts.Store.Save(ctx, snap)
		if err != nil {
			return item, fmt.Errorf("saving snapshot: %w", err)
		}
		item.Saved = saved
	}
	return item, nil
}

func logObjectFailure(target Target, err error) {
	var qe *partition.QueryError
	if errors.As(err, &qe) {
		logging.Warn("Skipping %s: %s query failed: %v", target, qe.Stage, qe.Err)
		return
	}
	logging.Warn("Skipping %s: %v", target, err)
}
