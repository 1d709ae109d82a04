package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/johndauphine/partddl/internal/config"
	"github.com/johndauphine/partddl/internal/driver/oracle"
	"github.com/johndauphine/partddl/internal/export"
	"github.com/johndauphine/partddl/internal/logging"
	"github.com/johndauphine/partddl/internal/partition"
	"github.com/johndauphine/partddl/internal/progress"
	"github.com/johndauphine/partddl/internal/snapshot"
	"github.com/johndauphine/partddl/internal/util"
	"github.com/johndauphine/partddl/internal/version"
	"github.com/urfave/cli/v2"
)

// errDDLChanged is returned by diff when the live DDL differs from the
// latest snapshot.
var errDDLChanged = errors.New("partition DDL changed since last snapshot")

// source is an open catalog connection.
type source struct {
	catalog export.Catalog
	caps    partition.Capabilities
	schema  string
	// qualify renders schema.name for report headers.
	qualify func(schema, name string) string
	close   func() error
}

// openSource connects to the configured catalog. Tests replace it.
var openSource = openOracle

func openOracle(ctx context.Context, cfg *config.Config) (*source, error) {
	if err := cfg.RequireSource(); err != nil {
		return nil, err
	}
	r, err := oracle.NewReader(ctx, &cfg.Source, cfg.Partitions.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	logging.Debug("Connected: %s", r.Banner())

	return &source{
		catalog: r.Loader(),
		caps:    r.Capabilities(cfg.Partitions.OracleVersion, cfg.Partitions.RetrieveLocalIndexSubpartitions),
		schema:  r.DefaultSchema(),
		qualify: r.Dialect().QualifyTable,
		close:   r.Close,
	}, nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	objectFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "table",
			Usage: "Partitioned table name",
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "Partitioned index name",
		},
		&cli.StringFlag{
			Name:  "schema",
			Usage: "Owner of the object (default: source.schema or the connecting user)",
		},
	}

	return &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "partddl.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging.level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override logging.format (text, json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the partition clause of one table or index",
				Flags: append(objectFlags, &cli.StringFlag{
					Name:  "mode",
					Usage: "Render as a table or index definition (default: by object kind)",
				}),
				Action: showObject,
			},
			{
				Name:  "export",
				Usage: "Render every partitioned object of a schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Schema to export (default: source.schema or the connecting user)",
					},
					&cli.StringFlag{
						Name:  "objects",
						Usage: "Comma-separated table or index names (default: all)",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Store a snapshot of each rendered object",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Objects rendered in parallel (default: partitions.max_connections)",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				},
				Action: exportObjects,
			},
			{
				Name:  "diff",
				Usage: "Compare an object's partition clause with its latest snapshot",
				Flags: append(objectFlags, &cli.BoolFlag{
					Name:  "save",
					Usage: "Store the current rendering after comparing",
				}),
				Action: diffObject,
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "%s %s\n%s\n", version.Name, version.Version, version.Description)
					return nil
				},
			},
		},
	}
}

// loadConfig loads the config file and applies the global overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	if err := cfg.ApplyLogging(); err != nil {
		return nil, fmt.Errorf("invalid logging options: %w", err)
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			logging.Warn("Interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// connect loads config and opens the catalog source.
func connect(ctx context.Context, c *cli.Context) (*config.Config, *source, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet("schema") {
		src.schema = strings.ToUpper(c.String("schema"))
	}
	return cfg, src, nil
}

// objectTarget reads --table or --index.
func objectTarget(c *cli.Context, schema string) (export.Target, error) {
	table, index := c.String("table"), c.String("index")
	switch {
	case table != "" && index != "":
		return export.Target{}, errors.New("--table and --index are mutually exclusive")
	case table != "":
		return export.Target{Ref: partition.ObjectRef{Schema: schema, Name: strings.ToUpper(table)}, Kind: partition.KindTable}, nil
	case index != "":
		return export.Target{Ref: partition.ObjectRef{Schema: schema, Name: strings.ToUpper(index)}, Kind: partition.KindIndex}, nil
	default:
		return export.Target{}, errors.New("one of --table or --index is required")
	}
}

func showObject(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, src, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer src.close()

	target, err := objectTarget(c, src.schema)
	if err != nil {
		return err
	}

	mode := partition.ModeFor(target.Kind)
	if c.IsSet("mode") {
		m, ok := partition.ParseRenderMode(c.String("mode"))
		if !ok {
			return fmt.Errorf("invalid --mode %q (use table or index)", c.String("mode"))
		}
		mode = m
	}

	item, err := export.New(src.catalog, src.caps, export.Options{}).ObjectWithMode(ctx, target, mode)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", target, err)
	}
	if !item.Partitioned {
		logging.Info("%s is not partitioned", target)
		return nil
	}

	fmt.Fprintln(c.App.Writer, item.DDL)
	return nil
}

func exportObjects(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, src, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer src.close()

	opts := export.Options{Concurrency: cfg.Partitions.MaxConnections}
	if c.IsSet("workers") {
		opts.Concurrency = c.Int("workers")
	}
	if !c.Bool("no-progress") {
		opts.Progress = progress.NewWithWriter(c.App.ErrWriter)
	}
	if c.Bool("save") {
		store, err := snapshot.Open(ctx, cfg.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}

	exp := export.New(src.catalog, src.caps, opts)
	targets, err := exp.Resolve(ctx, src.schema, util.SplitCSV(c.String("objects")))
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logging.Info("No partitioned objects in schema %s", src.schema)
		return nil
	}

	result, err := exp.Run(ctx, targets)
	if err != nil {
		return err
	}
	writeItems(c.App.Writer, src, result.Items)

	if n := len(result.Failures); n > 0 {
		for _, f := range result.Failures {
			logging.Error("%s: %v", f.Target, f.Err)
		}
		return fmt.Errorf("%d of %d objects failed", n, len(targets))
	}
	return nil
}

func writeItems(w io.Writer, src *source, items []export.Item) {
	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s %s\n%s\n", item.Kind, src.qualify(item.Ref.Schema, item.Ref.Name), item.DDL)
	}
}

func diffObject(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, src, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer src.close()

	target, err := objectTarget(c, src.schema)
	if err != nil {
		return err
	}

	store, err := snapshot.Open(ctx, cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer store.Close()

	item, err := export.New(src.catalog, src.caps, export.Options{}).Object(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", target, err)
	}

	prev, err := store.Latest(ctx, target.Ref.Schema, target.Ref.Name, target.Kind.String())
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("no snapshot of %s; run export --save first", target)
	}
	if err != nil {
		return err
	}

	name := src.qualify(target.Ref.Schema, target.Ref.Name)
	report, err := snapshot.Diff(prev.DDL, item.DDL,
		fmt.Sprintf("%s (snapshot %s)", name, prev.ID), name+" (current)")
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", target, err)
	}

	if c.Bool("save") {
		snap := snapshot.New(target.Ref.Schema, target.Ref.Name, target.Kind.String(), item.DDL)
		if _, err := store.Save(ctx, snap); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	if report == "" {
		fmt.Fprintf(c.App.Writer, "No changes to %s since %s\n", target, prev.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	}
	fmt.Fprint(c.App.Writer, report)
	return errDDLChanged
}
