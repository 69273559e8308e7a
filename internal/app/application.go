// Package app wires greentaxi's commands with uber-fx.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/greentaxi/internal/export"
	"github.com/tigerroll/greentaxi/internal/fetcher"
	"github.com/tigerroll/greentaxi/internal/step/processor"
	coreconfig "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	"github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// Command names a subcommand.
type Command string

const (
	CommandLoad   Command = "load"
	CommandServe  Command = "serve"
	CommandExport Command = "export"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("usage error")

const stopTimeout = 30 * time.Second

// Options is a parsed command line.
type Options struct {
	Command     Command
	Year        string
	Month       string
	CreateTable bool
	// ConfigPath is a YAML file overriding the embedded configuration.
	ConfigPath  string
	EnvFilePath string
}

// ParseArgs parses "<command> [flags] [config.yaml]". Year and month default to the
// greentaxi section when omitted.
func ParseArgs(args []string, stderr io.Writer) (Options, error) {
	if len(args) == 0 {
		return Options{}, fmt.Errorf("%w: expected a command: load, serve or export", ErrUsage)
	}
	opts := Options{Command: Command(args[0])}
	fsName := "greentaxi " + args[0]
	set := flag.NewFlagSet(fsName, flag.ContinueOnError)
	set.SetOutput(stderr)
	switch opts.Command {
	case CommandLoad:
		set.StringVar(&opts.Year, "year", "", "year of the trip file, e.g. 2019")
		set.StringVar(&opts.Month, "month", "", "two-digit month of the trip file, e.g. 01")
		set.BoolVar(&opts.CreateTable, "create_table", false, "create the green_taxi table before loading")
	case CommandExport:
		set.StringVar(&opts.Year, "year", "", "year to export")
		set.StringVar(&opts.Month, "month", "", "two-digit month to export")
	case CommandServe:
	default:
		return Options{}, fmt.Errorf("%w: unknown command '%s'", ErrUsage, args[0])
	}
	if err := set.Parse(args[1:]); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if set.NArg() > 1 {
		return Options{}, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, set.Args())
	}
	opts.ConfigPath = coreconfig.ResolveConfigPath(set.Args())
	return opts, nil
}

func baseOptions(opts Options, embedded coreconfig.EmbeddedConfig, migrations fs.FS) []fx.Option {
	o := []fx.Option{
		fx.Supply(
			embedded,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(opts.ConfigPath, fx.ResultTags(`name:"configPath"`)),
		),
		CoreModule,
	}
	if migrations != nil {
		o = append(o, fx.Supply(fx.Annotate(migrations, fx.As(new(fs.FS)), fx.ResultTags(`name:"migrations"`))))
	}
	return o
}

// Run executes one command until it finishes or, for serve, until ctx is cancelled.
func Run(ctx context.Context, opts Options, embedded coreconfig.EmbeddedConfig, migrations fs.FS) error {
	switch opts.Command {
	case CommandLoad:
		return runLoad(ctx, opts, embedded, migrations)
	case CommandServe:
		return runServe(ctx, opts, embedded, migrations)
	case CommandExport:
		return runExport(ctx, opts, embedded, migrations)
	}
	return fmt.Errorf("%w: unknown command '%s'", ErrUsage, opts.Command)
}

func start(ctx context.Context, app *fx.App) (func(), error) {
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Warnf("Shutdown finished with errors: %v", err)
		}
	}, nil
}

func period(opts Options, defaultYear, defaultMonth string) (string, string) {
	year, month := opts.Year, opts.Month
	if year == "" {
		year = defaultYear
	}
	if month == "" {
		month = defaultMonth
	}
	return year, month
}

func runLoad(ctx context.Context, opts Options, embedded coreconfig.EmbeddedConfig, migrations fs.FS) error {
	var (
		params LoadParams
		remote *fetcher.RemoteFetcher
	)
	app := fx.New(append(baseOptions(opts, embedded, migrations),
		LoadModule,
		fx.Invoke(func(p LoadParams, f *fetcher.RemoteFetcher) {
			params, remote = p, f
		}),
	)...)
	stop, err := start(ctx, app)
	if err != nil {
		return err
	}
	defer stop()

	year, month := period(opts, params.App.Year, params.App.Month)
	if err := processor.ValidatePeriod(year, month); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	ld, err := NewBatchLoader(params, opts.CreateTable)
	if err != nil {
		return err
	}
	object, err := remote.Fetch(ctx, year, month)
	if err != nil {
		return err
	}
	je, err := ld.Load(ctx, object, year, month)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %s-%s: %d records in %s.", year, month, writeCount(je.StepExecutions), je.Duration())
	return nil
}

func runServe(ctx context.Context, opts Options, embedded coreconfig.EmbeddedConfig, migrations fs.FS) error {
	app := fx.New(append(baseOptions(opts, embedded, migrations),
		ServeModule,
		fx.StartTimeout(30*time.Minute),
	)...)
	stop, err := start(ctx, app)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	logger.Infof("Stopping dashboard: %v", context.Cause(ctx))
	return nil
}

func runExport(ctx context.Context, opts Options, embedded coreconfig.EmbeddedConfig, migrations fs.FS) error {
	var (
		exporter *export.Exporter
		params   ExportParams
	)
	app := fx.New(append(baseOptions(opts, embedded, migrations),
		ExportModule,
		fx.Invoke(func(e *export.Exporter, p ExportParams) {
			exporter, params = e, p
		}),
	)...)
	stop, err := start(ctx, app)
	if err != nil {
		return err
	}
	defer stop()

	year, month := period(opts, params.App.Year, params.App.Month)
	object, rows, err := exporter.Export(ctx, year, month)
	if err != nil {
		return err
	}
	if object != "" {
		logger.Infof("Exported %d trips of %s-%s to %s.", rows, year, month, object)
	}
	return nil
}

func writeCount(steps []*model.StepExecution) int {
	n := 0
	for _, se := range steps {
		n += se.WriteCount
	}
	return n
}
