// Command greentaxi loads monthly NYC green taxi trip files into a database and serves
// aggregated dashboard data over HTTP.
//
//	greentaxi load --year 2019 --month 01 [--create_table] [config.yaml]
//	greentaxi serve [config.yaml]
//	greentaxi export --year 2019 --month 01 [config.yaml]
package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/greentaxi/internal/app"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/gcs"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

//go:embed all:resources/migrations
var migrationsFS embed.FS

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := app.ParseArgs(args, os.Stderr)
	if err != nil {
		logger.Errorf("%v", err)
		return 2
	}
	opts.EnvFilePath = os.Getenv("ENV_FILE_PATH")
	if opts.EnvFilePath == "" {
		opts.EnvFilePath = ".env"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrations, err := fs.Sub(migrationsFS, "resources/migrations")
	if err != nil {
		logger.Errorf("Failed to open embedded migrations: %v", err)
		return 1
	}

	if err := app.Run(ctx, opts, embeddedConfig, migrations); err != nil {
		logger.Errorf("%s failed: %v", opts.Command, err)
		if errors.Is(err, app.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
