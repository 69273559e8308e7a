package migration

import (
	"context"
	"fmt"
	"io/fs"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

// Command is a migration direction.
type Command string

const (
	CommandUp   Command = "up"
	CommandDown Command = "down"
)

// MigrationTasklet runs one migration command against a database.
// Scripts are read from migrationFS under a directory named after the database type
// ("sqlite", "postgres", "mysql") unless Dir is set.
type MigrationTasklet struct {
	migrator    Migrator
	migrationFS fs.FS
	dir         string
	table       string
	command     Command
}

// TaskletOption customizes a MigrationTasklet.
type TaskletOption func(*MigrationTasklet)

// WithDir overrides the migration directory inside the file system.
func WithDir(dir string) TaskletOption {
	return func(t *MigrationTasklet) { t.dir = dir }
}

// WithTable overrides the table recording applied versions.
func WithTable(table string) TaskletOption {
	return func(t *MigrationTasklet) { t.table = table }
}

// WithCommand selects "up" (the default) or "down".
func WithCommand(c Command) TaskletOption {
	return func(t *MigrationTasklet) { t.command = c }
}

// WithMigrator replaces the golang-migrate backed migrator.
func WithMigrator(m Migrator) TaskletOption {
	return func(t *MigrationTasklet) { t.migrator = m }
}

// NewMigrationTasklet creates a tasklet migrating the database described by cfg.
func NewMigrationTasklet(cfg dbconfig.DatabaseConfig, migrationFS fs.FS, opts ...TaskletOption) (*MigrationTasklet, error) {
	if migrationFS == nil {
		return nil, exception.NewBatchError("migration", "migration file system is required", nil, false, false)
	}
	t := &MigrationTasklet{
		migrationFS: migrationFS,
		dir:         migrationDir(cfg.Type),
		table:       DefaultMigrationsTable,
		command:     CommandUp,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.migrator == nil {
		t.migrator = NewMigrator(cfg)
	}
	if t.command != CommandUp && t.command != CommandDown {
		return nil, exception.NewBatchError("migration", fmt.Sprintf("unsupported migration command '%s'", t.command), nil, false, false)
	}
	return t, nil
}

func migrationDir(dbType string) string {
	switch dbType {
	case "sqlite3":
		return "sqlite"
	case "redshift":
		return "postgres"
	}
	return dbType
}

// Execute runs the configured command and records the directory on the step execution.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) error {
	if stepExecution != nil {
		if stepExecution.ExecutionContext == nil {
			stepExecution.ExecutionContext = make(map[string]interface{})
		}
		stepExecution.ExecutionContext["migration.dir"] = t.dir
		stepExecution.ExecutionContext["migration.command"] = string(t.command)
	}
	var err error
	if t.command == CommandDown {
		err = t.migrator.Down(ctx, t.migrationFS, t.dir, t.table)
	} else {
		err = t.migrator.Up(ctx, t.migrationFS, t.dir, t.table)
	}
	if err != nil {
		return exception.NewBatchError("migration", fmt.Sprintf("migration %s of %s failed", t.command, t.dir), err, false, false)
	}
	return nil
}

// Close releases the migrator.
func (t *MigrationTasklet) Close(ctx context.Context) error {
	return t.migrator.Close()
}

var _ port.Tasklet = (*MigrationTasklet)(nil)
