package migration_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	"github.com/tigerroll/greentaxi/pkg/batch/component/tasklet/migration"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up(ctx context.Context, fsys fs.FS, path, table string) error {
	return m.Called(ctx, fsys, path, table).Error(0)
}

func (m *MockMigrator) Down(ctx context.Context, fsys fs.FS, path, table string) error {
	return m.Called(ctx, fsys, path, table).Error(0)
}

func (m *MockMigrator) Close() error { return m.Called().Error(0) }

var tripMigrations = fstest.MapFS{
	"sqlite/000001_create_green_taxi_table.up.sql": &fstest.MapFile{Data: []byte(
		`CREATE TABLE IF NOT EXISTS green_taxi (id INTEGER PRIMARY KEY, "VendorID" INTEGER NULL, month VARCHAR(2), year VARCHAR(4));`)},
	"sqlite/000001_create_green_taxi_table.down.sql": &fstest.MapFile{Data: []byte(`DROP TABLE IF EXISTS green_taxi;`)},
}

func TestMigrationTasklet_DirFollowsDatabaseType(t *testing.T) {
	cases := map[string]string{
		"sqlite":   "sqlite",
		"sqlite3":  "sqlite",
		"postgres": "postgres",
		"redshift": "postgres",
		"mysql":    "mysql",
	}
	for dbType, dir := range cases {
		t.Run(dbType, func(t *testing.T) {
			m := new(MockMigrator)
			m.On("Up", mock.Anything, mock.Anything, dir, migration.DefaultMigrationsTable).Return(nil)

			tl, err := migration.NewMigrationTasklet(dbconfig.DatabaseConfig{Type: dbType}, tripMigrations, migration.WithMigrator(m))
			require.NoError(t, err)

			se := testutil.NewTestStepExecution("load", "createTableStep")
			require.NoError(t, tl.Execute(context.Background(), se))
			assert.Equal(t, dir, se.ExecutionContext["migration.dir"])
			assert.Equal(t, "up", se.ExecutionContext["migration.command"])
			m.AssertExpectations(t)
		})
	}
}

func TestMigrationTasklet_DownWithOverrides(t *testing.T) {
	m := new(MockMigrator)
	m.On("Down", mock.Anything, mock.Anything, "custom", "versions").Return(nil)
	m.On("Close").Return(nil)

	tl, err := migration.NewMigrationTasklet(dbconfig.DatabaseConfig{Type: "postgres"}, tripMigrations,
		migration.WithMigrator(m), migration.WithDir("custom"), migration.WithTable("versions"),
		migration.WithCommand(migration.CommandDown))
	require.NoError(t, err)

	require.NoError(t, tl.Execute(context.Background(), nil))
	require.NoError(t, tl.Close(context.Background()))
	m.AssertExpectations(t)
}

func TestMigrationTasklet_WrapsFailure(t *testing.T) {
	m := new(MockMigrator)
	m.On("Up", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("syntax error near CREATE"))

	tl, err := migration.NewMigrationTasklet(dbconfig.DatabaseConfig{Type: "sqlite"}, tripMigrations, migration.WithMigrator(m))
	require.NoError(t, err)

	err = tl.Execute(context.Background(), testutil.NewTestStepExecution("load", "createTableStep"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error near CREATE")
}

func TestNewMigrationTasklet_Validation(t *testing.T) {
	_, err := migration.NewMigrationTasklet(dbconfig.DatabaseConfig{Type: "sqlite"}, nil)
	assert.Error(t, err)

	_, err = migration.NewMigrationTasklet(dbconfig.DatabaseConfig{Type: "sqlite"}, tripMigrations,
		migration.WithMigrator(new(MockMigrator)), migration.WithCommand("sideways"))
	assert.Error(t, err)
}

func TestMigrator_SQLite(t *testing.T) {
	cfg := testutil.SQLiteConfig(t)
	tl, err := migration.NewMigrationTasklet(cfg, tripMigrations)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tl.Execute(ctx, testutil.NewTestStepExecution("load", "createTableStep")))
	// A second run has nothing to apply.
	require.NoError(t, tl.Execute(ctx, testutil.NewTestStepExecution("load", "createTableStep")))
	require.NoError(t, tl.Close(ctx))

	conn := testutil.NewSQLiteConnection(t, cfg)
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	var name string
	require.NoError(t, sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'green_taxi'`).Scan(&name))
	assert.Equal(t, "green_taxi", name)
}
