package gorm_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/mysql"
	pgdialect "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/sqlite"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

type fare struct {
	ID     int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	Amount float64 `gorm:"column:amount"`
}

func (fare) TableName() string { return "fares" }

func TestProvider_GetConnection(t *testing.T) {
	dir := t.TempDir()
	p, err := gormadapter.NewProvider(map[string]interface{}{
		"default": map[string]interface{}{
			"type":      "sqlite",
			"database":  filepath.Join(dir, "trips.db"),
			"log_level": "SILENT",
			"pool":      map[string]interface{}{"max_open_conns": "1"},
		},
		"broken": map[string]interface{}{"type": "oracle"},
	})
	require.NoError(t, err)

	conn, err := p.GetConnection("default")
	require.NoError(t, err)
	assert.Equal(t, "default", conn.Name())
	assert.Equal(t, "sqlite", conn.Type())
	assert.Equal(t, 1, conn.Config().Pool.MaxOpenConns)

	again, err := p.GetConnection("default")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = p.GetConnection("missing")
	require.Error(t, err)
	_, err = p.GetConnection("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")

	require.NoError(t, p.CloseAll())
}

func TestNewProvider_InvalidSection(t *testing.T) {
	_, err := gormadapter.NewProvider(map[string]interface{}{
		"default": map[string]interface{}{"port": "not-a-port"},
	})
	require.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	dsn, err := gormadapter.ConnectionString(dbconfig.DatabaseConfig{
		Type: "postgres", Host: "db", Port: 5432, User: "taxi", Password: "secret", Database: "trips", Schema: "nyc",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=taxi password=secret dbname=trips sslmode=disable search_path=nyc", dsn)

	dsn, err = gormadapter.ConnectionString(dbconfig.DatabaseConfig{
		Type: "mysql", Host: "db", Port: 3306, User: "taxi", Database: "trips",
	})
	require.NoError(t, err)
	assert.Equal(t, "taxi@tcp(db:3306)/trips?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true", dsn)

	_, err = gormadapter.ConnectionString(dbconfig.DatabaseConfig{Type: "oracle"})
	require.Error(t, err)
}

func TestGormTransactionManager_InsertUpsertRollback(t *testing.T) {
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t), &fare{})
	tm, err := gormadapter.NewGormTransactionManager(conn)
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := tm.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.ExecuteInsert(ctx, []fare{{ID: 1, Amount: 5}, {ID: 2, Amount: 6}, {ID: 3, Amount: 7}}, "fares", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, tm.Commit(tx))

	tx, err = tm.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecuteUpsert(ctx, []fare{{ID: 2, Amount: 60}, {ID: 4, Amount: 8}}, "fares", []string{"id"}, []string{"amount"})
	require.NoError(t, err)
	require.NoError(t, tm.Commit(tx))

	tx, err = tm.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecuteInsert(ctx, []fare{{ID: 5, Amount: 9}}, "fares", 0)
	require.NoError(t, err)
	require.NoError(t, tm.Rollback(tx))

	var got []fare
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &got, nil, "id", 0, 0))
	assert.Equal(t, []fare{{1, 5}, {2, 60}, {3, 7}, {4, 8}}, got)

	count, err := conn.Count(ctx, &fare{}, map[string]interface{}{"amount": 60.0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormTransactionManager_DoNothingOnConflict(t *testing.T) {
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t), &fare{})
	tm, err := gormadapter.NewGormTransactionManager(conn)
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecuteInsert(ctx, []fare{{ID: 1, Amount: 5}}, "fares", 0)
	require.NoError(t, err)
	_, err = tx.ExecuteUpsert(ctx, []fare{{ID: 1, Amount: 50}}, "fares", []string{"id"}, nil)
	require.NoError(t, err)
	require.NoError(t, tm.Commit(tx))

	var got []fare
	require.NoError(t, conn.ExecuteQuery(ctx, &got, nil))
	assert.Equal(t, []fare{{1, 5}}, got)
}

func TestGormTransactionManager_PostgresUpsertSQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormadapter.NewGormLogger("SILENT")})
	require.NoError(t, err)
	cfg := dbconfig.DatabaseConfig{Type: "postgres", Database: "trips"}
	tm, err := gormadapter.NewGormTransactionManager(gormadapter.NewGormDBAdapter(db, cfg, "pg"))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "green_taxi" .* ON CONFLICT \("id"\) DO UPDATE SET "amount"="excluded"."amount"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "green_taxi"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := tm.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.ExecuteUpsert(ctx, []fare{{ID: 1, Amount: 5}, {ID: 2, Amount: 6}}, "green_taxi", []string{"id"}, []string{"amount"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tm.Commit(tx))

	tx, err = tm.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecuteInsert(ctx, []fare{{ID: 3, Amount: 7}}, "green_taxi", 100)
	require.Error(t, err)
	require.NoError(t, tm.Rollback(tx))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NotEmpty(t, pgdialect.ConnectionString(cfg))
}
