package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMigration_StoresInstants(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "resources/migrations/postgres/000001_create_green_taxi_table.up.sql")
	require.NoError(t, err)
	ddl := string(up)
	assert.Contains(t, ddl, `"lpep_pickup_datetime" TIMESTAMPTZ NULL`)
	assert.Contains(t, ddl, `"lpep_dropoff_datetime" TIMESTAMPTZ NULL`)
}

func TestRun_UsageErrorExitsTwo(t *testing.T) {
	assert.Equal(t, 2, run([]string{"unload"}))
	assert.Equal(t, 2, run(nil))
}
