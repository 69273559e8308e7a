package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	"github.com/tigerroll/greentaxi/pkg/batch/core/tx"
)

// GormTxAdapter implements tx.Tx over an open gorm transaction.
type GormTxAdapter struct {
	db *gorm.DB
}

// ExecuteInsert implements tx.TxExecutor. model must be a slice (or pointer to one).
func (t *GormTxAdapter) ExecuteInsert(ctx context.Context, model interface{}, tableName string, bulkSize int) (int64, error) {
	db := t.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	if tableName != "" {
		db = db.Table(tableName)
	}
	var result *gorm.DB
	if bulkSize > 0 {
		result = db.CreateInBatches(model, bulkSize)
	} else {
		result = db.Create(model)
	}
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteUpsert implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	db := t.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	if tableName != "" {
		db = db.Table(tableName)
	}

	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}
	onConflict := clause.OnConflict{Columns: columns}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	result := db.Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

var _ tx.Tx = (*GormTxAdapter)(nil)

// GormTransactionManager implements tx.TransactionManager for one connection.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a manager for conn, which must be a *GormDBAdapter.
func NewGormTransactionManager(conn database.DBConnection) (*GormTransactionManager, error) {
	a, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("connection '%s' is not a gorm connection (%T)", conn.Name(), conn)
	}
	return &GormTransactionManager{db: a.db}, nil
}

// Begin starts a transaction.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	db := m.db.WithContext(ctx).Begin(opts...)
	if db.Error != nil {
		return nil, db.Error
	}
	return &GormTxAdapter{db: db}, nil
}

// Commit commits t.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	ga, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", t)
	}
	return ga.db.Commit().Error
}

// Rollback rolls t back.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	ga, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", t)
	}
	return ga.db.Rollback().Error
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)
