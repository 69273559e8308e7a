// Package mysql registers the MySQL dialect with the gorm adapter.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	}, ConnectionString)
}

// ConnectionString renders a go-sql-driver DSN with parseTime enabled.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	auth := c.User
	if c.Password != "" {
		auth += ":" + c.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		auth, c.Host, c.Port, c.Database)
}
