package infra

import (
	"fmt"

	"invoicing/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported DB_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewDatabase opens a GORM connection for driver. Unique violations come back
// as gorm.ErrDuplicatedKey on both drivers.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one connection: in-memory databases live per connection and
		// SQLite serializes writers anyway
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}
	return db, nil
}

// RunMigrations brings the schema up to date. Postgres uses the embedded SQL
// migrations; SQLite, used for local runs and tests, uses AutoMigrate.
func RunMigrations(db *gorm.DB, driver string) error {
	if driver == DriverSQLite {
		return AutoMigrate(db)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := NewMigrator(sqlDB)
	if err != nil {
		return err
	}
	return m.Up()
}

// AutoMigrate creates every table from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Client{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.InvoiceSequence{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}
