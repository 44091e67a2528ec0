package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/session-auth/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite database at dbPath and migrates all entities.
// dbPath may be ":memory:" for tests.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         newQueryLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}
	// SQLite has a single writer; one connection keeps the in-memory
	// database shared and serializes inserts behind the unique index.
	sqlDB.SetMaxOpenConns(1)

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.User{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("Database initialized")

	return &Database{DB: db}, nil
}

// SQLDB returns the underlying connection pool, shared with the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// Ping checks database connectivity.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return dbPath + "?_busy_timeout=5000&_foreign_keys=on"
}
