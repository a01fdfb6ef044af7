// Package store is the persistence layer of the bridge, a gorm-backed
// SQLite store over the six-table schema.
//
// The daemon is the only process that opens the database. The connection
// pool is sized to the cosigner count and every handle uses an 8 second
// busy timeout, matching the bound on concurrent callers.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const dbTimeout = 8 * time.Second

// Config holds database open parameters.
type Config struct {
	// Path is the SQLite database file path, or ":memory:" for tests.
	Path string
	// MaxOpenConns bounds the pool; the bridge sets it to the cosigner
	// count. In-memory databases are forced to a single connection.
	MaxOpenConns int
}

// Store wraps the gorm handle with the bridge's typed queries.
type Store struct {
	db *gorm.DB
}

// Open connects to the database, configures the pool and runs migrations.
func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		cfg.Path, dbTimeout.Milliseconds())
	maxConns := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		// a second connection would see a different empty database
		dsn = ":memory:?_pragma=foreign_keys(1)"
		maxConns = 1
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
	}
	sqlDB.SetConnMaxIdleTime(dbTimeout)
	sqlDB.SetConnMaxLifetime(dbTimeout)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin starts a transaction. The returned handle can be passed to any
// query method that accepts one.
func (s *Store) Begin() (*gorm.DB, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// conn returns the transaction handle if one is given, the base connection
// otherwise.
func (s *Store) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// asNotFound converts gorm's not-found error to a nil result.
func asNotFound(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	return false, err
}
