// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations and driver error translation.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")

	// ErrForeignKey indicates a row references a parent that does not exist
	// (or a parent still referenced by children was deleted).
	ErrForeignKey = errors.New("foreign key violation")
)

// connPragmas are applied on every pooled connection through the DSN, so
// each one enforces foreign keys.
var connPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

// DSN appends the per-connection PRAGMAs to a SQLite path or URI.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(connPragmas, "&")
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// Every connection enforces foreign keys and driver errors are translated to
// gorm's sentinel errors.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(DSN(path)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Database-wide PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.City{},
		&domain.Event{},
		&domain.Idempotency{},
	)
}

// translate maps a driver error onto the repo sentinels. Constraint errors
// keep the driver error in the chain for diagnostics. Anything else is
// annotated with op and a stack trace.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return err
	case isUnique(err):
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
	case isForeignKey(err):
		return fmt.Errorf("%s: %w: %w", op, ErrForeignKey, err)
	default:
		return pkgerrors.Wrap(err, op)
	}
}

// glebarez/sqlite sometimes surfaces plain-text constraint errors that the
// gorm translator does not recognise.
func isUnique(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

func isForeignKey(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
