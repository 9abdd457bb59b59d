package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskflow/internal/model"
)

// NewDB opens the configured database and runs migrations. driver is
// "sqlite" or "postgres".
func NewDB(driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.AccessToken{},
		&model.Status{},
		&model.Category{},
		&model.Task{},
		&model.Subtask{},
		&model.ActivityLog{},
		&model.AccessLog{},
	); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

// Transactor runs functions inside a database transaction.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise.
func (t *Transactor) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// DB returns the connection the transactor was built on.
func (t *Transactor) DB() *gorm.DB {
	return t.db
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "taskflow.db"
		}
		if err := ensureDirForSQLite(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(sqliteDSN(dsn)), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

type sqliteOption struct {
	keys  []string
	value string
}

var sqliteOptions = []sqliteOption{
	{keys: []string{"_foreign_keys", "_fk"}, value: "_foreign_keys=1"},
	{keys: []string{"_busy_timeout", "_timeout"}, value: "_busy_timeout=5000"},
	{keys: []string{"_txlock"}, value: "_txlock=immediate"},
}

// sqliteDSN adds the options every pooled SQLite connection needs unless
// dsn already sets them. Transactions start with BEGIN IMMEDIATE so that
// concurrent writers wait on the busy timeout instead of failing to upgrade
// a shared lock.
func sqliteDSN(dsn string) string {
	for _, opt := range sqliteOptions {
		if hasOption(dsn, opt.keys) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + opt.value
		} else {
			dsn += "?" + opt.value
		}
	}
	return dsn
}

func hasOption(dsn string, keys []string) bool {
	_, query, ok := strings.Cut(dsn, "?")
	if !ok {
		return false
	}
	for _, pair := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(pair, "=")
		if slices.Contains(keys, name) {
			return true
		}
	}
	return false
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
