package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/drmeng/vds/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormConfig is shared by every driver. TranslateError makes drivers report
// unique violations as gorm.ErrDuplicatedKey, which models.Classify relies on.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// MySQLDSN builds a go-sql-driver DSN. Dates are read back as UTC time.Time.
func MySQLDSN(cfg config.DatabaseConfig) string {
	auth := cfg.User
	if cfg.Password != "" {
		auth += ":" + cfg.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4", auth, cfg.Host, cfg.Port, cfg.Name)
}

// PostgresDSN builds a libpq keyword/value DSN.
func PostgresDSN(cfg config.DatabaseConfig) string {
	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", cfg.User),
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", cfg.Name),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
		"TimeZone=UTC",
	)
	return strings.Join(parts, " ")
}

// SQLiteDSN turns a file path (or ":memory:") into a DSN with foreign keys
// enforced, which cascade deletes depend on.
func SQLiteDSN(path string) string {
	if path == ":memory:" {
		path = "file::memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Open connects to the store described by cfg.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.Path)
	case config.DriverMySQL:
		db, err := gorm.Open(mysql.Open(MySQLDSN(cfg)), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: connect to mysql %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(PostgresDSN(cfg)), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: connect to postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// OpenWithRetry calls Open with exponential backoff until it succeeds or
// maxWait elapses; a zero maxWait retries indefinitely. Long-running commands
// use it because they may start before the database server accepts connections.
func OpenWithRetry(cfg config.DatabaseConfig, maxWait time.Duration) (*gorm.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = maxWait

	var db *gorm.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = Open(cfg)
		if err != nil && strings.HasPrefix(err.Error(), "db: unsupported driver") {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database. The pool is limited to one connection:
// SQLite serialises writers anyway, and an in-memory database exists only
// inside the connection that created it.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db: sqlite path is required")
	}
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
