// Package db opens the Postgres pool used by the gorm store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func pinsSSLMode(dsn string) bool {
	return strings.Contains(strings.ToLower(dsn), "sslmode")
}

// DB is the Postgres pool GormStore is built on.
type DB struct {
	*sql.DB
}

// New opens a Postgres pool for dsn. If the first ping fails and dsn does
// not pin sslmode, it retries once with SSL disabled.
func New(dsn string, logger *logrus.Logger) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		if !pinsSSLMode(dsn) {
			logger.WithError(err).Warn("retrying database connection with SSL disabled")
			sqlDB.Close()
			sqlDB, err = sql.Open("postgres", WithSSLDisabled(dsn))
			if err != nil {
				return nil, fmt.Errorf("open postgres: %w", err)
			}
		}
		if err := sqlDB.Ping(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: sqlDB}, nil
}

// WithSSLDisabled appends sslmode=disable to a URL style DSN.
func WithSSLDisabled(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	return dsn + "?sslmode=disable"
}

// HealthCheck pings with a short deadline.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
