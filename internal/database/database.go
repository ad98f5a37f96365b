// Package database opens the Postgres connection used by every store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-eventpass/internal/config"
	"ms-eventpass/internal/logger"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Connect opens Postgres through lib/pq and wraps it in bun. It retries the
// initial ping so the service can start alongside its database container.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	var pingErr error
	for attempt := 1; attempt <= 5; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		pingErr = sqldb.PingContext(pingCtx)
		cancel()
		if pingErr == nil {
			break
		}
		log.Warn("DATABASE", fmt.Sprintf("Ping attempt %d failed: %v", attempt, pingErr))
		select {
		case <-ctx.Done():
			sqldb.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if pingErr != nil {
		sqldb.Close()
		return nil, fmt.Errorf("connect postgres %s:%s: %w", cfg.Host, cfg.Port, pingErr)
	}

	log.LogDatabase("CONNECT", cfg.Database, "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// IsUniqueViolation reports whether err is a unique constraint failure. When
// column is non-empty the violated constraint must mention it.
func IsUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != "23505" {
			return false
		}
		return column == "" || strings.Contains(pqErr.Constraint, column) || strings.Contains(pqErr.Detail, column)
	}
	// SQLite: "UNIQUE constraint failed: tickets.qr_token"
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return column == "" || strings.Contains(msg, "."+column)
}
