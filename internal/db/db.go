// Package db provides database connection handling for the API server.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver; imported for side-effects (driver registration)
)

const (
	// MaxOpenConns caps the number of open connections to the database.
	MaxOpenConns = 25
	// MaxIdleConns caps the number of idle connections kept in the pool.
	MaxIdleConns = 5
	// ConnMaxLifetime bounds how long a connection may be reused.
	ConnMaxLifetime = 5 * time.Minute
)

// Open opens a PostgreSQL connection pool and verifies connectivity with a ping.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(MaxOpenConns)
	conn.SetMaxIdleConns(MaxIdleConns)
	conn.SetConnMaxLifetime(ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}
