// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/tenantvault/internal/logging"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config holds DuckDB connection settings.
type Config struct {
	// Path is the database file. MemoryPath or "" opens an in-memory database.
	Path string `koanf:"path"`

	// Threads is DuckDB's worker thread count; 0 uses runtime.NumCPU()
	Threads int `koanf:"threads"`

	// MaxMemory is DuckDB's memory limit, e.g. "1GB"
	MaxMemory string `koanf:"max_memory"`

	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// DefaultConfig returns settings for a file database under ./data.
func DefaultConfig() Config {
	return Config{
		Path:                   "./data/tenantvault.duckdb",
		MaxMemory:              "1GB",
		PreserveInsertionOrder: true,
	}
}

// Validate checks the connection settings.
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("database threads must be >= 0, got %d", c.Threads)
	}
	if c.MaxMemory == "" {
		return errors.New("database max_memory is required")
	}
	return nil
}

// DB wraps the DuckDB connection pool.
type DB struct {
	conn *sql.DB
	cfg  Config
}

// Open connects to DuckDB, creating the parent directory of a file database.
func Open(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == MemoryPath {
		path = ""
	}
	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	// Extensions are never fetched at runtime; the schema uses core types only.
	dsn := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%t&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, cfg.MaxMemory, cfg.PreserveInsertionOrder)

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("path", displayPath(cfg.Path)).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database opened")
	return db, nil
}

// Conn returns the underlying pool for stores that issue their own SQL.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

func displayPath(p string) string {
	if p == "" || p == MemoryPath {
		return MemoryPath
	}
	return p
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing database after failed open")
	}
}
