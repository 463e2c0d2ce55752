// Package history keeps a local record of delegated compose operations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/models"
	_ "modernc.org/sqlite"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

type DB struct {
	conn *sql.DB
}

// NewDB opens or creates the store at path, creating parent directories.
func NewDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		args TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		stdout TEXT,
		stderr TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_started_at ON operations(started_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Record(ctx context.Context, op *models.Operation) error {
	args, err := json.Marshal(op.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}

	query := `INSERT INTO operations (id, command, args, exit_code, stdout, stderr, started_at, duration_ms)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.ExecContext(ctx, query, op.ID, op.Command, string(args), op.ExitCode,
		op.Stdout, op.Stderr, op.StartedAt.UnixNano(), op.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// ClampLimit keeps list sizes within 1..MaxLimit; zero or negative means DefaultLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// List returns the most recent operations first.
func (db *DB) List(ctx context.Context, limit int) ([]*models.Operation, error) {
	query := `SELECT id, command, args, exit_code, stdout, stderr, started_at, duration_ms
	          FROM operations
	          ORDER BY started_at DESC
	          LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []*models.Operation{}
	for rows.Next() {
		var (
			op         models.Operation
			args       string
			stdout     sql.NullString
			stderr     sql.NullString
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&op.ID, &op.Command, &args, &op.ExitCode, &stdout, &stderr, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &op.Args); err != nil {
			return nil, fmt.Errorf("decode args: %w", err)
		}
		op.Stdout = stdout.String
		op.Stderr = stderr.String
		op.StartedAt = time.Unix(0, startedAt)
		op.Duration = time.Duration(durationMS) * time.Millisecond
		ops = append(ops, &op)
	}

	return ops, rows.Err()
}

// Cleanup removes operations older than retention and reports how many went.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	result, err := db.conn.ExecContext(ctx, `DELETE FROM operations WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete operations: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) Close() error {
	return db.conn.Close()
}
