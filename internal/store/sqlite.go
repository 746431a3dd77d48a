package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rand/adapt/internal/learning"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a SampleStore backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// SQLiteOptions configures a SQLiteStore.
type SQLiteOptions struct {
	// Path to the database file. Empty uses an in-memory database.
	Path string

	// CreateIfNotExists creates the parent directory if needed.
	CreateIfNotExists bool
}

// NewSQLiteStore opens (and if needed initializes) a sample database.
func NewSQLiteStore(opts SQLiteOptions) (*SQLiteStore, error) {
	var dsn string
	if opts.Path == "" {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	} else {
		if opts.CreateIfNotExists {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = "file:" + opts.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, path: opts.Path}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save persists one sample.
func (s *SQLiteStore) Save(ctx context.Context, sample learning.Sample) error {
	return s.SaveBatch(ctx, []learning.Sample{sample})
}

// SaveBatch persists samples in one transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, samples []learning.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO samples (id, user_id, features, label, source, created_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, 0)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		if sample.ID == "" {
			sample.ID = uuid.New().String()
		}
		if sample.CreatedAt.IsZero() {
			sample.CreatedAt = time.Now()
		}
		features, err := json.Marshal(sample.Features)
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			sample.ID, sample.UserID, string(features), sample.Label,
			string(sample.Source), sample.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// GetAll returns samples within the lookback window, oldest first.
func (s *SQLiteStore) GetAll(ctx context.Context, lookbackMonths int) ([]learning.Sample, error) {
	query := `SELECT id, user_id, features, label, source, created_at FROM samples`
	var args []any
	if lookbackMonths > 0 {
		cutoff := time.Now().AddDate(0, -lookbackMonths, 0)
		query += ` WHERE created_at >= ?`
		args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY created_at ASC`

	return s.querySamples(ctx, query, args...)
}

// GetRecent returns up to limit samples, newest first.
func (s *SQLiteStore) GetRecent(ctx context.Context, limit int) ([]learning.Sample, error) {
	return s.querySamples(ctx, `
		SELECT id, user_id, features, label, source, created_at
		FROM samples ORDER BY created_at DESC LIMIT ?`, limit)
}

// GetPending returns unconsumed samples, oldest first.
func (s *SQLiteStore) GetPending(ctx context.Context) ([]learning.Sample, error) {
	return s.querySamples(ctx, `
		SELECT id, user_id, features, label, source, created_at
		FROM samples WHERE consumed = 0 ORDER BY created_at ASC`)
}

// Count returns the number of retained samples.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.countWhere(ctx, ``)
}

// PendingCount returns the number of unconsumed samples.
func (s *SQLiteStore) PendingCount(ctx context.Context) (int, error) {
	return s.countWhere(ctx, ` WHERE consumed = 0`)
}

// MarkConsumed flags samples as consumed by training.
func (s *SQLiteStore) MarkConsumed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE samples SET consumed = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

// Clear erases all samples.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM samples`); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}
	return nil
}

func (s *SQLiteStore) countWhere(ctx context.Context, where string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`+where).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) querySamples(ctx context.Context, query string, args ...any) ([]learning.Sample, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []learning.Sample
	for rows.Next() {
		var (
			sample    learning.Sample
			features  string
			source    string
			createdAt string
		)
		if err := rows.Scan(&sample.ID, &sample.UserID, &features, &sample.Label, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &sample.Features); err != nil {
			return nil, fmt.Errorf("parse features: %w", err)
		}
		sample.Source = learning.SampleSource(source)
		if sample.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
