package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
)

// SQLiteStore is the relational on-device backend. Child tables reference
// journeys with ON DELETE CASCADE, so deletes only touch the parent row.
type SQLiteStore struct {
	path string
	log  *logger.Logger

	mu    sync.Mutex
	db    *sql.DB
	ready atomic.Bool
}

var _ domain.Repository = (*SQLiteStore)(nil)

// NewSQLite creates a store for the database at path. Nothing is opened
// until Initialize.
func NewSQLite(path string, log *logger.Logger) *SQLiteStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SQLiteStore{path: path, log: log.With("backend", "sqlite")}
}

// Initialize opens the database and brings the schema to
// CurrentSchemaVersion. Calling it again after success is a no-op.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}

	db, err := sql.Open("sqlite3", s.path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// single writer; also keeps per-connection pragmas consistent
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("open database: %w", err)
	}

	if err := migrate(ctx, db, s.log); err != nil {
		db.Close()
		return fmt.Errorf("init schema: %w", err)
	}

	s.db = db
	s.ready.Store(true)
	s.log.Debug("database ready", "path", s.path)
	return nil
}

func (s *SQLiteStore) IsReady() bool {
	return s.ready.Load()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	s.ready.Store(false)
	err := s.db.Close()
	s.db = nil
	return err
}

// Version returns the schema version recorded in the database
func (s *SQLiteStore) Version(ctx context.Context) (int, error) {
	if !s.IsReady() {
		return 0, domain.ErrNotReady
	}
	return schemaVersion(ctx, s.db)
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	if !s.ready.Load() {
		return nil, domain.ErrNotReady
	}
	return s.db, nil
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := domain.FromMillis(n.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
