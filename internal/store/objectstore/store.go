// Package objectstore is the embedded object-store backend. It keeps the
// same logical collections as the relational backend but has a single
// schema version, no foreign keys, and cascades deletes by hand. It runs
// on the pure-Go SQLite engine so it works in builds without cgo.
package objectstore

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
)

// SchemaVersion is the only version this store has ever had
const SchemaVersion = 1

type Store struct {
	path string
	log  *logger.Logger

	mu    sync.Mutex
	db    *gorm.DB
	ready atomic.Bool
}

var _ domain.Repository = (*Store)(nil)

func New(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{path: path, log: log.With("backend", "objectstore")}
}

// Initialize opens the store and creates any missing collection.
// Calling it again after success is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        s.path + "?_pragma=busy_timeout(5000)",
	}), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog(),
	})
	if err != nil {
		closeDB(db)
		return fmt.Errorf("open object store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		closeDB(db)
		return fmt.Errorf("create collections: %w", err)
	}

	s.db = db
	s.ready.Store(true)
	s.log.Debug("object store ready", "path", s.path, "schema_version", SchemaVersion)
	return nil
}

func gormLog() gormLogger.Interface {
	return gormLogger.New(
		stdlog.New(os.Stderr, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// closeDB releases the pool gorm opened even when it failed the ping
func closeDB(db *gorm.DB) {
	if db == nil || db.Config == nil || db.ConnPool == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *Store) IsReady() bool {
	return s.ready.Load()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	s.ready.Store(false)
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Version reports SchemaVersion once the store is open
func (s *Store) Version(ctx context.Context) (int, error) {
	if !s.IsReady() {
		return 0, domain.ErrNotReady
	}
	return SchemaVersion, nil
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if !s.ready.Load() {
		return nil, domain.ErrNotReady
	}
	return s.db.WithContext(ctx), nil
}
