package storage

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pagebeam/internal/config"
)

// GormStore implements Store over GORM. The same implementation serves both
// the embedded SQLite file and a networked Postgres store; the connection
// string selects the dialect.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Store = (*GormStore)(nil)

// Connect opens the store described by the configured connection string and
// applies the pool settings. Call InitSchema before serving traffic.
func Connect(cfg *config.Config, logger *slog.Logger) (*GormStore, error) {
	if !cfg.IsStoreConfigured() {
		return nil, fmt.Errorf("storage: no connection string configured")
	}

	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(cfg.GetMaxIdleConns())

	logger.Info("Connected to durable store", slog.String("dialect", db.Dialector.Name()))
	return &GormStore{db: db, logger: logger}, nil
}

// NewGormStore wraps an existing GORM connection; used by tests.
func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// DB exposes the underlying connection for diagnostics.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("storage: failed to access connection pool: %w", err)
	}
	return sqlDB.Close()
}

// InitSchema migrates the page view and session tables. AutoMigrate is a
// no-op when the schema already matches.
func (s *GormStore) InitSchema() error {
	if err := s.db.AutoMigrate(&PageView{}, &Session{}); err != nil {
		return fmt.Errorf("storage: schema migration failed: %w", err)
	}
	return nil
}

// InsertPageView appends one page view row.
func (s *GormStore) InsertPageView(view *PageView) (uint, error) {
	if view.Timestamp.IsZero() {
		view.Timestamp = time.Now().UTC()
	}
	if err := s.db.Create(view).Error; err != nil {
		return 0, fmt.Errorf("storage: failed to insert page view: %w", err)
	}
	return view.ID, nil
}

// UpsertSession inserts a session row or refreshes it on id conflict. The
// conflict arm mirrors the insert values so a replayed create converges
// instead of failing.
func (s *GormStore) UpsertSession(id string, pageCount int, ipAddress, userAgent string) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO sessions (id, created_at, updated_at, page_count, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = ?,
			page_count = ?
	`
	err := s.db.Exec(query, id, now, now, pageCount, ipAddress, userAgent, now, pageCount).Error
	if err != nil {
		return fmt.Errorf("storage: failed to upsert session: %w", err)
	}
	return nil
}

// TouchSession bumps the page count and updated_at for an existing session.
// Zero affected rows is not an error: a stale or foreign session id must not
// fail ingestion.
func (s *GormStore) TouchSession(id string) error {
	query := `
		UPDATE sessions
		SET updated_at = ?, page_count = page_count + 1
		WHERE id = ?
	`
	err := s.db.Exec(query, time.Now().UTC(), id).Error
	if err != nil {
		return fmt.Errorf("storage: failed to touch session: %w", err)
	}
	return nil
}
