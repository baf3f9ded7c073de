package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pagebeam/internal/storage"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// SetupTestDB creates a migrated in-memory database. Uses a named in-memory
// database with cache=shared so multiple connections within a test see the
// same data, and caches by root test name so subtests share the database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(&storage.PageView{}, &storage.Session{}); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestStore creates a GormStore backed by a fresh test database.
func SetupTestStore(t *testing.T) *storage.GormStore {
	t.Helper()
	return storage.NewGormStore(SetupTestDB(t), GetLogger())
}

// SetupTestGuard wraps a fresh test store in a guard. Pass degraded=true for
// a guard with no backing store.
func SetupTestGuard(t *testing.T, degraded bool) *storage.Guard {
	t.Helper()
	if degraded {
		return storage.NewGuard(nil, GetLogger())
	}
	return storage.NewGuard(SetupTestStore(t), GetLogger())
}

// GetLogger returns a silent test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreatePageView inserts one page view through the store, failing the test on
// error.
func CreatePageView(t *testing.T, store *storage.GormStore, view storage.PageView) uint {
	t.Helper()
	id, err := store.InsertPageView(&view)
	if err != nil {
		t.Fatalf("testsupport: failed to insert page view: %v", err)
	}
	return id
}
