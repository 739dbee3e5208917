// Package dbtest provides an in-memory database for package tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/funlynk/funlynk/internal/models"
)

var dbSeq int64

// New opens a fresh in-memory database with the full schema migrated.
// Each call gets its own database so tests stay isolated.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A shared-cache in-memory database disappears when its last connection
	// closes; a single connection also keeps writes serialized.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostReaction{},
		&models.Activity{},
		&models.Tag{},
		&models.ActivityTag{},
		&models.PostConversion{},
		&models.PostInvitation{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}
