// Package dbtest opens isolated in-memory SQLite databases migrated with the
// application models for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
)

var seq atomic.Int64

// Models lists every table the services touch.
var Models = []any{
	&models.Pharmacy{},
	&models.Wholesaler{},
	&models.Admin{},
	&models.Product{},
	&models.Request{},
	&models.PharmacyInventory{},
	&models.Notification{},
	&models.OutboxEvent{},
	&models.OutboxDLQ{},
}

// New returns a client backed by a private shared-cache SQLite database.
func New(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(Models...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	client := db.Wrap(conn)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
