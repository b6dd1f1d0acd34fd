package migrate_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/pharmalink-backend/pkg/migrate"
)

func TestRequestsMigrationTiesOrderIDToApproval(t *testing.T) {
	content := readMigration(t, "*_create_requests.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS requests",
		"status request_status NOT NULL DEFAULT 'Pending'",
		"REFERENCES products(id) ON DELETE SET NULL",
		"CHECK (quantity > 0)",
		"CHECK ((status = 'Approved') = (order_id IS NOT NULL))",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_requests_order_id",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestNotificationsMigrationEnforcesDedup(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")

	want := "ON notifications (recipient_id, message, type, trigger_role)"
	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_dedup") || !strings.Contains(content, want) {
		t.Fatalf("expected unique dedup index over %q", want)
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
