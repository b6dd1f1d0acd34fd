package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const validMigration = `-- +goose Up
-- +goose StatementBegin
SELECT 1;
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 1;
-- +goose StatementEnd
`

func TestCreateSQLMigrationScaffoldsTable(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Create Supplier Ratings", now)
	require.NoError(t, err)
	assert.Equal(t, "20261016093000_create_supplier_ratings.sql", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS supplier_ratings")
	assert.Contains(t, string(content), "DROP TABLE IF EXISTS supplier_ratings;")
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationOrdersAfterNewestFile(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20270101000000_create_products.sql", validMigration)

	path, err := createSQLMigration(dir, "add_products_barcode", time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "20270101000001_"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- rollback add_products_barcode")
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := createSQLMigration(t.TempDir(), " !! ", time.Now())
	assert.Error(t, err)
	_, err = createSQLMigration("", "create_x", time.Now())
	assert.Error(t, err)
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250301090000_ok.sql", validMigration)
	writeMigration(t, dir, "20250301090000_dup.sql", validMigration)
	writeMigration(t, dir, "bad-name.sql", validMigration)
	writeMigration(t, dir, "20250301090100_unterminated.sql", "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")
	writeMigration(t, dir, "20250301090200_no_down.sql", "-- +goose Up\nSELECT 1;\n")
	writeMigration(t, dir, "README.md", "not sql")

	err := ValidateDir(dir)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "duplicate migration version 20250301090000")
	assert.Contains(t, msg, `invalid migration filename "bad-name.sql"`)
	assert.Contains(t, msg, "section starts inside an open statement")
	assert.Contains(t, msg, `missing "-- +goose Down"`)
}

func TestValidateAnnotationsOrdering(t *testing.T) {
	err := validateAnnotations("x.sql", "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n")
	assert.ErrorContains(t, err, "Down before Up")

	err = validateAnnotations("x.sql", "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n")
	assert.ErrorContains(t, err, "StatementEnd without StatementBegin")

	assert.NoError(t, validateAnnotations("x.sql", validMigration))
}

func TestEmbeddedMigrationsMatchSourceTree(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded()))

	entries, err := os.ReadDir("migrations")
	require.NoError(t, err)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		onDisk, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		require.NoError(t, err)
		compiled, err := fs.ReadFile(Embedded(), e.Name())
		require.NoError(t, err)
		assert.Equal(t, string(onDisk), string(compiled), e.Name())
	}
}
