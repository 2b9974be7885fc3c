package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0002_add_outbox.up.sql":   migrationFile("CREATE TABLE outbox_messages (id UUID PRIMARY KEY);"),
		"sql/migrations/0002_add_outbox.down.sql": migrationFile("DROP TABLE outbox_messages;"),
		"sql/migrations/0001_init.up.sql":         migrationFile("CREATE TABLE orders (id UUID PRIMARY KEY);"),
		"sql/migrations/0001_init.down.sql":       migrationFile("DROP TABLE orders;"),
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Fatalf("expected migrations sorted by version, got %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "init" || migrations[1].Name != "add_outbox" {
		t.Fatalf("unexpected migration names: %s, %s", migrations[0].Name, migrations[1].Name)
	}
	if !strings.Contains(migrations[1].UpSQL, "CREATE TABLE outbox_messages") {
		t.Fatalf("unexpected up body: %s", migrations[1].UpSQL)
	}
	if !strings.Contains(migrations[1].DownSQL, "DROP TABLE outbox_messages") {
		t.Fatalf("unexpected down body: %s", migrations[1].DownSQL)
	}
}

func TestLoadMigrationsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE orders (id UUID PRIMARY KEY);"),
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for migration without down file")
	}
}

func TestLoadMigrationsNameMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":    migrationFile("SELECT 1;"),
		"sql/migrations/0001_other.down.sql": migrationFile("SELECT 1;"),
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for mismatched migration names within one version")
	}
}

func TestLoadMigrationsDuplicateDirection(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   migrationFile("SELECT 1;"),
		"sql/migrations/0001_init.down.sql": migrationFile("SELECT 1;"),
		"sql/migrations/01_init.up.sql":     migrationFile("SELECT 2;"),
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for duplicate up migration of the same version")
	}
}

func TestLoadMigrationsEmptyBody(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   migrationFile("   \n"),
		"sql/migrations/0001_init.down.sql": migrationFile("SELECT 1;"),
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for empty migration body")
	}
}

func TestLoadMigrationsInvalidFileName(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/init.up.sql": migrationFile("SELECT 1;"),
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for file name without version prefix")
	}
}

func TestLoadMigrationsEmptyDir(t *testing.T) {
	if _, err := loadMigrationsFromFS(fstest.MapFS{}); err == nil {
		t.Fatal("expected error when no migration files found")
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Fatalf("expected strictly increasing versions, got %d after %d",
				migrations[i].Version, migrations[i-1].Version)
		}
	}
}
