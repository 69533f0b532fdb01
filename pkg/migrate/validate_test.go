package migrate_test

import (
	"testing"

	"github.com/freshlane/freshlane-backend/pkg/migrate"
)

func TestValidateDirAcceptsBundledMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("bundled migrations should validate: %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Seller Payouts!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if path == "" {
		t.Fatal("expected path to created migration")
	}

	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, ""); err == nil {
		t.Fatal("expected error for empty name")
	}
}
