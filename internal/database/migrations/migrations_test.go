package migrations

import (
	"context"
	"database/sql"
	"embed"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

//go:embed testdata/sql/*.sql
var testFS embed.FS

var testSet = Set{FS: testFS, Dir: "testdata/sql", VersionTable: "_test_versions"}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestRun(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := testSet.Run(ctx, db); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM _test_versions").Scan(&count)
	if err != nil {
		t.Fatalf("version table query failed: %v", err)
	}

	if count != 2 {
		t.Errorf("expected 2 applied migrations, got %d", count)
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := testSet.Run(ctx, db); err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	if err := testSet.Run(ctx, db); err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}

	applied, err := testSet.GetApplied(ctx, db)
	if err != nil {
		t.Fatalf("GetApplied() failed: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
}

func TestRun_CreatesTables(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := testSet.Run(ctx, db); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var exists int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='widget_tags'
	`).Scan(&exists)
	if err != nil {
		t.Fatalf("checking widget_tags table: %v", err)
	}
	if exists != 1 {
		t.Error("widget_tags table does not exist")
	}
}
