package accessstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/eventstore"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := &config.DatabaseConfig{
		WALMode:      true,
		ForeignKeys:  true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		RetryBudget:  3,
	}

	db, err := eventstore.Open(cfg, filepath.Join(tmpDir, "user.db"))
	if err != nil {
		t.Fatalf("opening event db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db)
}

func TestCreateAndLoadAccess(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	access := &accesslogic.Access{
		ID:    "acc-1",
		Token: "tok-1",
		Type:  accesslogic.Personal,
		Name:  "test",
		Permissions: []accesslogic.Permission{
			{Kind: accesslogic.StreamPermission, StreamID: "*", Level: accesslogic.LevelManage},
		},
	}

	if err := s.Create(ctx, access, 1000); err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := s.LoadAccess(ctx, "user-1", "tok-1")
	if err != nil {
		t.Fatalf("LoadAccess: %v", err)
	}
	if loaded.ID != "acc-1" || loaded.Name != "test" {
		t.Errorf("unexpected loaded access: %+v", loaded)
	}
	if len(loaded.Permissions) != 1 || loaded.Permissions[0].StreamID != "*" {
		t.Errorf("expected permissions round-trip, got %+v", loaded.Permissions)
	}
}

func TestLoadAccess_Unknown(t *testing.T) {
	s := testStore(t)
	if _, err := s.LoadAccess(context.Background(), "user-1", "nope"); err == nil {
		t.Fatal("expected an error for an unknown token")
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a1 := &accesslogic.Access{ID: "acc-1", Token: "tok-1", Type: accesslogic.Personal, Name: "dup"}
	a2 := &accesslogic.Access{ID: "acc-2", Token: "tok-2", Type: accesslogic.Personal, Name: "dup2"}

	if err := s.Create(ctx, a1, 1000); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.Create(ctx, a2, 1000); err != nil {
		t.Fatalf("second create: %v", err)
	}

	a3 := &accesslogic.Access{ID: "acc-3", Token: "tok-3", Type: accesslogic.Personal, Name: "dup"}
	if err := s.Create(ctx, a3, 1000); !apierror.Is(err, apierror.ItemAlreadyExists) {
		t.Fatalf("expected ItemAlreadyExists for a repeated name, got %v", err)
	}
}

func TestDeleteAccess(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	access := &accesslogic.Access{ID: "acc-1", Token: "tok-1", Type: accesslogic.Personal, Name: "test"}
	if err := s.Create(ctx, access, 1000); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "acc-1", 2000); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "acc-1", 2000); err == nil {
		t.Fatal("expected deleting an already-deleted access to fail")
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	exists, err := s.SessionExists(ctx, "user-1", "acc-1")
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if exists {
		t.Fatal("expected no session before EnsureSession")
	}

	if err := s.EnsureSession(ctx, "acc-1", 1000); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	exists, err = s.SessionExists(ctx, "user-1", "acc-1")
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if !exists {
		t.Fatal("expected a session after EnsureSession")
	}

	if err := s.TouchSession(ctx, "user-1", "acc-1"); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
}

func TestIncrementCalls(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	access := &accesslogic.Access{ID: "acc-1", Token: "tok-1", Type: accesslogic.Personal, Name: "test"}
	if err := s.Create(ctx, access, 1000); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.IncrementCalls(ctx, "acc-1"); err != nil {
		t.Fatalf("IncrementCalls: %v", err)
	}

	loaded, err := s.GetByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Calls != 1 {
		t.Errorf("expected Calls=1, got %d", loaded.Calls)
	}
}
