package eventstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamhub/corehub/internal/config"
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

	db, err := Open(cfg, filepath.Join(tmpDir, "user.db"))
	if err != nil {
		t.Fatalf("opening event db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func sampleEvent(id string) *Event {
	return &Event{
		ID:         id,
		StreamIDs:  []string{"diary"},
		Type:       "note/txt",
		Content:    "hello",
		Time:       1000,
		Created:    1000,
		CreatedBy:  "access-1",
		Modified:   1000,
		ModifiedBy: "access-1",
	}
}

func TestCreateAndFind(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := sampleEvent("evt-1")
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}

	it, err := s.Find(ctx, nil, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	defer it.Close()

	got, ok, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !ok {
		t.Fatal("expected one event, got none")
	}
	if got.ID != ev.ID || got.Type != ev.Type {
		t.Fatalf("unexpected event: %+v", got)
	}
	if len(got.StreamIDs) != 1 || got.StreamIDs[0] != "diary" {
		t.Fatalf("unexpected streamIds: %v", got.StreamIDs)
	}

	_, ok, err = it.Next(ctx)
	if err != nil {
		t.Fatalf("next (exhausted): %v", err)
	}
	if ok {
		t.Fatal("expected iterator to be exhausted")
	}
}

func TestUpdateCapturesHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := sampleEvent("evt-2")
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}

	ev.Content = "revised"
	ev.Modified = 2000
	if err := s.Update(ctx, ev); err != nil {
		t.Fatalf("update: %v", err)
	}

	it, err := s.Find(ctx, nil, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	defer it.Close()

	got, ok, err := it.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("expected live event: ok=%v err=%v", ok, err)
	}
	if got.Content != "revised" {
		t.Fatalf("expected live event to be revised, got %v", got.Content)
	}

	hist, err := s.History(ctx, "evt-2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer hist.Close()

	old, ok, err := hist.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("expected one history row: ok=%v err=%v", ok, err)
	}
	if old.Content != "hello" {
		t.Fatalf("expected history row to preserve pre-image, got %v", old.Content)
	}
	if old.HeadID != "evt-2" {
		t.Fatalf("expected headId to point at the live event, got %q", old.HeadID)
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.Update(ctx, sampleEvent("does-not-exist"))
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTombstones(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := sampleEvent("evt-3")
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Delete(ctx, ev.ID, 3000, false); err != nil {
		t.Fatalf("delete: %v", err)
	}

	it, err := s.Find(ctx, nil, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	defer it.Close()

	_, ok, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ok {
		t.Fatal("expected tombstoned event to be excluded from listing")
	}
}

func TestDeletePhysical(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := sampleEvent("evt-4")
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, ev.ID, 4000, true); err != nil {
		t.Fatalf("physical delete: %v", err)
	}

	if err := s.Delete(ctx, ev.ID, 4000, false); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after physical delete, got %v", err)
	}
}

func TestFindFiltersByType(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	note := sampleEvent("evt-5")
	photo := sampleEvent("evt-6")
	photo.Type = "picture/attached"

	if err := s.Create(ctx, note); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := s.Create(ctx, photo); err != nil {
		t.Fatalf("create photo: %v", err)
	}

	it, err := s.Find(ctx, []QueryItem{
		{Type: QueryTypesList, Value: []string{"picture/*"}},
	}, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	defer it.Close()

	got, ok, err := it.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("expected one match: ok=%v err=%v", ok, err)
	}
	if got.ID != "evt-6" {
		t.Fatalf("expected evt-6, got %s", got.ID)
	}
}

func TestMinimiseHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := sampleEvent("evt-7")
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	ev.Content = "revised"
	ev.Modified = 2000
	if err := s.Update(ctx, ev); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := s.MinimiseHistory(ctx, ev.ID); err != nil {
		t.Fatalf("minimise history: %v", err)
	}

	hist, err := s.History(ctx, ev.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer hist.Close()

	row, ok, err := hist.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("expected one history row: ok=%v err=%v", ok, err)
	}
	if row.Content != nil {
		t.Fatalf("expected content to be minimised, got %v", row.Content)
	}
	if row.Type != "minimised/minimised" {
		t.Fatalf("expected minimised type marker, got %q", row.Type)
	}
}

func TestStreamQueryCompilation(t *testing.T) {
	cases := []struct {
		name   string
		blocks [][]StreamMatch
		want   string
	}{
		{
			name:   "single any",
			blocks: [][]StreamMatch{{{Any: []string{"diary"}}}},
			want:   `"diary"`,
		},
		{
			name:   "multiple any ORed",
			blocks: [][]StreamMatch{{{Any: []string{"diary", "work"}}}},
			want:   `("diary" OR "work")`,
		},
		{
			name:   "wildcard any drops to universal tag",
			blocks: [][]StreamMatch{{{Any: []string{"*"}}}},
			want:   `".."`,
		},
		{
			name:   "not alongside any",
			blocks: [][]StreamMatch{{{Any: []string{"diary"}}, {Not: []string{"private"}}}},
			want:   `"diary" NOT "private"`,
		},
		{
			name: "multiple AND-blocks ORed",
			blocks: [][]StreamMatch{
				{{Any: []string{"diary"}}},
				{{Any: []string{"work"}}},
			},
			want: `("diary") OR ("work")`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CompileStreamQuery(tc.blocks)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMallReusesAndEvicts(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.DatabaseConfig{
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		RetryBudget:  3,
		MallSize:     1,
	}

	m := NewMall(cfg, tmpDir)
	t.Cleanup(func() { m.Close() })

	ctx := context.Background()

	dbA, err := m.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user-a: %v", err)
	}
	dbAAgain, err := m.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user-a again: %v", err)
	}
	if dbA != dbAAgain {
		t.Fatal("expected the same *DB instance for repeated Get with the same user")
	}

	if _, err := m.Get(ctx, "user-b"); err != nil {
		t.Fatalf("get user-b: %v", err)
	}

	if _, ok := m.entries["user-a"]; ok {
		t.Fatal("expected user-a to be evicted once capacity was exceeded")
	}
}
