package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"beebuild/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, store *history.Store, rel history.Release) *history.Release {
	t.Helper()
	saved, err := store.Record(context.Background(), rel)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return saved
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := record(t, store, history.Release{
		BuildID: "b1", Target: "chrome", Version: "1.2", ManifestVersion: 3,
		ArchivePath: "/r/a.zip", Status: history.StatusPackaged, SizeBytes: 10, SHA256: "abc",
		CreatedAt: base,
	})
	if first.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	record(t, store, history.Release{
		BuildID: "b2", Target: "firefox", Version: "1.2", ManifestVersion: 2,
		ArchivePath: "/r/b.zip", Status: history.StatusFailed, ErrorMessage: "zip exited with status 12",
		CreatedAt: base.Add(time.Second),
	})
	record(t, store, history.Release{
		BuildID: "b3", Target: "chrome", Version: "1.3", ManifestVersion: 3,
		ArchivePath: "/r/c.zip", Status: history.StatusPackaged,
		CreatedAt: base.Add(1500 * time.Millisecond),
	})

	all, err := store.List(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 releases, got %d", len(all))
	}
	if all[0].BuildID != "b3" || all[2].BuildID != "b1" {
		t.Fatalf("expected newest first, got %s..%s", all[0].BuildID, all[2].BuildID)
	}
	if all[1].Status != history.StatusFailed || all[1].ErrorMessage == "" {
		t.Fatalf("failed release not round-tripped: %+v", all[1])
	}
	if !all[2].CreatedAt.Equal(base) || all[2].SHA256 != "abc" {
		t.Fatalf("unexpected first release %+v", all[2])
	}

	chrome, err := store.List(ctx, history.Filter{Target: "chrome", Limit: 1})
	if err != nil {
		t.Fatalf("List chrome: %v", err)
	}
	if len(chrome) != 1 || chrome[0].Version != "1.3" {
		t.Fatalf("unexpected filtered list %+v", chrome)
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), history.Release{Target: "chrome", Version: "1.0"}); err == nil {
		t.Fatal("expected error without build id")
	}
}

func TestLatestUsesVersionOrderAndSkipsFailures(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	latest, err := store.Latest(ctx, "edge")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no release, got %+v", latest)
	}

	record(t, store, history.Release{BuildID: "a", Target: "edge", Version: "1.10", Status: history.StatusPackaged})
	record(t, store, history.Release{BuildID: "b", Target: "edge", Version: "1.9", Status: history.StatusPackaged})
	record(t, store, history.Release{BuildID: "c", Target: "edge", Version: "2.0", Status: history.StatusFailed})

	latest, err = store.Latest(ctx, "edge")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Version != "1.10" {
		t.Fatalf("expected 1.10 as highest packaged version, got %+v", latest)
	}
}

func TestCompare(t *testing.T) {
	prev := &history.Release{Version: "1.10"}
	cases := []struct {
		version string
		want    history.Comparison
	}{
		{"1.11", history.Upgrade},
		{"2.0", history.Upgrade},
		{"1.10", history.Rebuild},
		{"1.9", history.Downgrade},
	}
	for _, tc := range cases {
		got, err := history.Compare(prev, tc.version)
		if err != nil {
			t.Fatalf("Compare(%s): %v", tc.version, err)
		}
		if got != tc.want {
			t.Fatalf("Compare(%s) = %s, want %s", tc.version, got, tc.want)
		}
	}
	if got, _ := history.Compare(nil, "0.1"); got != history.FirstRelease {
		t.Fatalf("expected first release, got %s", got)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	store, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	record(t, store, history.Release{BuildID: "x", Target: "chrome", Version: "1.0", Status: history.StatusPackaged})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rows, err := reopened.List(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected persisted row, got %d", len(rows))
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	store, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump schema: %v", err)
	}
	_ = db.Close()

	_, err = history.Open(ctx, path)
	if !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
