package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phiresky-clone/gitty/internal/ignore"
	"github.com/phiresky-clone/gitty/internal/objects"
	"github.com/phiresky-clone/gitty/internal/snapshot"
	"github.com/phiresky-clone/gitty/internal/store"
)

func TestFsckCleanStoreReportsNoCorruption(t *testing.T) {
	storeDir := t.TempDir()
	s, err := store.Open(storeDir, 3, func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	author := objects.Identity{Name: "t", Email: "t@example.com"}
	if _, err := snapshot.Snapshot(s, src, ignore.Empty(), time.Now().UTC(), author, "msg"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	report, err := Fsck(s, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if len(report.CorruptPaths) != 0 {
		t.Fatalf("expected no corruption, got %v", report.CorruptPaths)
	}
	if report.Commits != 2 { // root commit + the one snapshot
		t.Fatalf("expected 2 commits scanned, got %d", report.Commits)
	}
	if report.Blobs != 1 {
		t.Fatalf("expected 1 blob scanned, got %d", report.Blobs)
	}
}

func TestFsckDetectsCorruptedBlob(t *testing.T) {
	storeDir := t.TempDir()
	s, err := store.Open(storeDir, 3, func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	author := objects.Identity{Name: "t", Email: "t@example.com"}
	ref, err := snapshot.Snapshot(s, src, ignore.Empty(), time.Now().UTC(), author, "msg")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	commit, _ := s.LoadCommit(ref)
	tree, _ := s.LoadTree(commit.Root)
	entry, _ := tree.FindEntry("a.txt")

	path := s.ObjectPath("file", entry.Hash)
	if err := os.WriteFile(path, []byte("corrupted!!"), 0o644); err != nil {
		t.Fatalf("corrupt blob: %v", err)
	}

	report, err := Fsck(s, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if len(report.CorruptPaths) != 1 {
		t.Fatalf("expected exactly 1 corrupt path, got %v", report.CorruptPaths)
	}
	if report.CorruptPaths[0] != path {
		t.Fatalf("got corrupt path %q, want %q", report.CorruptPaths[0], path)
	}
}
