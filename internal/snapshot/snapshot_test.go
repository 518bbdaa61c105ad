package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phiresky-clone/gitty/internal/ignore"
	"github.com/phiresky-clone/gitty/internal/objects"
	"github.com/phiresky-clone/gitty/internal/store"
)

var testAuthor = objects.Identity{Name: "tester", Email: "tester@example.com"}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir, 3, func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

// TestSnapshotOfHelloFile snapshots {a.txt:"hello"} into a
// freshly-initialised store, expecting depth 1 and a readable 5-byte blob.
func TestSnapshotOfHelloFile(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ref, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "first")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	commit, err := s.LoadCommit(ref)
	if err != nil {
		t.Fatalf("LoadCommit: %v", err)
	}
	if commit.Depth != 1 {
		t.Fatalf("expected depth 1, got %d", commit.Depth)
	}

	tree, err := s.LoadTree(commit.Root)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	entry, ok := tree.FindEntry("a.txt")
	if !ok {
		t.Fatalf("expected a.txt entry in root tree")
	}
	if entry.Size != 5 {
		t.Fatalf("expected size 5, got %d", entry.Size)
	}

	path, err := s.LoadBlobPath(entry.Hash)
	if err != nil {
		t.Fatalf("LoadBlobPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}
}

// TestSnapshotIdempotentOnUnchangedTree re-snapshots an unchanged tree,
// expecting a new commit one depth deeper with the same root.
func TestSnapshotIdempotentOnUnchangedTree(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ref1, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "first")
	if err != nil {
		t.Fatalf("Snapshot (1): %v", err)
	}
	ref2, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "second")
	if err != nil {
		t.Fatalf("Snapshot (2): %v", err)
	}

	c1, _ := s.LoadCommit(ref1)
	c2, _ := s.LoadCommit(ref2)
	if c2.Depth != c1.Depth+1 {
		t.Fatalf("expected depth to increase by 1, got %d -> %d", c1.Depth, c2.Depth)
	}
	if c2.Root != c1.Root {
		t.Fatalf("expected unchanged tree to keep the same root hash")
	}
}

// TestSnapshotModifyThenResnapshot modifies a file between snapshots,
// expecting a new tree and blob hash, with both versions still readable.
func TestSnapshotModifyThenResnapshot(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()
	path := filepath.Join(src, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ref1, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "first")
	if err != nil {
		t.Fatalf("Snapshot (1): %v", err)
	}

	if err := os.WriteFile(path, []byte("HELLO"), 0o644); err != nil {
		t.Fatalf("WriteFile (modify): %v", err)
	}
	ref2, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "second")
	if err != nil {
		t.Fatalf("Snapshot (2): %v", err)
	}

	c1, _ := s.LoadCommit(ref1)
	c2, _ := s.LoadCommit(ref2)
	if c2.Root == c1.Root {
		t.Fatalf("expected a new tree hash after modifying a file")
	}

	t1, _ := s.LoadTree(c1.Root)
	t2, _ := s.LoadTree(c2.Root)
	e1, _ := t1.FindEntry("a.txt")
	e2, _ := t2.FindEntry("a.txt")
	if e1.Hash == e2.Hash {
		t.Fatalf("expected a new blob hash after modifying a file")
	}

	// Both versions independently readable.
	p1, err := s.LoadBlobPath(e1.Hash)
	if err != nil {
		t.Fatalf("LoadBlobPath(old): %v", err)
	}
	d1, _ := os.ReadFile(p1)
	if string(d1) != "hello" {
		t.Fatalf("old blob should still read back as 'hello', got %q", d1)
	}
	p2, err := s.LoadBlobPath(e2.Hash)
	if err != nil {
		t.Fatalf("LoadBlobPath(new): %v", err)
	}
	d2, _ := os.ReadFile(p2)
	if string(d2) != "HELLO" {
		t.Fatalf("new blob should read back as 'HELLO', got %q", d2)
	}
}

// TestSnapshotDirectoriesBeforeFiles checks that a tree with both a
// subdirectory and a top-level file orders the directory first.
func TestSnapshotDirectoriesBeforeFiles(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "dir"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "dir", "b"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "a"), []byte("y"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ref, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "msg")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	commit, _ := s.LoadCommit(ref)
	tree, err := s.LoadTree(commit.Root)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(tree.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(tree.Entries))
	}
	if tree.Entries[0].Name != "dir" || tree.Entries[0].Type != objects.KindTree {
		t.Fatalf("expected first entry to be the 'dir' tree, got %+v", tree.Entries[0])
	}
	if tree.Entries[1].Name != "a" || tree.Entries[1].Type != objects.KindBlob {
		t.Fatalf("expected second entry to be the 'a' blob, got %+v", tree.Entries[1])
	}
}

// TestSnapshotEmptyDirectory is the empty-source boundary case: a
// snapshot of an empty directory produces the canonical empty tree.
func TestSnapshotEmptyDirectory(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()

	ref, err := Snapshot(s, src, ignore.Empty(), time.Now().UTC(), testAuthor, "empty")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	commit, _ := s.LoadCommit(ref)
	empty := objects.EmptyTree()
	emptyHash, _ := empty.HashOf()
	if commit.Root != emptyHash {
		t.Fatalf("expected root of empty snapshot to be the canonical empty tree")
	}
}

func TestSnapshotSkipsIgnoredFiles(t *testing.T) {
	s := openStore(t)
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, ".gittyignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "skip.log"), []byte("s"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := ignore.Load(filepath.Join(src, ".gittyignore"))
	if err != nil {
		t.Fatalf("ignore.Load: %v", err)
	}

	ref, err := Snapshot(s, src, m, time.Now().UTC(), testAuthor, "msg")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	commit, _ := s.LoadCommit(ref)
	tree, err := s.LoadTree(commit.Root)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if _, ok := tree.FindEntry("skip.log"); ok {
		t.Fatalf("expected skip.log to be excluded from the snapshot")
	}
	if _, ok := tree.FindEntry("keep.txt"); !ok {
		t.Fatalf("expected keep.txt to be present")
	}
}
