package catalog

import (
	"fmt"

	"github.com/phiresky-clone/gitty/internal/objects"
)

// RawStore is the subset of store.Store fsck needs to recompute hashes
// independently of the typed Load* methods, which would mask a
// hash/path mismatch by happily parsing whatever bytes are on disk.
type RawStore interface {
	Loader
	ObjectPath(kind string, ref objects.Hash) string
	ReadRaw(kind string, ref objects.Hash) ([]byte, error)
}

// Fsck walks every commit reachable from head and every tree and blob
// reachable from each commit's root, verifying that the bytes stored
// at each object's path hash back to that same path. It reports, but
// never repairs, corruption: repair-by-writing is out of scope. at is
// an RFC3339 timestamp supplied by the caller (see FsckReport).
func Fsck(store RawStore, at string) (FsckReport, error) {
	report := FsckReport{ScannedAt: at}

	head, err := store.GetHead()
	if err != nil {
		return report, fmt.Errorf("get head: %w", err)
	}

	seenTrees := make(map[objects.TreeRef]bool)
	seenBlobs := make(map[objects.BlobRef]bool)

	current := head
	for {
		data, err := store.ReadRaw("commit", current)
		if err != nil {
			report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("commit", current))
			break
		}
		if objects.Sum(data) != current {
			report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("commit", current))
			break
		}
		report.Commits++

		commit, err := objects.ParseCommit(data)
		if err != nil {
			report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("commit", current))
			break
		}

		fsckTree(store, commit.Root, seenTrees, seenBlobs, &report)

		if commit.Depth == 0 {
			break
		}
		if len(commit.Parents) != 1 {
			break
		}
		current = commit.Parents[0]
	}

	return report, nil
}

func fsckTree(store RawStore, ref objects.TreeRef, seenTrees map[objects.TreeRef]bool, seenBlobs map[objects.BlobRef]bool, report *FsckReport) {
	if seenTrees[ref] {
		return
	}
	seenTrees[ref] = true

	data, err := store.ReadRaw("tree", ref)
	if err != nil || objects.Sum(data) != ref {
		report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("tree", ref))
		return
	}
	report.Trees++

	tree, err := objects.ParseTree(data)
	if err != nil {
		report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("tree", ref))
		return
	}

	for _, e := range tree.Entries {
		if e.Type == objects.KindTree {
			fsckTree(store, e.Hash, seenTrees, seenBlobs, report)
			continue
		}
		if seenBlobs[e.Hash] {
			continue
		}
		seenBlobs[e.Hash] = true

		blobData, err := store.ReadRaw("file", e.Hash)
		if err != nil || objects.Sum(blobData) != e.Hash {
			report.CorruptPaths = append(report.CorruptPaths, store.ObjectPath("file", e.Hash))
			continue
		}
		report.Blobs++
	}
}
