package catalog

import (
	"fmt"

	"github.com/phiresky-clone/gitty/internal/commitwalk"
	"github.com/phiresky-clone/gitty/internal/objects"
)

// Loader is the subset of store.Store rebuilding needs.
type Loader interface {
	GetHead() (objects.CommitRef, error)
	LoadCommit(ref objects.CommitRef) (objects.Commit, error)
	LoadTree(ref objects.TreeRef) (objects.Tree, error)
}

// Rebuild discards the catalog's contents and recomputes commit stats
// for head and every ancestor by walking each commit's tree. It never
// touches the object store's own files; a rebuild only ever reads.
func Rebuild(db *DB, store Loader) error {
	if err := db.Clear(); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	head, err := store.GetHead()
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}

	refs, commits, err := commitwalk.Collect(store, head)
	if err != nil {
		return fmt.Errorf("walk commits: %w", err)
	}
	// commitwalk.Collect omits the synthetic depth-0 root; stat it too
	// so gitty-admin stat works against an empty store.
	rootCommit, err := store.LoadCommit(rootAncestor(store, head, refs))
	if err == nil {
		rootRef, _ := rootCommit.HashOf()
		if err := statAndStore(db, store, rootRef, rootCommit); err != nil {
			return err
		}
	}

	for i, ref := range refs {
		if err := statAndStore(db, store, ref, commits[i]); err != nil {
			return err
		}
	}
	return nil
}

// rootAncestor returns the depth-0 root commit reached by following
// head's parent chain; if refs is empty head already is the root.
func rootAncestor(store Loader, head objects.CommitRef, refs []objects.CommitRef) objects.CommitRef {
	if len(refs) == 0 {
		return head
	}
	last := refs[len(refs)-1]
	c, err := store.LoadCommit(last)
	if err != nil || len(c.Parents) != 1 {
		return last
	}
	return c.Parents[0]
}

func statAndStore(db *DB, store Loader, ref objects.CommitRef, commit objects.Commit) error {
	trees, blobs, bytes, err := walkTreeStats(store, commit.Root)
	if err != nil {
		return fmt.Errorf("stat commit %s: %w", ref, err)
	}
	return db.PutCommitStats(ref, CommitStats{
		Depth:      commit.Depth,
		TreeCount:  trees,
		BlobCount:  blobs,
		TotalBytes: bytes,
	})
}

func walkTreeStats(store Loader, ref objects.TreeRef) (trees, blobs int, totalBytes uint64, err error) {
	tree, err := store.LoadTree(ref)
	if err != nil {
		return 0, 0, 0, err
	}
	trees = 1
	for _, e := range tree.Entries {
		if e.Type == objects.KindTree {
			childTrees, childBlobs, childBytes, err := walkTreeStats(store, e.Hash)
			if err != nil {
				return 0, 0, 0, err
			}
			trees += childTrees
			blobs += childBlobs
			totalBytes += childBytes
			continue
		}
		blobs++
		totalBytes += e.Size
	}
	return trees, blobs, totalBytes, nil
}
