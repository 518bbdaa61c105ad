// Package snapshot implements the Snapshotter: the stack-based algorithm
// that turns a directory walk into a Merkle tree and appends a commit
// to head, grounded in the fs_walk.rs stack machine.
package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phiresky-clone/gitty/internal/gittyerr"
	"github.com/phiresky-clone/gitty/internal/ignore"
	"github.com/phiresky-clone/gitty/internal/logging"
	"github.com/phiresky-clone/gitty/internal/objects"
	"github.com/phiresky-clone/gitty/internal/walk"
)

// ObjectStore is the subset of store.Store the snapshotter depends on,
// expressed as an interface so tests can substitute a fake.
type ObjectStore interface {
	StoreBlob(sourcePath string, isSymlink bool) (objects.BlobRef, error)
	StoreTree(tree objects.Tree) (objects.TreeRef, error)
	StoreCommit(commit objects.Commit) (objects.CommitRef, error)
	LoadCommit(ref objects.CommitRef) (objects.Commit, error)
	GetHead() (objects.CommitRef, error)
	UpdateHead(ref objects.CommitRef) error
}

// frame is one open directory being assembled on the stack.
type frame struct {
	name    string // raw name of this directory ("" for the synthetic root frame)
	modTime time.Time
	perms   objects.Permissions
	entries []objects.TreeEntry
}

// Snapshot walks sourceDir (consulting matcher for exclusions), builds
// the resulting Merkle tree bottom-up via store, and appends a new
// commit to head. now and identity are supplied by the caller since
// wall-clock time and author identity are both external collaborators,
// not something the snapshotter should source itself.
func Snapshot(store ObjectStore, sourceDir string, matcher *ignore.Matcher, now time.Time, author objects.Identity, message string) (objects.CommitRef, error) {
	stack := []*frame{{name: ""}}

	handle := func(e walk.Event) error {
		if e.Info == nil {
			logging.Warnf("skipping unreadable entry %s", e.RelPath)
			return nil
		}

		components := strings.Split(e.RelPath, "/")
		// Checking the whole path also skips everything below a skipped
		// non-UTF-8 directory, which otherwise arrives with no open frame.
		if !utf8.ValidString(e.RelPath) {
			logging.Warnf("skipping non-UTF-8 entry name %q", e.RelPath)
			return nil
		}

		// Close frames down to the depth this entry belongs at. The
		// walker always hands us paths one component deeper than our
		// current open-frame depth once closed to the right level;
		// anything else is a fatal walker-ordering invariant violation.
		targetDepth := len(components) - 1
		if targetDepth > len(stack)-1 {
			return fmt.Errorf("walker ordering invariant violated: %s arrived %d levels deep, stack depth %d", e.RelPath, targetDepth, len(stack)-1)
		}
		if err := closeFramesTo(store, targetDepth, &stack); err != nil {
			return err
		}

		name := components[len(components)-1]
		top := stack[len(stack)-1]

		switch e.Type {
		case walk.TypeDir:
			stack = append(stack, &frame{
				name:    name,
				modTime: e.Info.ModTime().UTC(),
				perms:   objects.PermissionsFromFileInfo(e.Info, false),
			})
		case walk.TypeFile, walk.TypeSymlink:
			isSymlink := e.Type == walk.TypeSymlink
			blobRef, err := store.StoreBlob(filepath.Join(sourceDir, e.RelPath), isSymlink)
			if err != nil {
				return fmt.Errorf("store blob %s: %w", e.RelPath, err)
			}
			top.entries = append(top.entries, objects.TreeEntry{
				Type:        objects.KindBlob,
				Name:        name,
				Modified:    e.Info.ModTime().UTC(),
				Permissions: objects.PermissionsFromFileInfo(e.Info, isSymlink),
				Hash:        blobRef,
				Size:        uint64(e.Info.Size()),
				IsSymlink:   isSymlink,
			})
		default:
			return fmt.Errorf("unknown file type for %s", e.RelPath)
		}
		return nil
	}

	if err := walk.Walk(sourceDir, matcher, handle); err != nil {
		return objects.CommitRef{}, gittyerr.Wrap(gittyerr.KindIOError, "walk "+sourceDir, err)
	}

	// Close everything down to the root frame, then finalize the root.
	if err := closeFramesTo(store, 0, &stack); err != nil {
		return objects.CommitRef{}, err
	}
	rootTree := objects.Tree{Entries: stack[0].entries}
	rootRef, err := store.StoreTree(rootTree)
	if err != nil {
		return objects.CommitRef{}, err
	}

	headRef, err := store.GetHead()
	if err != nil {
		return objects.CommitRef{}, err
	}
	head, err := store.LoadCommit(headRef)
	if err != nil {
		return objects.CommitRef{}, err
	}

	newCommit := objects.Commit{
		Author:     author,
		Committer:  author,
		AuthorTime: now,
		CommitTime: now,
		Message:    message,
		Depth:      head.Depth + 1,
		Parents:    []objects.Hash{headRef},
		Root:       rootRef,
	}
	newRef, err := store.StoreCommit(newCommit)
	if err != nil {
		return objects.CommitRef{}, err
	}
	if err := store.UpdateHead(newRef); err != nil {
		return objects.CommitRef{}, err
	}
	return newRef, nil
}

// closeFramesTo closes frames from the top of *stackPtr down to (and
// not including) depth, writing each closed frame as a Tree and
// appending a tree-child entry to its new top frame.
func closeFramesTo(store ObjectStore, depth int, stackPtr *[]*frame) error {
	stack := *stackPtr
	for len(stack)-1 > depth {
		closing := stack[len(stack)-1]
		tree := objects.Tree{Entries: closing.entries}
		ref, err := store.StoreTree(tree)
		if err != nil {
			return fmt.Errorf("store tree %s: %w", closing.name, err)
		}
		stack = stack[:len(stack)-1]
		parent := stack[len(stack)-1]

		parent.entries = append(parent.entries, objects.TreeEntry{
			Type:        objects.KindTree,
			Name:        closing.name,
			Modified:    closing.modTime,
			Permissions: closing.perms,
			Hash:        ref,
		})
	}
	*stackPtr = stack
	return nil
}
