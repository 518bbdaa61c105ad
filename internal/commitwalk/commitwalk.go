// Package commitwalk implements CommitWalker: a lazy ancestor sequence
// from a commit reference, walking single-parent links and stopping
// before the synthetic depth-0 root.
package commitwalk

import (
	"fmt"

	"github.com/phiresky-clone/gitty/internal/objects"
)

// CommitLoader is the subset of store.Store the walker needs.
type CommitLoader interface {
	LoadCommit(ref objects.CommitRef) (objects.Commit, error)
}

// Walker produces (CommitRef, Commit) pairs in newest-to-oldest order
// starting from a given reference, terminating before the synthetic
// root (depth 0) and failing on a multi-parent commit. It holds no
// state beyond its current position; restart by constructing a new one.
type Walker struct {
	store   CommitLoader
	current objects.CommitRef
	done    bool
}

// New builds a Walker starting at start.
func New(store CommitLoader, start objects.CommitRef) *Walker {
	return &Walker{store: store, current: start}
}

// Next returns the next (ref, commit) pair, or ok=false once the
// sequence is exhausted (the depth-0 root has been reached and is
// omitted). A load failure or a multi-parent commit returns an error.
func (w *Walker) Next() (objects.CommitRef, objects.Commit, bool, error) {
	if w.done {
		return objects.CommitRef{}, objects.Commit{}, false, nil
	}

	commit, err := w.store.LoadCommit(w.current)
	if err != nil {
		w.done = true
		return objects.CommitRef{}, objects.Commit{}, false, fmt.Errorf("load commit %s: %w", w.current, err)
	}

	if commit.Depth == 0 {
		w.done = true
		return objects.CommitRef{}, objects.Commit{}, false, nil
	}

	if len(commit.Parents) != 1 {
		w.done = true
		return objects.CommitRef{}, objects.Commit{}, false, fmt.Errorf("commit %s has %d parents, multi-parent commits are unsupported", w.current, len(commit.Parents))
	}

	ref := w.current
	w.current = commit.Parents[0]
	return ref, commit, true, nil
}

// Collect drains the walker into a slice, for callers (like the
// viewer's root readdir) that want the full ancestor list at once.
func Collect(store CommitLoader, start objects.CommitRef) ([]objects.CommitRef, []objects.Commit, error) {
	w := New(store, start)
	var refs []objects.CommitRef
	var commits []objects.Commit
	for {
		ref, commit, ok, err := w.Next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		refs = append(refs, ref)
		commits = append(commits, commit)
	}
	return refs, commits, nil
}
