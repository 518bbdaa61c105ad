package objects

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryKind discriminates the two shapes a TreeEntry can take. It is the
// "type" field named in the tree entry's JSON tag.
type EntryKind string

const (
	KindTree EntryKind = "tree"
	KindBlob EntryKind = "blob"
)

// Permissions carries the POSIX-ish attributes recorded on a tree entry:
// the viewer reports these, not anything read from the child object
// itself, because the same blob can be named differently under two
// parents with different attributes.
type Permissions struct {
	Kind string `json:"kind"` // "file", "dir", or "symlink"
	Mode uint32 `json:"mode"`
	Uid  uint32 `json:"uid"`
	Gid  uint32 `json:"gid"`
}

// TreeEntry is one child of a Tree: either a reference to another Tree
// or a reference to a Blob. Size and IsSymlink are only meaningful when
// Type == KindBlob.
type TreeEntry struct {
	Type        EntryKind   `json:"type"`
	Name        string      `json:"name"`
	Modified    time.Time   `json:"modified"`
	Permissions Permissions `json:"permissions"`
	Hash        Hash        `json:"hash"`
	Size        uint64      `json:"size,omitempty"`
	IsSymlink   bool        `json:"is_symlink,omitempty"`
}

// Tree is an ordered list of TreeEntry records. Order is walker order:
// directories before files, then lexicographic by raw name; it is part
// of the canonical serialized form and therefore part of the hash.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

// EmptyTree returns the canonical empty tree: a Tree with zero entries,
// serialized with an explicit empty array rather than JSON null so that
// every code path that builds it produces byte-identical bytes.
func EmptyTree() Tree {
	return Tree{Entries: []TreeEntry{}}
}

// MarshalJSON normalizes a nil Entries slice to an empty array so the
// canonical empty tree hashes the same way regardless of how the value
// in memory was constructed.
func (t Tree) MarshalJSON() ([]byte, error) {
	entries := t.Entries
	if entries == nil {
		entries = []TreeEntry{}
	}
	return json.Marshal(struct {
		Entries []TreeEntry `json:"entries"`
	}{Entries: entries})
}

// Validate checks the invariant that entry names are unique within a
// single Tree.
func (t Tree) Validate() error {
	seen := make(map[string]bool, len(t.Entries))
	for _, e := range t.Entries {
		if seen[e.Name] {
			return fmt.Errorf("duplicate tree entry name %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// CanonicalJSON returns the bytes a Tree hashes to and is stored as.
func (t Tree) CanonicalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	return json.Marshal(t)
}

// HashOf computes the TreeRef of t: the SHA-256 of its canonical JSON.
func (t Tree) HashOf() (TreeRef, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return TreeRef{}, err
	}
	return Sum(b), nil
}

// ParseTree decodes a Tree from its canonical JSON bytes.
func ParseTree(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("parse tree: %w", err)
	}
	return t, nil
}

// FindEntry returns the entry named name, if present.
func (t Tree) FindEntry(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}
