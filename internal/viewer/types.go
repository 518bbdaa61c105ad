package viewer

import (
	"time"

	"github.com/phiresky-clone/gitty/internal/objects"
)

// EntryKind is the projected filesystem kind of an inode.
type EntryKind int

const (
	KindDir EntryKind = iota
	KindFile
	KindSymlink
)

// Attr is the attribute set the viewer reports for an inode: access,
// modify, change and create times are all set to the tree entry's
// Modified field (there is no finer-grained tracking in the object
// model), size is 0 for directories, and the attribute TTL is
// effectively infinite because the Merkle graph is immutable.
type Attr struct {
	Ino     uint64
	Kind    EntryKind
	Size    uint64
	Mode    uint32
	Uid     uint32
	Gid     uint32
	ModTime time.Time
}

// DirEntry is one row of a ReadDir result.
type DirEntry struct {
	Ino  uint64
	Name string
	Kind EntryKind
}

func entryKindOf(e objects.TreeEntry) EntryKind {
	switch {
	case e.IsSymlink:
		return KindSymlink
	case e.Type == objects.KindTree:
		return KindDir
	default:
		return KindFile
	}
}

func attrFromTreeEntry(ino uint64, e objects.TreeEntry) Attr {
	size := e.Size
	if e.Type == objects.KindTree {
		size = 0
	}
	return Attr{
		Ino:     ino,
		Kind:    entryKindOf(e),
		Size:    size,
		Mode:    e.Permissions.Mode,
		Uid:     e.Permissions.Uid,
		Gid:     e.Permissions.Gid,
		ModTime: e.Modified,
	}
}
