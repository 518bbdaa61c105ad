package main

// fuseadapter binds internal/viewer's plain Go SnapshotViewer to a real
// FUSE transport. internal/viewer itself imports nothing from go-fuse
// so that its inode allocation, caching and the four core operations
// stay unit-testable without a kernel; this file is the one place that
// carries the go-fuse API risk, grounded in the Inode-embedding style
// shown by the slothfs gitilesfs example in the retrieved reference
// set (fs.Inode, fs.NodeLookuper/NodeGetattrer/NodeReaddirer/
// NodeReader/NodeReadlinker).

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/phiresky-clone/gitty/internal/gittyerr"
	"github.com/phiresky-clone/gitty/internal/viewer"
)

// gittyFS is the shared state behind every node in the mounted tree: the
// viewer itself, plus a cache from viewer inode number to the fs.Inode
// already created for it so repeated lookups converge on one node, the
// way a real filesystem returns one inode per identity.
type gittyFS struct {
	mu    sync.Mutex
	v     *viewer.Viewer
	nodes map[uint64]*fs.Inode
}

func newGittyFS(v *viewer.Viewer) *gittyFS {
	return &gittyFS{v: v, nodes: make(map[uint64]*fs.Inode)}
}

// gittyNode is one inode in the mounted tree; it holds only the viewer
// inode number, resolving everything else through fsys on demand.
type gittyNode struct {
	fs.Inode
	fsys *gittyFS
	ino  uint64
}

var (
	_ fs.NodeLookuper   = (*gittyNode)(nil)
	_ fs.NodeGetattrer  = (*gittyNode)(nil)
	_ fs.NodeReaddirer  = (*gittyNode)(nil)
	_ fs.NodeOpener     = (*gittyNode)(nil)
	_ fs.NodeReader     = (*gittyNode)(nil)
	_ fs.NodeReadlinker = (*gittyNode)(nil)
)

func modeFor(attr viewer.Attr) uint32 {
	perm := attr.Mode
	switch attr.Kind {
	case viewer.KindDir:
		if perm == 0 {
			perm = 0o555
		}
		return syscall.S_IFDIR | perm
	case viewer.KindSymlink:
		if perm == 0 {
			perm = 0o444
		}
		return syscall.S_IFLNK | perm
	default:
		if perm == 0 {
			perm = 0o444
		}
		return syscall.S_IFREG | perm
	}
}

func fillAttr(out *fuse.Attr, attr viewer.Attr) {
	out.Ino = attr.Ino
	out.Size = attr.Size
	out.Mode = modeFor(attr)
	out.Uid = attr.Uid
	out.Gid = attr.Gid
	out.SetTimes(&attr.ModTime, &attr.ModTime, &attr.ModTime)
}

func errnoFor(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch {
	case gittyerr.Is(err, gittyerr.KindNotFound):
		return syscall.ENOENT
	case gittyerr.Is(err, gittyerr.KindIsDirectory):
		return syscall.EISDIR
	case gittyerr.Is(err, gittyerr.KindInvalidArgument):
		return syscall.EINVAL
	case gittyerr.Is(err, gittyerr.KindIntegrity):
		return syscall.EIO
	default:
		return syscall.EIO
	}
}

// childInode returns the (cached, if already created) fs.Inode for a
// viewer inode number, creating it against parent if this is the first
// time it has been reached.
func (n *gittyNode) childInode(ctx context.Context, attr viewer.Attr) *fs.Inode {
	n.fsys.mu.Lock()
	defer n.fsys.mu.Unlock()
	if existing, ok := n.fsys.nodes[attr.Ino]; ok {
		return existing
	}
	child := &gittyNode{fsys: n.fsys, ino: attr.Ino}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: modeFor(attr), Ino: attr.Ino})
	n.fsys.nodes[attr.Ino] = inode
	return inode
}

func (n *gittyNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	attr, err := n.fsys.v.Lookup(n.ino, name)
	if err != nil {
		return nil, errnoFor(err)
	}
	fillAttr(&out.Attr, attr)
	return n.childInode(ctx, attr), 0
}

func (n *gittyNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fsys.v.GetAttr(n.ino)
	if err != nil {
		return errnoFor(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

func (n *gittyNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, _, err := n.fsys.v.ReadDir(n.ino, 0, 0)
	if err != nil {
		return nil, errnoFor(err)
	}
	fuseEntries := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		var mode uint32
		switch e.Kind {
		case viewer.KindDir:
			mode = syscall.S_IFDIR
		case viewer.KindSymlink:
			mode = syscall.S_IFLNK
		default:
			mode = syscall.S_IFREG
		}
		fuseEntries = append(fuseEntries, fuse.DirEntry{Name: e.Name, Ino: e.Ino, Mode: mode})
	}
	return fs.NewListDirStream(fuseEntries), 0
}

// Open is a no-op: content is immutable and already cached by
// internal/viewer's own LRU of blob handles, so there is no
// per-filehandle state to track here. FOPEN_KEEP_CACHE tells the
// kernel page cache it is safe to keep pages across opens, which holds
// because the store is read-only for the mount's lifetime.
func (n *gittyNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *gittyNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, err := n.fsys.v.Read(n.ino, off, dest)
	if err != nil {
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *gittyNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	attr, err := n.fsys.v.GetAttr(n.ino)
	if err != nil {
		return nil, errnoFor(err)
	}
	buf := make([]byte, attr.Size)
	got, err := n.fsys.v.Read(n.ino, 0, buf)
	if err != nil {
		return nil, errnoFor(err)
	}
	return buf[:got], 0
}
