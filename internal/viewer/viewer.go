// Package viewer implements the SnapshotViewer: the inode allocator,
// caches, and the four projected filesystem operations (lookup,
// getattr, readdir, read) answering against the object store. The
// package is transport-free by design: the FUSE kernel protocol is an
// external collaborator, so this models only the semantic responses;
// cmd/mount binds it to a real FUSE library.
package viewer

import (
	"fmt"
	"os"
	"time"

	"github.com/phiresky-clone/gitty/internal/commitwalk"
	"github.com/phiresky-clone/gitty/internal/gittyerr"
	"github.com/phiresky-clone/gitty/internal/objects"
)

// RootIno is the reserved root inode.
const RootIno uint64 = 1

// ObjectLoader is the subset of store.Store the viewer depends on.
type ObjectLoader interface {
	GetHead() (objects.CommitRef, error)
	LoadCommit(ref objects.CommitRef) (objects.Commit, error)
	LoadTree(ref objects.TreeRef) (objects.Tree, error)
	LoadBlobPath(ref objects.BlobRef) (string, error)
}

// childKey is the triple identity of a non-commit, non-root inode: the
// parent tree, the entry's name within it, and the child's own hash.
// The triple (not the child hash alone) is the identity because the
// same content under two names or two parents reports distinct
// name-scoped attributes.
type childKey struct {
	parentTree objects.TreeRef
	name       string
	child      objects.Hash
}

type childRecord struct {
	key   childKey
	entry objects.TreeEntry
}

// Viewer holds the inode allocator, the commit/tree caches and the
// open-blob-handle LRU for one mounted store.
type Viewer struct {
	store ObjectLoader

	mountTime time.Time

	nextIno uint64

	commitToIno map[objects.CommitRef]uint64
	inoToCommit map[uint64]objects.CommitRef
	commitCache map[objects.CommitRef]objects.Commit

	childToIno map[childKey]uint64
	inoToChild map[uint64]childRecord

	treeCache map[objects.TreeRef]objects.Tree

	rootNames map[string]objects.CommitRef
	handles   *handleCache
}

// New constructs a Viewer over store. lruCapacity and lruIdle configure
// the open blob-handle cache (defaults are 500 and 60s; see
// internal/config).
func New(store ObjectLoader, mountTime time.Time, lruCapacity int, lruIdle time.Duration) *Viewer {
	return &Viewer{
		store:       store,
		mountTime:   mountTime,
		nextIno:     2,
		commitToIno: make(map[objects.CommitRef]uint64),
		inoToCommit: make(map[uint64]objects.CommitRef),
		commitCache: make(map[objects.CommitRef]objects.Commit),
		childToIno:  make(map[childKey]uint64),
		inoToChild:  make(map[uint64]childRecord),
		treeCache:   make(map[objects.TreeRef]objects.Tree),
		rootNames:   make(map[string]objects.CommitRef),
		handles:     newHandleCache(lruCapacity, lruIdle),
	}
}

// Close releases the open blob-handle cache.
func (v *Viewer) Close() { v.handles.closeAll() }

func (v *Viewer) allocIno() uint64 {
	ino := v.nextIno
	v.nextIno++
	return ino
}

func (v *Viewer) commitInode(ref objects.CommitRef) uint64 {
	if ino, ok := v.commitToIno[ref]; ok {
		return ino
	}
	ino := v.allocIno()
	v.commitToIno[ref] = ino
	v.inoToCommit[ino] = ref
	return ino
}

func (v *Viewer) childInode(key childKey, entry objects.TreeEntry) uint64 {
	if ino, ok := v.childToIno[key]; ok {
		return ino
	}
	ino := v.allocIno()
	v.childToIno[key] = ino
	v.inoToChild[ino] = childRecord{key: key, entry: entry}
	return ino
}

func (v *Viewer) loadCommit(ref objects.CommitRef) (objects.Commit, error) {
	if c, ok := v.commitCache[ref]; ok {
		return c, nil
	}
	c, err := v.store.LoadCommit(ref)
	if err != nil {
		return objects.Commit{}, err
	}
	v.commitCache[ref] = c
	return c, nil
}

func (v *Viewer) loadTree(ref objects.TreeRef) (objects.Tree, error) {
	if t, ok := v.treeCache[ref]; ok {
		return t, nil
	}
	t, err := v.store.LoadTree(ref)
	if err != nil {
		return objects.Tree{}, err
	}
	v.treeCache[ref] = t
	return t, nil
}

// rootAttr is the fixed directory attribute the root inode reports.
func (v *Viewer) rootAttr() Attr {
	return Attr{Ino: RootIno, Kind: KindDir, Size: 0, Mode: 0o755, ModTime: v.mountTime}
}

func commitDirAttr(ino uint64, c objects.Commit) Attr {
	return Attr{Ino: ino, Kind: KindDir, Size: 0, Mode: 0o755, ModTime: c.CommitTime}
}

// timeName formats a commit time the way the mount's top level names a
// commit directory: whole seconds, ISO-like.
func timeName(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// assignRootNames walks the commit chain from head and assigns a
// (possibly disambiguated) name to each commit, inserting every
// assignment into v.rootNames as a side effect: this is how a
// subsequent Lookup on the root resolves a name. Disambiguation appends
// an 8-hex-character hash suffix when truncating a commit time to whole
// seconds collides with a name already assigned earlier in the same
// listing, rather than letting the later commit silently shadow the
// earlier one.
func (v *Viewer) assignRootNames(refs []objects.CommitRef, commits []objects.Commit) []string {
	usedThisListing := make(map[string]bool, len(refs))
	names := make([]string, len(refs))
	for i, ref := range refs {
		base := timeName(commits[i].CommitTime)
		name := base
		if usedThisListing[name] {
			name = fmt.Sprintf("%s-%s", base, ref.String()[len("sha256:"):len("sha256:")+8])
		}
		usedThisListing[name] = true
		names[i] = name
		v.rootNames[name] = ref
	}
	return names
}

// Lookup resolves name within parent.
func (v *Viewer) Lookup(parent uint64, name string) (Attr, error) {
	if parent == RootIno {
		ref, ok := v.rootNames[name]
		if !ok {
			return Attr{}, gittyerr.NotFound(fmt.Sprintf("no commit named %q (has readdir of root run yet?)", name))
		}
		commit, err := v.loadCommit(ref)
		if err != nil {
			return Attr{}, err
		}
		return commitDirAttr(v.commitInode(ref), commit), nil
	}

	treeRef, err := v.treeRefForDirInode(parent)
	if err != nil {
		return Attr{}, err
	}
	tree, err := v.loadTree(treeRef)
	if err != nil {
		return Attr{}, err
	}
	entry, ok := tree.FindEntry(name)
	if !ok {
		return Attr{}, gittyerr.NotFound(fmt.Sprintf("%q not found", name))
	}
	key := childKey{parentTree: treeRef, name: name, child: entry.Hash}
	ino := v.childInode(key, entry)
	return attrFromTreeEntry(ino, entry), nil
}

// treeRefForDirInode resolves a directory-kind inode (commit or
// tree-or-blob) to the tree hash whose entries it projects. It errors
// with KindInvalidArgument if ino names a blob inode.
func (v *Viewer) treeRefForDirInode(ino uint64) (objects.TreeRef, error) {
	if ref, ok := v.inoToCommit[ino]; ok {
		commit, err := v.loadCommit(ref)
		if err != nil {
			return objects.TreeRef{}, err
		}
		return commit.Root, nil
	}
	if rec, ok := v.inoToChild[ino]; ok {
		if rec.entry.Type != objects.KindTree {
			return objects.TreeRef{}, gittyerr.New(gittyerr.KindInvalidArgument, "inode is not a directory")
		}
		return rec.entry.Hash, nil
	}
	return objects.TreeRef{}, gittyerr.NotFound(fmt.Sprintf("unknown inode %d", ino))
}

// GetAttr resolves ino to its attributes.
func (v *Viewer) GetAttr(ino uint64) (Attr, error) {
	if ino == RootIno {
		return v.rootAttr(), nil
	}
	if ref, ok := v.inoToCommit[ino]; ok {
		commit, err := v.loadCommit(ref)
		if err != nil {
			return Attr{}, err
		}
		return commitDirAttr(ino, commit), nil
	}
	if rec, ok := v.inoToChild[ino]; ok {
		return attrFromTreeEntry(ino, rec.entry), nil
	}
	return Attr{}, gittyerr.NotFound(fmt.Sprintf("unknown inode %d", ino))
}

// ReadDir streams directory entries starting at offset, returning at
// most limit entries if limit > 0 (0 means "all remaining"). The
// returned bool reports whether more entries remain beyond what was
// returned.
func (v *Viewer) ReadDir(ino uint64, offset int, limit int) ([]DirEntry, bool, error) {
	if ino == RootIno {
		headRef, err := v.store.GetHead()
		if err != nil {
			return nil, false, err
		}
		refs, commits, err := commitwalk.Collect(commitLoaderAdapter{v}, headRef)
		if err != nil {
			return nil, false, err
		}
		names := v.assignRootNames(refs, commits)

		var entries []DirEntry
		for i, ref := range refs {
			entries = append(entries, DirEntry{Ino: v.commitInode(ref), Name: names[i], Kind: KindDir})
		}
		return paginate(entries, offset, limit)
	}

	treeRef, err := v.treeRefForDirInode(ino)
	if err != nil {
		return nil, false, err
	}
	tree, err := v.loadTree(treeRef)
	if err != nil {
		return nil, false, err
	}

	entries := make([]DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		key := childKey{parentTree: treeRef, name: e.Name, child: e.Hash}
		entries = append(entries, DirEntry{Ino: v.childInode(key, e), Name: e.Name, Kind: entryKindOf(e)})
	}
	return paginate(entries, offset, limit)
}

func paginate(entries []DirEntry, offset, limit int) ([]DirEntry, bool, error) {
	if offset < 0 || offset > len(entries) {
		return nil, false, gittyerr.New(gittyerr.KindInvalidArgument, "readdir offset out of range")
	}
	rest := entries[offset:]
	if limit <= 0 || limit >= len(rest) {
		return rest, false, nil
	}
	return rest[:limit], true, nil
}

// Read resolves ino to a blob, opening (and LRU-caching) its on-disk
// file, then seeks and reads up to len(buf) bytes starting at offset.
// It returns the number of bytes read; short reads at EOF are allowed.
func (v *Viewer) Read(ino uint64, offset int64, buf []byte) (int, error) {
	if ino == RootIno {
		return 0, gittyerr.New(gittyerr.KindIsDirectory, "root is a directory")
	}
	if _, ok := v.inoToCommit[ino]; ok {
		return 0, gittyerr.New(gittyerr.KindInvalidArgument, "commit inode is not a regular file")
	}
	rec, ok := v.inoToChild[ino]
	if !ok {
		return 0, gittyerr.NotFound(fmt.Sprintf("unknown inode %d", ino))
	}
	if rec.entry.Type == objects.KindTree {
		return 0, gittyerr.New(gittyerr.KindIsDirectory, "inode is a directory")
	}

	f := v.handles.get(ino)
	if f == nil {
		path, err := v.store.LoadBlobPath(rec.entry.Hash)
		if err != nil {
			return 0, err
		}
		opened, err := os.Open(path)
		if err != nil {
			return 0, gittyerr.Wrap(gittyerr.KindIOError, "open blob", err)
		}
		v.handles.put(ino, opened)
		f = opened
	}

	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		if isEOF(err) {
			return 0, nil
		}
		return 0, gittyerr.Wrap(gittyerr.KindIOError, "read blob", err)
	}
	return n, nil
}

func isEOF(err error) bool {
	return err != nil && err.Error() == "EOF"
}

// commitLoaderAdapter exposes Viewer's caching LoadCommit to
// commitwalk.CommitLoader without making Viewer itself satisfy a wider
// surface than it needs to.
type commitLoaderAdapter struct{ v *Viewer }

func (a commitLoaderAdapter) LoadCommit(ref objects.CommitRef) (objects.Commit, error) {
	return a.v.loadCommit(ref)
}
