// Package store implements the content-addressed ObjectStore: sharded
// on-disk persistence of blobs, trees and commits, the mutable HEAD
// pointer, and the temp-file-then-rename atomicity that keeps a
// partially-failed snapshot from corrupting the store.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phiresky-clone/gitty/internal/gittyerr"
	"github.com/phiresky-clone/gitty/internal/objects"
)

// copyBufSize is the streaming copy/hash buffer size: exactly 1 MiB, a
// boundary worth testing explicitly (a file of exactly this size, and
// one byte over).
const copyBufSize = 1024 * 1024

const headFileName = "HEAD"

// Store is a file-backed ObjectStore rooted at a directory.
type Store struct {
	root                string
	objectPrefixLength int
}

// Open implements open_or_create: if HEAD exists the store is reopened
// as-is; otherwise root is created (or must be empty/absent) and
// bootstrapped with the canonical empty tree and the depth-0 root
// commit, then HEAD is written to point at it.
func Open(root string, objectPrefixLength int, now func() time.Time) (*Store, error) {
	if objectPrefixLength < 1 {
		return nil, gittyerr.New(gittyerr.KindConfig, "object_prefix_length must be >= 1")
	}

	s := &Store{root: root, objectPrefixLength: objectPrefixLength}

	headPath := filepath.Join(root, headFileName)
	if _, err := os.Stat(headPath); err == nil {
		return s, nil
	} else if !os.IsNotExist(err) {
		return nil, gittyerr.Wrap(gittyerr.KindIOError, "stat HEAD", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		return nil, gittyerr.Wrap(gittyerr.KindIOError, "read store root", err)
	}
	if err == nil && len(entries) > 0 {
		return nil, gittyerr.New(gittyerr.KindConfig, fmt.Sprintf("store root %s exists but has no HEAD", root))
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, gittyerr.Wrap(gittyerr.KindIOError, "create store root", err)
	}

	empty := objects.EmptyTree()
	if _, err := s.StoreTree(empty); err != nil {
		return nil, err
	}

	root0, err := objects.RootCommit(now())
	if err != nil {
		return nil, gittyerr.Wrap(gittyerr.KindIntegrity, "build root commit", err)
	}
	rootRef, err := s.StoreCommit(root0)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateHead(rootRef); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) shardedPath(kind, hash string) string {
	p := s.objectPrefixLength
	if p > len(hash) {
		p = len(hash)
	}
	return filepath.Join(s.root, kind, hash[:p], hash[p:])
}

func hexOf(h objects.Hash) string {
	return hex.EncodeToString(h[:])
}

func (s *Store) tempPath() string {
	return filepath.Join(s.root, "temp", "temp-"+uuid.NewString())
}

// StoreBlob persists sourcePath (a regular file) or, if isSymlink is
// true, the text of its link target, as a content-addressed blob.
// Regular files stream through a temp file and an atomic rename;
// symlinks are short enough to hash and write directly, the same way
// store_tree/store_commit do for their small JSON payloads.
func (s *Store) StoreBlob(sourcePath string, isSymlink bool) (objects.BlobRef, error) {
	if isSymlink {
		target, err := os.Readlink(sourcePath)
		if err != nil {
			return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "readlink "+sourcePath, err)
		}
		data := []byte(target)
		hash := objects.Sum(data)
		path := s.shardedPath("file", hexOf(hash))
		if err := writeIfAbsent(path, data); err != nil {
			return objects.BlobRef{}, err
		}
		return hash, nil
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "open "+sourcePath, err)
	}
	defer f.Close()

	tmpPath := s.tempPath()
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0o755); err != nil {
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "create temp dir", err)
	}
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "create temp file", err)
	}

	hasher := sha256.New()
	buf := make([]byte, copyBufSize)
	_, copyErr := io.CopyBuffer(io.MultiWriter(tmp, hasher), f, buf)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "copy "+sourcePath, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "close temp file", closeErr)
	}

	var hash objects.Hash
	copy(hash[:], hasher.Sum(nil))

	finalPath := s.shardedPath("file", hexOf(hash))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "create object dir", err)
	}

	// Renaming over an existing file is a no-op by construction: the
	// content is byte-identical because the path is derived from its
	// hash. os.Rename still performs the replace so this is just an
	// atomic overwrite-with-same-bytes rather than a skip.
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return objects.BlobRef{}, gittyerr.Wrap(gittyerr.KindIOError, "rename blob into place", err)
	}
	return hash, nil
}

func writeIfAbsent(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return gittyerr.Wrap(gittyerr.KindIOError, "create object dir", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return gittyerr.Wrap(gittyerr.KindIOError, "write object", err)
	}
	return nil
}

// StoreTree serializes tree to canonical JSON, hashes it and writes it
// at tree/<prefix>/<suffix>.
func (s *Store) StoreTree(tree objects.Tree) (objects.TreeRef, error) {
	data, err := tree.CanonicalJSON()
	if err != nil {
		return objects.TreeRef{}, gittyerr.Wrap(gittyerr.KindIntegrity, "serialize tree", err)
	}
	hash := objects.Sum(data)
	path := s.shardedPath("tree", hexOf(hash))
	if err := writeIfAbsent(path, data); err != nil {
		return objects.TreeRef{}, err
	}
	return hash, nil
}

// StoreCommit is the commit analogue of StoreTree.
func (s *Store) StoreCommit(commit objects.Commit) (objects.CommitRef, error) {
	data, err := commit.CanonicalJSON()
	if err != nil {
		return objects.CommitRef{}, gittyerr.Wrap(gittyerr.KindIntegrity, "serialize commit", err)
	}
	hash := objects.Sum(data)
	path := s.shardedPath("commit", hexOf(hash))
	if err := writeIfAbsent(path, data); err != nil {
		return objects.CommitRef{}, err
	}
	return hash, nil
}

// LoadBlobPath returns the on-disk path for ref's blob payload, for
// callers that want to open and stream it themselves rather than read
// it fully into memory.
func (s *Store) LoadBlobPath(ref objects.BlobRef) (string, error) {
	path := s.shardedPath("file", hexOf(ref))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", gittyerr.NotFound("blob " + ref.String())
		}
		return "", gittyerr.Wrap(gittyerr.KindIOError, "stat blob", err)
	}
	return path, nil
}

// LoadTree reads and parses the tree at ref.
func (s *Store) LoadTree(ref objects.TreeRef) (objects.Tree, error) {
	data, err := s.readObject("tree", ref)
	if err != nil {
		return objects.Tree{}, err
	}
	tree, err := objects.ParseTree(data)
	if err != nil {
		return objects.Tree{}, gittyerr.Wrap(gittyerr.KindIntegrity, "parse tree "+ref.String(), err)
	}
	return tree, nil
}

// LoadCommit reads and parses the commit at ref.
func (s *Store) LoadCommit(ref objects.CommitRef) (objects.Commit, error) {
	data, err := s.readObject("commit", ref)
	if err != nil {
		return objects.Commit{}, err
	}
	commit, err := objects.ParseCommit(data)
	if err != nil {
		return objects.Commit{}, gittyerr.Wrap(gittyerr.KindIntegrity, "parse commit "+ref.String(), err)
	}
	return commit, nil
}

func (s *Store) readObject(kind string, ref objects.Hash) ([]byte, error) {
	path := s.shardedPath(kind, hexOf(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gittyerr.NotFound(kind + " " + ref.String())
		}
		return nil, gittyerr.Wrap(gittyerr.KindIOError, "read "+kind, err)
	}
	return data, nil
}

// GetHead reads the HEAD file.
func (s *Store) GetHead() (objects.CommitRef, error) {
	data, err := os.ReadFile(filepath.Join(s.root, headFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return objects.CommitRef{}, gittyerr.New(gittyerr.KindConfig, "store has no HEAD")
		}
		return objects.CommitRef{}, gittyerr.Wrap(gittyerr.KindIOError, "read HEAD", err)
	}
	ref, err := objects.ParseHash(strings.TrimSpace(string(data)))
	if err != nil {
		return objects.CommitRef{}, gittyerr.Wrap(gittyerr.KindIntegrity, "parse HEAD", err)
	}
	return ref, nil
}

// UpdateHead overwrites HEAD to point at ref. This is the commit point
// of a snapshot: callers must only call this after every referenced
// blob, tree and the commit object itself are durably written.
func (s *Store) UpdateHead(ref objects.CommitRef) error {
	path := filepath.Join(s.root, headFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return gittyerr.Wrap(gittyerr.KindIOError, "create store root", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(ref.String()+"\n"), 0o644); err != nil {
		return gittyerr.Wrap(gittyerr.KindIOError, "write HEAD", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return gittyerr.Wrap(gittyerr.KindIOError, "rename HEAD into place", err)
	}
	return nil
}

// ObjectPath returns the on-disk path for ref under kind ("file",
// "tree" or "commit"), for callers like gitty-admin fsck that need to
// name a corrupt object without going through the typed Load* methods.
func (s *Store) ObjectPath(kind string, ref objects.Hash) string {
	return s.shardedPath(kind, hexOf(ref))
}

// ReadRaw reads the raw bytes stored for ref under kind, without
// parsing them. Used by integrity checks that must verify the bytes on
// disk still hash to the path they are stored at.
func (s *Store) ReadRaw(kind string, ref objects.Hash) ([]byte, error) {
	return s.readObject(kind, ref)
}

// Root returns the store's root directory, e.g. for CLI messages.
func (s *Store) Root() string { return s.root }

// ObjectPrefixLength returns the configured sharding depth P.
func (s *Store) ObjectPrefixLength() int { return s.objectPrefixLength }
