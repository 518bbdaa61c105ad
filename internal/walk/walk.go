// Package walk implements the directory walker the snapshotter drives:
// an ordered stream of (path, metadata) events, directories before
// files, each group sorted by raw name, never following symlinks.
// Grounded in fstree.Capture's per-directory os.ReadDir recursion.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/phiresky-clone/gitty/internal/ignore"
)

// EntryType classifies a walked entry.
type EntryType int

const (
	TypeDir EntryType = iota
	TypeFile
	TypeSymlink
	TypeOther
)

// Event is one surfaced directory entry: its path relative to the
// source root (slash-separated, matching the tree entry name domain),
// its depth (number of path components), its type and its os.Lstat
// metadata.
type Event struct {
	RelPath string
	Depth   int // len(path components)
	Type    EntryType
	Info    fs.FileInfo
}

// Handler is called once per surfaced event, depth-first, in walker
// order. Returning an error aborts the walk.
type Handler func(Event) error

// Walk drives a depth-first walk of root, calling handle for every
// entry not excluded by matcher. Sibling order within a directory is
// directories first, then files, each group sorted lexicographically by
// raw name, matching the snapshotter's tree-entry ordering. Symlinks
// are surfaced as TypeSymlink and never followed.
func Walk(root string, matcher *ignore.Matcher, handle Handler) error {
	return walkDir(root, "", 0, matcher, handle)
}

func walkDir(absDir, relDir string, depth int, matcher *ignore.Matcher, handle Handler) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", absDir, err)
	}

	var dirs, files []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	for _, e := range append(dirs, files...) {
		name := e.Name()
		relPath := name
		if relDir != "" {
			relPath = relDir + "/" + name
		}
		absPath := filepath.Join(absDir, name)

		info, err := os.Lstat(absPath)
		if err != nil {
			// Unreadable entries are logged and skipped by the caller;
			// surface the error through the handler so it can decide,
			// rather than silently swallowing it here.
			if hErr := handle(Event{RelPath: relPath, Depth: depth + 1, Type: TypeOther, Info: nil}); hErr != nil {
				return hErr
			}
			continue
		}

		entryType := classify(info)
		isDir := entryType == TypeDir

		if matcher.ShouldSkip(relPath, isDir) {
			continue
		}

		if err := handle(Event{RelPath: relPath, Depth: depth + 1, Type: entryType, Info: info}); err != nil {
			return err
		}

		if entryType == TypeDir {
			if err := walkDir(absPath, relPath, depth+1, matcher, handle); err != nil {
				return err
			}
		}
	}
	return nil
}

func classify(info fs.FileInfo) EntryType {
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	case mode.IsDir():
		return TypeDir
	case mode.IsRegular():
		return TypeFile
	default:
		return TypeOther
	}
}
