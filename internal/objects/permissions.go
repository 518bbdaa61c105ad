package objects

import (
	"io/fs"
	"syscall"
)

// PermissionsFromFileInfo builds a Permissions from an os.Lstat/os.Stat
// result, reading the unix mode, uid and gid straight off the platform
// metadata.
func PermissionsFromFileInfo(fi fs.FileInfo, isSymlink bool) Permissions {
	kind := "file"
	switch {
	case isSymlink:
		kind = "symlink"
	case fi.IsDir():
		kind = "dir"
	}

	mode := uint32(fi.Mode().Perm())
	var uid, gid uint32
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		uid = st.Uid
		gid = st.Gid
	}

	return Permissions{Kind: kind, Mode: mode, Uid: uid, Gid: gid}
}
