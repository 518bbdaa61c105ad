// Command mount exposes a store as a read-only FUSE filesystem: the
// root directory lists commits by time, each commit directory projects
// its root tree, and ordinary lookup/readdir/read semantics apply
// below that. The store is opened once at startup and never written to
// by this binary.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"

	"github.com/phiresky-clone/gitty/internal/config"
	"github.com/phiresky-clone/gitty/internal/logging"
	"github.com/phiresky-clone/gitty/internal/store"
	"github.com/phiresky-clone/gitty/internal/viewer"
)

var allowOther bool

// entryTTL is the lookup/attr cache lifetime handed to the kernel.
// Snapshots and trees never change once written, so there is nothing to
// invalidate; a long fixed TTL avoids needless re-lookups for the life
// of the mount.
const entryTTL = 365 * 24 * time.Hour

var rootCmd = &cobra.Command{
	Use:   "mount <store-dir> <mountpoint>",
	Short: "Mount a store read-only at mountpoint via FUSE",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0], args[1])
	},
	SilenceUsage: true,
}

func init() {
	logging.Init()
	rootCmd.Flags().BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mount:", err)
		os.Exit(1)
	}
}

func run(storeDir, mountpoint string) error {
	cfg, err := config.Load(storeDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(storeDir, cfg.ObjectPrefixLength, time.Now)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	v := viewer.New(s, time.Now(), cfg.ViewerLRUCapacity, cfg.ViewerLRUIdle())
	defer v.Close()

	fsys := newGittyFS(v)
	root := &gittyNode{fsys: fsys, ino: viewer.RootIno}

	// The store is immutable from this binary's point of view and the
	// mount must not outlive an unclean shutdown, so the kernel is told
	// to enforce both: ro refuses writes at the VFS layer regardless of
	// what the node ops return, and auto_unmount drops the mount if this
	// process dies without reaching the signal handler below.
	ttl := entryTTL
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "gitty:" + storeDir,
			Name:       "gittyfs",
			AllowOther: allowOther,
			Debug:      os.Getenv("GITTY_LOG") == "debug",
			Options:    []string{"ro", "auto_unmount"},
		},
		EntryTimeout: &ttl,
		AttrTimeout:  &ttl,
	}

	server, err := fs.Mount(mountpoint, root, opts)
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountpoint, err)
	}
	fsys.nodes[viewer.RootIno] = &root.Inode

	logging.Infof("mounted %s at %s", storeDir, mountpoint)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logging.Infof("unmounting %s", mountpoint)
		server.Unmount()
	}()

	server.Wait()
	return nil
}
