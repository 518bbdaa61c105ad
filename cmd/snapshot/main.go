// Command snapshot appends a new commit to a store's HEAD by walking a
// source directory, consulting an optional .gittyignore, and writing
// the resulting blobs, trees and commit through the object store. The
// CLI's shape (single root command, positional args) follows the
// teacher's cli.rootCmd pattern via cobra, but argument parsing here
// is the store/snapshotter's one external collaborator rather than a
// multi-verb tool: there is exactly one thing this binary does.
package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phiresky-clone/gitty/internal/config"
	"github.com/phiresky-clone/gitty/internal/gittyerr"
	"github.com/phiresky-clone/gitty/internal/ignore"
	"github.com/phiresky-clone/gitty/internal/logging"
	"github.com/phiresky-clone/gitty/internal/objects"
	"github.com/phiresky-clone/gitty/internal/snapshot"
	"github.com/phiresky-clone/gitty/internal/store"
)

var message string

var rootCmd = &cobra.Command{
	Use:   "snapshot <source-dir> <store-dir>",
	Short: "Record a content-addressed snapshot of source-dir into store-dir",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0], args[1], message)
	},
	SilenceUsage: true,
}

func init() {
	logging.Init()
	rootCmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(exitCodeFor(err))
	}
}

func run(sourceDir, storeDir, message string) error {
	cfg, err := config.Load(storeDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(storeDir, cfg.ObjectPrefixLength, time.Now)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	matcher, err := ignore.Load(filepath.Join(sourceDir, ".gittyignore"))
	if err != nil {
		return fmt.Errorf("load .gittyignore: %w", err)
	}

	author := currentIdentity()
	logging.Infof("snapshotting %s into %s", sourceDir, storeDir)

	ref, err := snapshot.Snapshot(s, sourceDir, matcher, time.Now().UTC(), author, message)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	fmt.Println(ref.String())
	return nil
}

// currentIdentity resolves author identity from the OS user; there is
// no network-based identity lookup.
func currentIdentity() objects.Identity {
	u, err := user.Current()
	if err != nil {
		return objects.Identity{Name: "unknown", Email: ""}
	}
	name := u.Username
	if u.Name != "" {
		name = u.Name
	}
	return objects.Identity{Name: name, Email: u.Username + "@localhost"}
}

func exitCodeFor(err error) int {
	if gittyerr.Is(err, gittyerr.KindConfig) || gittyerr.Is(err, gittyerr.KindInvalidArgument) {
		return 2
	}
	return 1
}
