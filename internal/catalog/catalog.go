// Package catalog implements a rebuildable secondary index over a
// store: per-commit object/byte counts and the last fsck report. It is
// never authoritative; HEAD and the sharded object tree remain the only
// source of truth, so a missing or stale catalog.db is always safe to
// delete and rebuild from Rebuild. Each concern gets its own bucket, so
// new indexes can be added without disturbing existing ones.
package catalog

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/phiresky-clone/gitty/internal/objects"
)

var (
	bucketCommitStats = []byte("commit-stats")
	bucketFsckReport  = []byte("fsck-report")
)

const fsckReportKey = "last"

// DB is a catalog backed by a single bbolt file.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (creating if absent) the catalog at path, ensuring its
// buckets exist.
func Open(path string) (*DB, error) {
	b, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	err = b.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketCommitStats); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketFsckReport); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("init catalog buckets: %w", err)
	}
	return &DB{bolt: b}, nil
}

// Close releases the underlying bbolt file.
func (db *DB) Close() error { return db.bolt.Close() }

// CommitStats is the per-commit summary gitty-admin stat reports.
type CommitStats struct {
	Depth      uint64 `json:"depth"`
	TreeCount  int    `json:"tree_count"`
	BlobCount  int    `json:"blob_count"`
	TotalBytes uint64 `json:"total_bytes"`
}

// PutCommitStats records stats for ref.
func (db *DB) PutCommitStats(ref objects.CommitRef, stats CommitStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal commit stats: %w", err)
	}
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCommitStats).Put([]byte(ref.String()), data)
	})
}

// GetCommitStats returns the stats previously recorded for ref, if any.
func (db *DB) GetCommitStats(ref objects.CommitRef) (CommitStats, bool, error) {
	var stats CommitStats
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketCommitStats).Get([]byte(ref.String()))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &stats)
	})
	if err != nil {
		return CommitStats{}, false, fmt.Errorf("read commit stats: %w", err)
	}
	return stats, found, nil
}

// FsckReport is the result of the last fsck run, stored as a single
// record (gitty-admin fsck has no history of past runs, only the most
// recent).
type FsckReport struct {
	ScannedAt    string   `json:"scanned_at"` // RFC3339, supplied by the caller so Date.now()-style nondeterminism stays outside this package
	Commits      int      `json:"commits_scanned"`
	Trees        int      `json:"trees_scanned"`
	Blobs        int      `json:"blobs_scanned"`
	CorruptPaths []string `json:"corrupt_paths"`
}

// PutFsckReport overwrites the stored report.
func (db *DB) PutFsckReport(report FsckReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal fsck report: %w", err)
	}
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFsckReport).Put([]byte(fsckReportKey), data)
	})
}

// GetFsckReport returns the most recently stored report, if any.
func (db *DB) GetFsckReport() (FsckReport, bool, error) {
	var report FsckReport
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketFsckReport).Get([]byte(fsckReportKey))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &report)
	})
	if err != nil {
		return FsckReport{}, false, fmt.Errorf("read fsck report: %w", err)
	}
	return report, found, nil
}

// Clear removes every record, used before Rebuild repopulates from
// scratch.
func (db *DB) Clear() error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCommitStats, bucketFsckReport} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
