// Package objects implements the stable, serialized object model shared
// by the store, the snapshotter, the commit walker and the viewer: Hash,
// Tree, TreeEntry, Permissions and Commit, plus their JSON codec.
package objects

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashPrefix is the wire-form tag prepended to every serialized hash.
// Always derive the strip length from len(hashPrefix) rather than a
// literal constant: a fixed constant drifts out of sync the moment the
// prefix text changes and silently truncates the leading hex
// characters of every parsed hash instead of failing loudly.
const hashPrefix = "sha256:"

// Hash is a 32-byte SHA-256 digest and the identity of every stored
// object: blobs, trees and commits are all addressed by the hash of
// their on-disk bytes.
type Hash [sha256.Size]byte

// Zero is the all-zero hash. Nothing in this implementation produces it
// for a real object: every blob, including symlink targets, is hashed
// from real bytes (see internal/store).
var Zero Hash

// Sum computes the Hash of b.
func Sum(b []byte) Hash {
	return sha256.Sum256(b)
}

// String renders the hash in its wire form, "sha256:" followed by 64
// lowercase hex characters.
func (h Hash) String() string {
	return hashPrefix + hex.EncodeToString(h[:])
}

// ParseHash parses the wire form produced by String.
func ParseHash(s string) (Hash, error) {
	if len(s) != len(hashPrefix)+2*sha256.Size {
		return Hash{}, fmt.Errorf("invalid hash length %d", len(s))
	}
	if s[:len(hashPrefix)] != hashPrefix {
		return Hash{}, fmt.Errorf("invalid hash prefix %q", s[:len(hashPrefix)])
	}
	raw, err := hex.DecodeString(s[len(hashPrefix):])
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// IsZero reports whether h is the all-zero placeholder hash.
func (h Hash) IsZero() bool { return h == Zero }

// MarshalJSON implements json.Marshaler, writing the wire form string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler. Only the exact "sha256:"
// wire form is accepted; anything else is a hard parse error rather
// than silently truncated.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hash must be a JSON string: %w", err)
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// BlobRef, TreeRef and CommitRef are hashes resolved through the store.
// They are plain aliases, not wrapper types: the object store never
// holds in-memory pointers between objects, only these hashes, which
// are stable copyable indices into the on-disk store.
type (
	BlobRef   = Hash
	TreeRef   = Hash
	CommitRef = Hash
)
