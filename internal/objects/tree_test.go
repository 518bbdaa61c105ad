package objects

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestEmptyTreeHashIsStable(t *testing.T) {
	a := EmptyTree()
	b := Tree{}

	ha, err := a.HashOf()
	if err != nil {
		t.Fatalf("HashOf(a): %v", err)
	}
	hb, err := b.HashOf()
	if err != nil {
		t.Fatalf("HashOf(b): %v", err)
	}
	if ha != hb {
		t.Fatalf("empty tree hash depends on nil-vs-empty slice: %v != %v", ha, hb)
	}
}

func TestTreeValidateRejectsDuplicateNames(t *testing.T) {
	tr := Tree{Entries: []TreeEntry{
		{Type: KindBlob, Name: "a"},
		{Type: KindBlob, Name: "a"},
	}}
	if err := tr.Validate(); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
}

func TestTreeFindEntry(t *testing.T) {
	tr := Tree{Entries: []TreeEntry{
		{Type: KindTree, Name: "dir"},
		{Type: KindBlob, Name: "file"},
	}}
	if _, ok := tr.FindEntry("missing"); ok {
		t.Fatalf("expected missing entry to report not found")
	}
	e, ok := tr.FindEntry("file")
	if !ok || e.Type != KindBlob {
		t.Fatalf("expected to find blob entry named file, got %+v ok=%v", e, ok)
	}
}

func genTreeEntry(t *rapid.T) TreeEntry {
	isBlob := rapid.Bool().Draw(t, "isBlob")
	kind := KindTree
	if isBlob {
		kind = KindBlob
	}
	name := rapid.StringMatching(`[a-zA-Z0-9_.-]{1,12}`).Draw(t, "name")
	var hash Hash
	b := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "hashBytes")
	copy(hash[:], b)

	entry := TreeEntry{
		Type:     kind,
		Name:     name,
		Modified: time.Unix(rapid.Int64Range(0, 2_000_000_000).Draw(t, "mtime"), 0).UTC(),
		Permissions: Permissions{
			Kind: "file",
			Mode: uint32(rapid.IntRange(0, 0o777).Draw(t, "mode")),
			Uid:  uint32(rapid.IntRange(0, 1000).Draw(t, "uid")),
			Gid:  uint32(rapid.IntRange(0, 1000).Draw(t, "gid")),
		},
		Hash: hash,
	}
	if isBlob {
		entry.Size = uint64(rapid.IntRange(0, 1<<20).Draw(t, "size"))
		entry.IsSymlink = rapid.Bool().Draw(t, "isSymlink")
	}
	return entry
}

// TestPropertyTreeRoundTrip checks spec's round-trip property: serializing
// and deserializing a Tree yields an equal value, and the hash of the
// re-serialized value equals the original hash.
func TestPropertyTreeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := make(map[string]bool)
		var entries []TreeEntry
		n := rapid.IntRange(0, 6).Draw(t, "n")
		for i := 0; i < n; i++ {
			e := genTreeEntry(t)
			if names[e.Name] {
				continue
			}
			names[e.Name] = true
			entries = append(entries, e)
		}
		tr := Tree{Entries: entries}

		h1, err := tr.HashOf()
		if err != nil {
			t.Fatalf("HashOf: %v", err)
		}

		data, err := tr.CanonicalJSON()
		if err != nil {
			t.Fatalf("CanonicalJSON: %v", err)
		}

		parsed, err := ParseTree(data)
		if err != nil {
			t.Fatalf("ParseTree: %v", err)
		}

		h2, err := parsed.HashOf()
		if err != nil {
			t.Fatalf("HashOf(parsed): %v", err)
		}
		if h1 != h2 {
			t.Fatalf("hash changed across round trip: %v != %v", h1, h2)
		}

		data2, err := parsed.CanonicalJSON()
		if err != nil {
			t.Fatalf("CanonicalJSON(parsed): %v", err)
		}
		if string(data) != string(data2) {
			t.Fatalf("re-serialization not byte-identical:\n%s\nvs\n%s", data, data2)
		}
	})
}
