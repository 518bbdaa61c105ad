package objects

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity names an author or committer. Discovering one is an
// external collaborator's job; callers supply one.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit records a snapshot: the root tree it captured, its position in
// the linear commit chain, and who/when made it. The depth-0 root
// commit is synthetic, has no parents, and its Root is the hash of
// EmptyTree.
type Commit struct {
	Author     Identity `json:"author"`
	Committer  Identity `json:"committer"`
	AuthorTime time.Time `json:"author_time"`
	CommitTime time.Time `json:"commit_time"`
	Message    string    `json:"message"`
	Depth      uint64    `json:"depth"`
	Parents    []Hash    `json:"parents"`
	Root       TreeRef   `json:"root"`
}

// MarshalJSON normalizes a nil Parents slice to an empty array, the same
// reasoning as Tree.MarshalJSON: the root commit's canonical form must
// not vary with how the zero-parent slice happened to be constructed.
func (c Commit) MarshalJSON() ([]byte, error) {
	type alias Commit
	parents := c.Parents
	if parents == nil {
		parents = []Hash{}
	}
	a := alias(c)
	a.Parents = parents
	return json.Marshal(a)
}

// Validate checks the depth/parent invariants: depth>0 commits have
// exactly one parent, and depth == parent.depth+1 (the parent-depth
// half of that check is the caller's responsibility, since it requires
// loading the parent).
func (c Commit) Validate() error {
	if c.Depth == 0 {
		if len(c.Parents) != 0 {
			return fmt.Errorf("root commit (depth 0) must have no parents, got %d", len(c.Parents))
		}
		return nil
	}
	if len(c.Parents) != 1 {
		return fmt.Errorf("commit at depth %d must have exactly one parent, got %d", c.Depth, len(c.Parents))
	}
	return nil
}

// CanonicalJSON returns the bytes a Commit hashes to and is stored as.
func (c Commit) CanonicalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid commit: %w", err)
	}
	return json.Marshal(c)
}

// HashOf computes the CommitRef of c.
func (c Commit) HashOf() (CommitRef, error) {
	b, err := c.CanonicalJSON()
	if err != nil {
		return CommitRef{}, err
	}
	return Sum(b), nil
}

// ParseCommit decodes a Commit from its canonical JSON bytes.
func ParseCommit(data []byte) (Commit, error) {
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return Commit{}, fmt.Errorf("parse commit: %w", err)
	}
	return c, nil
}

// RootCommit builds the synthetic depth-0 commit whose root is the
// canonical empty tree.
func RootCommit(now time.Time) (Commit, error) {
	empty := EmptyTree()
	rootHash, err := empty.HashOf()
	if err != nil {
		return Commit{}, err
	}
	return Commit{
		Author:     Identity{Name: "gitty", Email: "gitty@localhost"},
		Committer:  Identity{Name: "gitty", Email: "gitty@localhost"},
		AuthorTime: now,
		CommitTime: now,
		Message:    "initial empty commit",
		Depth:      0,
		Parents:    []Hash{},
		Root:       rootHash,
	}, nil
}
