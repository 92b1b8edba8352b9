package tree

import (
	"context"
	"errors"
	"io"
	"strings"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Implementation names a tree engine (used to select the engine of a server shard)
type Implementation string

const (
	ImplMem    Implementation = "mem"
	ImplFS     Implementation = "fs"
	ImplSQLite Implementation = "sqlite"
	ImplRaft   Implementation = "raft"
)

// Kind distinguishes the two node types of a tree
type Kind uint8

const (
	KindDirectory Kind = iota // Node holding named children
	KindLeaf                  // Node holding opaque bytes
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "Directory"
	case KindLeaf:
		return "Leaf"
	default:
		return "Unknown"
	}
}

// Separator is the hierarchy delimiter used by logical paths on top of a tree.
// It is never allowed inside a single node name.
const Separator = "/"

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned when a named child does not exist (and was not requested to be created)
	ErrNotFound = errors.New("tree: node not found")
	// ErrTypeMismatch is returned when a child exists but has the other Kind
	ErrTypeMismatch = errors.New("tree: node has a different kind")
	// ErrNotEmpty is returned when a non-empty directory is removed without the recursive flag
	ErrNotEmpty = errors.New("tree: directory not empty")
	// ErrInvalidName is returned for names that can not be used as a single node name
	ErrInvalidName = errors.New("tree: invalid node name")
	// ErrUnavailable is returned when the substrate can not be reached at all
	ErrUnavailable = errors.New("tree: substrate unavailable")
	// ErrClosed is returned when a Writable is used after Close or Abort
	ErrClosed = errors.New("tree: writable already closed")
)

// ValidateName checks that name can be used as the name of a single node.
// Empty names, "." and ".." and names containing the Separator are rejected.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, Separator) {
		return ErrInvalidName
	}
	return nil
}

// --------------------------------------------------------------------------
// Node Interfaces
// --------------------------------------------------------------------------

// Node is the common part of every tree node handle.
type Node interface {
	// Name returns the name of the node inside its parent (empty for the root)
	Name() string
	// Kind returns whether the node is a directory or a leaf
	Kind() Kind
}

// Entry is a single child as reported by Directory.Range.
type Entry struct {
	Name string
	Kind Kind
	// Node is the handle of the child. It is a Directory if Kind is KindDirectory and a Leaf otherwise.
	Node Node
}

// Directory is a node holding uniquely named children.
// Handles are cheap and may become stale: operations on a handle whose node was removed return ErrNotFound.
type Directory interface {
	Node

	// Directory returns the child directory with the given name.
	// If create is set a missing directory is created, otherwise ErrNotFound is returned.
	// If the child exists but is a leaf, ErrTypeMismatch is returned.
	Directory(ctx context.Context, name string, create bool) (dir Directory, err error)

	// Leaf returns the child leaf with the given name.
	// If create is set a missing leaf is created with empty contents, otherwise ErrNotFound is returned.
	// If the child exists but is a directory, ErrTypeMismatch is returned.
	Leaf(ctx context.Context, name string, create bool) (leaf Leaf, err error)

	// Range calls f for every child of the directory until f returns false.
	// The order is implementation defined but must be the same for two calls on an unmodified directory.
	// Children must not be removed from this directory while Range is running.
	Range(ctx context.Context, f func(entry Entry) bool) (err error)

	// Remove deletes the named child. Directories with children are only removed if recursive is set,
	// otherwise ErrNotEmpty is returned. A missing child results in ErrNotFound.
	Remove(ctx context.Context, name string, recursive bool) (err error)
}

// Leaf is a node holding an opaque byte payload.
type Leaf interface {
	Node

	// Read returns a copy of the full contents of the leaf.
	Read(ctx context.Context) (data []byte, err error)

	// Writable opens the leaf for an exclusive overwrite.
	// The new contents become visible atomically when the Writable is closed.
	Writable(ctx context.Context) (w Writable, err error)
}

// Writable collects the new contents of a leaf.
type Writable interface {
	io.Writer

	// Close commits the written bytes, replacing the previous contents of the leaf.
	Close() (err error)

	// Abort discards the written bytes. Calling Abort after Close or Abort is a no-op,
	// so it can always be deferred.
	Abort() (err error)
}

// Pinger is implemented by roots that can report whether the substrate is reachable.
type Pinger interface {
	Ping(ctx context.Context) (err error)
}
