// Package memtree implements a thread-safe, in-memory tree engine that satisfies the
// tree.Directory interface. Data is held entirely in memory; it can be persisted and
// restored with binary snapshots.
//
// Key Features:
//   - Lock-free child maps (xsync.MapOf) for concurrent get-or-create of children
//   - Atomic leaf replacement: a Writable stages bytes and swaps them in on Close
//   - Stale handle detection: handles of removed nodes fail with tree.ErrNotFound
//   - Deterministic enumeration in byte-wise name order
//   - Binary snapshots (Save/Load) used by the rafttree engine for RAFT snapshots
//
// Snapshot Format:
//
//	magic "MEMTREE\x00" | version (uint8) | root directory
//
//	directory := count (uint64) | count * (kind (uint8) | name length (uint32) | name | body)
//	body      := directory                          (kind == directory)
//	           | data length (uint32) | data        (kind == leaf)
//
// All integers are little endian. Children are written in name order, so two snapshots of
// the same tree are byte-identical.
//
// Usage Example:
//
//	root := memtree.NewMemTree()
//	dir, err := root.Directory(ctx, "app", true)
//	leaf, err := dir.Leaf(ctx, "greeting", true)
//
//	w, err := leaf.Writable(ctx)
//	defer w.Abort()
//	_, err = w.Write([]byte("hello"))
//	err = w.Close()
package memtree
