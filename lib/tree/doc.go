// Package tree defines the contract of a hierarchical storage substrate: a tree of named
// directory nodes terminating in named leaf nodes that hold opaque bytes.
//
// The package focuses on:
//   - A small set of handle interfaces (Directory, Leaf, Writable) every engine implements
//   - Sentinel errors that engines return so callers can react with errors.Is
//   - Name validation shared by all engines
//
// Key Components:
//
//   - Directory: get-or-create of child directories and leaves, enumeration with Range
//     and removal of children (optionally recursive).
//
//   - Leaf / Writable: full reads and exclusive overwrites. A Writable buffers or stages
//     the new contents and replaces the old contents atomically on Close. Abort discards
//     the staged contents and is safe to defer.
//
//   - Pinger: an optional interface for roots that can report reachability. The store
//     layer uses it for its support check.
//
// Engines:
//
//	The engines sub packages provide the implementations:
//
//	- memtree: in-memory tree with binary snapshots (github.com/ValentinKolb/tKV/lib/tree/engines/memtree)
//	- fstree: directories and files on an afero.Fs (github.com/ValentinKolb/tKV/lib/tree/engines/fstree)
//	- sqltree: nodes in a SQLite table (github.com/ValentinKolb/tKV/lib/tree/engines/sqltree)
//	- rafttree: a memtree replicated with dragonboat (github.com/ValentinKolb/tKV/lib/tree/engines/rafttree)
//
// The testing package (github.com/ValentinKolb/tKV/lib/tree/testing) contains the conformance
// suite (RunTreeTests) and benchmarks (RunTreeBenchmarks) every engine runs.
package tree
