// Package store provides a flat, namespaced key-value interface on top of a tree
// (see package tree). Every value is persisted as a leaf; keys are paths below the
// directory of the store.
//
// The package focuses on:
//   - A unified interface (IStore) implemented by the local Store and the RPC client
//   - Scoping: many stores share one tree root, isolated by their path prefix
//   - Deterministic traversal for Iterate, Length, Key and Keys
//
// Key Components:
//
//   - Path Codec (path.go): Derives the prefix of a store from its configuration
//     ("<name>/" for the default store, "<name>/<storeName>/" otherwise) and turns keys of
//     any type into paths. Non-string keys are converted with fmt and logged.
//
//   - Tree Accessor (accessor.go): Resolves a path from the root, optionally creating the
//     missing directories, and returns a directory or the location of a leaf.
//
//   - Tree Walker (walker.go): A depth-first traversal that calls a visitor for every leaf
//     with its path relative to the store. A visitor can stop the walk on every level.
//
//   - Store (store.go): The store operations composed from the parts above and a value codec
//     (see package codec).
//
//   - Driver (driver.go): Readiness bookkeeping (InitStorage, SupportCheck) and optional
//     completion callbacks on top of a Store.
//
//   - Error System: *Error with a RetCode. Use errors.Is with the sentinel errors
//     (ErrNotFound, ErrUnavailable, ErrInvalidArguments, ErrNotInitialized). Errors of the
//     tree that the store does not classify are returned unchanged.
//
// Keys as Paths:
//
//	A key containing "/" addresses a nested leaf: "a/b" creates the directory "a" with the
//	leaf "b", and enumeration reports it as "a/b". Redundant separators are ignored. With
//	Config.EscapeKeys "%" and "/" are percent-escaped, so every key is exactly one leaf.
//
// Enumeration Order:
//
//	Iterate, Key and Keys visit the entries in the same order as long as the store is not
//	modified. The order is depth-first in the child order of the tree engine (name order
//	for all engines in this module).
//
// Thread Safety:
//
//	A Store holds no tree handles between calls and adds no locking. Concurrent operations
//	on different keys are safe as long as the tree engine is safe for concurrent use.
//	Concurrent operations on the same key must be serialized by the caller.
//
// Usage:
//
//	root := memtree.NewMemTree()
//	s, err := store.Open(ctx, root, store.Config{Name: "app", StoreName: "notes"},
//	    store.WithCodec(codec.NewTypedCodec()))
//
//	_, err = s.SetItem(ctx, "greeting", "hello")
//	v, err := s.GetItem(ctx, "greeting")
//	keys, err := s.Keys(ctx)
package store
