// Package sqltree implements the tree.Directory interface on a single SQLite table using
// the pure Go driver modernc.org/sqlite (no cgo).
//
// Schema:
//
//	nodes(id INTEGER PRIMARY KEY AUTOINCREMENT, parent INTEGER, name TEXT, kind INTEGER, data BLOB)
//	UNIQUE(parent, name)
//
// The root directory has the virtual id 0. Ids are never reused, so a handle of a removed
// node can not alias a node created later under the same name. Recursive removal is a
// single recursive CTE delete, and committing a Writable is a single UPDATE, so a leaf
// always holds either its old or its new contents.
//
// The engine uses one database connection. Range materializes the children before
// yielding them, which allows the callback to keep using the tree.
package sqltree
