// Package fstree implements the tree.Directory interface on top of an afero.Fs.
// Directories map to directories and leaves map to regular files below a base path, so
// the same engine runs on the real file system (afero.NewOsFs) and fully in memory
// (afero.NewMemMapFs) for tests.
//
// Writes are staged in a hidden temp file (prefix ".tkv-tmp-") in the same directory and
// renamed over the leaf on Close. Readers therefore always observe either the old or the
// new contents. Temp files are never reported by Range.
//
// Names are validated with tree.ValidateName before they touch the file system, so a
// name can never escape the base path.
package fstree
