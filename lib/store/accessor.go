package store

import (
	"context"
	"github.com/ValentinKolb/tKV/lib/tree"
)

// resolveDirectory walks every segment of path from root and returns the last directory.
// With create set missing directories are created, otherwise a missing segment fails with tree.ErrNotFound.
func resolveDirectory(ctx context.Context, root tree.Directory, path string, create bool) (tree.Directory, error) {
	dir := root
	for _, name := range splitPath(path) {
		next, err := dir.Directory(ctx, name, create)
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}

// resolveLeafLocation resolves all but the last segment of path as directories and returns
// the parent directory together with the last segment.
func resolveLeafLocation(ctx context.Context, root tree.Directory, path string, create bool) (tree.Directory, string, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, "", WrapError(RetCInvalidArguments, "empty key", tree.ErrInvalidName)
	}
	dir := root
	for _, name := range segments[:len(segments)-1] {
		next, err := dir.Directory(ctx, name, create)
		if err != nil {
			return nil, "", err
		}
		dir = next
	}
	return dir, segments[len(segments)-1], nil
}

// openLeaf returns (and with create set creates) the leaf at path
func openLeaf(ctx context.Context, root tree.Directory, path string, create bool) (tree.Leaf, error) {
	dir, name, err := resolveLeafLocation(ctx, root, path, create)
	if err != nil {
		return nil, err
	}
	return dir.Leaf(ctx, name, create)
}
