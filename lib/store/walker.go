package store

import (
	"context"
	"github.com/ValentinKolb/tKV/lib/tree"
)

// visitor is called by walk for every leaf with its path relative to the walk root.
// Returning done == true stops the walk and result becomes the result of walk.
type visitor[T any] func(ctx context.Context, leaf tree.Leaf, path string) (result T, done bool, err error)

// walk traverses dir depth-first in the order reported by Range and calls visit for every leaf.
// base is prepended to the paths of all nodes found (use "" for the walk root).
// The first visitor that reports done (or fails) stops the traversal on every level.
func walk[T any](ctx context.Context, dir tree.Directory, base string, visit visitor[T]) (T, bool, error) {
	var (
		zero   T
		result T
		done   bool
		err    error
	)
	rangeErr := dir.Range(ctx, func(entry tree.Entry) bool {
		path := entry.Name
		if base != "" {
			path = base + tree.Separator + entry.Name
		}
		switch node := entry.Node.(type) {
		case tree.Directory:
			result, done, err = walk(ctx, node, path, visit)
		case tree.Leaf:
			result, done, err = visit(ctx, node, path)
		}
		return err == nil && !done
	})
	switch {
	case err != nil:
		return zero, false, err
	case rangeErr != nil:
		return zero, false, rangeErr
	case !done:
		return zero, false, nil
	}
	return result, true, nil
}
