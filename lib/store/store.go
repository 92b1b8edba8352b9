package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/codec"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Store is the local implementation of IStore. It maps the flat key space of one scope onto a tree.
// The store holds no tree handles between calls, every operation resolves its path from the root.
type Store struct {
	root     tree.Directory
	cfg      Config
	defaults Config
	prefix   string
	codec    codec.ICodec
}

// Open opens the store described by cfg on root. Empty fields of cfg are filled from the defaults
// (see WithDefaults), and the directory chain of the store is created if it does not exist.
//
// Usage:
//
//	s, err := store.Open(ctx, memtree.NewMemTree(), store.Config{Name: "app", StoreName: "notes"})
//	_, err = s.SetItem(ctx, "a", "hello")
func Open(ctx context.Context, root tree.Directory, cfg Config, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if root == nil {
		return nil, WrapError(RetCUnavailable, "no tree root", tree.ErrUnavailable)
	}

	cfg = cfg.Merge(o.defaults)
	s := &Store{
		root:     root,
		cfg:      cfg,
		defaults: o.defaults,
		prefix:   scopePrefix(cfg, o.defaults),
		codec:    o.codec,
	}
	if len(splitPath(s.prefix)) == 0 {
		return nil, NewError(RetCInvalidArguments, "the configuration has no database name")
	}
	if _, err := resolveDirectory(ctx, root, s.prefix, true); err != nil {
		return nil, s.wrap(err, "failed to create store directory %s", s.prefix)
	}
	return s, nil
}

// Prefix returns the path of the store below the tree root (always ending with the separator)
func (s *Store) Prefix() string {
	return s.prefix
}

// wrap turns tree errors the store reports with its own codes into a *Error, other errors are returned unchanged
func (s *Store) wrap(err error, format string, args ...any) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return err
	case errors.Is(err, tree.ErrNotFound):
		return WrapError(RetCNotFound, fmt.Sprintf(format, args...), err)
	case errors.Is(err, tree.ErrInvalidName):
		return WrapError(RetCInvalidArguments, fmt.Sprintf(format, args...), err)
	default:
		return err
	}
}

// keyPath returns the full path of a key. A key without any path segment would address
// the store directory itself and is rejected.
func (s *Store) keyPath(key any) (string, error) {
	k := normalizeKey(key, s.cfg.EscapeKeys)
	if len(splitPath(k)) == 0 {
		return "", WrapError(RetCInvalidArguments, "empty key", tree.ErrInvalidName)
	}
	return s.prefix + k, nil
}

// relativeKey converts a path found by walk into the key reported to callers
func (s *Store) relativeKey(path string) string {
	if s.cfg.EscapeKeys {
		return unescapePath(path)
	}
	return path
}

// storeDir resolves the directory of the store without creating it
func (s *Store) storeDir(ctx context.Context) (tree.Directory, error) {
	dir, err := resolveDirectory(ctx, s.root, s.prefix, false)
	if err != nil {
		return nil, s.wrap(err, "store %s does not exist", s.prefix)
	}
	return dir, nil
}

// writeLeaf atomically replaces the contents of leaf, the writable is released on every path
func writeLeaf(ctx context.Context, leaf tree.Leaf, data []byte) error {
	w, err := leaf.Writable(ctx)
	if err != nil {
		return err
	}
	defer w.Abort()
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Iterate(ctx context.Context, f IteratorFunc) (any, error) {
	dir, err := s.storeDir(ctx)
	if err != nil {
		return nil, err
	}
	iterationNumber := 0
	res, _, err := walk(ctx, dir, "", func(ctx context.Context, leaf tree.Leaf, path string) (any, bool, error) {
		data, err := leaf.Read(ctx)
		if err != nil {
			return nil, false, s.wrap(err, "failed to read %s", path)
		}
		value, err := s.codec.Decode(data)
		if err != nil {
			return nil, false, err
		}
		iterationNumber++
		result, stop := f(value, s.relativeKey(path), iterationNumber)
		return result, stop, nil
	})
	return res, err
}

func (s *Store) GetItem(ctx context.Context, key any) (any, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	leaf, err := openLeaf(ctx, s.root, path, false)
	if err != nil {
		return nil, s.wrap(err, "key %s does not exist", path)
	}
	data, err := leaf.Read(ctx)
	if err != nil {
		return nil, s.wrap(err, "failed to read %s", path)
	}
	return s.codec.Decode(data)
}

func (s *Store) SetItem(ctx context.Context, key any, value any) (any, error) {
	data, err := s.codec.Encode(value)
	if err != nil {
		return nil, WrapError(RetCInvalidArguments, "failed to encode value", err)
	}
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	leaf, err := openLeaf(ctx, s.root, path, true)
	if err != nil {
		return nil, s.wrap(err, "failed to create %s", path)
	}
	if err := writeLeaf(ctx, leaf, data); err != nil {
		return nil, s.wrap(err, "failed to write %s", path)
	}
	return value, nil
}

func (s *Store) RemoveItem(ctx context.Context, key any) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	dir, name, err := resolveLeafLocation(ctx, s.root, path, false)
	if err != nil {
		return s.wrap(err, "key %s does not exist", path)
	}
	return s.wrap(dir.Remove(ctx, name, false), "key %s does not exist", path)
}

func (s *Store) Clear(ctx context.Context) error {
	dir, err := s.storeDir(ctx)
	if err != nil {
		return err
	}

	// collect all names first, removing while the directory is enumerated is not safe on every tree
	var names []string
	if err := dir.Range(ctx, func(entry tree.Entry) bool {
		names = append(names, entry.Name)
		return true
	}); err != nil {
		return s.wrap(err, "failed to list %s", s.prefix)
	}

	for _, name := range names {
		err := dir.Remove(ctx, name, true)
		if err != nil && !errors.Is(err, tree.ErrNotFound) {
			return s.wrap(err, "failed to remove %s%s", s.prefix, name)
		}
	}
	return nil
}

func (s *Store) Length(ctx context.Context) (int, error) {
	dir, err := s.storeDir(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	_, _, err = walk(ctx, dir, "", func(context.Context, tree.Leaf, string) (struct{}, bool, error) {
		count++
		return struct{}{}, false, nil
	})
	if err != nil {
		return 0, s.wrap(err, "failed to walk %s", s.prefix)
	}
	return count, nil
}

func (s *Store) Key(ctx context.Context, n int) (string, bool, error) {
	dir, err := s.storeDir(ctx)
	if err != nil {
		return "", false, err
	}
	if n < 0 {
		return "", false, nil
	}
	key, ok, err := walk(ctx, dir, "", func(_ context.Context, _ tree.Leaf, path string) (string, bool, error) {
		if n == 0 {
			return path, true, nil
		}
		n--
		return "", false, nil
	})
	if err != nil {
		return "", false, s.wrap(err, "failed to walk %s", s.prefix)
	}
	return s.relativeKey(key), ok, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	dir, err := s.storeDir(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	_, _, err = walk(ctx, dir, "", func(_ context.Context, _ tree.Leaf, path string) (struct{}, bool, error) {
		keys = append(keys, s.relativeKey(path))
		return struct{}{}, false, nil
	})
	if err != nil {
		return nil, s.wrap(err, "failed to walk %s", s.prefix)
	}
	return keys, nil
}

func (s *Store) DropInstance(ctx context.Context, opts Config) (string, error) {
	return dropInstance(ctx, s.root, opts, s.cfg, s.defaults)
}

// Drop removes a store or a whole database below root without opening a store first.
// opts.Name is required, a name without store name drops the whole database (see IStore.DropInstance).
func Drop(ctx context.Context, root tree.Directory, opts Config, defaults Config) (string, error) {
	if root == nil {
		return "", WrapError(RetCUnavailable, "no tree root", tree.ErrUnavailable)
	}
	return dropInstance(ctx, root, opts, Config{}, defaults)
}

// dropInstance resolves the target like this: without opts.Name the name and store name of current are used.
// A name without store name drops the whole database, otherwise the store is dropped. Note that the default store
// lives in the database directory, so dropping it drops the whole database.
func dropInstance(ctx context.Context, root tree.Directory, opts, current, defaults Config) (string, error) {
	if opts.Name == "" {
		opts.Name = current.Name
		if opts.StoreName == "" {
			opts.StoreName = current.StoreName
		}
	}
	if opts.Name == "" {
		return "", NewError(RetCInvalidArguments, "invalid arguments: no database name")
	}

	path := opts.Name
	if opts.StoreName != "" {
		path = scopePrefix(opts, defaults)
	}
	if err := dropPath(ctx, root, path); err != nil {
		if errors.Is(err, tree.ErrNotFound) {
			return path, WrapError(RetCNotFound, fmt.Sprintf("%s does not exist", path), err)
		}
		return path, err
	}
	return path, nil
}

// dropPath removes the subtree at path, or every child of root if the path has no segments
func dropPath(ctx context.Context, root tree.Directory, path string) error {
	if len(splitPath(path)) > 0 {
		dir, name, err := resolveLeafLocation(ctx, root, path, false)
		if err != nil {
			return err
		}
		return dir.Remove(ctx, name, true)
	}

	var names []string
	if err := root.Range(ctx, func(entry tree.Entry) bool {
		names = append(names, entry.Name)
		return true
	}); err != nil {
		return err
	}
	for _, name := range names {
		if err := root.Remove(ctx, name, true); err != nil && !errors.Is(err, tree.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Store) Config() Config {
	return s.cfg
}
