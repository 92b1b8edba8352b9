package fstree

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var log = logger.GetLogger("tree")

const (
	// tempPrefix marks staged writes, entries with this prefix are hidden from Range
	tempPrefix = ".tkv-tmp-"
	dirPerm    = 0o755
	filePerm   = 0o644
)

// FSTree is a tree stored as directories and files below a base path of an afero.Fs.
// The value itself is the root directory.
type FSTree struct {
	dirHandle
}

// NewFSTree creates (if needed) the base directory on the file system and returns the root of the tree.
//
// Usage:
//
//	root, err := fstree.NewFSTree(afero.NewOsFs(), "/var/lib/tkv")
func NewFSTree(fsys afero.Fs, base string) (*FSTree, error) {
	if err := fsys.MkdirAll(base, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", base, err)
	}
	return &FSTree{dirHandle{fs: fsys, path: base}}, nil
}

// Ping checks that the base directory is still reachable
func (t *FSTree) Ping(_ context.Context) error {
	info, err := t.fs.Stat(t.path)
	if err != nil {
		return fmt.Errorf("%w: %v", tree.ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", tree.ErrUnavailable, t.path)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// mapError converts file system errors into the tree sentinel errors
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", tree.ErrNotFound, err)
	default:
		return err
	}
}

// statKind returns the kind of the node at path
func statKind(fsys afero.Fs, path string) (tree.Kind, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return 0, mapError(err)
	}
	if info.IsDir() {
		return tree.KindDirectory, nil
	}
	return tree.KindLeaf, nil
}

// --------------------------------------------------------------------------
// Directory handle
// --------------------------------------------------------------------------

type dirHandle struct {
	fs   afero.Fs
	path string
	name string
}

func (d *dirHandle) Name() string {
	return d.name
}

func (d *dirHandle) Kind() tree.Kind {
	return tree.KindDirectory
}

// exists makes sure the directory itself was not removed
func (d *dirHandle) exists() error {
	kind, err := statKind(d.fs, d.path)
	if err != nil {
		return err
	}
	if kind != tree.KindDirectory {
		return tree.ErrNotFound
	}
	return nil
}

// validateName rejects invalid names and the names of staged writes, which Range never reports
func validateName(name string) error {
	if err := tree.ValidateName(name); err != nil {
		return err
	}
	if strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("%w: prefix %s is reserved", tree.ErrInvalidName, tempPrefix)
	}
	return nil
}

// child resolves (and optionally creates) the named child with the expected kind
func (d *dirHandle) child(name string, kind tree.Kind, create bool) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := d.exists(); err != nil {
		return "", err
	}
	p := filepath.Join(d.path, name)

	existing, err := statKind(d.fs, p)
	if err == nil {
		if existing != kind {
			return "", tree.ErrTypeMismatch
		}
		return p, nil
	}
	if !errors.Is(err, tree.ErrNotFound) || !create {
		return "", err
	}

	// create the child, a concurrent creation of the same kind is not an error
	switch kind {
	case tree.KindDirectory:
		err = d.fs.Mkdir(p, dirPerm)
	default:
		var f afero.File
		f, err = d.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if err == nil {
			err = f.Close()
		}
	}
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return "", mapError(err)
	}
	if existing, err = statKind(d.fs, p); err != nil {
		return "", err
	}
	if existing != kind {
		return "", tree.ErrTypeMismatch
	}
	return p, nil
}

func (d *dirHandle) Directory(_ context.Context, name string, create bool) (tree.Directory, error) {
	p, err := d.child(name, tree.KindDirectory, create)
	if err != nil {
		return nil, err
	}
	return &dirHandle{fs: d.fs, path: p, name: name}, nil
}

func (d *dirHandle) Leaf(_ context.Context, name string, create bool) (tree.Leaf, error) {
	p, err := d.child(name, tree.KindLeaf, create)
	if err != nil {
		return nil, err
	}
	return &leafHandle{fs: d.fs, path: p, name: name}, nil
}

func (d *dirHandle) Range(_ context.Context, f func(entry tree.Entry) bool) error {
	// afero.ReadDir returns the entries sorted by name
	infos, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return mapError(err)
	}
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, tempPrefix) {
			continue
		}
		p := filepath.Join(d.path, name)
		entry := tree.Entry{Name: name}
		if info.IsDir() {
			entry.Kind = tree.KindDirectory
			entry.Node = &dirHandle{fs: d.fs, path: p, name: name}
		} else {
			entry.Kind = tree.KindLeaf
			entry.Node = &leafHandle{fs: d.fs, path: p, name: name}
		}
		if !f(entry) {
			return nil
		}
	}
	return nil
}

func (d *dirHandle) Remove(_ context.Context, name string, recursive bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	p := filepath.Join(d.path, name)
	kind, err := statKind(d.fs, p)
	if err != nil {
		return err
	}

	if kind == tree.KindDirectory {
		if recursive {
			return mapError(d.fs.RemoveAll(p))
		}
		empty, err := afero.IsEmpty(d.fs, p)
		if err != nil {
			return mapError(err)
		}
		if !empty {
			return tree.ErrNotEmpty
		}
	}
	return mapError(d.fs.Remove(p))
}

// --------------------------------------------------------------------------
// Leaf handle
// --------------------------------------------------------------------------

type leafHandle struct {
	fs   afero.Fs
	path string
	name string
}

func (l *leafHandle) Name() string {
	return l.name
}

func (l *leafHandle) Kind() tree.Kind {
	return tree.KindLeaf
}

func (l *leafHandle) Read(_ context.Context) ([]byte, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, mapError(err)
	}
	return data, nil
}

// Writable stages the new contents in a hidden temp file next to the leaf.
// Close renames the temp file over the leaf, which replaces the contents atomically.
func (l *leafHandle) Writable(_ context.Context) (tree.Writable, error) {
	kind, err := statKind(l.fs, l.path)
	if err != nil {
		return nil, err
	}
	if kind != tree.KindLeaf {
		return nil, tree.ErrTypeMismatch
	}

	tmp := filepath.Join(filepath.Dir(l.path), tempPrefix+uuid.NewString())
	f, err := l.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, mapError(err)
	}
	return &fileWritable{leaf: l, tmp: tmp, file: f}, nil
}

// --------------------------------------------------------------------------
// Writable
// --------------------------------------------------------------------------

type fileWritable struct {
	mu   sync.Mutex
	leaf *leafHandle
	tmp  string
	file afero.File
	done bool
}

func (w *fileWritable) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return 0, tree.ErrClosed
	}
	return w.file.Write(p)
}

func (w *fileWritable) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return tree.ErrClosed
	}
	w.done = true

	if err := w.file.Close(); err != nil {
		w.discard()
		return err
	}

	// the leaf may have been removed while the write was staged
	if kind, err := statKind(w.leaf.fs, w.leaf.path); err != nil || kind != tree.KindLeaf {
		w.discard()
		if err == nil {
			err = tree.ErrTypeMismatch
		}
		return err
	}
	if err := w.leaf.fs.Rename(w.tmp, w.leaf.path); err != nil {
		w.discard()
		return mapError(err)
	}
	return nil
}

func (w *fileWritable) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	_ = w.file.Close()
	w.discard()
	return nil
}

// discard removes the temp file, failures are only logged since the file is hidden anyway
func (w *fileWritable) discard() {
	if err := w.leaf.fs.Remove(w.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warningf("failed to remove temp file %s: %v", w.tmp, err)
	}
}
