package fstree

import (
	"context"
	"errors"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/lib/tree"
	treetesting "github.com/ValentinKolb/tKV/lib/tree/testing"
	"github.com/spf13/afero"
	"strings"
	"testing"
)

func memFactory(tb testing.TB) tree.Directory {
	t, err := NewFSTree(afero.NewMemMapFs(), "/tree")
	if err != nil {
		tb.Fatalf("failed to create tree: %v", err)
	}
	return t
}

func osFactory(tb testing.TB) tree.Directory {
	t, err := NewFSTree(afero.NewOsFs(), tb.TempDir())
	if err != nil {
		tb.Fatalf("failed to create tree: %v", err)
	}
	return t
}

func Test(t *testing.T) {
	treetesting.RunTreeTests(t, "FSTree(mem)", memFactory)
	treetesting.RunTreeTests(t, "FSTree(os)", osFactory)
}

func Benchmark(b *testing.B) {
	treetesting.RunTreeBenchmarks(b, "FSTree(os)", osFactory)
}

func TestLayout(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	root, err := NewFSTree(fsys, "/data")
	if err != nil {
		t.Fatalf("NewFSTree failed: %v", err)
	}

	dir, err := root.Directory(ctx, "app", true)
	if err != nil {
		t.Fatalf("Directory failed: %v", err)
	}
	leaf, err := dir.Leaf(ctx, "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}
	w, err := leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Writable failed: %v", err)
	}
	if _, err := w.Write([]byte("value")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// the staged write lives in a hidden temp file until Close
	infos, err := afero.ReadDir(fsys, "/data/app")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected leaf and temp file on disk, got %d entries", len(infos))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := afero.ReadFile(fsys, "/data/app/key")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("Expected 'value' on disk, got %q", data)
	}
	infos, _ = afero.ReadDir(fsys, "/data/app")
	for _, info := range infos {
		if strings.HasPrefix(info.Name(), tempPrefix) {
			t.Errorf("Temp file %s left behind after Close", info.Name())
		}
	}
}

func TestAbortRemovesTempFile(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	root, _ := NewFSTree(fsys, "/data")
	leaf, err := root.Leaf(ctx, "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}
	w, err := leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Writable failed: %v", err)
	}
	_, _ = w.Write([]byte("discarded"))
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	infos, _ := afero.ReadDir(fsys, "/data")
	if len(infos) != 1 || infos[0].Name() != "key" {
		t.Errorf("Expected only the leaf after Abort, got %d entries", len(infos))
	}
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	root, _ := NewFSTree(fsys, "/data")
	if err := root.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := fsys.RemoveAll("/data"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if err := root.Ping(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable after base dir removal, got %v", err)
	}
}

func TestReservedTempNames(t *testing.T) {
	ctx := context.Background()
	root, _ := NewFSTree(afero.NewMemMapFs(), "/data")
	name := tempPrefix + "x"

	if _, err := root.Leaf(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
		t.Errorf("Leaf: expected ErrInvalidName for a reserved name, got %v", err)
	}
	if _, err := root.Directory(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
		t.Errorf("Directory: expected ErrInvalidName for a reserved name, got %v", err)
	}
	if err := root.Remove(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
		t.Errorf("Remove: expected ErrInvalidName for a reserved name, got %v", err)
	}

	// a store never sees a value it can not enumerate
	s, err := store.Open(ctx, root, store.Config{Name: "app", StoreName: "notes"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.SetItem(ctx, name, "v"); !errors.Is(err, store.ErrInvalidArguments) {
		t.Errorf("SetItem: expected ErrInvalidArguments for a reserved name, got %v", err)
	}
	if _, err := s.SetItem(ctx, "visible", "v"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	n, err := s.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if n != 1 || len(keys) != 1 || keys[0] != "visible" {
		t.Errorf("Expected one visible key, got length %d and keys %v", n, keys)
	}
}
