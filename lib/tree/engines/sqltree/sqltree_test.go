package sqltree

import (
	"context"
	"errors"
	"github.com/ValentinKolb/tKV/lib/tree"
	treetesting "github.com/ValentinKolb/tKV/lib/tree/testing"
	"path/filepath"
	"testing"
)

func memFactory(tb testing.TB) tree.Directory {
	t, err := NewSQLTree(context.Background(), ":memory:")
	if err != nil {
		tb.Fatalf("failed to create tree: %v", err)
	}
	tb.Cleanup(func() { _ = t.Close() })
	return t
}

func fileFactory(tb testing.TB) tree.Directory {
	t, err := NewSQLTree(context.Background(), filepath.Join(tb.TempDir(), "tree.db"))
	if err != nil {
		tb.Fatalf("failed to create tree: %v", err)
	}
	tb.Cleanup(func() { _ = t.Close() })
	return t
}

func Test(t *testing.T) {
	treetesting.RunTreeTests(t, "SQLTree(mem)", memFactory)
	treetesting.RunTreeTests(t, "SQLTree(file)", fileFactory)
}

func Benchmark(b *testing.B) {
	treetesting.RunTreeBenchmarks(b, "SQLTree(mem)", memFactory)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "tree.db")

	root, err := NewSQLTree(ctx, dsn)
	if err != nil {
		t.Fatalf("NewSQLTree failed: %v", err)
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
	_, _ = w.Write([]byte("persisted"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := root.Close(); err != nil {
		t.Fatalf("Closing the tree failed: %v", err)
	}

	root, err = NewSQLTree(ctx, dsn)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer root.Close()

	dir, err = root.Directory(ctx, "app", false)
	if err != nil {
		t.Fatalf("Directory lookup after reopen failed: %v", err)
	}
	leaf, err = dir.Leaf(ctx, "key", false)
	if err != nil {
		t.Fatalf("Leaf lookup after reopen failed: %v", err)
	}
	data, err := leaf.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "persisted" {
		t.Errorf("Expected 'persisted', got %q", data)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	root, err := NewSQLTree(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewSQLTree failed: %v", err)
	}
	leaf, err := root.Leaf(ctx, "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}
	if err := root.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := root.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := root.Ping(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from Ping, got %v", err)
	}
	if _, err := leaf.Read(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from Read, got %v", err)
	}
	if _, err := root.Directory(ctx, "dir", true); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from Directory, got %v", err)
	}
}

func TestWritableUsesCallerContext(t *testing.T) {
	root := memFactory(t)

	leaf, err := root.Leaf(context.Background(), "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Writable failed: %v", err)
	}
	_, _ = w.Write([]byte("never committed"))
	cancel()
	if err := w.Close(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the commit to fail with context.Canceled, got %v", err)
	}

	data, err := leaf.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected the leaf to stay empty, got %q", data)
	}
}
