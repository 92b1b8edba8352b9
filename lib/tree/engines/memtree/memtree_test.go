package memtree

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/tKV/lib/tree"
	treetesting "github.com/ValentinKolb/tKV/lib/tree/testing"
)

func factory(tb testing.TB) tree.Directory {
	t := NewMemTree()
	tb.Cleanup(func() { _ = t.Close() })
	return t
}

func Test(t *testing.T) {
	treetesting.RunTreeTests(t, "MemTree", factory)
}

func Benchmark(b *testing.B) {
	treetesting.RunTreeBenchmarks(b, "MemTree", factory)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	src := NewMemTree()

	app, err := src.Directory(ctx, "app", true)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	notes, err := app.Directory(ctx, "notes", true)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := src.Directory(ctx, "empty", true); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	values := map[string][]byte{
		"a":      []byte("hello"),
		"b":      []byte("world"),
		"binary": {0, 1, 2, 3, 255},
		"empty":  {},
	}
	for name, value := range values {
		leaf, err := notes.Leaf(ctx, name, true)
		if err != nil {
			t.Fatalf("Failed to create leaf: %v", err)
		}
		w, _ := leaf.Writable(ctx)
		_, _ = w.Write(value)
		if err := w.Close(); err != nil {
			t.Fatalf("Failed to write leaf: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := NewMemTree()
	stale, err := dst.Leaf(ctx, "stale", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := stale.Read(ctx); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected handles from before Load to be stale, got %v", err)
	}
	if _, err := dst.Directory(ctx, "empty", false); err != nil {
		t.Errorf("Expected empty directory to survive the snapshot: %v", err)
	}

	app, err = dst.Directory(ctx, "app", false)
	if err != nil {
		t.Fatalf("Missing app directory after Load: %v", err)
	}
	notes, err = app.Directory(ctx, "notes", false)
	if err != nil {
		t.Fatalf("Missing notes directory after Load: %v", err)
	}
	for name, value := range values {
		leaf, err := notes.Leaf(ctx, name, false)
		if err != nil {
			t.Errorf("Missing leaf %s after Load: %v", name, err)
			continue
		}
		data, err := leaf.Read(ctx)
		if err != nil {
			t.Errorf("Failed to read %s: %v", name, err)
			continue
		}
		if !bytes.Equal(data, value) {
			t.Errorf("Expected %s=%v, got %v", name, value, data)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	m := NewMemTree()
	if err := m.Load(bytes.NewReader([]byte("NOTATREE\x01"))); err == nil {
		t.Errorf("Expected error for invalid magic number")
	}
	if err := m.Load(bytes.NewReader([]byte(magicNum + "\x09"))); err == nil {
		t.Errorf("Expected error for unsupported version")
	}
	if err := m.Load(bytes.NewReader([]byte(magicNum))); err == nil {
		t.Errorf("Expected error for truncated snapshot")
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	m := NewMemTree()
	leaf, err := m.Leaf(ctx, "leaf", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	if err := m.Ping(ctx); err != nil {
		t.Errorf("Expected Ping to succeed, got %v", err)
	}

	_ = m.Close()

	if err := m.Ping(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from Ping, got %v", err)
	}
	if _, err := m.Directory(ctx, "dir", true); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable after Close, got %v", err)
	}
	if _, err := leaf.Read(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable reading after Close, got %v", err)
	}
}
