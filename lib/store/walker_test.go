package store

import (
	"context"
	"errors"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/memtree"
	"reflect"
	"testing"
)

// buildTree creates the leaves at the given paths below root
func buildTree(t *testing.T, root tree.Directory, paths ...string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range paths {
		leaf, err := openLeaf(ctx, root, p, true)
		if err != nil {
			t.Fatalf("openLeaf(%q) failed: %v", p, err)
		}
		if err := writeLeaf(ctx, leaf, []byte(p)); err != nil {
			t.Fatalf("writeLeaf(%q) failed: %v", p, err)
		}
	}
}

func TestWalkOrderAndPaths(t *testing.T) {
	ctx := context.Background()
	root := memtree.NewMemTree()
	buildTree(t, root, "b", "a/y", "a/x/1", "c")

	var visited []string
	_, done, err := walk(ctx, root, "", func(ctx context.Context, leaf tree.Leaf, path string) (struct{}, bool, error) {
		data, err := leaf.Read(ctx)
		if err != nil {
			return struct{}{}, false, err
		}
		if string(data) != path {
			t.Errorf("Leaf at %q holds %q", path, data)
		}
		visited = append(visited, path)
		return struct{}{}, false, nil
	})
	if err != nil || done {
		t.Fatalf("walk returned done=%v err=%v", done, err)
	}

	// memtree reports children in name order, directories are walked depth-first
	expected := []string{"a/x/1", "a/y", "b", "c"}
	if !reflect.DeepEqual(visited, expected) {
		t.Errorf("Expected %v, got %v", expected, visited)
	}
}

func TestWalkBasePath(t *testing.T) {
	ctx := context.Background()
	root := memtree.NewMemTree()
	buildTree(t, root, "x/y")

	path, done, err := walk(ctx, root, "prefix", func(_ context.Context, _ tree.Leaf, path string) (string, bool, error) {
		return path, true, nil
	})
	if err != nil || !done || path != "prefix/x/y" {
		t.Errorf("Expected 'prefix/x/y', got %q (done=%v err=%v)", path, done, err)
	}
}

func TestWalkShortCircuit(t *testing.T) {
	ctx := context.Background()
	root := memtree.NewMemTree()
	buildTree(t, root, "a/1", "a/2", "b/1", "c")

	calls := 0
	res, done, err := walk(ctx, root, "", func(_ context.Context, _ tree.Leaf, path string) (string, bool, error) {
		calls++
		if path == "a/2" {
			return "found " + path, true, nil
		}
		return "ignored", false, nil
	})
	if err != nil || !done {
		t.Fatalf("walk returned done=%v err=%v", done, err)
	}
	if res != "found a/2" {
		t.Errorf("Expected 'found a/2', got %q", res)
	}
	if calls != 2 {
		t.Errorf("Expected the walk to stop on every level after 2 calls, got %d", calls)
	}

	// without a stop the result is the zero value
	res, done, _ = walk(ctx, root, "", func(context.Context, tree.Leaf, string) (string, bool, error) {
		return "ignored", false, nil
	})
	if done || res != "" {
		t.Errorf("Expected zero result without stop, got %q (done=%v)", res, done)
	}
}

func TestWalkError(t *testing.T) {
	ctx := context.Background()
	root := memtree.NewMemTree()
	buildTree(t, root, "a/1", "b")

	boom := errors.New("boom")
	calls := 0
	_, _, err := walk(ctx, root, "", func(context.Context, tree.Leaf, string) (int, bool, error) {
		calls++
		return 0, false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected visitor error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected the walk to stop after the failing visitor, got %d calls", calls)
	}
}

func TestAccessor(t *testing.T) {
	ctx := context.Background()
	root := memtree.NewMemTree()

	if _, err := resolveDirectory(ctx, root, "a/b", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound without create, got %v", err)
	}
	dir, err := resolveDirectory(ctx, root, "/a//b/", true)
	if err != nil {
		t.Fatalf("resolveDirectory failed: %v", err)
	}
	if dir.Name() != "b" {
		t.Errorf("Expected directory b, got %q", dir.Name())
	}

	parent, name, err := resolveLeafLocation(ctx, root, "a/b/leaf", false)
	if err != nil {
		t.Fatalf("resolveLeafLocation failed: %v", err)
	}
	if parent.Name() != "b" || name != "leaf" {
		t.Errorf("Expected (b, leaf), got (%s, %s)", parent.Name(), name)
	}
	if _, err := openLeaf(ctx, root, "a/b/leaf", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing leaf, got %v", err)
	}
	if _, err := openLeaf(ctx, root, "a/b/leaf", true); err != nil {
		t.Errorf("openLeaf with create failed: %v", err)
	}
	if _, _, err := resolveLeafLocation(ctx, root, "//", true); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("Expected ErrInvalidArguments for an empty path, got %v", err)
	}
}
