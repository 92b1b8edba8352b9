package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/tree"
)

// TreeFactory is a function that creates a new, empty root of a tree engine.
// Engines that hold resources register their cleanup with tb.Cleanup.
type TreeFactory func(tb testing.TB) tree.Directory

// RunTreeTests runs the conformance test suite for a tree engine.
func RunTreeTests(t *testing.T, name string, factory TreeFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Directory", func(t *testing.T) {
			testDirectory(t, factory(t))
		})

		t.Run("Leaf", func(t *testing.T) {
			testLeaf(t, factory(t))
		})

		t.Run("TypeMismatch", func(t *testing.T) {
			testTypeMismatch(t, factory(t))
		})

		t.Run("InvalidNames", func(t *testing.T) {
			testInvalidNames(t, factory(t))
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory(t))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory(t))
		})

		t.Run("Writable", func(t *testing.T) {
			testWritable(t, factory(t))
		})

		t.Run("StaleHandles", func(t *testing.T) {
			testStaleHandles(t, factory(t))
		})

		t.Run("DeepNesting", func(t *testing.T) {
			testDeepNesting(t, factory(t))
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// writeLeaf replaces the contents of a leaf, failing the test on any error
func writeLeaf(tb testing.TB, leaf tree.Leaf, data []byte) {
	tb.Helper()
	w, err := leaf.Writable(context.Background())
	if err != nil {
		tb.Fatalf("Failed to open leaf %s for writing: %v", leaf.Name(), err)
	}
	defer w.Abort()
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("Failed to write leaf %s: %v", leaf.Name(), err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("Failed to commit leaf %s: %v", leaf.Name(), err)
	}
}

// readLeaf reads the contents of a leaf, failing the test on any error
func readLeaf(tb testing.TB, leaf tree.Leaf) []byte {
	tb.Helper()
	data, err := leaf.Read(context.Background())
	if err != nil {
		tb.Fatalf("Failed to read leaf %s: %v", leaf.Name(), err)
	}
	return data
}

// listNames returns the names of all children in the order reported by Range
func listNames(tb testing.TB, dir tree.Directory) []string {
	tb.Helper()
	var names []string
	err := dir.Range(context.Background(), func(entry tree.Entry) bool {
		names = append(names, entry.Name)
		return true
	})
	if err != nil {
		tb.Fatalf("Failed to range over %q: %v", dir.Name(), err)
	}
	return names
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testDirectory(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	if _, err := root.Directory(ctx, "missing", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing directory, got %v", err)
	}

	dir, err := root.Directory(ctx, "app", true)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if dir.Name() != "app" || dir.Kind() != tree.KindDirectory {
		t.Errorf("Unexpected handle: name=%q kind=%s", dir.Name(), dir.Kind())
	}

	// creating again returns the existing directory
	again, err := root.Directory(ctx, "app", true)
	if err != nil {
		t.Fatalf("Failed to get existing directory: %v", err)
	}
	if _, err := again.Leaf(ctx, "marker", true); err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	if _, err := dir.Leaf(ctx, "marker", false); err != nil {
		t.Errorf("Leaf created through the second handle should be visible through the first: %v", err)
	}

	if _, err := root.Directory(ctx, "app", false); err != nil {
		t.Errorf("Expected lookup of existing directory to succeed, got %v", err)
	}
}

func testLeaf(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	if _, err := root.Leaf(ctx, "missing", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing leaf, got %v", err)
	}

	leaf, err := root.Leaf(ctx, "item", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	if leaf.Name() != "item" || leaf.Kind() != tree.KindLeaf {
		t.Errorf("Unexpected handle: name=%q kind=%s", leaf.Name(), leaf.Kind())
	}
	if data := readLeaf(t, leaf); len(data) != 0 {
		t.Errorf("Expected new leaf to be empty, got %q", data)
	}

	writeLeaf(t, leaf, []byte("value-1"))
	if data := readLeaf(t, leaf); !bytes.Equal(data, []byte("value-1")) {
		t.Errorf("Expected value-1, got %q", data)
	}

	// overwrite replaces, it does not append
	writeLeaf(t, leaf, []byte("v2"))
	if data := readLeaf(t, leaf); !bytes.Equal(data, []byte("v2")) {
		t.Errorf("Expected v2, got %q", data)
	}

	// creating an existing leaf keeps its contents
	same, err := root.Leaf(ctx, "item", true)
	if err != nil {
		t.Fatalf("Failed to get existing leaf: %v", err)
	}
	if data := readLeaf(t, same); !bytes.Equal(data, []byte("v2")) {
		t.Errorf("Expected get-or-create to keep contents, got %q", data)
	}

	// read returns a copy
	data := readLeaf(t, same)
	if len(data) > 0 {
		data[0] = 'X'
	}
	if again := readLeaf(t, same); !bytes.Equal(again, []byte("v2")) {
		t.Errorf("Read should return a copy, got %q after modifying the previous result", again)
	}

	// binary payloads
	payload := []byte{0, 1, 2, 255, 0, 10, 13}
	writeLeaf(t, leaf, payload)
	if data := readLeaf(t, leaf); !bytes.Equal(data, payload) {
		t.Errorf("Expected binary payload %v, got %v", payload, data)
	}
}

func testTypeMismatch(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	if _, err := root.Directory(ctx, "dir", true); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := root.Leaf(ctx, "leaf", true); err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}

	for _, create := range []bool{true, false} {
		if _, err := root.Leaf(ctx, "dir", create); !errors.Is(err, tree.ErrTypeMismatch) {
			t.Errorf("Expected ErrTypeMismatch opening a directory as leaf (create=%t), got %v", create, err)
		}
		if _, err := root.Directory(ctx, "leaf", create); !errors.Is(err, tree.ErrTypeMismatch) {
			t.Errorf("Expected ErrTypeMismatch opening a leaf as directory (create=%t), got %v", create, err)
		}
	}
}

func testInvalidNames(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "a/b", "/"} {
		if _, err := root.Directory(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName for directory %q, got %v", name, err)
		}
		if _, err := root.Leaf(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName for leaf %q, got %v", name, err)
		}
		if err := root.Remove(ctx, name, true); !errors.Is(err, tree.ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName removing %q, got %v", name, err)
		}
	}

	// unusual but valid names
	for _, name := range []string{"with space", "ümlaut", "...", ".hidden", "%2F", "a\\b"} {
		leaf, err := root.Leaf(ctx, name, true)
		if err != nil {
			t.Errorf("Expected %q to be a valid name, got %v", name, err)
			continue
		}
		writeLeaf(t, leaf, []byte(name))
		if data := readLeaf(t, leaf); string(data) != name {
			t.Errorf("Expected %q, got %q", name, data)
		}
	}
}

func testRange(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	if names := listNames(t, root); len(names) != 0 {
		t.Errorf("Expected empty root, got %v", names)
	}

	expected := map[string]tree.Kind{
		"b-leaf": tree.KindLeaf,
		"a-dir":  tree.KindDirectory,
		"c-leaf": tree.KindLeaf,
		"d-dir":  tree.KindDirectory,
	}
	for name, kind := range expected {
		var err error
		if kind == tree.KindDirectory {
			_, err = root.Directory(ctx, name, true)
		} else {
			_, err = root.Leaf(ctx, name, true)
		}
		if err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	seen := make(map[string]bool)
	err := root.Range(ctx, func(entry tree.Entry) bool {
		kind, ok := expected[entry.Name]
		if !ok {
			t.Errorf("Unexpected child %q", entry.Name)
			return true
		}
		if entry.Kind != kind {
			t.Errorf("Expected %q to be %s, got %s", entry.Name, kind, entry.Kind)
		}
		if entry.Node == nil || entry.Node.Kind() != kind || entry.Node.Name() != entry.Name {
			t.Errorf("Handle of %q does not match its entry", entry.Name)
		}
		switch kind {
		case tree.KindDirectory:
			if _, ok := entry.Node.(tree.Directory); !ok {
				t.Errorf("Handle of %q is not a Directory", entry.Name)
			}
		case tree.KindLeaf:
			if _, ok := entry.Node.(tree.Leaf); !ok {
				t.Errorf("Handle of %q is not a Leaf", entry.Name)
			}
		}
		seen[entry.Name] = true
		return true
	})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(seen) != len(expected) {
		t.Errorf("Expected %d children, saw %d", len(expected), len(seen))
	}

	// the order must be stable for an unmodified directory
	first := listNames(t, root)
	second := listNames(t, root)
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("Range order is not stable: %v vs %v", first, second)
	}

	// early termination
	calls := 0
	err = root.Range(ctx, func(entry tree.Entry) bool {
		calls++
		return false
	})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected Range to stop after the first child, got %d calls", calls)
	}
}

func testRemove(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	if err := root.Remove(ctx, "missing", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound removing a missing child, got %v", err)
	}

	// leaf
	leaf, err := root.Leaf(ctx, "leaf", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	writeLeaf(t, leaf, []byte("data"))
	if err := root.Remove(ctx, "leaf", false); err != nil {
		t.Fatalf("Failed to remove leaf: %v", err)
	}
	if _, err := root.Leaf(ctx, "leaf", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected removed leaf to be gone, got %v", err)
	}

	// empty directory without the recursive flag
	if _, err := root.Directory(ctx, "empty", true); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := root.Remove(ctx, "empty", false); err != nil {
		t.Errorf("Expected removal of an empty directory to succeed, got %v", err)
	}

	// non-empty directory
	dir, err := root.Directory(ctx, "full", true)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	sub, err := dir.Directory(ctx, "sub", true)
	if err != nil {
		t.Fatalf("Failed to create sub directory: %v", err)
	}
	if _, err := sub.Leaf(ctx, "deep", true); err != nil {
		t.Fatalf("Failed to create deep leaf: %v", err)
	}
	if err := root.Remove(ctx, "full", false); !errors.Is(err, tree.ErrNotEmpty) {
		t.Errorf("Expected ErrNotEmpty, got %v", err)
	}
	if _, err := sub.Leaf(ctx, "deep", false); err != nil {
		t.Errorf("Failed non-recursive removal must not touch the subtree, got %v", err)
	}
	if err := root.Remove(ctx, "full", true); err != nil {
		t.Fatalf("Failed to remove directory recursively: %v", err)
	}
	if _, err := root.Directory(ctx, "full", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected recursively removed directory to be gone, got %v", err)
	}
	if names := listNames(t, root); len(names) != 0 {
		t.Errorf("Expected empty root after removals, got %v", names)
	}

	// a removed name can be reused with the other kind
	if _, err := root.Directory(ctx, "leaf", true); err != nil {
		t.Errorf("Expected to reuse a removed leaf name for a directory, got %v", err)
	}
}

func testWritable(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	leaf, err := root.Leaf(ctx, "item", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	writeLeaf(t, leaf, []byte("old"))

	// staged bytes are invisible until Close
	w, err := leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Failed to open writable: %v", err)
	}
	if _, err := w.Write([]byte("new-")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := w.Write([]byte("value")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data := readLeaf(t, leaf); !bytes.Equal(data, []byte("old")) {
		t.Errorf("Expected old contents before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if data := readLeaf(t, leaf); !bytes.Equal(data, []byte("new-value")) {
		t.Errorf("Expected new-value after Close, got %q", data)
	}

	// use after close
	if _, err := w.Write([]byte("x")); !errors.Is(err, tree.ErrClosed) {
		t.Errorf("Expected ErrClosed writing after Close, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, tree.ErrClosed) {
		t.Errorf("Expected ErrClosed closing twice, got %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Errorf("Expected Abort after Close to be a no-op, got %v", err)
	}

	// abort keeps the old contents
	w, err = leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Failed to open writable: %v", err)
	}
	if _, err := w.Write([]byte("discarded")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if data := readLeaf(t, leaf); !bytes.Equal(data, []byte("new-value")) {
		t.Errorf("Expected contents to survive Abort, got %q", data)
	}
	if err := w.Close(); !errors.Is(err, tree.ErrClosed) {
		t.Errorf("Expected ErrClosed closing after Abort, got %v", err)
	}

	// empty overwrite
	writeLeaf(t, leaf, nil)
	if data := readLeaf(t, leaf); len(data) != 0 {
		t.Errorf("Expected empty contents, got %q", data)
	}

	// temporary state of a writable never shows up as a child
	w, err = leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Failed to open writable: %v", err)
	}
	defer w.Abort()
	if _, err := w.Write([]byte("pending")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if names := listNames(t, root); len(names) != 1 || names[0] != "item" {
		t.Errorf("Expected only [item] while a write is pending, got %v", names)
	}
}

func testStaleHandles(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	dir, err := root.Directory(ctx, "dir", true)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	leaf, err := dir.Leaf(ctx, "leaf", true)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	writeLeaf(t, leaf, []byte("data"))

	if err := root.Remove(ctx, "dir", true); err != nil {
		t.Fatalf("Failed to remove directory: %v", err)
	}

	if _, err := leaf.Read(ctx); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound reading a removed leaf, got %v", err)
	}
	if _, err := dir.Leaf(ctx, "leaf", false); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound looking up a child of a removed directory, got %v", err)
	}
	err = dir.Range(ctx, func(entry tree.Entry) bool { return true })
	if !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound ranging over a removed directory, got %v", err)
	}
}

func testDeepNesting(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	depth := 16
	dir := root
	for i := 0; i < depth; i++ {
		next, err := dir.Directory(ctx, fmt.Sprintf("level-%d", i), true)
		if err != nil {
			t.Fatalf("Failed to create level %d: %v", i, err)
		}
		dir = next
	}
	leaf, err := dir.Leaf(ctx, "bottom", true)
	if err != nil {
		t.Fatalf("Failed to create bottom leaf: %v", err)
	}
	writeLeaf(t, leaf, []byte("deep"))

	// resolve again from the root
	dir = root
	for i := 0; i < depth; i++ {
		next, err := dir.Directory(ctx, fmt.Sprintf("level-%d", i), false)
		if err != nil {
			t.Fatalf("Failed to resolve level %d: %v", i, err)
		}
		dir = next
	}
	leaf, err = dir.Leaf(ctx, "bottom", false)
	if err != nil {
		t.Fatalf("Failed to resolve bottom leaf: %v", err)
	}
	if data := readLeaf(t, leaf); string(data) != "deep" {
		t.Errorf("Expected deep, got %q", data)
	}

	if err := root.Remove(ctx, "level-0", true); err != nil {
		t.Fatalf("Failed to remove nested tree: %v", err)
	}
	if names := listNames(t, root); len(names) != 0 {
		t.Errorf("Expected empty root, got %v", names)
	}
}

func testConcurrentWriters(t *testing.T, root tree.Directory) {
	ctx := context.Background()

	numWorkers := 8
	leavesPerWorker := 20

	dir, err := root.Directory(ctx, "shared", true)
	if err != nil {
		t.Fatalf("Failed to create shared directory: %v", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, numWorkers)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < leavesPerWorker; i++ {
				name := fmt.Sprintf("w%d-leaf-%d", workerID, i)
				leaf, err := dir.Leaf(ctx, name, true)
				if err != nil {
					errCh <- err
					return
				}
				writable, err := leaf.Writable(ctx)
				if err != nil {
					errCh <- err
					return
				}
				if _, err := writable.Write([]byte(name)); err != nil {
					_ = writable.Abort()
					errCh <- err
					return
				}
				if err := writable.Close(); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("Concurrent writer failed: %v", err)
	}

	names := listNames(t, dir)
	if len(names) != numWorkers*leavesPerWorker {
		t.Fatalf("Expected %d leaves, got %d", numWorkers*leavesPerWorker, len(names))
	}
	for _, name := range names {
		leaf, err := dir.Leaf(ctx, name, false)
		if err != nil {
			t.Errorf("Failed to open %s: %v", name, err)
			continue
		}
		if data := readLeaf(t, leaf); string(data) != name {
			t.Errorf("Expected %s to contain its own name, got %q", name, data)
		}
	}
}
