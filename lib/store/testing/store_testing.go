package testing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/store"
)

// ScopeOpener opens a store for the given configuration. All stores opened by the same
// opener share one tree root.
type ScopeOpener func(tb testing.TB, cfg store.Config) store.IStore

// StoreFactory creates a new, empty tree root and returns the opener for scopes on it.
// The stores must use a codec that decodes strings to strings.
type StoreFactory func(tb testing.TB) ScopeOpener

// RunStoreTests runs the conformance test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("RoundTrip", func(t *testing.T) {
			testRoundTrip(t, factory(t))
		})

		t.Run("NotFound", func(t *testing.T) {
			testNotFound(t, factory(t))
		})

		t.Run("CountConsistency", func(t *testing.T) {
			testCountConsistency(t, factory(t))
		})

		t.Run("NestedKeys", func(t *testing.T) {
			testNestedKeys(t, factory(t))
		})

		t.Run("NonStringKeys", func(t *testing.T) {
			testNonStringKeys(t, factory(t))
		})

		t.Run("Iterate", func(t *testing.T) {
			testIterate(t, factory(t))
		})

		t.Run("ScopeIsolation", func(t *testing.T) {
			testScopeIsolation(t, factory(t))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})

		t.Run("DropInstance", func(t *testing.T) {
			testDropInstance(t, factory(t))
		})

		t.Run("ExampleScenario", func(t *testing.T) {
			testExampleScenario(t, factory(t))
		})

		t.Run("ConcurrentSet", func(t *testing.T) {
			testConcurrentSet(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func set(tb testing.TB, s store.IStore, key any, value any) {
	tb.Helper()
	if _, err := s.SetItem(context.Background(), key, value); err != nil {
		tb.Fatalf("SetItem(%v) failed: %v", key, err)
	}
}

func get(tb testing.TB, s store.IStore, key any) any {
	tb.Helper()
	v, err := s.GetItem(context.Background(), key)
	if err != nil {
		tb.Fatalf("GetItem(%v) failed: %v", key, err)
	}
	return v
}

func length(tb testing.TB, s store.IStore) int {
	tb.Helper()
	n, err := s.Length(context.Background())
	if err != nil {
		tb.Fatalf("Length failed: %v", err)
	}
	return n
}

func keys(tb testing.TB, s store.IStore) []string {
	tb.Helper()
	k, err := s.Keys(context.Background())
	if err != nil {
		tb.Fatalf("Keys failed: %v", err)
	}
	return k
}

// sortedKeys returns the keys as a sorted copy, for comparisons that do not depend on traversal order
func sortedKeys(tb testing.TB, s store.IStore) []string {
	tb.Helper()
	k := append([]string{}, keys(tb, s)...)
	sort.Strings(k)
	return k
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testRoundTrip(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	s := open(t, store.Config{Name: "app", StoreName: "roundtrip"})

	values := map[string]string{
		"simple":      "value",
		"empty":       "",
		"unicode":     "你好世界",
		"with space":  "v a l u e",
		"binary-ish":  "\x00\x01\xff",
		"long-string": string(make([]byte, 4096)),
	}
	for k, v := range values {
		written, err := s.SetItem(ctx, k, v)
		if err != nil {
			t.Fatalf("SetItem(%q) failed: %v", k, err)
		}
		if written != v {
			t.Errorf("Expected SetItem to return the written value %q, got %v", v, written)
		}
	}
	for k, v := range values {
		if got := get(t, s, k); got != v {
			t.Errorf("Expected %q for key %q, got %v", v, k, got)
		}
	}

	// overwrite replaces, it does not append
	set(t, s, "simple", "new")
	if got := get(t, s, "simple"); got != "new" {
		t.Errorf("Expected overwritten value 'new', got %v", got)
	}
	set(t, s, "simple", "x")
	if got := get(t, s, "simple"); got != "x" {
		t.Errorf("Expected shorter overwrite 'x', got %v", got)
	}
	if n := length(t, s); n != len(values) {
		t.Errorf("Expected %d entries after overwrites, got %d", len(values), n)
	}
}

func testNotFound(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	s := open(t, store.Config{Name: "app", StoreName: "notfound"})

	if _, err := s.GetItem(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetItem, got %v", err)
	}
	if _, err := s.GetItem(ctx, "missing/nested"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetItem with a missing directory, got %v", err)
	}
	if err := s.RemoveItem(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from RemoveItem, got %v", err)
	}

	set(t, s, "present", "v")
	if err := s.RemoveItem(ctx, "present"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := s.GetItem(ctx, "present"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after RemoveItem, got %v", err)
	}
	if err := s.RemoveItem(ctx, "present"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound removing twice, got %v", err)
	}
}

func testCountConsistency(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	s := open(t, store.Config{Name: "app", StoreName: "count"})

	if n := length(t, s); n != 0 {
		t.Fatalf("Expected empty store, got %d entries", n)
	}
	if _, ok, err := s.Key(ctx, 0); err != nil || ok {
		t.Errorf("Expected no key 0 in an empty store, got ok=%v err=%v", ok, err)
	}

	for i := 0; i < 25; i++ {
		set(t, s, fmt.Sprintf("key-%02d", i), fmt.Sprintf("value-%d", i))
	}
	set(t, s, "nested/a", "1")
	set(t, s, "nested/deeper/b", "2")

	all := keys(t, s)
	n := length(t, s)
	if n != 27 || len(all) != n {
		t.Fatalf("Expected 27 entries, got Length()=%d and %d keys", n, len(all))
	}

	for i := 0; i < n; i++ {
		k, ok, err := s.Key(ctx, i)
		if err != nil || !ok {
			t.Fatalf("Key(%d) failed: ok=%v err=%v", i, ok, err)
		}
		if k != all[i] {
			t.Errorf("Key(%d) = %q, but Keys()[%d] = %q", i, k, i, all[i])
		}
	}
	if _, ok, _ := s.Key(ctx, n); ok {
		t.Errorf("Expected no key at index %d", n)
	}
	if _, ok, _ := s.Key(ctx, -1); ok {
		t.Error("Expected no key at a negative index")
	}

	// enumeration is stable for an unmodified store
	if again := keys(t, s); !equal(all, again) {
		t.Errorf("Keys changed between two calls:\n%v\n%v", all, again)
	}
}

func testNestedKeys(t *testing.T, open ScopeOpener) {
	s := open(t, store.Config{Name: "app", StoreName: "nested"})

	set(t, s, "a/b", "nested")
	set(t, s, "/x//y/", "normalized")

	if got := get(t, s, "a/b"); got != "nested" {
		t.Errorf("Expected 'nested', got %v", got)
	}
	if got := get(t, s, "x/y"); got != "normalized" {
		t.Errorf("Expected redundant separators to be ignored, got %v", got)
	}
	if got := sortedKeys(t, s); !equal(got, []string{"a/b", "x/y"}) {
		t.Errorf("Expected keys [a/b x/y], got %v", got)
	}
}

func testNonStringKeys(t *testing.T, open ScopeOpener) {
	s := open(t, store.Config{Name: "app", StoreName: "nonstring"})

	set(t, s, 42, "answer")
	set(t, s, 1.5, "float")
	set(t, s, true, "bool")

	if got := get(t, s, "42"); got != "answer" {
		t.Errorf("Expected key 42 to be stored as \"42\", got %v", got)
	}
	if got := get(t, s, 1.5); got != "float" {
		t.Errorf("Expected 'float', got %v", got)
	}
	if got := sortedKeys(t, s); !equal(got, []string{"1.5", "42", "true"}) {
		t.Errorf("Expected keys [1.5 42 true], got %v", got)
	}
}

func testIterate(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	s := open(t, store.Config{Name: "app", StoreName: "iterate"})

	res, err := s.Iterate(ctx, func(any, string, int) (any, bool) {
		return "unexpected", true
	})
	if err != nil || res != nil {
		t.Errorf("Expected nil result for an empty store, got %v (err %v)", res, err)
	}

	expected := map[string]string{"a": "1", "b": "2", "c/d": "3", "e": "4"}
	for k, v := range expected {
		set(t, s, k, v)
	}

	// full iteration sees every entry once with increasing 1-based numbers
	var seen []string
	res, err = s.Iterate(ctx, func(value any, key string, iterationNumber int) (any, bool) {
		if iterationNumber != len(seen)+1 {
			t.Errorf("Expected iteration number %d, got %d", len(seen)+1, iterationNumber)
		}
		if value != expected[key] {
			t.Errorf("Expected value %q for key %q, got %v", expected[key], key, value)
		}
		seen = append(seen, key)
		return nil, false
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if res != nil {
		t.Errorf("Expected nil result after a full iteration, got %v", res)
	}
	if !equal(seen, keys(t, s)) {
		t.Errorf("Expected Iterate to visit the keys in Keys() order, got %v", seen)
	}

	// short circuit after the second entry
	calls := 0
	res, err = s.Iterate(ctx, func(value any, key string, iterationNumber int) (any, bool) {
		calls++
		if iterationNumber == 2 {
			return key, true
		}
		return nil, false
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected iteration to stop after 2 calls, got %d", calls)
	}
	if res != seen[1] {
		t.Errorf("Expected result %q, got %v", seen[1], res)
	}
}

func testScopeIsolation(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	a := open(t, store.Config{Name: "app", StoreName: "storeA"})
	b := open(t, store.Config{Name: "app", StoreName: "storeB"})
	other := open(t, store.Config{Name: "other", StoreName: "storeA"})

	set(t, a, "shared", "from A")
	set(t, a, "onlyA", "x")
	set(t, b, "shared", "from B")

	if got := get(t, a, "shared"); got != "from A" {
		t.Errorf("Expected 'from A', got %v", got)
	}
	if got := get(t, b, "shared"); got != "from B" {
		t.Errorf("Expected 'from B', got %v", got)
	}
	if _, err := b.GetItem(ctx, "onlyA"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected entry of store A to be invisible in store B, got %v", err)
	}
	if got := sortedKeys(t, b); !equal(got, []string{"shared"}) {
		t.Errorf("Expected keys [shared] in store B, got %v", got)
	}
	if n := length(t, other); n != 0 {
		t.Errorf("Expected the same store name in another database to be empty, got %d entries", n)
	}
}

func testClear(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	a := open(t, store.Config{Name: "app", StoreName: "clearA"})
	b := open(t, store.Config{Name: "app", StoreName: "clearB"})

	for i := 0; i < 10; i++ {
		set(t, a, fmt.Sprintf("k%d", i), "v")
	}
	set(t, a, "dir/nested", "v")
	set(t, b, "keep", "v")

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n := length(t, a); n != 0 {
		t.Errorf("Expected empty store after Clear, got %d entries", n)
	}
	if got := get(t, b, "keep"); got != "v" {
		t.Errorf("Expected sibling store to be untouched, got %v", got)
	}

	// the store itself survives and clearing again is a no-op
	if err := a.Clear(ctx); err != nil {
		t.Errorf("Clear on an empty store failed: %v", err)
	}
	set(t, a, "again", "v")
	if n := length(t, a); n != 1 {
		t.Errorf("Expected 1 entry after Clear and SetItem, got %d", n)
	}
}

func testDropInstance(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	a := open(t, store.Config{Name: "dropdb", StoreName: "a"})
	b := open(t, store.Config{Name: "dropdb", StoreName: "b"})
	other := open(t, store.Config{Name: "otherdb", StoreName: "a"})

	set(t, a, "k", "v")
	set(t, b, "k", "v")
	set(t, other, "k", "v")

	// dropping a single store leaves its siblings alone
	path, err := a.DropInstance(ctx, store.Config{Name: "dropdb", StoreName: "a"})
	if err != nil {
		t.Fatalf("DropInstance failed: %v", err)
	}
	if path != "dropdb/a/" {
		t.Errorf("Expected dropped path 'dropdb/a/', got %q", path)
	}
	if _, err := a.Length(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a dropped store, got %v", err)
	}
	if got := get(t, b, "k"); got != "v" {
		t.Errorf("Expected sibling store to survive, got %v", got)
	}

	// a dropped store is recreated by the next write
	set(t, a, "k2", "v")
	if got := sortedKeys(t, a); !equal(got, []string{"k2"}) {
		t.Errorf("Expected only the new key after recreation, got %v", got)
	}

	// dropping the database removes every store in it, other databases survive
	path, err = b.DropInstance(ctx, store.Config{Name: "dropdb"})
	if err != nil {
		t.Fatalf("DropInstance of the database failed: %v", err)
	}
	if path != "dropdb" {
		t.Errorf("Expected dropped path 'dropdb', got %q", path)
	}
	if _, err := a.GetItem(ctx, "k2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected store a to be gone, got %v", err)
	}
	if _, err := b.GetItem(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected store b to be gone, got %v", err)
	}
	if got := get(t, other, "k"); got != "v" {
		t.Errorf("Expected other database to survive, got %v", got)
	}

	// without a name the configuration of the store itself is used
	path, err = other.DropInstance(ctx, store.Config{})
	if err != nil {
		t.Fatalf("DropInstance without options failed: %v", err)
	}
	if path != "otherdb/a/" {
		t.Errorf("Expected dropped path 'otherdb/a/', got %q", path)
	}
	if _, err := other.Keys(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after dropping the own store, got %v", err)
	}
}

func testExampleScenario(t *testing.T, open ScopeOpener) {
	ctx := context.Background()
	s := open(t, store.Config{Name: "app", StoreName: "notes"})

	set(t, s, "a", "hello")
	set(t, s, "b", "world")

	if n := length(t, s); n != 2 {
		t.Errorf("Expected 2 entries, got %d", n)
	}
	if got := sortedKeys(t, s); !equal(got, []string{"a", "b"}) {
		t.Errorf("Expected keys {a, b}, got %v", got)
	}
	if got := get(t, s, "a"); got != "hello" {
		t.Errorf("Expected 'hello', got %v", got)
	}

	if err := s.RemoveItem(ctx, "a"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if n := length(t, s); n != 1 {
		t.Errorf("Expected 1 entry after RemoveItem, got %d", n)
	}
	if _, err := s.GetItem(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a removed key, got %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n := length(t, s); n != 0 {
		t.Errorf("Expected 0 entries after Clear, got %d", n)
	}
}

func testConcurrentSet(t *testing.T, open ScopeOpener) {
	s := open(t, store.Config{Name: "app", StoreName: "concurrent"})

	const (
		workers = 8
		perW    = 10
	)
	var wg sync.WaitGroup
	errs := make(chan error, workers*perW)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				key := fmt.Sprintf("w%d/k%d", w, i)
				if _, err := s.SetItem(context.Background(), key, key); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent SetItem failed: %v", err)
	}

	if n := length(t, s); n != workers*perW {
		t.Errorf("Expected %d entries, got %d", workers*perW, n)
	}
	if got := get(t, s, "w3/k7"); got != "w3/k7" {
		t.Errorf("Expected 'w3/k7', got %v", got)
	}
}
