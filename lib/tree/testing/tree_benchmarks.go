package testing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/tKV/lib/tree"
)

// RunTreeBenchmarks runs all benchmarks for a tree engine
func RunTreeBenchmarks(b *testing.B, name string, factory TreeFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("CreateLeaf", func(b *testing.B) {
			benchmarkCreateLeaf(b, factory(b))
		})

		b.Run("Write", func(b *testing.B) {
			benchmarkWrite(b, factory(b))
		})

		b.Run("Read", func(b *testing.B) {
			benchmarkRead(b, factory(b))
		})

		b.Run("Range", func(b *testing.B) {
			benchmarkRange(b, factory(b))
		})

		b.Run("ResolveDeep", func(b *testing.B) {
			benchmarkResolveDeep(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for creating new leaves
func benchmarkCreateLeaf(b *testing.B, root tree.Directory) {
	ctx := context.Background()
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			name := fmt.Sprintf("leaf-%d", counter.Add(1))
			if _, err := root.Leaf(ctx, name, true); err != nil {
				b.Errorf("Failed to create leaf: %v", err)
			}
		}
	})
}

// Benchmark for overwriting existing leaves
func benchmarkWrite(b *testing.B, root tree.Directory) {
	ctx := context.Background()
	numLeaves := 100
	leaves := make([]tree.Leaf, numLeaves)
	for i := range leaves {
		leaf, err := root.Leaf(ctx, fmt.Sprintf("leaf-%d", i), true)
		if err != nil {
			b.Fatalf("Failed to create leaf: %v", err)
		}
		leaves[i] = leaf
	}
	value := make([]byte, 1024)
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			leaf := leaves[counter.Add(1)%uint64(numLeaves)]
			w, err := leaf.Writable(ctx)
			if err != nil {
				b.Errorf("Failed to open writable: %v", err)
				continue
			}
			if _, err := w.Write(value); err != nil {
				_ = w.Abort()
				b.Errorf("Failed to write: %v", err)
				continue
			}
			if err := w.Close(); err != nil {
				b.Errorf("Failed to commit: %v", err)
			}
		}
	})
}

// Benchmark for reading leaves
func benchmarkRead(b *testing.B, root tree.Directory) {
	ctx := context.Background()
	numLeaves := 100
	leaves := make([]tree.Leaf, numLeaves)
	for i := range leaves {
		leaf, err := root.Leaf(ctx, fmt.Sprintf("leaf-%d", i), true)
		if err != nil {
			b.Fatalf("Failed to create leaf: %v", err)
		}
		writeLeaf(b, leaf, []byte(fmt.Sprintf("value-%d", i)))
		leaves[i] = leaf
	}
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := leaves[counter.Add(1)%uint64(numLeaves)].Read(ctx); err != nil {
				b.Errorf("Failed to read: %v", err)
			}
		}
	})
}

// Benchmark for enumerating a directory with 100 children
func benchmarkRange(b *testing.B, root tree.Directory) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if _, err := root.Leaf(ctx, fmt.Sprintf("leaf-%d", i), true); err != nil {
			b.Fatalf("Failed to create leaf: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count := 0
		if err := root.Range(ctx, func(tree.Entry) bool {
			count++
			return true
		}); err != nil {
			b.Fatalf("Range failed: %v", err)
		}
	}
}

// Benchmark for resolving an 8 level deep path from the root
func benchmarkResolveDeep(b *testing.B, root tree.Directory) {
	ctx := context.Background()
	depth := 8
	dir := root
	for i := 0; i < depth; i++ {
		next, err := dir.Directory(ctx, fmt.Sprintf("level-%d", i), true)
		if err != nil {
			b.Fatalf("Failed to create level: %v", err)
		}
		dir = next
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dir = root
		for level := 0; level < depth; level++ {
			next, err := dir.Directory(ctx, fmt.Sprintf("level-%d", level), false)
			if err != nil {
				b.Fatalf("Failed to resolve level: %v", err)
			}
			dir = next
		}
	}
}
