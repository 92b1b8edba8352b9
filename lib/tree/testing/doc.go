// Package testing provides standardised tests and benchmarks for
// tree engines that satisfy the tree.Directory interface.
//
// The package contains:
//   - tree_testing: A conformance test suite for the Directory, Leaf and Writable contracts
//   - tree_benchmarks: Performance tests for the common substrate operations
//
// Example usage:
//
//	// Creating a factory function for your engine
//	factory := func(tb testing.TB) tree.Directory {
//		return NewMyTree()
//	}
//
//	// Running the standard test suite
//	treetesting.RunTreeTests(t, "MyTree", factory)
//
//	// Running performance benchmarks
//	treetesting.RunTreeBenchmarks(b, "MyTree", factory)
package testing
