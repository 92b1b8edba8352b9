// Package testing provides the shared conformance suite for store.IStore implementations.
// RunStoreTests checks the observable properties every implementation must have: round
// trips, NotFound reporting, the consistency of Length, Key and Keys, nested keys, scope
// isolation between stores, Clear and DropInstance semantics and concurrent writes.
//
// The suite is run against the local store on every tree engine and against the RPC client.
//
// Usage:
//
//	func Test(t *testing.T) {
//	    storetesting.RunStoreTests(t, "MemTree", func(tb testing.TB) storetesting.ScopeOpener {
//	        root := memtree.NewMemTree()
//	        return func(tb testing.TB, cfg store.Config) store.IStore {
//	            s, err := store.Open(context.Background(), root, cfg)
//	            if err != nil {
//	                tb.Fatalf("Open failed: %v", err)
//	            }
//	            return s
//	        }
//	    })
//	}
package testing
