// Package server implements the RPC server of tKV.
// It answers store requests received by a transport and maps them onto the stores of its shards.
//
// The package focuses on:
//   - Server-side RPC request handling for all store operations
//   - Adapter pattern to decouple the store logic from the RPC mechanisms
//   - Flexible shard configuration, every shard is one tree root with its own engine
//   - Lazy creation of stores, a store is opened on the first request for its scope
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes an incoming request against a shard.
//
//   - NewIStoreServerAdapter: Factory function creating the adapter for store operations,
//     translating RPC requests to store.IStore method calls.
//
//   - Shard: A tree root with the cache of the stores opened on it.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 1, Type: tree.ImplMem},
//	    {ShardID: 2, Type: tree.ImplSQLite, Path: "./data/tkv.db"},
//	  },
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  http.NewHttpServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports four types of shards, which can be mixed within a single server:
//
//   - mem: An in-memory tree, suitable for development environments and tests.
//
//   - fs: A directory tree on disk, every value is one file (the path is the base directory).
//
//   - sqlite: A tree stored in a single SQLite database file.
//
//   - raft: A tree replicated with Raft consensus, providing strong consistency across
//     multiple nodes. When using this type, the RAFT configuration (RTTMillisecond,
//     SnapshotEntries, CompactionOverhead, DataDir, ReplicaID, and ClusterMembers)
//     must be properly configured.
//
// Metrics:
//
//	The server records the number of requests and errors per shard and operation, the request
//	duration per operation and the number of open stores per shard. The HTTP transport serves
//	them at GET /metrics in the Prometheus text format.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	Start and Serve must be called only once.
package server
