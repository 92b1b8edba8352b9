// Package common provides the data structures shared by the RPC client, server and
// transports of tKV.
//
// The package focuses on:
//   - The message protocol for all store operations
//   - Configuration structures for client and server components
//   - A custom logger factory for the dragonboat logger used in every package
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Message: The single data structure for requests and responses. A request carries the
//     scope of the store (database name, store name, key escaping) and the arguments of the
//     operation. A response carries the result and, on failure, the store.RetCode and the
//     error message. Factory methods exist for every request and response.
//
//   - MessageType: Enumeration of all supported operations (the IStore operations, the
//     shard ping used by the support check, and custom/control messages).
//
//   - ServerConfig: Shards (each one a tree root: mem, fs, sqlite or raft), RAFT parameters,
//     the default store configuration and the endpoint. ParseShards reads the shard list
//     used on the command line.
//
//   - ClientConfig: Endpoints, timeouts and retry behavior of client transports.
//
//   - Logger: CreateLogger implements the dragonboat logger.Factory. InitLoggers installs it
//     and sets the level of the RAFT internals and of the tKV loggers.
package common
