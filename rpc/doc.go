// Package rpc provides remote access to tKV stores. A server hosts one or more shards
// (each one a tree root) and clients use them through the store.IStore interface.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, configuration structures and logging.
//
//   - transport: Network communication abstractions and the HTTP implementation.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The RPC implementation of store.IStore.
//
//   - server: The RPC server that opens stores on its shards and answers requests.
package rpc
