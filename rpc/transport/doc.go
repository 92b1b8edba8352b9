// Package transport defines the interfaces for RPC communication in tKV. It provides
// a common contract for transport implementations, so the RPC server and client do not
// depend on a protocol.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Supporting shard-based request routing
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to appropriate handlers.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// The HTTP implementation lives in the http subpackage.
package transport
