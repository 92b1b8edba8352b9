// Package http implements the HTTP transport layer for RPC communication in tKV.
// It provides concrete implementations of the transport interfaces defined in the
// parent package.
//
// The package focuses on:
//   - Client-side HTTP transport for sending RPC requests to servers
//   - Server-side HTTP transport for receiving and handling RPC requests
//   - Round-robin load balancing across multiple server endpoints
//   - Request routing based on shard IDs
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It selects the server endpoint
//     round-robin and retries a failed request on the next endpoint.
//
//   - HttpServerTransport: Implements IRPCServerTransport. Routes:
//
//     POST /{shardId}   RPC request for a shard (body: serialized common.Message)
//     GET  /metrics     request counters and latencies in Prometheus format
//
//     With log level debug every request is logged with a request id (X-Request-Id).
//     Handler returns the routes as an http.Handler, e.g. for httptest.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter to ensure thread safety when
//	selecting server endpoints.
package http
