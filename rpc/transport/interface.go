package transport

import (
	"context"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc answers one serialized store request addressed to a shard.
// It never fails, errors are part of the serialized response.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport receives the requests of the clients and passes them to the RPC server
type IRPCServerTransport interface {
	// RegisterHandler sets the handler for all shards. The shard id is taken from the request
	// (e.g. the URL path of the http transport), unknown shards are answered by the handler.
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves on config.Endpoint and blocks until the listener fails
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport delivers serialized requests to one of the configured endpoints
type IRPCClientTransport interface {
	// Connect prepares the connections to config.Endpoints
	Connect(config common.ClientConfig) error
	// Send delivers req to the shard and returns the raw response. Retries stop when ctx is done,
	// every failure to get a response is returned as an error.
	Send(ctx context.Context, shardId uint64, req []byte) (resp []byte, err error)
	// Close releases the connections, Send fails afterwards
	Close() error
}
