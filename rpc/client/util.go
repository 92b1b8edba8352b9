package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed by an RPC client implementation
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// responseError converts the error fields of a response into a *store.Error (nil if there is no error)
func responseError(resp *common.Message) error {
	if resp.Code == store.RetCSuccess && resp.Err == "" && resp.MsgType != common.MsgTError {
		return nil
	}
	code := resp.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, resp.Err)
}

// invoke sends a request and returns the response.
// Transport and serialization failures are returned as RetCUnavailable errors, error responses as
// *store.Error with the code sent by the server. The type of the response must match the request.
func (a *rpcClientAdapter) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "failed to serialize request", err)
	}

	// Send the request
	respBytes, err := a.transport.Send(ctx, a.shardId, reqBytes)
	if err != nil {
		return nil, store.WrapError(store.RetCUnavailable, fmt.Sprintf("%s request to shard %d failed", req.MsgType, a.shardId), err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, store.WrapError(store.RetCInternalError, "failed to deserialize response", err)
	}

	// Check if the response is an error response
	if err := responseError(resp); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInternalError,
			fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}
