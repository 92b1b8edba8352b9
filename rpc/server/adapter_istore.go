package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// NewIStoreServerAdapter creates the adapter that maps store messages onto the stores of a shard
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(ctx context.Context, req *common.Message, shard *Shard) *common.Message {
	// Check for nil shard
	if shard == nil {
		return common.NewErrorResponse(store.RetCUnavailable, "handler: shard is nil")
	}

	// Operations without a store
	switch req.MsgType {
	case common.MsgTPing:
		return common.NewPingResponse(shard.Ping(ctx))
	case common.MsgTKVDropInstance:
		path, err := store.Drop(ctx, shard.Root(), req.Scope().Config(), shard.Defaults())
		return common.NewDropInstanceResponse(path, err)
	}

	s, err := shard.Store(ctx, req.Scope())
	if err != nil {
		return common.NewErrorResponse(store.CodeOf(err), err.Error())
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVIterate:
		entries := make([]common.Entry, 0)
		_, err := s.Iterate(ctx, func(value any, key string, _ int) (any, bool) {
			entries = append(entries, common.Entry{Key: key, Value: value.([]byte)})
			return nil, false
		})
		return common.NewIterateResponse(entries, err)
	case common.MsgTKVGetItem:
		value, err := s.GetItem(ctx, req.Key)
		data, _ := value.([]byte)
		return common.NewGetItemResponse(data, err)
	case common.MsgTKVSetItem:
		value := req.Value
		if value == nil {
			value = []byte{}
		}
		_, err := s.SetItem(ctx, req.Key, value)
		return common.NewSetItemResponse(err)
	case common.MsgTKVRemoveItem:
		return common.NewRemoveItemResponse(s.RemoveItem(ctx, req.Key))
	case common.MsgTKVClear:
		return common.NewClearResponse(s.Clear(ctx))
	case common.MsgTKVLength:
		n, err := s.Length(ctx)
		return common.NewLengthResponse(n, err)
	case common.MsgTKVKey:
		key, ok, err := s.Key(ctx, int(req.Index))
		return common.NewKeyResponse(key, ok, err)
	case common.MsgTKVKeys:
		keys, err := s.Keys(ctx)
		return common.NewKeysResponse(keys, err)
	default:
		return common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType))
	}
}
