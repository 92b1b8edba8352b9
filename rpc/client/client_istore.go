package client

import (
	"context"
	"github.com/ValentinKolb/tKV/lib/codec"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
)

// Option configures NewRPCStore
type Option func(*rpcStore)

// WithCodec sets the codec used to encode values before they are sent (default: codec.NewRawCodec()).
// The server stores the encoded bytes, so every client of a store has to use the same codec.
func WithCodec(c codec.ICodec) Option {
	return func(s *rpcStore) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewRPCStore creates a store.IStore for the store described by scope on the given shard.
// Empty fields of scope are filled from store.DefaultConfig(). The transport is connected with config.
//
// Usage:
//
//	s, err := client.NewRPCStore(1, store.Config{Name: "app", StoreName: "notes"},
//		common.ClientConfig{Endpoints: []string{"http://localhost:8080"}, TimeoutSecond: 5, RetryCount: 3},
//		http.NewHttpClientTransport(), serializer.NewBinarySerializer())
func NewRPCStore(
	shardId uint64,
	scope store.Config,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	opts ...Option,
) (store.IStore, error) {
	cfg := scope.Merge(store.DefaultConfig())
	if len(cfg.Name) == 0 {
		return nil, store.NewError(store.RetCInvalidArguments, "the configuration has no database name")
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, store.WrapError(store.RetCUnavailable, "failed to connect transport", err)
	}

	s := &rpcStore{
		rpcClientAdapter: rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
		cfg:   cfg,
		scope: common.ScopeOf(cfg),
		codec: codec.NewRawCodec(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type rpcStore struct {
	rpcClientAdapter
	cfg   store.Config
	scope common.Scope
	codec codec.ICodec
}

// Ping checks if the storage of the shard is available
func (s *rpcStore) Ping(ctx context.Context) error {
	_, err := s.invoke(ctx, common.NewPingRequest())
	return err
}

// Close closes the transport of the store
func (s *rpcStore) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IStore)
// --------------------------------------------------------------------------

func (s *rpcStore) Iterate(ctx context.Context, f store.IteratorFunc) (any, error) {
	resp, err := s.invoke(ctx, common.NewIterateRequest(s.scope))
	if err != nil {
		return nil, err
	}
	for i, entry := range resp.Entries {
		value, err := s.codec.Decode(entry.Value)
		if err != nil {
			return nil, err
		}
		if result, stop := f(value, entry.Key, i+1); stop {
			return result, nil
		}
	}
	return nil, nil
}

func (s *rpcStore) GetItem(ctx context.Context, key any) (any, error) {
	resp, err := s.invoke(ctx, common.NewGetItemRequest(s.scope, store.KeyString(key)))
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(resp.Value)
}

func (s *rpcStore) SetItem(ctx context.Context, key any, value any) (any, error) {
	data, err := s.codec.Encode(value)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidArguments, "failed to encode value", err)
	}
	if data == nil {
		data = []byte{}
	}
	if _, err := s.invoke(ctx, common.NewSetItemRequest(s.scope, store.KeyString(key), data)); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *rpcStore) RemoveItem(ctx context.Context, key any) error {
	_, err := s.invoke(ctx, common.NewRemoveItemRequest(s.scope, store.KeyString(key)))
	return err
}

func (s *rpcStore) Clear(ctx context.Context) error {
	_, err := s.invoke(ctx, common.NewClearRequest(s.scope))
	return err
}

func (s *rpcStore) Length(ctx context.Context) (int, error) {
	resp, err := s.invoke(ctx, common.NewLengthRequest(s.scope))
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

func (s *rpcStore) Key(ctx context.Context, n int) (string, bool, error) {
	resp, err := s.invoke(ctx, common.NewKeyRequest(s.scope, n))
	if err != nil {
		return "", false, err
	}
	return resp.Key, resp.Ok, nil
}

func (s *rpcStore) Keys(ctx context.Context) ([]string, error) {
	resp, err := s.invoke(ctx, common.NewKeysRequest(s.scope))
	if err != nil {
		return nil, err
	}
	if resp.Keys == nil {
		return []string{}, nil
	}
	return resp.Keys, nil
}

func (s *rpcStore) DropInstance(ctx context.Context, opts store.Config) (string, error) {
	// resolve the target like the local store, the server only sees the result
	if opts.Name == "" {
		opts.Name = s.cfg.Name
		if opts.StoreName == "" {
			opts.StoreName = s.cfg.StoreName
		}
	}
	if opts.Name == "" {
		return "", store.NewError(store.RetCInvalidArguments, "invalid arguments: no database name")
	}

	resp, err := s.invoke(ctx, common.NewDropInstanceRequest(common.Scope{Name: opts.Name, StoreName: opts.StoreName}))
	if err != nil {
		return "", err
	}
	return string(resp.Meta), nil
}

func (s *rpcStore) Config() store.Config {
	return s.cfg
}
