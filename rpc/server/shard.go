package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/codec"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
)

// Shard is a tree root served by the RPC server. Stores on the shard are opened on first use
// and cached per scope. The cached stores hold no tree handles, so a dropped store keeps
// reporting ErrNotFound until it is written again (the same as a local store).
type Shard struct {
	id       uint64
	root     tree.Directory
	defaults store.Config
	stores   *xsync.MapOf[common.Scope, *store.Store]
	closer   io.Closer
}

// NewShard creates a shard for root. defaults fill empty scope fields of requests.
// closer (may be nil) is closed by Close.
func NewShard(id uint64, root tree.Directory, defaults store.Config, closer io.Closer) *Shard {
	s := &Shard{
		id:       id,
		root:     root,
		defaults: defaults,
		stores:   xsync.NewMapOf[common.Scope, *store.Store](),
		closer:   closer,
	}
	metrics.GetOrCreateGauge(fmt.Sprintf(`tkv_open_stores{shard="%d"}`, id), func() float64 {
		return float64(s.stores.Size())
	})
	return s
}

// ID returns the shard id
func (s *Shard) ID() uint64 {
	return s.id
}

// Root returns the tree root of the shard
func (s *Shard) Root() tree.Directory {
	return s.root
}

// Defaults returns the default store configuration of the shard
func (s *Shard) Defaults() store.Config {
	return s.defaults
}

// Store returns the store for a scope, opening (and creating) it on first use
func (s *Shard) Store(ctx context.Context, scope common.Scope) (store.IStore, error) {
	if st, ok := s.stores.Load(scope); ok {
		return st, nil
	}
	st, err := store.Open(ctx, s.root, scope.Config(),
		store.WithCodec(codec.NewBytesCodec()),
		store.WithDefaults(s.defaults),
	)
	if err != nil {
		return nil, err
	}
	actual, _ := s.stores.LoadOrStore(scope, st)
	return actual, nil
}

// Ping checks the storage of the shard (if the tree supports it)
func (s *Shard) Ping(ctx context.Context) error {
	if p, ok := s.root.(tree.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the storage of the shard
func (s *Shard) Close() error {
	s.stores.Clear()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
