package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/fstree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/memtree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/rafttree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/sqltree"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, *Shard](),
		adapter:    NewIStoreServerAdapter(),
	}
}

// RPCServer hosts the configured shards and answers requests received by the transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, *Shard]
	adapter    IRPCServerAdapter
	nodeHost   *dragonboat.NodeHost
}

// handle answers a single serialized request
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	start := time.Now()
	var msg common.Message
	var respMsg *common.Message

	// Get appropriate shard
	shard, ok := s.shards.Load(shardId)

	if !ok {
		// Case shard does not exist -> error
		respMsg = common.NewErrorResponse(store.RetCUnavailable, fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(store.RetCInvalidArguments, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = s.adapter.Handle(context.Background(), &msg, shard)
	}

	// Record metrics
	op := msg.MsgType.String()
	metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_requests_total{shard="%d",op=%q}`, shardId, op)).Inc()
	if respMsg.Code != store.RetCSuccess || respMsg.MsgType == common.MsgTError {
		metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_request_errors_total{shard="%d",op=%q,code=%q}`, shardId, op, respMsg.Code)).Inc()
	}
	metrics.GetOrCreateSummary(fmt.Sprintf(`tkv_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// openShard creates the tree root for a shard
func (s *RPCServer) openShard(ctx context.Context, shardConfig common.ServerShard) (tree.Directory, func() error, error) {
	switch shardConfig.Type {
	case tree.ImplMem:
		root := memtree.NewMemTree()
		return root, root.Close, nil
	case tree.ImplFS:
		root, err := fstree.NewFSTree(afero.NewOsFs(), shardConfig.Path)
		return root, nil, err
	case tree.ImplSQLite:
		root, err := sqltree.NewSQLTree(ctx, shardConfig.Path)
		if err != nil {
			return nil, nil, err
		}
		return root, root.Close, nil
	case tree.ImplRaft:
		if s.nodeHost == nil {
			return nil, nil, fmt.Errorf("node host is nil, cannot create raft shard")
		}
		// Start Raft for the shard
		if err := s.nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false,
			rafttree.CreateStateMachineFactory(), s.config.ToDragonboatConfig(shardConfig.ShardID)); err != nil {
			return nil, nil, fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
		}
		timeout := time.Duration(s.config.TimeoutSecond) * time.Second
		return rafttree.NewRaftTree(s.nodeHost, shardConfig.ShardID, timeout), nil, nil
	default:
		return nil, nil, fmt.Errorf("invalid shard type: %s", shardConfig.Type)
	}
}

// closerFunc adapts a function to io.Closer
type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// Start creates all shards and registers the request handler at the transport (without listening).
func (s *RPCServer) Start() error {
	// Create the Dragonboat NodeHost, only needed for raft shards
	if s.config.HasRaftShard() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	// Default configuration of the stores
	defaults := store.DefaultConfig()
	if s.config.DefaultName != "" {
		defaults.Name = s.config.DefaultName
	}
	if s.config.DefaultStoreName != "" {
		defaults.StoreName = s.config.DefaultStoreName
	}

	ctx := context.Background()
	for _, shardConfig := range s.config.Shards {
		root, closeFn, err := s.openShard(ctx, shardConfig)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to create shard %s: %w", shardConfig, err), s.Close())
		}
		var closer io.Closer
		if closeFn != nil {
			closer = closerFunc(closeFn)
		}
		shard := NewShard(shardConfig.ShardID, root, defaults, closer)
		if err := shard.Ping(ctx); err != nil {
			Logger.Warningf("shard %d is not available yet: %v", shardConfig.ShardID, err)
		}
		s.shards.Store(shardConfig.ShardID, shard)
		Logger.Infof("created %s shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	Logger.Infof("tKV setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)
	return nil
}

// Serve starts the RPC server
// This function will also initialize the loggers and the shards and start the transport layer
func (s *RPCServer) Serve() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}

	// close the shards on shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		Logger.Infof("shutting down")
		if err := s.Close(); err != nil {
			Logger.Errorf("failed to close shards: %v", err)
		}
		os.Exit(0)
	}()

	return s.transport.Listen(s.config)
}

// Close closes all shards and the NodeHost
func (s *RPCServer) Close() error {
	var errs []error
	s.shards.Range(func(id uint64, shard *Shard) bool {
		if err := shard.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: %w", id, err))
		}
		s.shards.Delete(id)
		return true
	})
	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	return errors.Join(errs...)
}
