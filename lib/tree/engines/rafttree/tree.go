package rafttree

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/rafttree/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"strings"
	"sync"
	"time"
)

var (
	retries = 5
	log     = logger.GetLogger("tree")
)

// replica is the part of a RAFT node the tree talks to
type replica interface {
	propose(ctx context.Context, cmd []byte) (sm.Result, error)
	read(ctx context.Context, q internal.Query) (interface{}, error)
}

// --------------------------------------------------------------------------
// Replicas
// --------------------------------------------------------------------------

// nodeHostReplica sends commands and queries to a shard of a dragonboat NodeHost
type nodeHostReplica struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
}

func (r *nodeHostReplica) propose(ctx context.Context, cmd []byte) (sm.Result, error) {
	return r.nh.SyncPropose(ctx, r.cs, cmd)
}

func (r *nodeHostReplica) read(ctx context.Context, q internal.Query) (interface{}, error) {
	return r.nh.SyncRead(ctx, r.shardID, q)
}

// localReplica applies commands directly to a state machine, which gives a single node tree without a log
type localReplica struct {
	mu    sync.Mutex
	index uint64
	fsm   *TreeStateMachine
}

func (r *localReplica) propose(_ context.Context, cmd []byte) (sm.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index++
	entries, err := r.fsm.Update([]sm.Entry{{Index: r.index, Cmd: cmd}})
	if err != nil {
		return sm.Result{}, err
	}
	return entries[0].Result, nil
}

func (r *localReplica) read(_ context.Context, q internal.Query) (interface{}, error) {
	return r.fsm.Lookup(q)
}

// --------------------------------------------------------------------------
// Tree
// --------------------------------------------------------------------------

// RaftTree is a tree replicated with RAFT consensus. The value itself is the root directory.
// Handles address nodes by path, every operation is sent through the replica.
type RaftTree struct {
	dirHandle
}

type raftClient struct {
	replica replica
	timeout time.Duration
}

// NewRaftTree returns the root of the tree replicated by the given shard. The shard must have been started
// with the state machine factory returned by CreateStateMachineFactory.
//
// Usage:
//
//	err := nh.StartConcurrentReplica(members, false, rafttree.CreateStateMachineFactory(), cfg)
//	root := rafttree.NewRaftTree(nh, shardID, 5*time.Second)
func NewRaftTree(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *RaftTree {
	return newRaftTree(&nodeHostReplica{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
	}, timeout)
}

func newRaftTree(r replica, timeout time.Duration) *RaftTree {
	return &RaftTree{dirHandle{c: &raftClient{replica: r, timeout: timeout}}}
}

// Ping checks with a linearizable read that the shard has a leader and answers
func (t *RaftTree) Ping(ctx context.Context) error {
	res, err := t.c.read(ctx, internal.Query{Type: internal.QueryTPing})
	if err != nil {
		return err
	}
	if err := res.Code.Err(res.Message); err != nil {
		return fmt.Errorf("%w: %v", tree.ErrUnavailable, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by the handles)
// --------------------------------------------------------------------------

// write serializes a Command and sends it via the replica.
// Busy replicas are retried, failures of the consensus layer are reported as tree.ErrUnavailable.
func (c *raftClient) write(ctx context.Context, cmd internal.Command) error {
	for i := 0; i < retries; i++ {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.replica.propose(opCtx, cmd.Serialize())
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", tree.ErrUnavailable, err)
		}
		return internal.ResultCode(res.Value).Err(string(res.Data))
	}
	return fmt.Errorf("%w: timeout", tree.ErrUnavailable)
}

// read queries the state machine with SyncRead, busy replicas are retried
func (c *raftClient) read(ctx context.Context, q internal.Query) (internal.QueryResult, error) {
	for i := 0; i < retries; i++ {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.replica.read(opCtx, q)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}
		if err != nil {
			return internal.QueryResult{}, fmt.Errorf("%w: %v", tree.ErrUnavailable, err)
		}

		// The state machine always answers with a QueryResult
		casted, ok := res.(internal.QueryResult)
		if !ok {
			return internal.QueryResult{}, fmt.Errorf("unexpected type: received %T, expected %T", res, casted)
		}
		return casted, nil
	}
	return internal.QueryResult{}, fmt.Errorf("%w: timeout", tree.ErrUnavailable)
}

// query is read plus the conversion of the result code into an error
func (c *raftClient) query(ctx context.Context, q internal.Query) (internal.QueryResult, error) {
	res, err := c.read(ctx, q)
	if err != nil {
		return res, err
	}
	return res, res.Code.Err(res.Message)
}

// --------------------------------------------------------------------------
// Directory handle
// --------------------------------------------------------------------------

type dirHandle struct {
	c    *raftClient
	path []string
}

func (d *dirHandle) Name() string {
	if len(d.path) == 0 {
		return ""
	}
	return d.path[len(d.path)-1]
}

func (d *dirHandle) Kind() tree.Kind {
	return tree.KindDirectory
}

func (d *dirHandle) childPath(name string) []string {
	p := make([]string, len(d.path)+1)
	copy(p, d.path)
	p[len(d.path)] = name
	return p
}

// child resolves (and optionally creates) the named child with the expected kind
func (d *dirHandle) child(ctx context.Context, name string, kind tree.Kind, create bool) ([]string, error) {
	if err := tree.ValidateName(name); err != nil {
		return nil, err
	}
	p := d.childPath(name)
	joined := strings.Join(p, tree.Separator)

	if create {
		cmd := internal.Command{Type: internal.CommandTMkdir, Path: joined}
		if kind == tree.KindLeaf {
			cmd.Type = internal.CommandTTouch
		}
		return p, d.c.write(ctx, cmd)
	}

	res, err := d.c.query(ctx, internal.Query{Type: internal.QueryTStat, Path: joined})
	if err != nil {
		return nil, err
	}
	if res.Kind != kind {
		return nil, tree.ErrTypeMismatch
	}
	return p, nil
}

func (d *dirHandle) Directory(ctx context.Context, name string, create bool) (tree.Directory, error) {
	p, err := d.child(ctx, name, tree.KindDirectory, create)
	if err != nil {
		return nil, err
	}
	return &dirHandle{c: d.c, path: p}, nil
}

func (d *dirHandle) Leaf(ctx context.Context, name string, create bool) (tree.Leaf, error) {
	p, err := d.child(ctx, name, tree.KindLeaf, create)
	if err != nil {
		return nil, err
	}
	return &leafHandle{c: d.c, path: p}, nil
}

// Range fetches the complete listing with one query and then calls f
func (d *dirHandle) Range(ctx context.Context, f func(entry tree.Entry) bool) error {
	res, err := d.c.query(ctx, internal.Query{Type: internal.QueryTList, Path: strings.Join(d.path, tree.Separator)})
	if err != nil {
		return err
	}
	for _, info := range res.Entries {
		entry := tree.Entry{Name: info.Name, Kind: info.Kind}
		if info.Kind == tree.KindDirectory {
			entry.Node = &dirHandle{c: d.c, path: d.childPath(info.Name)}
		} else {
			entry.Node = &leafHandle{c: d.c, path: d.childPath(info.Name)}
		}
		if !f(entry) {
			return nil
		}
	}
	return nil
}

func (d *dirHandle) Remove(ctx context.Context, name string, recursive bool) error {
	if err := tree.ValidateName(name); err != nil {
		return err
	}
	cmd := internal.Command{Type: internal.CommandTRemove, Path: strings.Join(d.childPath(name), tree.Separator)}
	if recursive {
		cmd.Flags |= internal.FlagRecursive
	}
	return d.c.write(ctx, cmd)
}

// --------------------------------------------------------------------------
// Leaf handle
// --------------------------------------------------------------------------

type leafHandle struct {
	c    *raftClient
	path []string
}

func (l *leafHandle) Name() string {
	return l.path[len(l.path)-1]
}

func (l *leafHandle) Kind() tree.Kind {
	return tree.KindLeaf
}

func (l *leafHandle) joined() string {
	return strings.Join(l.path, tree.Separator)
}

func (l *leafHandle) Read(ctx context.Context) ([]byte, error) {
	res, err := l.c.query(ctx, internal.Query{Type: internal.QueryTRead, Path: l.joined()})
	if err != nil {
		return nil, err
	}
	if res.Value == nil {
		return []byte{}, nil
	}
	return res.Value, nil
}

// Writable buffers the contents locally, Close proposes a single Write command
func (l *leafHandle) Writable(ctx context.Context) (tree.Writable, error) {
	res, err := l.c.query(ctx, internal.Query{Type: internal.QueryTStat, Path: l.joined()})
	if err != nil {
		return nil, err
	}
	if res.Kind != tree.KindLeaf {
		return nil, tree.ErrTypeMismatch
	}
	return tree.NewBufferedWritable(func(data []byte) error {
		return l.c.write(ctx, internal.Command{Type: internal.CommandTWrite, Path: l.joined(), Value: data})
	}), nil
}
