package rafttree

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/memtree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/rafttree/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"io"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// TreeStateMachine is a state machine implementation for Dragonboat RAFT.
// Every replica holds the complete tree in a memtree.
type TreeStateMachine struct {
	replicaID uint64
	shardID   uint64
	root      *memtree.MemTree
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host
func CreateStateMachineFactory() func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return newStateMachine(shardID, replicaID)
	}
}

func newStateMachine(shardID, replicaID uint64) *TreeStateMachine {
	return &TreeStateMachine{
		replicaID: replicaID,
		shardID:   shardID,
		root:      memtree.NewMemTree(),
	}
}

// splitPath splits a slash separated path into node names
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, tree.Separator)
}

// resolveDir walks to the directory at path without creating anything
func (fsm *TreeStateMachine) resolveDir(ctx context.Context, names []string) (tree.Directory, error) {
	var dir tree.Directory = fsm.root
	for _, name := range names {
		next, err := dir.Directory(ctx, name, false)
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}

// resolveParent returns the parent directory of path and the name of the last segment
func (fsm *TreeStateMachine) resolveParent(ctx context.Context, path string) (tree.Directory, string, error) {
	names := splitPath(path)
	if len(names) == 0 {
		return nil, "", fmt.Errorf("%w: the root has no parent", tree.ErrInvalidName)
	}
	parent, err := fsm.resolveDir(ctx, names[:len(names)-1])
	if err != nil {
		return nil, "", err
	}
	return parent, names[len(names)-1], nil
}

// Lookup handles read-only queries on the local tree
func (fsm *TreeStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, fmt.Errorf("invalid Query type: %T", itf)
	}
	ctx := context.Background()
	res := internal.QueryResult{}

	switch q.Type {
	case internal.QueryTPing:
		res.Code = internal.CodeOf(fsm.root.Ping(ctx))

	case internal.QueryTStat:
		names := splitPath(q.Path)
		if len(names) == 0 {
			res.Kind = tree.KindDirectory
			break
		}
		parent, err := fsm.resolveDir(ctx, names[:len(names)-1])
		if err != nil {
			res.Code, res.Message = internal.CodeOf(err), err.Error()
			break
		}
		_, err = parent.Directory(ctx, names[len(names)-1], false)
		switch {
		case err == nil:
			res.Kind = tree.KindDirectory
		case errors.Is(err, tree.ErrTypeMismatch):
			res.Kind, err = tree.KindLeaf, nil
		}
		res.Code = internal.CodeOf(err)

	case internal.QueryTList:
		dir, err := fsm.resolveDir(ctx, splitPath(q.Path))
		if err == nil {
			err = dir.Range(ctx, func(entry tree.Entry) bool {
				res.Entries = append(res.Entries, internal.EntryInfo{Name: entry.Name, Kind: entry.Kind})
				return true
			})
		}
		res.Code = internal.CodeOf(err)

	case internal.QueryTRead:
		parent, name, err := fsm.resolveParent(ctx, q.Path)
		var leaf tree.Leaf
		if err == nil {
			leaf, err = parent.Leaf(ctx, name, false)
		}
		if err == nil {
			res.Value, err = leaf.Read(ctx)
		}
		res.Code = internal.CodeOf(err)

	default:
		res.Code, res.Message = internal.ResultInvalidOperation, fmt.Sprintf("unknown Query operation: %s", q.Type)
	}
	return res, nil
}

// apply executes a single command on the local tree
func (fsm *TreeStateMachine) apply(ctx context.Context, cmd internal.Command) error {
	parent, name, err := fsm.resolveParent(ctx, cmd.Path)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case internal.CommandTMkdir:
		_, err = parent.Directory(ctx, name, true)
		return err
	case internal.CommandTTouch:
		_, err = parent.Leaf(ctx, name, true)
		return err
	case internal.CommandTRemove:
		return parent.Remove(ctx, name, cmd.Recursive())
	case internal.CommandTWrite:
		leaf, err := parent.Leaf(ctx, name, false)
		if err != nil {
			return err
		}
		w, err := leaf.Writable(ctx)
		if err != nil {
			return err
		}
		if _, err := w.Write(cmd.Value); err != nil {
			_ = w.Abort()
			return err
		}
		return w.Close()
	default:
		return fmt.Errorf("unknown Command operation: %s", cmd.Type)
	}
}

// Update handles write commands on the tree.
// All write operations are serialized into []byte and are accessible via the entries struct
func (fsm *TreeStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()
	ctx := context.Background()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(internal.ResultInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{
				Value: uint64(internal.ResultInternalError),
				Data:  []byte(fmt.Sprintf("failed to deserialize command: %v", err)),
			}
			continue
		}

		if err := fsm.apply(ctx, cmd); err != nil {
			code := internal.CodeOf(err)
			if cmd.Type > internal.CommandTRemove {
				code = internal.ResultInvalidOperation
			}
			entries[idx].Result = sm.Result{Value: uint64(code), Data: []byte(err.Error())}
			continue
		}
		entries[idx].Result = sm.Result{
			Value: uint64(internal.ResultOK),
			Data:  []byte(fmt.Sprintf("%s: path=%s", cmd.Type, cmd.Path)),
		}
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot is not used. We don't need to prepare anything since we use fuzzy snapshotting
func (fsm *TreeStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot writes a memtree snapshot to the writer
func (fsm *TreeStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	return fsm.root.Save(writer)
}

// RecoverFromSnapshot replaces the local tree with the snapshot contents
func (fsm *TreeStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return fsm.root.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *TreeStateMachine) Close() error {
	return fsm.root.Close()
}
