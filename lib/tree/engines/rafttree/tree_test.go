package rafttree

import (
	"bytes"
	"context"
	"errors"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/ValentinKolb/tKV/lib/tree/engines/rafttree/internal"
	treetesting "github.com/ValentinKolb/tKV/lib/tree/testing"
	"github.com/lni/dragonboat/v4"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"testing"
	"time"
)

// factory returns a tree backed by a single state machine without a RAFT log
func factory(tb testing.TB) tree.Directory {
	fsm := newStateMachine(1, 1)
	tb.Cleanup(func() { _ = fsm.Close() })
	return newRaftTree(&localReplica{fsm: fsm}, time.Second)
}

func Test(t *testing.T) { treetesting.RunTreeTests(t, "RaftTree(local)", factory) }

func Benchmark(b *testing.B) { treetesting.RunTreeBenchmarks(b, "RaftTree(local)", factory) }

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newStateMachine(1, 1)
	root := newRaftTree(&localReplica{fsm: src}, time.Second)

	dir, err := root.Directory(ctx, "db", true)
	if err != nil {
		t.Fatalf("Directory failed: %v", err)
	}
	leaf, err := dir.Leaf(ctx, "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}
	w, _ := leaf.Writable(ctx)
	_, _ = w.Write([]byte("replicated"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var buf bytes.Buffer
	if err := src.SaveSnapshot(nil, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	dst := newStateMachine(1, 2)
	if err := dst.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}
	res, err := dst.Lookup(internal.Query{Type: internal.QueryTRead, Path: "db/key"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	qr := res.(internal.QueryResult)
	if qr.Code != internal.ResultOK || string(qr.Value) != "replicated" {
		t.Errorf("Expected 'replicated' on the recovered replica, got code %d value %q", qr.Code, qr.Value)
	}
}

func TestUpdateInvalidEntries(t *testing.T) {
	fsm := newStateMachine(1, 1)
	defer fsm.Close()

	unknown := internal.Command{Type: internal.CommandType(42), Path: "x"}
	entries, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: nil},
		{Index: 2, Cmd: []byte{1}},
		{Index: 3, Cmd: unknown.Serialize()},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	expected := []internal.ResultCode{internal.ResultInvalidOperation, internal.ResultInternalError, internal.ResultInvalidOperation}
	for i, code := range expected {
		if got := internal.ResultCode(entries[i].Result.Value); got != code {
			t.Errorf("Entry %d: expected result code %d, got %d", i, code, got)
		}
	}

	if _, err := fsm.Lookup("not a query"); err == nil {
		t.Error("Expected Lookup to reject unknown query types")
	}
}

// busyReplica fails a fixed number of times with ErrSystemBusy before delegating
type busyReplica struct {
	replica
	busy int
}

func (r *busyReplica) propose(ctx context.Context, cmd []byte) (sm.Result, error) {
	if r.busy > 0 {
		r.busy--
		return sm.Result{}, dragonboat.ErrSystemBusy
	}
	return r.replica.propose(ctx, cmd)
}

func TestRetryOnBusy(t *testing.T) {
	ctx := context.Background()
	fsm := newStateMachine(1, 1)
	defer fsm.Close()

	root := newRaftTree(&busyReplica{replica: &localReplica{fsm: fsm}, busy: retries - 1}, 10*time.Millisecond)
	if _, err := root.Directory(ctx, "dir", true); err != nil {
		t.Fatalf("Expected the write to succeed after retries, got %v", err)
	}

	root = newRaftTree(&busyReplica{replica: &localReplica{fsm: fsm}, busy: retries}, 10*time.Millisecond)
	if _, err := root.Directory(ctx, "other", true); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable once all retries are busy, got %v", err)
	}
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	fsm := newStateMachine(1, 1)
	root := newRaftTree(&localReplica{fsm: fsm}, time.Second)

	if err := root.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	_ = fsm.Close()
	if err := root.Ping(ctx); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable after the state machine was closed, got %v", err)
	}
}

// ctxReplica fails proposals whose context is already done
type ctxReplica struct {
	replica
}

func (r *ctxReplica) propose(ctx context.Context, cmd []byte) (sm.Result, error) {
	if err := ctx.Err(); err != nil {
		return sm.Result{}, err
	}
	return r.replica.propose(ctx, cmd)
}

func TestWritableUsesCallerContext(t *testing.T) {
	fsm := newStateMachine(1, 1)
	defer fsm.Close()
	root := newRaftTree(&ctxReplica{replica: &localReplica{fsm: fsm}}, time.Second)

	leaf, err := root.Leaf(context.Background(), "key", true)
	if err != nil {
		t.Fatalf("Leaf failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := leaf.Writable(ctx)
	if err != nil {
		t.Fatalf("Writable failed: %v", err)
	}
	_, _ = w.Write([]byte("never committed"))
	cancel()
	if err := w.Close(); !errors.Is(err, tree.ErrUnavailable) {
		t.Errorf("Expected the commit to fail with a canceled context, got %v", err)
	}

	data, err := leaf.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected the leaf to stay empty, got %q", data)
	}
}
