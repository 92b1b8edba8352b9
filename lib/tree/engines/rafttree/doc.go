// Package rafttree implements a replicated tree using the Dragonboat RAFT consensus
// library. It satisfies the tree.Directory interface, so the key-value store on top of it
// works unchanged while every node of the tree is replicated across the shard.
//
// Architecture:
//
//   - Tree Handles: Implement tree.Directory and tree.Leaf. Handles address nodes by
//     their path from the root and translate every call into a command or a query.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine (TreeStateMachine) that holds
//     the complete tree in a memtree on every replica and applies the commands to it.
//
//   - Communication Protocol: Defined in the internal package, Commands (Mkdir, Touch,
//     Write, Remove) and Queries (Stat, List, Read, Ping) plus the result codes that
//     carry tree errors back to the handles.
//
// Write Operations:
//
//	Creating children, replacing leaf contents and removals follow this flow:
//
//	1. The operation is serialized into a Command
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. Once committed, the command is applied to the memtree of each replica
//	4. The result code is converted back into a tree error (nil on success)
//
//	A Writable buffers the new contents locally and proposes a single Write command on
//	Close, so replicas always hold either the old or the new contents of a leaf.
//
// Read Operations:
//
//	Lookups without create, Range and Read use SyncRead, which guarantees that the local
//	replica applied every committed entry before the query is answered. Range fetches
//	the complete listing with one query before calling the callback.
//
// Error Handling and Retries:
//
//   - System Busy: When Dragonboat returns ErrSystemBusy, the operation is retried
//     after a short delay, up to five attempts.
//
//   - Timeouts: Every operation has a timeout. Failures of the consensus layer are
//     reported as tree.ErrUnavailable.
//
// Stale Handles:
//
//	Handles are paths. A handle of a removed node reports tree.ErrNotFound until a node
//	with the same path is created again, after which the handle addresses the new node.
//
// Snapshotting and Recovery:
//
//	Snapshots are memtree snapshots (see memtree.Save). Recovering nodes load the latest
//	snapshot and then replay the log entries committed after it.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	err = nh.StartConcurrentReplica(members, false, rafttree.CreateStateMachineFactory(), shardConfig)
//
//	root := rafttree.NewRaftTree(nh, shardID, 5*time.Second)
//	dir, err := root.Directory(ctx, "localforage", true)
package rafttree
