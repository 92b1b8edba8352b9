// Package internal provides the communication protocol structures and serialization
// logic for the rafttree package. It defines the format used to transmit tree
// operations between the tree handles and the replicated state machine.
//
// This package is intended for internal use by the rafttree implementation and should
// not be imported directly by external code.
//
// The package consists of three parts:
//
//   - Command System: Write operations (Mkdir, Touch, Write, Remove) that modify the
//     replicated tree. Commands are serialized and proposed to the RAFT cluster,
//     applied on every replica and produce a ResultCode.
//
//   - Query System: Read operations (Stat, List, Read, Ping) that are answered by the
//     local replica without going through the log and therefore are not serialized.
//
//   - Result Codes: A stable mapping between the errors of the tree package and the
//     numeric codes stored in the RAFT results.
//
// Command Format:
//
//	- 1 byte: Command type (Mkdir, Touch, Write, Remove)
//	- 1 byte: Flags (bit 0: recursive)
//	- 4 bytes: Path length (uint32, big endian)
//	- N bytes: Path (node names joined by "/", empty for the root)
//	- M bytes: Value data (optional, only present for Write)
//
// Node names never contain "/", so the joined path is unambiguous.
package internal
