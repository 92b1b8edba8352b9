package internal

import (
	"encoding/binary"
	"fmt"
)

// CommandType defines the possible write operations for the state machine.
type CommandType uint8

const (
	CommandTMkdir  CommandType = iota // Create a directory if it does not exist.
	CommandTTouch                     // Create an empty leaf if it does not exist.
	CommandTWrite                     // Replace the contents of an existing leaf.
	CommandTRemove                    // Remove a node (FlagRecursive removes non-empty directories).
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTMkdir:
		return "Mkdir"
	case CommandTTouch:
		return "Touch"
	case CommandTWrite:
		return "Write"
	case CommandTRemove:
		return "Remove"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// CommandFlags modify the behaviour of a command
type CommandFlags uint8

const (
	FlagRecursive CommandFlags = 1 << iota // Remove directories including their children.
)

const headerSize = 1 + 1 + 4 // Type + Flags + PathLen

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type  CommandType
	Flags CommandFlags
	Path  string // slash separated path from the root, "" is the root itself
	Value []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Path) + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 1 byte for flags,
// 4 bytes for path length (big endian),
// N bytes for path data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	result[1] = byte(command.Flags)
	binary.BigEndian.PutUint32(result[2:headerSize], uint32(len(command.Path)))
	copy(result[headerSize:], command.Path)
	copy(result[headerSize+len(command.Path):], command.Value)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Flags = CommandFlags(data[1])
	pathLen := binary.BigEndian.Uint32(data[2:headerSize])

	if len(data) < headerSize+int(pathLen) {
		return fmt.Errorf("data too short for path of length %d", pathLen)
	}
	command.Path = string(data[headerSize : headerSize+int(pathLen)])

	if rest := data[headerSize+int(pathLen):]; len(rest) > 0 {
		// Reuse existing buffer if possible to reduce allocations
		if cap(command.Value) < len(rest) {
			command.Value = make([]byte, len(rest))
		} else {
			command.Value = command.Value[:len(rest)]
		}
		copy(command.Value, rest)
	} else {
		command.Value = nil
	}

	return nil
}

// Recursive reports whether FlagRecursive is set
func (command *Command) Recursive() bool {
	return command.Flags&FlagRecursive != 0
}
