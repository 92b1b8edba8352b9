package internal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"github.com/ValentinKolb/tKV/lib/tree"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Write with path and value",
			command:  Command{Type: CommandTWrite, Path: "db/store/key", Value: []byte("testvalue")},
			expected: 1 + 1 + 4 + 12 + 9, // Type + Flags + PathLen + Path + Value
		},
		{
			name:     "Mkdir of root child",
			command:  Command{Type: CommandTMkdir, Path: "db"},
			expected: 1 + 1 + 4 + 2,
		},
		{
			name:     "Remove with empty path",
			command:  Command{Type: CommandTRemove, Flags: FlagRecursive},
			expected: 1 + 1 + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.command.SizeBytes(); size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{"Write with value", Command{Type: CommandTWrite, Path: "a/b", Value: []byte("testvalue")}},
		{"Touch without value", Command{Type: CommandTTouch, Path: "a/b"}},
		{"Recursive remove", Command{Type: CommandTRemove, Flags: FlagRecursive, Path: "a"}},
		{"Binary value", Command{Type: CommandTWrite, Path: "bin", Value: []byte{0, 1, 2, 3, 254, 255}}},
		{"Unicode path", Command{Type: CommandTMkdir, Path: "你好/世界"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var got Command
			if err := got.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if got.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", got.Type, tt.command.Type)
			}
			if got.Flags != tt.command.Flags {
				t.Errorf("Flags mismatch: got %v, want %v", got.Flags, tt.command.Flags)
			}
			if got.Path != tt.command.Path {
				t.Errorf("Path mismatch: got %q, want %q", got.Path, tt.command.Path)
			}
			if !bytes.Equal(got.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", got.Value, tt.command.Value)
			}
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d", tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{"Empty data", []byte{}, "data too short for command"},
		{"Data too short", []byte{1, 0, 0}, "data too short for command"},
		{
			name: "Invalid path length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTWrite)
				binary.BigEndian.PutUint32(data[2:headerSize], 1000)
				return data
			}(),
			expectedErr: "data too short for path of length 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)
			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{Type: CommandTRemove, Flags: FlagRecursive, Path: "db/st", Value: []byte("xy")}

	expected := []byte{byte(CommandTRemove), byte(FlagRecursive), 0, 0, 0, 5, 'd', 'b', '/', 's', 't', 'x', 'y'}
	if serialized := cmd.Serialize(); !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
	if !cmd.Recursive() {
		t.Error("Expected Recursive() to report the recursive flag")
	}
}

// TestResultCodes tests that every tree error survives the trip through a result code
func TestResultCodes(t *testing.T) {
	for _, sentinel := range []error{tree.ErrNotFound, tree.ErrTypeMismatch, tree.ErrNotEmpty, tree.ErrInvalidName} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			code := CodeOf(sentinel)
			if err := code.Err("detail"); !errors.Is(err, sentinel) {
				t.Errorf("Expected %v after round trip, got %v", sentinel, err)
			}
		})
	}

	if CodeOf(nil) != ResultOK || ResultOK.Err("") != nil {
		t.Error("Expected nil error to map to ResultOK and back")
	}
	if code := CodeOf(errors.New("disk on fire")); code != ResultInternalError {
		t.Errorf("Expected ResultInternalError for unknown errors, got %d", code)
	}
}
