package serializer

import (
	"errors"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	scope := common.Scope{Name: "app", StoreName: "notes"}
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Requests
		*common.NewSetItemRequest(scope, "test-key", []byte("test-value")),
		*common.NewGetItemRequest(common.Scope{Name: "app", EscapeKeys: true}, "a/b"),
		*common.NewKeyRequest(scope, 7),
		*common.NewKeyRequest(scope, -1),
		*common.NewDropInstanceRequest(common.Scope{Name: "app"}),

		// Responses
		*common.NewGetItemResponse([]byte("test-value"), nil),
		*common.NewKeyResponse("a/b", true, nil),
		*common.NewLengthResponse(42, nil),
		*common.NewKeysResponse([]string{"a", "b/c", "d"}, nil),
		*common.NewIterateResponse([]common.Entry{
			{Key: "a", Value: []byte("1")},
			{Key: "b/c", Value: []byte("2")},
		}, nil),
		*common.NewDropInstanceResponse("app/notes/", nil),
		*common.NewRemoveItemResponse(store.NewError(store.RetCNotFound, "key not found")),

		// Error response
		*common.NewErrorResponse(store.RetCInternalError, "test error message"),

		// Message with all fields filled
		{
			MsgType:    common.MsgTCustom,
			Name:       "db",
			StoreName:  "store",
			EscapeKeys: true,
			Key:        "test-key",
			Index:      3,
			Value:      []byte("test-value"),
			Keys:       []string{"x", "y"},
			Entries:    []common.Entry{{Key: "x", Value: []byte("1")}},
			Count:      12,
			Ok:         true,
			Code:       store.RetCUnavailable,
			Err:        "unavailable",
			Meta:       []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVSetItem,
				Key:     "test",
				Value:   []byte{},
			},
		},
		{
			name: "Empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
		{
			name: "Empty key list but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVKeys,
				Keys:    []string{},
			},
		},
		{
			name: "Empty entry list and entry with empty value",
			msg: common.Message{
				MsgType: common.MsgTKVIterate,
				Entries: []common.Entry{{Key: "k", Value: []byte{}}},
			},
		},
		{
			name: "Negative index",
			msg: common.Message{
				MsgType: common.MsgTKVKey,
				Index:   -5,
			},
		},
		{
			name: "Empty strings inside the key list",
			msg: common.Message{
				MsgType: common.MsgTKVKeys,
				Keys:    []string{"", "a", ""},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// The binary format keeps the difference between nil and empty slices
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestSerializerResetsMessage tests that fields of a reused message are cleared
func TestSerializerResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewLengthResponse(3, nil))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := common.Message{Key: "stale", Value: []byte("stale"), Ok: true, Code: store.RetCNotFound, Err: "stale"}
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Key != "" || msg.Value != nil || msg.Ok || msg.Err != "" || msg.Code != store.RetCSuccess || msg.Count != 3 {
				t.Errorf("Expected a clean length response, got %+v", msg)
			}
		})
	}
}

// TestInvalidMessage tests that all serializers report garbage as ErrInvalidMessage
func TestInvalidMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var msg common.Message
			if err := factory().Deserialize([]byte{0xff}, &msg); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("Expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half of the flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 0, 8, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 0, 32, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Missing index",
			data:        []byte{1, 0, 16, 0, 0}, // Index flag but only 2 bytes
			expectError: true,
		},
		{
			name:        "Key count larger than data",
			data:        []byte{1, 0, 64, 0xff, 0xff, 0xff, 0xff}, // Claims 4 billion keys
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
