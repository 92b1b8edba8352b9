package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Scope identifies a store on the server: database name, store name and key escaping.
type Scope struct {
	Name       string
	StoreName  string
	EscapeKeys bool
}

// ScopeOf returns the scope of a store configuration
func ScopeOf(cfg store.Config) Scope {
	return Scope{
		Name:       cfg.Name,
		StoreName:  cfg.StoreName,
		EscapeKeys: cfg.EscapeKeys,
	}
}

// Config returns the store configuration for the scope
func (s Scope) Config() store.Config {
	return store.Config{
		Name:       s.Name,
		StoreName:  s.StoreName,
		EscapeKeys: s.EscapeKeys,
	}
}

// Entry is a single key-value pair of an Iterate response
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Scope of the request (all store operations)
	Name       string `json:"name,omitempty"`
	StoreName  string `json:"storeName,omitempty"`
	EscapeKeys bool   `json:"escapeKeys,omitempty"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: GetItem, SetItem, RemoveItem (request), Key (response)
	Index int64  `json:"index,omitempty"` // Used for: Key (request)
	Value []byte `json:"value,omitempty"` // Used for: SetItem (request), GetItem (response)

	// Response only fields
	Keys    []string      `json:"keys,omitempty"`    // Used for: Keys responses
	Entries []Entry       `json:"entries,omitempty"` // Used for: Iterate responses
	Count   uint64        `json:"count,omitempty"`   // Used for: Length responses
	Ok      bool          `json:"ok,omitempty"`      // Used for: Key, Ping responses
	Code    store.RetCode `json:"code,omitempty"`    // RetCSuccess if no error
	Err     string        `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: DropInstance (dropped path), Custom
}

// Scope returns the scope of a request
func (m *Message) Scope() Scope {
	return Scope{
		Name:       m.Name,
		StoreName:  m.StoreName,
		EscapeKeys: m.EscapeKeys,
	}
}

// setError fills the error fields of a response. For a *store.Error only the message
// (and the cause) is sent, the code travels in Code.
func (m *Message) setError(err error) *Message {
	if err == nil {
		return m
	}
	m.Code = store.CodeOf(err)
	var e *store.Error
	if errors.As(err, &e) {
		m.Err = e.Msg
		if e.Err != nil {
			m.Err += ": " + e.Err.Error()
		}
	} else {
		m.Err = err.Error()
	}
	return m
}

// scoped creates a request for the scope
func scoped(t MessageType, scope Scope) *Message {
	return &Message{
		MsgType:    t,
		Name:       scope.Name,
		StoreName:  scope.StoreName,
		EscapeKeys: scope.EscapeKeys,
	}
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewIterateRequest creates a new Iterate request
func NewIterateRequest(scope Scope) *Message {
	return scoped(MsgTKVIterate, scope)
}

// NewIterateResponse creates a new Iterate response with all entries in traversal order
func NewIterateResponse(entries []Entry, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVIterate,
		Entries: entries,
	}
	return msg.setError(err)
}

// NewGetItemRequest creates a new GetItem request
func NewGetItemRequest(scope Scope, key string) *Message {
	msg := scoped(MsgTKVGetItem, scope)
	msg.Key = key
	return msg
}

// NewGetItemResponse creates a new GetItem response
func NewGetItemResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGetItem,
		Value:   value,
	}
	return msg.setError(err)
}

// NewSetItemRequest creates a new SetItem request
func NewSetItemRequest(scope Scope, key string, value []byte) *Message {
	msg := scoped(MsgTKVSetItem, scope)
	msg.Key = key
	msg.Value = value
	return msg
}

// NewSetItemResponse creates a new SetItem response
func NewSetItemResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSetItem,
	}
	return msg.setError(err)
}

// NewRemoveItemRequest creates a new RemoveItem request
func NewRemoveItemRequest(scope Scope, key string) *Message {
	msg := scoped(MsgTKVRemoveItem, scope)
	msg.Key = key
	return msg
}

// NewRemoveItemResponse creates a new RemoveItem response
func NewRemoveItemResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVRemoveItem,
	}
	return msg.setError(err)
}

// NewClearRequest creates a new Clear request
func NewClearRequest(scope Scope) *Message {
	return scoped(MsgTKVClear, scope)
}

// NewClearResponse creates a new Clear response
func NewClearResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVClear,
	}
	return msg.setError(err)
}

// NewLengthRequest creates a new Length request
func NewLengthRequest(scope Scope) *Message {
	return scoped(MsgTKVLength, scope)
}

// NewLengthResponse creates a new Length response
func NewLengthResponse(n int, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVLength,
		Count:   uint64(n),
	}
	return msg.setError(err)
}

// NewKeyRequest creates a new Key request
func NewKeyRequest(scope Scope, n int) *Message {
	msg := scoped(MsgTKVKey, scope)
	msg.Index = int64(n)
	return msg
}

// NewKeyResponse creates a new Key response
func NewKeyResponse(key string, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVKey,
		Key:     key,
		Ok:      ok,
	}
	return msg.setError(err)
}

// NewKeysRequest creates a new Keys request
func NewKeysRequest(scope Scope) *Message {
	return scoped(MsgTKVKeys, scope)
}

// NewKeysResponse creates a new Keys response
func NewKeysResponse(keys []string, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVKeys,
		Keys:    keys,
	}
	return msg.setError(err)
}

// NewDropInstanceRequest creates a new DropInstance request. The target has to be resolved by the caller:
// a name without store name drops the whole database.
func NewDropInstanceRequest(target Scope) *Message {
	return scoped(MsgTKVDropInstance, target)
}

// NewDropInstanceResponse creates a new DropInstance response, the dropped path is sent in Meta
func NewDropInstanceResponse(path string, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVDropInstance,
		Meta:    []byte(path),
	}
	return msg.setError(err)
}

// NewPingRequest creates a new Ping request (support check of a shard)
func NewPingRequest() *Message {
	return &Message{
		MsgType: MsgTPing,
	}
}

// NewPingResponse creates a new Ping response
func NewPingResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTPing,
		Ok:      err == nil,
	}
	return msg.setError(err)
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	return msg.setError(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:        "success",
	MsgTError:          "error",
	MsgTKVIterate:      "iterate",
	MsgTKVGetItem:      "getItem",
	MsgTKVSetItem:      "setItem",
	MsgTKVRemoveItem:   "removeItem",
	MsgTKVClear:        "clear",
	MsgTKVLength:       "length",
	MsgTKVKey:          "key",
	MsgTKVKeys:         "keys",
	MsgTKVDropInstance: "dropInstance",
	MsgTPing:           "ping",
	MsgTCustom:         "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if s, ok := messageTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range messageTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVIterate      // Fetch all entries of a store
	MsgTKVGetItem      // Get a value by key
	MsgTKVSetItem      // Set a key-value pair
	MsgTKVRemoveItem   // Remove a key
	MsgTKVClear        // Remove all entries of a store
	MsgTKVLength       // Count the entries of a store
	MsgTKVKey          // Get the n-th key of a store
	MsgTKVKeys         // Get all keys of a store
	MsgTKVDropInstance // Remove a store or a database

	// Shard operations

	MsgTPing // Check if the storage of a shard is available

	// Custom operations

	MsgTCustom // Custom operation type
)
