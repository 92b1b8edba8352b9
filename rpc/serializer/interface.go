package serializer

import (
	"errors"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// ErrInvalidMessage is wrapped by every Deserialize error, the server answers such requests with RetCInvalidArguments
var ErrInvalidMessage = errors.New("invalid rpc message")

// IRPCSerializer converts the store requests and responses (common.Message) to the bytes a transport sends.
// Client and server of a shard must use the same implementation.
type IRPCSerializer interface {
	// Serialize encodes a request or response
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize replaces msg with the decoded message. Fields missing from b are left zero,
	// so a message can be reused for several responses.
	Deserialize(b []byte, msg *common.Message) error
}
