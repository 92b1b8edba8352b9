package serializer

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// NewJSONSerializer creates a serializer that writes the messages as JSON objects with the
// field names of common.Message (e.g. {"msg_type":3,"name":"app","key":"a/b"}).
// Values and entries are base64 encoded, nil and empty slices are not distinguished.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var decoded common.Message
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("%w: json: %v", ErrInvalidMessage, err)
	}
	*msg = decoded
	return nil
}
