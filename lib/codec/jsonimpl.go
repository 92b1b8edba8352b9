package codec

import (
	"encoding/json"
	"fmt"
)

// NewJSONCodec creates a codec using json encoding. Decoding yields the generic json types
// (map[string]any, []any, float64, string, bool, nil).
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Name() string {
	return "json"
}

func (j jsonCodecImpl) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	return b, nil
}

func (j jsonCodecImpl) Decode(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return v, nil
}
