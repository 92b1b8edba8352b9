package codec

import "fmt"

// NewBytesCodec creates a codec that stores byte slices unchanged, decoding yields a []byte
func NewBytesCodec() ICodec {
	return &bytesCodecImpl{}
}

type bytesCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c bytesCodecImpl) Name() string {
	return "bytes"
}

func (c bytesCodecImpl) Encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return nil, fmt.Errorf("%w: bytes codec can not encode %T", ErrUnsupportedType, v)
	}
}

func (c bytesCodecImpl) Decode(b []byte) (any, error) {
	return b, nil
}
