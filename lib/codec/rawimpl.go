package codec

import "fmt"

// NewRawCodec creates the text passthrough codec. Strings and byte slices are stored as they are,
// decoding always yields a string. Nil is stored as an empty payload and reads back as "",
// use the typed or json codec to keep null values.
func NewRawCodec() ICodec {
	return &rawCodecImpl{}
}

type rawCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (r rawCodecImpl) Name() string {
	return "raw"
}

func (r rawCodecImpl) Encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(val), nil
	case []byte:
		return append([]byte{}, val...), nil
	case fmt.Stringer:
		return []byte(val.String()), nil
	default:
		return nil, fmt.Errorf("%w: raw codec can not encode %T", ErrUnsupportedType, v)
	}
}

func (r rawCodecImpl) Decode(b []byte) (any, error) {
	return string(b), nil
}
