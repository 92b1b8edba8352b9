package codec

import (
	"errors"
	"fmt"
)

// ICodec is the interface for all value codecs. A codec converts the values handed to the store
// into the bytes stored in a leaf and back.
type ICodec interface {
	// Name returns the name the codec is registered under (see ByName)
	Name() string
	// Encode converts a value into bytes.
	// It returns ErrUnsupportedType if the codec can not represent the value.
	Encode(v any) ([]byte, error)
	// Decode converts bytes produced by Encode back into a value.
	// It returns ErrInvalidData if the bytes are not a valid encoding.
	Decode(b []byte) (any, error)
}

var (
	// ErrUnsupportedType is returned by Encode for values the codec can not represent
	ErrUnsupportedType = errors.New("codec: unsupported value type")
	// ErrInvalidData is returned by Decode for malformed input
	ErrInvalidData = errors.New("codec: invalid data")
)

// ByName returns a new codec for one of the names "raw", "bytes", "json" or "typed"
func ByName(name string) (ICodec, error) {
	switch name {
	case "raw", "":
		return NewRawCodec(), nil
	case "bytes":
		return NewBytesCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "typed":
		return NewTypedCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q (expected raw, bytes, json or typed)", name)
	}
}
