package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// NewTypedCodec creates the versioned binary codec. Every encoding starts with a three byte header
// (magic 'T', version, type tag) followed by the payload of the tag.
//
// Supported kinds and what they decode to:
//
//	nil                                     -> nil
//	bool                                    -> bool
//	any Go number                           -> float64
//	string                                  -> string
//	[]byte                                  -> []byte
//	[]int8, []int16, []int32                -> same type
//	[]uint16, []uint32, []float32, []float64 -> same type
//	everything else (maps, structs, slices) -> generic json value
func NewTypedCodec() ICodec {
	return &typedCodecImpl{}
}

type typedCodecImpl struct {
}

const (
	typedMagic   byte = 'T'
	typedVersion byte = 1
	headerSize        = 3
)

// Type tags of the typed codec
const (
	tagNull byte = iota
	tagBool
	tagNumber
	tagString
	tagBytes
	tagInt8Array
	tagInt16Array
	tagInt32Array
	tagUint16Array
	tagUint32Array
	tagFloat32Array
	tagFloat64Array
	tagObject
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c typedCodecImpl) Name() string {
	return "typed"
}

func (c typedCodecImpl) Encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return header(tagNull, 0), nil
	case bool:
		b := header(tagBool, 1)
		if val {
			b[headerSize] = 1
		}
		return b, nil
	case string:
		return append(header(tagString, len(val))[:headerSize], val...), nil
	case []byte:
		return append(header(tagBytes, len(val))[:headerSize], val...), nil
	case []int8:
		b := header(tagInt8Array, len(val))
		for i, x := range val {
			b[headerSize+i] = byte(x)
		}
		return b, nil
	case []int16:
		b := header(tagInt16Array, 2*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint16(b[headerSize+2*i:], uint16(x))
		}
		return b, nil
	case []int32:
		b := header(tagInt32Array, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(b[headerSize+4*i:], uint32(x))
		}
		return b, nil
	case []uint16:
		b := header(tagUint16Array, 2*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint16(b[headerSize+2*i:], x)
		}
		return b, nil
	case []uint32:
		b := header(tagUint32Array, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(b[headerSize+4*i:], x)
		}
		return b, nil
	case []float32:
		b := header(tagFloat32Array, 4*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint32(b[headerSize+4*i:], math.Float32bits(x))
		}
		return b, nil
	case []float64:
		b := header(tagFloat64Array, 8*len(val))
		for i, x := range val {
			binary.LittleEndian.PutUint64(b[headerSize+8*i:], math.Float64bits(x))
		}
		return b, nil
	}

	if f, ok := toFloat(v); ok {
		b := header(tagNumber, 8)
		binary.LittleEndian.PutUint64(b[headerSize:], math.Float64bits(f))
		return b, nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: typed codec can not encode %T: %v", ErrUnsupportedType, v, err)
	}
	return append(header(tagObject, 0), payload...), nil
}

func (c typedCodecImpl) Decode(b []byte) (any, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: data too short for header", ErrInvalidData)
	}
	if b[0] != typedMagic {
		return nil, fmt.Errorf("%w: unexpected magic byte 0x%02x", ErrInvalidData, b[0])
	}
	if b[1] != typedVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidData, b[1])
	}
	tag, p := b[2], b[headerSize:]

	switch tag {
	case tagNull:
		return nil, nil
	case tagBool:
		if len(p) != 1 {
			return nil, fmt.Errorf("%w: bool payload has %d bytes", ErrInvalidData, len(p))
		}
		return p[0] != 0, nil
	case tagNumber:
		if len(p) != 8 {
			return nil, fmt.Errorf("%w: number payload has %d bytes", ErrInvalidData, len(p))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
	case tagString:
		return string(p), nil
	case tagBytes:
		return append([]byte{}, p...), nil
	case tagInt8Array:
		out := make([]int8, len(p))
		for i := range out {
			out[i] = int8(p[i])
		}
		return out, nil
	case tagInt16Array:
		if err := checkWidth(p, 2); err != nil {
			return nil, err
		}
		out := make([]int16, len(p)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(p[2*i:]))
		}
		return out, nil
	case tagInt32Array:
		if err := checkWidth(p, 4); err != nil {
			return nil, err
		}
		out := make([]int32, len(p)/4)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(p[4*i:]))
		}
		return out, nil
	case tagUint16Array:
		if err := checkWidth(p, 2); err != nil {
			return nil, err
		}
		out := make([]uint16, len(p)/2)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(p[2*i:])
		}
		return out, nil
	case tagUint32Array:
		if err := checkWidth(p, 4); err != nil {
			return nil, err
		}
		out := make([]uint32, len(p)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(p[4*i:])
		}
		return out, nil
	case tagFloat32Array:
		if err := checkWidth(p, 4); err != nil {
			return nil, err
		}
		out := make([]float32, len(p)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
		}
		return out, nil
	case tagFloat64Array:
		if err := checkWidth(p, 8); err != nil {
			return nil, err
		}
		out := make([]float64, len(p)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(p[8*i:]))
		}
		return out, nil
	case tagObject:
		var v any
		if err := json.Unmarshal(p, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown type tag %d", ErrInvalidData, tag)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// header allocates the output buffer with the header set and room for n payload bytes
func header(tag byte, n int) []byte {
	b := make([]byte, headerSize+n)
	b[0], b[1], b[2] = typedMagic, typedVersion, tag
	return b
}

func checkWidth(p []byte, width int) error {
	if len(p)%width != 0 {
		return fmt.Errorf("%w: payload of %d bytes is not a multiple of %d", ErrInvalidData, len(p), width)
	}
	return nil
}

// toFloat converts every Go number type into a float64
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
