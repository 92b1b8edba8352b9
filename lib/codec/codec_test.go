package codec

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"
)

// TestRawCodec tests the text passthrough codec
func TestRawCodec(t *testing.T) {
	c := NewRawCodec()

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"String", "hello", "hello"},
		{"Empty string", "", ""},
		{"Bytes", []byte("raw bytes"), "raw bytes"},
		{"Nil", nil, ""},
		{"Unicode", "你好世界", "你好世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := c.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			v, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if v != tt.expected {
				t.Errorf("Expected %q, got %v", tt.expected, v)
			}
		})
	}

	if _, err := c.Encode(42); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType for an int, got %v", err)
	}
}

// TestBytesCodec tests that the bytes codec is the identity
func TestBytesCodec(t *testing.T) {
	c := NewBytesCodec()
	in := []byte{0, 1, 2, 254, 255}

	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(b, in) {
		t.Errorf("Expected encoding to be the identity, got %v", b)
	}
	v, _ := c.Decode(b)
	if !bytes.Equal(v.([]byte), in) {
		t.Errorf("Expected decoding to be the identity, got %v", v)
	}
	if _, err := c.Encode(1.5); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType for a float, got %v", err)
	}
}

// TestJSONCodec tests the json codec with generic values
func TestJSONCodec(t *testing.T) {
	c := NewJSONCodec()
	in := map[string]any{"a": 1.0, "b": []any{"x", true, nil}}

	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	v, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(v, in) {
		t.Errorf("Expected %v, got %v", in, v)
	}

	if _, err := c.Decode([]byte("{not json")); !errors.Is(err, ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
	if _, err := c.Encode(make(chan int)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType for a channel, got %v", err)
	}
}

// TestTypedCodecRoundTrip tests that every supported kind survives encoding exactly
func TestTypedCodecRoundTrip(t *testing.T) {
	c := NewTypedCodec()

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"Nil", nil, nil},
		{"True", true, true},
		{"False", false, false},
		{"Float64", 3.25, 3.25},
		{"Negative zero", math.Copysign(0, -1), math.Copysign(0, -1)},
		{"Int as number", 42, 42.0},
		{"Uint64 as number", uint64(7), 7.0},
		{"Float32 as number", float32(0.5), 0.5},
		{"String", "hello", "hello"},
		{"Empty string", "", ""},
		{"Bytes", []byte{0, 1, 255}, []byte{0, 1, 255}},
		{"Empty bytes", []byte{}, []byte{}},
		{"Int8 array", []int8{-128, 0, 127}, []int8{-128, 0, 127}},
		{"Int16 array", []int16{-32768, 1, 32767}, []int16{-32768, 1, 32767}},
		{"Int32 array", []int32{math.MinInt32, 0, math.MaxInt32}, []int32{math.MinInt32, 0, math.MaxInt32}},
		{"Uint16 array", []uint16{0, 65535}, []uint16{0, 65535}},
		{"Uint32 array", []uint32{0, math.MaxUint32}, []uint32{0, math.MaxUint32}},
		{"Float32 array", []float32{1.5, -2.25}, []float32{1.5, -2.25}},
		{"Float64 array", []float64{math.Pi, math.Inf(1)}, []float64{math.Pi, math.Inf(1)}},
		{"Object", map[string]any{"n": 1.0, "s": "x"}, map[string]any{"n": 1.0, "s": "x"}},
		{"Array", []any{"a", 2.0}, []any{"a", 2.0}},
		{"Struct", struct {
			A int    `json:"a"`
			B string `json:"b"`
		}{1, "x"}, map[string]any{"a": 1.0, "b": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := c.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if b[0] != typedMagic || b[1] != typedVersion {
				t.Fatalf("Expected header 'T' 1, got %v", b[:2])
			}
			v, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(v, tt.expected) {
				t.Errorf("Expected %#v, got %#v", tt.expected, v)
			}
		})
	}
}

// TestTypedCodecBinaryFormat tests the exact bytes of a typed array
func TestTypedCodecBinaryFormat(t *testing.T) {
	b, err := NewTypedCodec().Encode([]uint16{1, 0x0203})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	expected := []byte{'T', 1, tagUint16Array, 1, 0, 3, 2}
	if !bytes.Equal(b, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", b, expected)
	}
}

// TestTypedCodecInvalidData tests how the typed codec handles corrupt input
func TestTypedCodecInvalidData(t *testing.T) {
	c := NewTypedCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{"Empty data", []byte{}},
		{"Too short header", []byte{'T', 1}},
		{"Wrong magic", []byte{'X', 1, tagNull}},
		{"Wrong version", []byte{'T', 9, tagNull}},
		{"Unknown tag", []byte{'T', 1, 200}},
		{"Short number", []byte{'T', 1, tagNumber, 1, 2}},
		{"Odd int16 payload", []byte{'T', 1, tagInt16Array, 1, 2, 3}},
		{"Broken object", []byte{'T', 1, tagObject, '{'}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decode(tc.data); !errors.Is(err, ErrInvalidData) {
				t.Errorf("Expected ErrInvalidData, got %v", err)
			}
		})
	}
}

// TestByName tests the codec lookup
func TestByName(t *testing.T) {
	for _, name := range []string{"raw", "bytes", "json", "typed"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if c.Name() != name {
			t.Errorf("Expected codec %q, got %q", name, c.Name())
		}
	}
	if _, err := ByName("yaml"); err == nil {
		t.Error("Expected an error for an unknown codec")
	}
}
