package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Format: MsgType (1 byte) + flags (2 bytes, big endian) + the present fields in the order of the flags.
// Strings and byte slices are prefixed with their length (4 bytes), lists with their element count (4 bytes).
// Boolean fields are encoded in the flags only.
type binarySerializerImpl struct {
}

// headerSize is the size of MsgType plus flags
const headerSize = 3

// Bit flags to indicate which optional fields are present
const (
	hasName       uint16 = 1 << 0
	hasStoreName  uint16 = 1 << 1
	hasEscapeKeys uint16 = 1 << 2
	hasKey        uint16 = 1 << 3
	hasIndex      uint16 = 1 << 4
	hasValue      uint16 = 1 << 5
	hasKeys       uint16 = 1 << 6
	hasEntries    uint16 = 1 << 7
	hasCount      uint16 = 1 << 8
	hasOk         uint16 = 1 << 9
	hasCode       uint16 = 1 << 10
	hasErr        uint16 = 1 << 11
	hasMeta       uint16 = 1 << 12
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Allocate the exact size needed
	result := make([]byte, headerSize, b.sizeBytes(msg))

	// Write message type, the flags are set at the end
	result[0] = byte(msg.MsgType)
	var flags uint16

	if msg.Name != "" {
		flags |= hasName
		result = appendString(result, msg.Name)
	}
	if msg.StoreName != "" {
		flags |= hasStoreName
		result = appendString(result, msg.StoreName)
	}
	if msg.EscapeKeys {
		flags |= hasEscapeKeys
	}
	if msg.Key != "" {
		flags |= hasKey
		result = appendString(result, msg.Key)
	}
	if msg.Index != 0 {
		flags |= hasIndex
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Index))
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Keys != nil {
		flags |= hasKeys
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Keys)))
		for _, k := range msg.Keys {
			result = appendString(result, k)
		}
	}
	if msg.Entries != nil {
		flags |= hasEntries
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Entries)))
		for _, e := range msg.Entries {
			result = appendString(result, e.Key)
			result = appendBytes(result, e.Value)
		}
	}
	if msg.Count != 0 {
		flags |= hasCount
		result = binary.BigEndian.AppendUint64(result, msg.Count)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Code))
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendString(result, msg.Err)
	}
	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:headerSize], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if err := b.decode(data, msg); err != nil {
		return fmt.Errorf("%w: binary: %v", ErrInvalidMessage, err)
	}
	return nil
}

// decode reads the fields announced by the flags of the header
func (b binarySerializerImpl) decode(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:headerSize])
	r := &binaryReader{data: data, pos: headerSize}

	var err error
	if flags&hasName != 0 {
		if msg.Name, err = r.string("name"); err != nil {
			return err
		}
	}
	if flags&hasStoreName != 0 {
		if msg.StoreName, err = r.string("store name"); err != nil {
			return err
		}
	}
	msg.EscapeKeys = flags&hasEscapeKeys != 0
	if flags&hasKey != 0 {
		if msg.Key, err = r.string("key"); err != nil {
			return err
		}
	}
	if flags&hasIndex != 0 {
		index, err := r.uint64("index")
		if err != nil {
			return err
		}
		msg.Index = int64(index)
	}
	if flags&hasValue != 0 {
		if msg.Value, err = r.bytes("value"); err != nil {
			return err
		}
	}
	if flags&hasKeys != 0 {
		n, err := r.count("keys")
		if err != nil {
			return err
		}
		msg.Keys = make([]string, n)
		for i := range msg.Keys {
			if msg.Keys[i], err = r.string("key"); err != nil {
				return err
			}
		}
	}
	if flags&hasEntries != 0 {
		n, err := r.count("entries")
		if err != nil {
			return err
		}
		msg.Entries = make([]common.Entry, n)
		for i := range msg.Entries {
			if msg.Entries[i].Key, err = r.string("entry key"); err != nil {
				return err
			}
			if msg.Entries[i].Value, err = r.bytes("entry value"); err != nil {
				return err
			}
		}
	}
	if flags&hasCount != 0 {
		if msg.Count, err = r.uint64("count"); err != nil {
			return err
		}
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasCode != 0 {
		code, err := r.uint64("code")
		if err != nil {
			return err
		}
		msg.Code = store.RetCode(code)
	}
	if flags&hasErr != 0 {
		if msg.Err, err = r.string("error"); err != nil {
			return err
		}
	}
	if flags&hasMeta != 0 {
		if msg.Meta, err = r.bytes("meta"); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.Name != "" {
		size += 4 + len(msg.Name)
	}
	if msg.StoreName != "" {
		size += 4 + len(msg.StoreName)
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Index != 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Keys != nil {
		size += 4
		for _, k := range msg.Keys {
			size += 4 + len(k)
		}
	}
	if msg.Entries != nil {
		size += 4
		for _, e := range msg.Entries {
			size += 8 + len(e.Key) + len(e.Value)
		}
	}
	if msg.Count != 0 {
		size += 8
	}
	if msg.Code != store.RetCSuccess {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// binaryReader reads the fields of a serialized message in order
type binaryReader struct {
	data []byte
	pos  int
}

func (r *binaryReader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// count reads the element count of a list. Every element takes at least 4 bytes,
// so counts that can not fit into the remaining data are rejected before allocating.
func (r *binaryReader) count(field string) (int, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s count", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4
	if n > (len(r.data)-r.pos)/4 {
		return 0, fmt.Errorf("data too short for %d %s", n, field)
	}
	return n, nil
}

// bytes reads a length prefixed byte slice, the result is a copy (not nil, even if empty)
func (r *binaryReader) bytes(field string) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4
	if r.pos+n > len(r.data) || n < 0 {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *binaryReader) string(field string) (string, error) {
	b, err := r.bytes(field)
	return string(b), err
}
