// Package codec provides the value encodings of the key-value store. A codec sits between
// the values handed to the store and the bytes persisted in a tree leaf.
//
// Implementations:
//
//   - raw: Text passthrough. Strings and byte slices are stored unchanged, values always
//     decode to strings. This is the default of the store.
//
//   - bytes: Identity over byte slices. Used by the RPC server, which persists the bytes
//     the client already encoded.
//
//   - json: encoding/json, decodes to the generic json types.
//
//   - typed: Versioned binary encoding with a three byte header (magic 'T', version 1, type
//     tag). Numbers, strings, booleans, null, byte buffers and typed numeric arrays round
//     trip exactly (numbers as float64), everything else is stored as a json payload.
//
// All codecs are stateless and safe for concurrent use.
//
// Usage:
//
//	c := codec.NewTypedCodec()
//	b, err := c.Encode([]float32{1, 2, 3})
//	v, err := c.Decode(b) // []float32{1, 2, 3}
package codec
