// Package client implements the RPC client of tKV.
// NewRPCStore returns a store.IStore that forwards every operation to a shard of a remote server.
//
// The package focuses on:
//   - Transparent RPC access to remote stores
//   - Integration with the transport and serialization layers
//   - Conversion of error responses back into *store.Error values
//
// Values are encoded on the client with the codec given by WithCodec (raw by default),
// the server only stores the encoded bytes. Keys are normalized on the client as well, so
// the server always receives string keys.
//
// Usage Example:
//
//	s, err := client.NewRPCStore(
//	  1, // shard id
//	  store.Config{Name: "app", StoreName: "notes"},
//	  common.ClientConfig{Endpoints: []string{"localhost:8080"}, TimeoutSecond: 5, RetryCount: 3},
//	  http.NewHttpClientTransport(),
//	  serializer.NewBinarySerializer(),
//	  client.WithCodec(codec.NewJSONCodec()),
//	)
//	if err != nil {
//	  return err
//	}
//
//	if _, err := s.SetItem(ctx, "greeting", "hello"); err != nil {
//	  return err
//	}
//
// Errors:
//
//	Error responses of the server are returned as *store.Error with the code sent by the server,
//	so errors.Is(err, store.ErrNotFound) works the same as for a local store. Transport failures
//	are returned with the code RetCUnavailable.
package client
