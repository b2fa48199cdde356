// Package rpc defines the passfile service wire contract: request and
// response messages, the gRPC service descriptor, and a client stub.
// Messages travel as deterministic CBOR through a gRPC codec registered
// under CodecName.
package rpc

import (
	"github.com/dmitrijs2005/passkeeper/internal/codec"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype of the passfile service.
const CodecName = "cbor"

type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

func (cborCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(cborCodec{})
}
