package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// maxContentSize bounds the decompressed size of one passfile's content.
const maxContentSize = 64 << 20

// Shared zstd encoder and decoder. EncodeAll and DecodeAll are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxContentSize),
	)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeContent serializes v deterministically and compresses the result.
func EncodeContent(v any) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2+16)), nil
}

// DecodeContent reverses EncodeContent. Any malformed frame or CBOR payload
// is returned as an error; callers decide how to classify it.
func DecodeContent(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress content: %w", err)
	}
	if err := Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	return nil
}
