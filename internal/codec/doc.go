// Package codec serializes passfile content and wire messages.
//
// Three layers are exposed:
//
//   - Marshal/Unmarshal: CBOR with Core Deterministic Encoding, so the
//     same logical value always yields the same bytes. Used on the gRPC
//     wire and as the basis for section fingerprints.
//   - EncodeContent/DecodeContent: deterministic CBOR wrapped in a zstd
//     frame. This is the plaintext that the chained cipher encrypts.
//   - Fingerprint: a BLAKE3 keyed digest of the CBOR encoding, used to
//     compare sections during a three-way merge.
package codec
