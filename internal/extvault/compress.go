// Package extvault supplements graph.ExtensionVault with the
// large-payload compression behavior described in SPEC_FULL.md: when an
// Extension's captured RawBytes span reaches a threshold, PrepareRawBytes
// snappy-compresses it and ResolveRawBytes decompresses it again. Nothing
// in internal/builder calls either function. The vault's core storage and lookup logic lives in
// internal/graph (ExtensionVault); this package is purely the
// compress-on-write / decompress-on-read codec layered on top of it.
package extvault

import (
	"github.com/golang/snappy"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// CompressionThreshold is the RawBytes span size at or above which an
// extension is compressed before being attached to the vault.
const CompressionThreshold = 4 * 1024 // 4 KiB

// PrepareRawBytes compresses raw with snappy if it is large enough to be
// worth the framing overhead, returning the bytes to store on
// Extension.RawBytes and whether compression was applied. Extensions
// under the ownership of memory-sensitive large-batch ingestion (spec's
// "memory/goroutine instrumentation" supplement) benefit most since raw
// extension payloads are exactly the part of a Document that can be
// arbitrarily large and opaque.
func PrepareRawBytes(raw []byte) (stored []byte, compressed bool) {
	if len(raw) < CompressionThreshold {
		return raw, false
	}
	return snappy.Encode(nil, raw), true
}

// ResolveRawBytes reverses PrepareRawBytes, decompressing stored if
// compressed is true.
func ResolveRawBytes(stored []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return stored, nil
	}
	out, err := snappy.Decode(nil, stored)
	if err != nil {
		return nil, ddexerr.Wrap(
			ddexerr.CodeInternal, ddexerr.Internal, ddexerr.Fatal,
			"failed to decompress extension raw bytes", err,
		)
	}
	return out, nil
}

// CompressedExtension pairs a graph.Extension with the compression flag
// PrepareRawBytes produced for it, since graph.Extension itself carries
// no compression metadata (the vault's core type stays codec-agnostic;
// compression is an optional layer a caller opts into explicitly).
type CompressedExtension struct {
	*graph.Extension
	Compressed bool
}
