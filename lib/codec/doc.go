// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the project's standard CBOR encoding
// configuration.
//
// Two serialization formats are used, with a clear boundary:
//
//   - JSON for external interfaces: protocol definition files, suite
//     output, and CLI reports.
//   - CBOR for canonical internal encodings: the model snapshots that
//     feed fingerprinting, and any persisted verification records.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes — the property model fingerprints depend on.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Types serialized here carry `json` tags only; fxamacker/cbor v2
// reads `json` tags as fallback when `cbor` tags are absent, so a
// single tag controls field naming and omitempty for both formats.
package codec
