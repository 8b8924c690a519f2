// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint derives stable identities for composed models.
//
// A fingerprint is a BLAKE3 keyed hash over the model's canonical
// snapshot, encoded with the deterministic CBOR codec. Two models with
// identical protocols and policy always fingerprint identically, so
// reports can be correlated with the exact model they were checked
// against.
package fingerprint

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/protocheck-foundation/protocheck/lib/codec"
	"github.com/protocheck-foundation/protocheck/lib/compose"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures that the same input bytes produce different
// hashes in different contexts.
type domainKey [32]byte

// Domain separation keys. Fixed constants — changing them invalidates
// every recorded fingerprint in that domain. The byte values are the
// ASCII encoding of the domain name, zero-padded to 32 bytes, so the
// keys are inspectable in hex dumps without sacrificing any
// cryptographic property.
var (
	modelDomainKey = domainKey{
		'p', 'r', 'o', 't', 'o', 'c', 'h', 'e', 'c', 'k', '.',
		'm', 'o', 'd', 'e', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	protocolDomainKey = domainKey{
		'p', 'r', 'o', 't', 'o', 'c', 'h', 'e', 'c', 'k', '.',
		'p', 'r', 'o', 't', 'o', 'c', 'o', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Model computes the model-domain fingerprint of a composed model's
// canonical snapshot.
func Model(m *compose.Model) (Hash, error) {
	data, err := codec.Marshal(m.Snapshot())
	if err != nil {
		return Hash{}, fmt.Errorf("encoding model snapshot: %w", err)
	}
	return keyedHash(modelDomainKey, data), nil
}

// Protocol computes the protocol-domain fingerprint of one component
// snapshot, independent of the composition it appears in.
func Protocol(ps compose.ProtocolSnapshot) (Hash, error) {
	data, err := codec.Marshal(ps)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding protocol snapshot: %w", err)
	}
	return keyedHash(protocolDomainKey, data), nil
}

// Format returns the hex-encoded string representation of a hash.
// This is the canonical format used in reports, logs, and CLI output.
func Format(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// Parse parses a 64-character hex string into a Hash.
func Parse(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing fingerprint: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("fingerprint is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes the BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Hash {
	// NewKeyed requires exactly 32 bytes, which domainKey guarantees.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
