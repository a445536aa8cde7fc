// Package digest provides fixed-width cryptographic digest types and a
// small streaming-hasher abstraction used throughout the metafile and
// hashing pipeline packages.
//
// Two concrete widths are used by the BitTorrent protocol: 20 bytes for
// SHA-1 (v1 piece hashes and the v1 infohash) and 32 bytes for SHA-256
// (v2 Merkle tree nodes and the v2 infohash). Go does not support
// generic array lengths, so each width gets its own named type; both
// expose the same hex/compare/ordering surface.
package digest

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Hash1 is a 20-byte digest (SHA-1).
type Hash1 [20]byte

// Hash2 is a 32-byte digest (SHA-256).
type Hash2 [32]byte

// NewHash1 constructs a Hash1 from raw bytes, rejecting any length
// other than 20.
func NewHash1(b []byte) (Hash1, error) {
	var h Hash1
	if len(b) != len(h) {
		return h, fmt.Errorf("digest: hash1 must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewHash1FromHex decodes a 40-character hex string into a Hash1.
func NewHash1FromHex(s string) (Hash1, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash1{}, fmt.Errorf("digest: invalid hex: %w", err)
	}
	return NewHash1(b)
}

// Bytes returns a copy of the digest's raw bytes.
func (h Hash1) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// String renders the digest as lowercase hex.
func (h Hash1) String() string { return hex.EncodeToString(h[:]) }

// Compare returns -1, 0, or 1 by lexicographic byte comparison, giving
// Hash1 a total order.
func (h Hash1) Compare(other Hash1) int { return bytes.Compare(h[:], other[:]) }

// IsZero reports whether every byte of the digest is zero.
func (h Hash1) IsZero() bool { return h == Hash1{} }

// NewHash2 constructs a Hash2 from raw bytes, rejecting any length
// other than 32.
func NewHash2(b []byte) (Hash2, error) {
	var h Hash2
	if len(b) != len(h) {
		return h, fmt.Errorf("digest: hash2 must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewHash2FromHex decodes a 64-character hex string into a Hash2.
func NewHash2FromHex(s string) (Hash2, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash2{}, fmt.Errorf("digest: invalid hex: %w", err)
	}
	return NewHash2(b)
}

// Bytes returns a copy of the digest's raw bytes.
func (h Hash2) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// String renders the digest as lowercase hex.
func (h Hash2) String() string { return hex.EncodeToString(h[:]) }

// Compare returns -1, 0, or 1 by lexicographic byte comparison, giving
// Hash2 a total order.
func (h Hash2) Compare(other Hash2) int { return bytes.Compare(h[:], other[:]) }

// IsZero reports whether every byte of the digest is zero. A Hash2
// zero value marks an unused padding leaf in a Merkle tree.
func (h Hash2) IsZero() bool { return h == Hash2{} }
