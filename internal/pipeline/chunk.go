// Package pipeline implements the disk-reading and hashing pipeline that
// backs torrent creation and verification: a chunk reader streams file
// bytes off disk in large blocks, and one or more chunk hashers consume
// those blocks concurrently to produce v1 piece hashes, v2 Merkle piece
// layers, and optional whole-file checksums.
package pipeline

// BlockSize is the fixed leaf size of a BitTorrent v2 Merkle tree (16
// KiB, spec.md §4.C). v1 chunks are read in multiples of the piece
// size; v2 chunks are read in multiples of BlockSize.
const BlockSize = 16 * 1024

// Chunk is a block of file data handed from a reader to one or more
// hashers. A nil Data marks a stub: the piece(s) or file it covers
// could not be read from disk (used when verifying a torrent against
// an incomplete download) and should be treated as unconditionally
// failing hash comparison rather than hashed.
type Chunk struct {
	// PieceIndex is the global piece index of the chunk's first byte
	// for the v1 reader, or the piece index within FileIndex's own
	// Merkle tree for the v2/hybrid reader (v2 piece indices restart
	// at 0 for every file).
	PieceIndex int64

	// FileIndex identifies which file in the storage this chunk's
	// data (or stub) belongs to. For the v1 reader a chunk may carry
	// bytes from more than one file; FileIndex names the first.
	FileIndex int64

	Data []byte

	// release is set by the reader on every chunk that carries a pooled
	// buffer: it returns the buffer to the reader's pool once every
	// consumer has called Release, replacing the original
	// implementation's shared_ptr reference counting.
	release func()
}

// Release returns the chunk's buffer to the reader's pool. Every
// consumer of a chunk must call Release exactly once when it is done
// reading Data, whether or not it was hashed. Safe to call on a chunk
// with no backing buffer (a stub).
func (c Chunk) Release() {
	if c.release != nil {
		c.release()
	}
}
