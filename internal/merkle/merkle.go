// Package merkle implements the balanced binary SHA-256 Merkle tree
// used to compute BitTorrent v2 per-file pieces roots and piece
// layers (spec.md §4.C).
//
// The tree is stored as a single flat slice, slot 0 is the root, and
// unused trailing leaves (when the logical leaf count isn't a power of
// two) are the zero digest. All index arithmetic uses Go's native int
// (64-bit on every realistic build target) rather than a fixed-width
// integer, since the original C++ implementation's `(1U << layer)`
// expression overflows for trees deeper than 30 layers.
package merkle

import (
	"math/bits"

	"github.com/prxssh/dottorrent/internal/digest"
)

// Tree is a fixed-leaf-count SHA-256 Merkle tree. The zero value is not
// usable; construct with New.
type Tree struct {
	data   []digest.Hash2
	height int // depth of the leaf layer; root is layer 0
}

// New constructs a tree sized to hold leafCount logical leaves. The
// physical leaf count is rounded up to the next power of two; the
// padding leaves are left as the zero digest.
func New(leafCount int) *Tree {
	height := log2Ceil(leafCount)
	nodeCount := (1 << (height + 1)) - 1
	return &Tree{
		data:   make([]digest.Hash2, nodeCount),
		height: height,
	}
}

// Height returns the depth of the leaf layer (0 for a single-leaf
// tree).
func (t *Tree) Height() int { return t.height }

// LeafCount returns the physical (power-of-two) leaf count.
func (t *Tree) LeafCount() int { return 1 << t.height }

// SetLeaf sets the leaf at index i. Safe to call concurrently for
// disjoint values of i: each write touches a distinct slice element,
// and distinct elements of a slice never race in the Go memory model.
func (t *Tree) SetLeaf(i int, v digest.Hash2) {
	t.data[flatIndex(t.height, i)] = v
}

// GetLeaf returns the leaf at index i.
func (t *Tree) GetLeaf(i int) digest.Hash2 {
	return t.data[flatIndex(t.height, i)]
}

// Update computes every interior node bottom-up from the current leaf
// values, using h as scratch hashing state. Not safe to call
// concurrently with itself or with SetLeaf; callers must ensure all
// leaves are written first and establish a happens-before edge (the
// pipeline's per-file finalization winner pattern provides this).
func (t *Tree) Update(h digest.Hasher) {
	buf := make([]byte, h.Size())
	for layer := t.height; layer > 0; layer-- {
		n := nodesInLayer(layer)
		for i := 0; i+1 < n; i += 2 {
			left := t.data[flatIndex(layer, i)]
			right := t.data[flatIndex(layer, i+1)]

			h.Reset()
			h.Update(left[:])
			h.Update(right[:])
			h.FinalizeTo(buf)

			var parent digest.Hash2
			copy(parent[:], buf)
			t.data[flatIndex(layer-1, i/2)] = parent
		}
	}
}

// Root returns the root digest (slot 0). Valid only after Update.
func (t *Tree) Root() digest.Hash2 { return t.data[0] }

// GetLayer returns the nodes at the given depth, left to right. depth
// 0 is the root (a single-element slice); depth Height() is the leaf
// layer.
func (t *Tree) GetLayer(depth int) []digest.Hash2 {
	start := flatIndex(depth, 0)
	n := nodesInLayer(depth)
	return t.data[start : start+n]
}

func nodesInLayer(layer int) int { return 1 << layer }

// flatIndex maps (layer, index-within-layer) to a position in the flat
// backing slice.
func flatIndex(layer, index int) int { return (1 << layer) - 1 + index }

// log2Ceil returns ceil(log2(n)) for n >= 1, and 0 for n <= 1.
func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// PieceLayer extracts the piece-layer slice for a file of size
// fileSize hashed with piece size pieceSize (spec.md §4.C): the layer
// at depth height-layerOffset, truncated to drop the trailing balancing
// nodes that exist only to complete the tree. Files no larger than
// pieceSize have an empty piece layer (only the root is meaningful).
func (t *Tree) PieceLayer(fileSize, pieceSize, blockSize int64) []digest.Hash2 {
	layerOffset := log2Floor64(pieceSize) - log2Floor64(blockSize)
	if layerOffset >= int64(t.height) {
		return nil
	}

	depth := t.height - int(layerOffset)
	layer := t.GetLayer(depth)

	wantLen := int((fileSize + pieceSize - 1) / pieceSize)
	if wantLen < len(layer) {
		layer = layer[:wantLen]
	}
	return layer
}

func log2Floor64(n int64) int64 {
	return int64(bits.Len64(uint64(n)) - 1)
}
