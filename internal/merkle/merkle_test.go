package merkle

import (
	"bytes"
	"testing"

	"github.com/prxssh/dottorrent/internal/digest"
)

func sha256Hasher(t *testing.T) digest.Hasher {
	t.Helper()
	h, err := digest.NewHasher(digest.SHA256)
	if err != nil {
		t.Fatalf("NewHasher(SHA256) error = %v", err)
	}
	return h
}

func TestSingleLeafRootIsLeaf(t *testing.T) {
	tree := New(1)
	leaf := digest.SumHash2(bytes.Repeat([]byte{0}, 16*1024))
	tree.SetLeaf(0, leaf)
	tree.Update(sha256Hasher(t))

	if tree.Root() != leaf {
		t.Fatalf("got %v, want %v", tree.Root(), leaf)
	}
	if len(tree.PieceLayer(16*1024, 16*1024, 16*1024)) != 0 {
		t.Fatal("expected empty piece layer for file == piece size")
	}
}

func TestTwoLeavesRootIsHashOfConcat(t *testing.T) {
	tree := New(2)
	leaf := digest.SumHash2(bytes.Repeat([]byte{0}, 16*1024))
	tree.SetLeaf(0, leaf)
	tree.SetLeaf(1, leaf)
	tree.Update(sha256Hasher(t))

	want := digest.SumHash2(append(append([]byte{}, leaf[:]...), leaf[:]...))
	if tree.Root() != want {
		t.Fatalf("got %v, want %v", tree.Root(), want)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	tree := New(4)
	for i := 0; i < 4; i++ {
		tree.SetLeaf(i, digest.Hash2{byte(i)})
	}
	tree.Update(sha256Hasher(t))
	r1 := tree.Root()

	tree.Update(sha256Hasher(t))
	r2 := tree.Root()

	if r1 != r2 {
		t.Fatalf("update is not idempotent: %v != %v", r1, r2)
	}
}

func TestPieceLayerTruncation(t *testing.T) {
	// 99304 bytes => 7 leaves of 16KiB; pieces of 32KiB (2 leaves/piece) => 4 layer entries.
	const blockSize = 16 * 1024
	const pieceSize = 32 * 1024
	fileSize := int64(3*pieceSize + 1000) // last piece partial

	leafCount := int((fileSize + blockSize - 1) / blockSize)
	tree := New(leafCount)
	for i := 0; i < leafCount; i++ {
		tree.SetLeaf(i, digest.Hash2{byte(i + 1)})
	}
	tree.Update(sha256Hasher(t))

	layer := tree.PieceLayer(fileSize, pieceSize, blockSize)
	want := int((fileSize + pieceSize - 1) / pieceSize)
	if len(layer) != want {
		t.Fatalf("got piece layer len %d, want %d", len(layer), want)
	}
}

func TestLog2Ceil(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4}
	for n, want := range cases {
		if got := log2Ceil(n); got != want {
			t.Errorf("log2Ceil(%d) = %d, want %d", n, got, want)
		}
	}
}
