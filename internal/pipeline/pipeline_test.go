package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/merkle"
	"github.com/prxssh/dottorrent/internal/metafile"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func singleFileStorage(t *testing.T, root, name string, size int64, pieceSize int64) *metafile.FileStorage {
	t.Helper()
	storage := metafile.NewFileStorage(root)
	if err := storage.AddFile(&metafile.FileEntry{Path: []string{name}, Size: size}); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := storage.SetPieceSize(pieceSize); err != nil {
		t.Fatalf("SetPieceSize: %v", err)
	}
	return storage
}

func repeatBytes(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestStorageHasherV1SingleFile(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15 // 32 KiB
	data := repeatBytes('a', pieceSize*2+100)
	writeFile(t, dir, "a.bin", data)

	storage := singleFileStorage(t, dir, "a.bin", int64(len(data)), pieceSize)
	storage.AllocatePieces()

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	wantPieces := [][]byte{
		data[:pieceSize],
		data[pieceSize : 2*pieceSize],
		data[2*pieceSize:],
	}
	if len(storage.Pieces) != len(wantPieces) {
		t.Fatalf("got %d pieces, want %d", len(storage.Pieces), len(wantPieces))
	}
	for i, want := range wantPieces {
		wantHash := digest.SumHash1(want)
		if storage.Pieces[i] != wantHash {
			t.Errorf("piece %d: got %v, want %v", i, storage.Pieces[i], wantHash)
		}
	}
	if hasher.BytesRead() != int64(len(data)) {
		t.Errorf("BytesRead = %d, want %d", hasher.BytesRead(), len(data))
	}
}

func TestStorageHasherV1MultiFile(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 14 // 16 KiB
	dataA := repeatBytes('a', pieceSize+500)
	dataB := repeatBytes('b', pieceSize*2)
	writeFile(t, dir, "a.bin", dataA)
	writeFile(t, dir, "b.bin", dataB)

	storage := metafile.NewFileStorage(dir)
	if err := storage.AddFile(&metafile.FileEntry{Path: []string{"a.bin"}, Size: int64(len(dataA))}); err != nil {
		t.Fatalf("AddFile a: %v", err)
	}
	if err := storage.AddFile(&metafile.FileEntry{Path: []string{"b.bin"}, Size: int64(len(dataB))}); err != nil {
		t.Fatalf("AddFile b: %v", err)
	}
	if err := storage.SetPieceSize(pieceSize); err != nil {
		t.Fatalf("SetPieceSize: %v", err)
	}
	storage.AllocatePieces()

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	combined := append(append([]byte{}, dataA...), dataB...)
	var want []digest.Hash1
	for off := 0; off < len(combined); off += pieceSize {
		end := min(off+pieceSize, len(combined))
		want = append(want, digest.SumHash1(combined[off:end]))
	}
	if len(storage.Pieces) != len(want) {
		t.Fatalf("got %d pieces, want %d", len(storage.Pieces), len(want))
	}
	for i := range want {
		if storage.Pieces[i] != want[i] {
			t.Errorf("piece %d: got %v, want %v", i, storage.Pieces[i], want[i])
		}
	}
}

func TestStorageHasherV1MissingFileMarksPieces(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 14

	storage := singleFileStorage(t, dir, "missing.bin", pieceSize*2, pieceSize)
	storage.AllocatePieces()

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	var zero digest.Hash1
	for i, h := range storage.Pieces {
		if h != zero {
			t.Errorf("piece %d: expected zero hash for missing file, got %v", i, h)
		}
	}
	if hasher.BytesDone() != pieceSize*2 {
		t.Errorf("BytesDone = %d, want %d", hasher.BytesDone(), pieceSize*2)
	}
}

func TestStorageHasherV2SingleFile(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15
	data := repeatBytes('c', BlockSize*3+200)
	writeFile(t, dir, "c.bin", data)

	storage := singleFileStorage(t, dir, "c.bin", int64(len(data)), pieceSize)

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	entry := storage.Files[0]
	if entry.PiecesRoot.IsZero() {
		t.Fatal("expected a non-zero pieces root")
	}

	leafCount := (len(data) + BlockSize - 1) / BlockSize
	tree := buildExpectedTree(t, data, leafCount)
	sha256Hasher, err := digest.NewHasher(digest.SHA256)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	tree.Update(sha256Hasher)
	if entry.PiecesRoot != tree.Root() {
		t.Errorf("pieces root mismatch: got %v want %v", entry.PiecesRoot, tree.Root())
	}
	wantLayer := tree.PieceLayer(int64(len(data)), pieceSize, BlockSize)
	if len(entry.PieceLayer) != len(wantLayer) {
		t.Fatalf("piece layer len = %d, want %d", len(entry.PieceLayer), len(wantLayer))
	}
	for i := range wantLayer {
		if entry.PieceLayer[i] != wantLayer[i] {
			t.Errorf("piece layer[%d] mismatch", i)
		}
	}
}

func TestStorageHasherV2MissingFilePushesStubChunk(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15

	storage := singleFileStorage(t, dir, "absent.bin", BlockSize*2, pieceSize)

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if hasher.BytesDone() != BlockSize*2 {
		t.Errorf("BytesDone = %d, want %d", hasher.BytesDone(), BlockSize*2)
	}
	// A missing file's tree is never finalized: leave it as the zero
	// value rather than a spuriously "valid" all-zero root.
	if storage.Files[0].PiecesRoot != (digest.Hash2{}) {
		t.Errorf("expected zero pieces root for a missing file, got %v", storage.Files[0].PiecesRoot)
	}
}

func TestStorageHasherChecksum(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15
	data := repeatBytes('d', pieceSize+10)
	writeFile(t, dir, "d.bin", data)

	storage := singleFileStorage(t, dir, "d.bin", int64(len(data)), pieceSize)
	storage.AllocatePieces()

	opts := DefaultOptions()
	opts.Checksums = []digest.Algorithm{digest.SHA256}
	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, opts)
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	want := digest.SumHash2(data)
	got := storage.Files[0].Checksums[digest.SHA256]
	if len(got) != len(want) {
		t.Fatalf("checksum length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("checksum mismatch at byte %d", i)
		}
	}
}

func TestStorageVerifierV1RoundTrip(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 14
	data := repeatBytes('e', pieceSize*3+42)
	writeFile(t, dir, "e.bin", data)

	storage := singleFileStorage(t, dir, "e.bin", int64(len(data)), pieceSize)
	storage.AllocatePieces()

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("hasher Wait: %v", err)
	}

	verifier, err := NewStorageVerifier(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageVerifier: %v", err)
	}
	verifier.Start(context.Background())
	if err := verifier.Wait(); err != nil {
		t.Fatalf("verifier Wait: %v", err)
	}

	result := verifier.Result()
	if result.Count() != len(storage.Pieces) {
		t.Fatalf("verified %d/%d pieces good", result.Count(), len(storage.Pieces))
	}
	if p := verifier.Percentage(0); p != 1 {
		t.Errorf("Percentage = %v, want 1", p)
	}
}

func TestStorageVerifierV1DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 14
	data := repeatBytes('f', pieceSize*2)
	writeFile(t, dir, "f.bin", data)

	storage := singleFileStorage(t, dir, "f.bin", int64(len(data)), pieceSize)
	storage.AllocatePieces()

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("hasher Wait: %v", err)
	}

	corrupted := append([]byte{}, data...)
	corrupted[pieceSize+5] ^= 0xFF
	writeFile(t, dir, "f.bin", corrupted)

	verifier, err := NewStorageVerifier(storage, metafile.ProtocolV1, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageVerifier: %v", err)
	}
	verifier.Start(context.Background())
	if err := verifier.Wait(); err != nil {
		t.Fatalf("verifier Wait: %v", err)
	}

	result := verifier.Result()
	if !result.Get(0) {
		t.Error("piece 0: expected verification success, got failure")
	}
	if result.Get(1) {
		t.Error("piece 1: expected verification failure, got success")
	}
}

func TestStorageVerifierV2RoundTrip(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15
	data := repeatBytes('g', BlockSize*5+1234)
	writeFile(t, dir, "g.bin", data)

	storage := singleFileStorage(t, dir, "g.bin", int64(len(data)), pieceSize)

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("hasher Wait: %v", err)
	}

	verifier, err := NewStorageVerifier(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageVerifier: %v", err)
	}
	verifier.Start(context.Background())
	if err := verifier.Wait(); err != nil {
		t.Fatalf("verifier Wait: %v", err)
	}

	if p := verifier.Percentage(0); p != 1 {
		t.Errorf("Percentage = %v, want 1", p)
	}
}

func TestStorageVerifierV2DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	const pieceSize = 1 << 15
	data := repeatBytes('h', BlockSize*5+1234)
	writeFile(t, dir, "h.bin", data)

	storage := singleFileStorage(t, dir, "h.bin", int64(len(data)), pieceSize)

	hasher, err := NewStorageHasher(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageHasher: %v", err)
	}
	hasher.Start(context.Background())
	if err := hasher.Wait(); err != nil {
		t.Fatalf("hasher Wait: %v", err)
	}

	corrupted := append([]byte{}, data...)
	corrupted[BlockSize+7] ^= 0xFF
	writeFile(t, dir, "h.bin", corrupted)

	verifier, err := NewStorageVerifier(storage, metafile.ProtocolV2, DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorageVerifier: %v", err)
	}
	verifier.Start(context.Background())
	if err := verifier.Wait(); err != nil {
		t.Fatalf("verifier Wait: %v", err)
	}

	if p := verifier.Percentage(0); p == 1 {
		t.Error("Percentage = 1, expected corruption to be detected")
	}
}

func TestPieceMapSetGetCount(t *testing.T) {
	m := newPieceMap(10)
	if m.Count() != 0 {
		t.Fatalf("Count = %d, want 0", m.Count())
	}
	m.set(0)
	m.set(9)
	if !m.Get(0) || !m.Get(9) {
		t.Fatal("expected bits 0 and 9 to be set")
	}
	if m.Get(1) {
		t.Fatal("bit 1 should be clear")
	}
	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}
}

// buildExpectedTree independently builds a Merkle tree over data using
// BlockSize leaves, for comparison against the pipeline's own output.
// Leaves are set here; the caller finalizes with Update.
func buildExpectedTree(t *testing.T, data []byte, leafCount int) *merkle.Tree {
	t.Helper()
	tree := merkle.New(leafCount)
	for i := 0; i < leafCount; i++ {
		start := i * BlockSize
		end := min(start+BlockSize, len(data))
		tree.SetLeaf(i, digest.SumHash2(data[start:end]))
	}
	return tree
}
