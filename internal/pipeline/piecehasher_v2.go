package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/merkle"
	"github.com/prxssh/dottorrent/internal/metafile"
)

// v2PieceHasher computes each file's SHA-256 Merkle tree from the v2
// chunk stream, writing the resulting pieces root and piece layer
// back onto the file entry. When hybrid is true it additionally
// derives the v1 SHA-1 piece hashes from the same blocks, padding the
// final piece of a file with the following ".pad" entry's zero bytes
// where one exists (spec.md §4.I).
type v2PieceHasher struct {
	storage     *metafile.FileStorage
	pieceSize   int64
	hybrid      bool
	merkleTrees []*merkle.Tree
	// fileBytesHashed tracks cumulative hashed bytes per file; the
	// worker whose add makes the running total equal the file's full
	// size is the one that finalizes that file's tree (exactly one
	// worker, since chunks within a file never overlap).
	fileBytesHashed []atomic.Int64
	// v1PieceOffsets[i] is the global v1 piece index file i's data
	// starts at, used only when hybrid is true.
	v1PieceOffsets []int64

	bytesHashedN atomic.Int64
	bytesDoneN   atomic.Int64
}

func newV2PieceHasher(storage *metafile.FileStorage, pieceSize int64, hybrid bool) *v2PieceHasher {
	files := storage.Files
	trees := make([]*merkle.Tree, len(files))
	v1Offsets := make([]int64, len(files)+1)

	for i, f := range files {
		if f.IsPadding() {
			trees[i] = merkle.New(1)
			v1Offsets[i+1] = v1Offsets[i]
			continue
		}
		leafCount := int((f.Size + BlockSize - 1) / BlockSize)
		if leafCount == 0 {
			leafCount = 1
		}
		trees[i] = merkle.New(leafCount)
		v1Offsets[i+1] = v1Offsets[i] + (f.Size+pieceSize-1)/pieceSize
	}

	return &v2PieceHasher{
		storage:         storage,
		pieceSize:       pieceSize,
		hybrid:          hybrid,
		merkleTrees:     trees,
		fileBytesHashed: make([]atomic.Int64, len(files)),
		v1PieceOffsets:  v1Offsets,
	}
}

func (h *v2PieceHasher) bytesHashed() int64 { return h.bytesHashedN.Load() }
func (h *v2PieceHasher) bytesDone() int64   { return h.bytesDoneN.Load() }

func (h *v2PieceHasher) run(ctx context.Context, queue <-chan Chunk) error {
	sha256H, err := digest.NewHasher(digest.SHA256)
	if err != nil {
		return err
	}
	var sha1H digest.Hasher
	if h.hybrid {
		sha1H, err = digest.NewHasher(digest.SHA1)
		if err != nil {
			return err
		}
	}

	for chunk := range queue {
		if ctx.Err() != nil {
			chunk.Release()
			continue
		}
		h.hashChunk(sha256H, sha1H, chunk)
		chunk.Release()
	}
	return nil
}

func (h *v2PieceHasher) hashChunk(sha256H, sha1H digest.Hasher, chunk Chunk) {
	fileIdx := chunk.FileIndex
	entry := h.storage.Files[fileIdx]

	if chunk.Data == nil {
		h.bytesDoneN.Add(entry.Size)
		return
	}

	tree := h.merkleTrees[fileIdx]
	data := chunk.Data
	piecesInChunk := (int64(len(data)) + h.pieceSize - 1) / h.pieceSize
	blocksInChunk := (int64(len(data)) + BlockSize - 1) / BlockSize
	indexOffset := chunk.PieceIndex * h.pieceSize / BlockSize

	leafBuf := make([]byte, sha256H.Size())
	var i int64
	for ; i < blocksInChunk-1; i++ {
		sha256H.Reset()
		sha256H.Update(data[i*BlockSize : (i+1)*BlockSize])
		sha256H.FinalizeTo(leafBuf)
		tree.SetLeaf(int(indexOffset+i), hash2(leafBuf))
		h.bytesHashedN.Add(BlockSize)
	}
	finalBlock := data[i*BlockSize:]
	sha256H.Reset()
	sha256H.Update(finalBlock)
	sha256H.FinalizeTo(leafBuf)
	tree.SetLeaf(int(indexOffset+i), hash2(leafBuf))
	h.bytesHashedN.Add(int64(len(finalBlock)))

	if h.fileBytesHashed[fileIdx].Add(int64(len(data))) == entry.Size {
		h.finalizePieceLayer(sha256H, fileIdx)
	}

	if h.hybrid {
		h.hashV1Compat(sha1H, chunk, data, piecesInChunk)
	}

	h.bytesDoneN.Add(int64(len(data)))
}

// hashV1Compat derives SHA-1 piece hashes from the same blocks already
// read for the v2 tree, reproducing v2_chunk_hasher::hash_chunk's
// cross-file padding lookahead verbatim: an incomplete final piece is
// padded with the immediately following ".pad" entry's zero bytes,
// unless this is (arguably, the second-to-last or) the last file in
// the storage, in which case it is hashed short.
func (h *v2PieceHasher) hashV1Compat(sha1H digest.Hasher, chunk Chunk, data []byte, piecesInChunk int64) {
	sha1buf := make([]byte, sha1H.Size())
	needsPadding := int64(len(data))%h.pieceSize != 0
	piecesToProcess := piecesInChunk
	if needsPadding {
		piecesToProcess = piecesInChunk - 1
	}

	var j int64
	for ; j < piecesToProcess; j++ {
		sha1H.Reset()
		sha1H.Update(data[h.pieceSize*j : h.pieceSize*(j+1)])
		sha1H.FinalizeTo(sha1buf)
		h.processPieceHash(chunk.PieceIndex+j, chunk.FileIndex, sha1buf)
		h.bytesHashedN.Add(h.pieceSize)
	}
	if !needsPadding {
		return
	}

	finalPiece := data[h.pieceSize*j:]
	if chunk.FileIndex+1 < int64(len(h.storage.Files))-1 {
		padEntry := h.storage.Files[chunk.FileIndex+1]
		sha1H.Reset()
		sha1H.Update(finalPiece)
		sha1H.Update(make([]byte, padEntry.Size))
		sha1H.FinalizeTo(sha1buf)
		h.processPieceHash(chunk.PieceIndex+j, chunk.FileIndex, sha1buf)
		h.bytesHashedN.Add(int64(len(finalPiece)) + padEntry.Size)
	} else {
		sha1H.Reset()
		sha1H.Update(finalPiece)
		sha1H.FinalizeTo(sha1buf)
		h.processPieceHash(chunk.PieceIndex+j, chunk.FileIndex, sha1buf)
		h.bytesHashedN.Add(int64(len(finalPiece)))
	}
}

func (h *v2PieceHasher) processPieceHash(pieceIdxInFile, fileIdx int64, digestBytes []byte) {
	var hash digest.Hash1
	copy(hash[:], digestBytes)
	global := h.v1PieceOffsets[fileIdx] + pieceIdxInFile
	_ = h.storage.SetPieceHash(int(global), hash)
}

func (h *v2PieceHasher) finalizePieceLayer(hasher digest.Hasher, fileIdx int64) {
	tree := h.merkleTrees[fileIdx]
	tree.Update(hasher)

	entry := h.storage.Files[fileIdx]
	entry.PiecesRoot = tree.Root()
	entry.PieceLayer = tree.PieceLayer(entry.Size, h.pieceSize, BlockSize)
}

func hash2(b []byte) digest.Hash2 {
	var h digest.Hash2
	copy(h[:], b)
	return h
}
