package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/metafile"
)

// pieceHasher consumes chunks from a queue and reports progress. A
// storage_hasher or storage_verifier runs one or more of these
// concurrently, one goroutine per worker, all pulling from the same
// queue channel.
type pieceHasher interface {
	run(ctx context.Context, queue <-chan Chunk) error
	bytesHashed() int64
	bytesDone() int64
}

// v1PieceHasher computes the SHA-1 hash of every piece in the v1
// chunk stream and writes it into the storage's piece table.
type v1PieceHasher struct {
	storage *metafile.FileStorage

	bytesHashedN atomic.Int64
	bytesDoneN   atomic.Int64
}

func newV1PieceHasher(storage *metafile.FileStorage) *v1PieceHasher {
	return &v1PieceHasher{storage: storage}
}

func (h *v1PieceHasher) bytesHashed() int64 { return h.bytesHashedN.Load() }
func (h *v1PieceHasher) bytesDone() int64   { return h.bytesDoneN.Load() }

func (h *v1PieceHasher) run(ctx context.Context, queue <-chan Chunk) error {
	hasher, err := digest.NewHasher(digest.SHA1)
	if err != nil {
		return err
	}
	buf := make([]byte, hasher.Size())

	for chunk := range queue {
		if ctx.Err() != nil {
			chunk.Release()
			continue
		}
		h.hashChunk(hasher, buf, chunk)
		chunk.Release()
	}
	return nil
}

// hashChunk mirrors v1_chunk_hasher::hash_chunk: a chunk without data
// stands in for one missing piece, and a chunk with data is split into
// piece_size-sized slices (the final slice possibly shorter).
func (h *v1PieceHasher) hashChunk(hasher digest.Hasher, buf []byte, chunk Chunk) {
	pieceSize := h.storage.PieceSize

	if chunk.Data == nil {
		h.bytesDoneN.Add(pieceSize)
		return
	}

	data := chunk.Data
	piecesInChunk := (int64(len(data)) + pieceSize - 1) / pieceSize

	var i int64
	for ; i < piecesInChunk-1; i++ {
		hasher.Reset()
		hasher.Update(data[pieceSize*i : pieceSize*(i+1)])
		hasher.FinalizeTo(buf)
		h.setPieceHash(chunk.PieceIndex+i, buf)
		h.bytesDoneN.Add(pieceSize)
	}

	final := data[pieceSize*i:]
	hasher.Reset()
	hasher.Update(final)
	hasher.FinalizeTo(buf)
	h.setPieceHash(chunk.PieceIndex+i, buf)
	h.bytesDoneN.Add(int64(len(final)))

	h.bytesHashedN.Add(int64(len(data)))
}

func (h *v1PieceHasher) setPieceHash(pieceIdx int64, digestBytes []byte) {
	var hash digest.Hash1
	copy(hash[:], digestBytes)
	_ = h.storage.SetPieceHash(int(pieceIdx), hash)
}
