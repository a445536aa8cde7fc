package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/metafile"
)

// v1PieceVerifier recomputes each v1 piece's SHA-1 hash and compares
// it against the value already recorded in storage, recording the
// outcome in a PieceMap instead of overwriting the stored hash.
type v1PieceVerifier struct {
	storage *metafile.FileStorage
	result  PieceMap

	bytesHashedN atomic.Int64
	bytesDoneN   atomic.Int64
}

func newV1PieceVerifier(storage *metafile.FileStorage) *v1PieceVerifier {
	return &v1PieceVerifier{storage: storage, result: newPieceMap(len(storage.Pieces))}
}

func (v *v1PieceVerifier) bytesHashed() int64 { return v.bytesHashedN.Load() }
func (v *v1PieceVerifier) bytesDone() int64   { return v.bytesDoneN.Load() }

func (v *v1PieceVerifier) run(ctx context.Context, queue <-chan Chunk) error {
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
		v.hashChunk(hasher, buf, chunk)
		chunk.Release()
	}
	return nil
}

func (v *v1PieceVerifier) hashChunk(hasher digest.Hasher, buf []byte, chunk Chunk) {
	pieceSize := v.storage.PieceSize

	if chunk.Data == nil {
		v.bytesDoneN.Add(pieceSize)
		return
	}

	data := chunk.Data
	piecesInChunk := (int64(len(data)) + pieceSize - 1) / pieceSize

	var i int64
	for ; i < piecesInChunk-1; i++ {
		hasher.Reset()
		hasher.Update(data[pieceSize*i : pieceSize*(i+1)])
		hasher.FinalizeTo(buf)
		v.comparePiece(chunk.PieceIndex+i, buf)
		v.bytesDoneN.Add(pieceSize)
	}

	final := data[pieceSize*i:]
	hasher.Reset()
	hasher.Update(final)
	hasher.FinalizeTo(buf)
	v.comparePiece(chunk.PieceIndex+i, buf)
	v.bytesDoneN.Add(int64(len(final)))

	v.bytesHashedN.Add(int64(len(data)))
}

func (v *v1PieceVerifier) comparePiece(pieceIdx int64, computed []byte) {
	idx := int(pieceIdx)
	if idx < 0 || idx >= len(v.storage.Pieces) {
		return
	}
	want := v.storage.Pieces[idx]
	if string(want[:]) == string(computed) {
		v.result.set(idx)
	}
}
