package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/metafile"
)

// checksumHasher computes a single whole-file digest (independent of
// the v1/v2 piece boundaries) by consuming the same chunk stream a
// pieceHasher sees, in file order. Always run with exactly one
// worker: a whole-file digest is inherently sequential, and the
// original implementation hard-codes thread_count=1 for the same
// reason.
type checksumHasher struct {
	storage *metafile.FileStorage
	algo    digest.Algorithm

	currentFileIndex  int64
	currentFileHashed int64
	bytesHashedN      atomic.Int64
	bytesDoneN        atomic.Int64
}

func newChecksumHasher(storage *metafile.FileStorage, algo digest.Algorithm) *checksumHasher {
	return &checksumHasher{storage: storage, algo: algo}
}

func (h *checksumHasher) bytesHashed() int64 { return h.bytesHashedN.Load() }
func (h *checksumHasher) bytesDone() int64   { return h.bytesDoneN.Load() }

func (h *checksumHasher) run(ctx context.Context, queue <-chan Chunk) error {
	hasher, err := digest.NewHasher(h.algo)
	if err != nil {
		return err
	}
	buf := make([]byte, hasher.Size())

	for chunk := range queue {
		if ctx.Err() != nil {
			chunk.Release()
			continue
		}
		if chunk.Data != nil {
			h.hashChunk(hasher, buf, chunk.Data)
		}
		chunk.Release()
	}
	return nil
}

// hashChunk folds chunk data into the running whole-file digest,
// finalizing and storing a checksum whenever the running total for
// the current file reaches its declared size, then advancing to the
// next file — mirroring v1_checksum_hasher::hash_chunk's sequential
// bookkeeping.
func (h *checksumHasher) hashChunk(hasher digest.Hasher, buf []byte, data []byte) {
	files := h.storage.Files
	if h.currentFileIndex >= int64(len(files)) {
		return
	}
	currentFileSize := files[h.currentFileIndex].Size

	var offset int64
	for offset != int64(len(data)) {
		remaining := currentFileSize - h.currentFileHashed
		available := int64(len(data)) - offset
		n := min(remaining, available)

		hasher.Update(data[offset : offset+n])
		offset += n
		h.bytesHashedN.Add(n)
		h.bytesDoneN.Add(n)
		h.currentFileHashed += n

		if h.currentFileHashed == currentFileSize {
			hasher.FinalizeTo(buf)
			sum := make([]byte, len(buf))
			copy(sum, buf)
			entry := files[h.currentFileIndex]
			if entry.Checksums == nil {
				entry.Checksums = make(map[digest.Algorithm][]byte)
			}
			entry.Checksums[h.algo] = sum
			hasher.Reset()

			h.currentFileIndex++
			h.currentFileHashed = 0
			if h.currentFileIndex >= int64(len(files)) {
				break
			}
			currentFileSize = files[h.currentFileIndex].Size
		}
	}
}
