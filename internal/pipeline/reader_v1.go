package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/prxssh/dottorrent/internal/metafile"
)

// v1ChunkReader streams the v1 payload: a single piece-size-aligned
// chunk stream spanning the whole torrent, with file boundaries
// falling wherever they land inside a chunk.
type v1ChunkReader struct {
	reader

	pieceIndex   int64
	chunkOffset  int64
	fileIndex    int64
	readsInChunk int64 // number of read() calls folded into the in-flight chunk
}

func newV1ChunkReader(storage *metafile.FileStorage, chunkSize, maxMemory int64) *v1ChunkReader {
	return &v1ChunkReader{reader: newReader(storage, chunkSize, maxMemory)}
}

// Run reads every file in storage order into piece-size-aligned chunks
// and pushes them to the registered queues. A file that can't be
// opened (absent on disk, or a synthetic padding entry) is treated as
// a run of zero bytes so verification can still flag its pieces as
// missing rather than aborting.
func (r *v1ChunkReader) Run(ctx context.Context) error {
	storage := r.storage
	pieceSize := storage.PieceSize
	if r.chunkSize%pieceSize != 0 {
		return fmt.Errorf("pipeline: chunk size %d is not a multiple of piece size %d", r.chunkSize, pieceSize)
	}
	piecesPerChunk := r.chunkSize / pieceSize

	buf, err := r.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer r.closeQueues()

	flush := func() error {
		err := r.push(ctx, Chunk{
			PieceIndex: r.pieceIndex,
			FileIndex:  r.fileIndex - r.readsInChunk,
			Data:       buf,
		})
		if err != nil {
			return err
		}
		buf, err = r.pool.Get(ctx)
		if err != nil {
			return err
		}
		r.chunkOffset = 0
		r.readsInChunk = 0
		r.pieceIndex += piecesPerChunk
		return nil
	}

	for _, f := range storage.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if f.IsPadding() {
			if err := r.handleMissingFile(ctx, &buf, f.Size); err != nil {
				return err
			}
			r.fileIndex++
			continue
		}

		file, openErr := openFile(storage, f)
		if openErr != nil {
			if err := r.handleMissingFile(ctx, &buf, f.Size); err != nil {
				return err
			}
			r.fileIndex++
			continue
		}

		r.fileIndex++

	readLoop:
		for {
			if ctx.Err() != nil {
				file.Close()
				return ctx.Err()
			}
			n, rerr := file.Read(buf[r.chunkOffset:r.chunkSize])
			r.readsInChunk++
			r.chunkOffset += int64(n)
			r.bytesRead.Add(int64(n))

			if r.chunkOffset == r.chunkSize {
				if err := flush(); err != nil {
					file.Close()
					return err
				}
			}
			if rerr == io.EOF {
				break readLoop
			}
			if rerr != nil {
				file.Close()
				return fmt.Errorf("pipeline: reading %q: %w", f.PathString(), rerr)
			}
		}
		file.Close()
	}

	if r.chunkOffset != 0 {
		piecesInChunk := (r.chunkOffset + pieceSize - 1) / pieceSize
		if err := r.push(ctx, Chunk{
			PieceIndex: r.pieceIndex,
			FileIndex:  r.fileIndex - r.readsInChunk,
			Data:       buf[:r.chunkOffset],
		}); err != nil {
			return err
		}
		r.pieceIndex += piecesInChunk
	} else {
		r.pool.Put(buf)
	}

	return nil
}

// handleMissingFile zero-fills the remainder of a missing or padding
// file's span into the in-flight chunk, flushing full chunks and
// pushing an empty stub chunk per whole piece that the missing file
// covers entirely on its own — mirroring the original's
// handle_missing_file.
func (r *v1ChunkReader) handleMissingFile(ctx context.Context, bufp *[]byte, missingSize int64) error {
	pieceSize := r.storage.PieceSize
	buf := *bufp

	if r.chunkOffset != 0 {
		bytesToFill := min(r.chunkSize-r.chunkOffset, missingSize)
		r.readsInChunk++
		zero(buf[r.chunkOffset : r.chunkOffset+bytesToFill])
		r.chunkOffset += bytesToFill
		missingSize -= bytesToFill
		r.bytesRead.Add(bytesToFill)

		if r.chunkOffset == r.chunkSize {
			if err := r.push(ctx, Chunk{
				PieceIndex: r.pieceIndex,
				FileIndex:  r.fileIndex - r.readsInChunk,
				Data:       buf,
			}); err != nil {
				return err
			}
			r.pieceIndex += r.chunkSize / pieceSize
			next, err := r.pool.Get(ctx)
			if err != nil {
				return err
			}
			buf = next
			*bufp = buf
			r.chunkOffset = 0
			r.readsInChunk = 0
		}
	}

	firstNewPieceIndex := r.pieceIndex + missingSize/pieceSize
	missingSize -= pieceSize * (firstNewPieceIndex - r.pieceIndex)
	for ; r.pieceIndex < firstNewPieceIndex; r.pieceIndex++ {
		if err := r.push(ctx, Chunk{PieceIndex: r.pieceIndex, FileIndex: r.fileIndex, Data: nil}); err != nil {
			return err
		}
	}

	zero(buf[r.chunkOffset : r.chunkOffset+missingSize])
	r.chunkOffset += missingSize
	r.bytesRead.Add(missingSize)
	return nil
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
