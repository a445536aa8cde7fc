package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/prxssh/dottorrent/internal/metafile"
)

// v2ChunkReader streams the v2/hybrid payload one file at a time: the
// piece index resets to zero at the start of every file, since each
// file has its own independent Merkle tree.
type v2ChunkReader struct {
	reader

	fileIndex int64
}

func newV2ChunkReader(storage *metafile.FileStorage, chunkSize, maxMemory int64) *v2ChunkReader {
	return &v2ChunkReader{reader: newReader(storage, chunkSize, maxMemory)}
}

// Run reads every non-padding file in storage order, chunk by chunk,
// resetting the piece index per file. Padding entries exist only to
// align v1 piece boundaries and carry no v2 tree data, so they are
// skipped entirely (but still counted toward bytes read, matching
// their contribution to the overall transfer size). A file missing
// from disk pushes a single stub chunk covering the whole file.
func (r *v2ChunkReader) Run(ctx context.Context) error {
	storage := r.storage
	pieceSize := storage.PieceSize
	piecesPerChunk := r.chunkSize / pieceSize
	defer r.closeQueues()

	for _, f := range storage.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if f.IsPadding() {
			r.bytesRead.Add(f.Size)
			r.fileIndex++
			continue
		}

		file, openErr := openFile(storage, f)
		if openErr != nil {
			if err := r.push(ctx, Chunk{PieceIndex: 0, FileIndex: r.fileIndex, Data: nil}); err != nil {
				return err
			}
			r.bytesRead.Add(f.Size)
			r.fileIndex++
			continue
		}

		pieceIndex := int64(0)
		for {
			if ctx.Err() != nil {
				file.Close()
				return ctx.Err()
			}
			buf, err := r.pool.Get(ctx)
			if err != nil {
				file.Close()
				return err
			}
			n, rerr := io.ReadFull(file, buf)
			if n == 0 {
				r.pool.Put(buf)
				if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
					file.Close()
					return fmt.Errorf("pipeline: reading %q: %w", f.PathString(), rerr)
				}
				break
			}
			r.bytesRead.Add(int64(n))

			if err := r.push(ctx, Chunk{PieceIndex: pieceIndex, FileIndex: r.fileIndex, Data: buf[:n]}); err != nil {
				file.Close()
				return err
			}
			pieceIndex += piecesPerChunk

			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				break
			}
			if rerr != nil {
				file.Close()
				return fmt.Errorf("pipeline: reading %q: %w", f.PathString(), rerr)
			}
		}
		file.Close()
		r.fileIndex++
	}
	return nil
}
