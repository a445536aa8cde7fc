package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/prxssh/dottorrent/internal/metafile"
)

// defaultQueueCapacity is a default count of in-flight chunks for a
// hash or checksum queue. StorageHasher and StorageVerifier do not read
// it: they size each queue as max memory divided by chunk size, the way
// the original's max_memory/chunk_size sized mpmc queue did.
const defaultQueueCapacity = 4

// reader is the shared state and fan-out behavior of the v1 and v2
// chunk readers: both stream file bytes off disk into pooled buffers
// and push the resulting chunks to every registered hash and checksum
// queue.
type reader struct {
	storage   *metafile.FileStorage
	chunkSize int64
	pool      *bufferPool

	hashQueues     []chan Chunk
	checksumQueues []chan Chunk

	bytesRead atomic.Int64
}

func newReader(storage *metafile.FileStorage, chunkSize, maxMemory int64) reader {
	capacity := maxMemory / chunkSize
	return reader{
		storage:   storage,
		chunkSize: chunkSize,
		pool:      newBufferPool(int(chunkSize), capacity),
	}
}

// registerHashQueue adds q as a destination for every chunk the reader
// produces. Must be called before Run.
func (r *reader) registerHashQueue(q chan Chunk) { r.hashQueues = append(r.hashQueues, q) }

// registerChecksumQueue adds q as a destination for every chunk the
// reader produces, alongside any registered hash queues.
func (r *reader) registerChecksumQueue(q chan Chunk) { r.checksumQueues = append(r.checksumQueues, q) }

// BytesRead returns the number of bytes read from disk so far,
// including zero-filled bytes substituted for missing files.
func (r *reader) BytesRead() int64 { return r.bytesRead.Load() }

// push fans c out to every registered queue, respecting ctx
// cancellation so a cancelled pipeline doesn't deadlock on a full
// channel nobody is draining anymore. When c carries a pooled buffer
// and is fanned out to more than one destination, every recipient gets
// a Release-counted copy so the buffer returns to the pool only once
// all of them are done with it.
func (r *reader) push(ctx context.Context, c Chunk) error {
	total := len(r.hashQueues) + len(r.checksumQueues)
	if c.Data != nil && total > 1 {
		var remaining atomic.Int64
		remaining.Store(int64(total))
		buf := c.Data
		pool := r.pool
		c.release = func() {
			if remaining.Add(-1) == 0 {
				pool.Put(buf)
			}
		}
	} else if c.Data != nil && total == 1 {
		buf := c.Data
		pool := r.pool
		c.release = func() { pool.Put(buf) }
	}

	for _, q := range r.hashQueues {
		select {
		case q <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, q := range r.checksumQueues {
		select {
		case q <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// closeQueues closes every registered queue, signaling hashers that no
// further chunks will arrive.
func (r *reader) closeQueues() {
	for _, q := range r.hashQueues {
		close(q)
	}
	for _, q := range r.checksumQueues {
		close(q)
	}
}

// openFile opens the file entry's absolute path rooted at the
// storage's Root. Callers treat any error (including a padding entry,
// which has no backing file) as a missing file.
func openFile(storage *metafile.FileStorage, f *metafile.FileEntry) (*os.File, error) {
	path := filepath.Join(storage.Root, filepath.FromSlash(f.PathString()))
	return os.Open(path)
}
