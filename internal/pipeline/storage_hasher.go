package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/metafile"
)

// Options controls the memory and concurrency behavior of a
// StorageHasher or StorageVerifier.
type Options struct {
	// Checksums names the extra whole-file digests to compute
	// alongside the BitTorrent piece hashes (spec.md §4.B).
	Checksums []digest.Algorithm

	// MinChunkSize is the minimum number of bytes read from disk per
	// I/O call; piece sizes smaller than this are batched into one
	// read for better disk throughput.
	MinChunkSize int64

	// MaxMemory bounds the total bytes held in flight across every
	// buffer checked out of the reader's pool at once.
	MaxMemory int64

	// Threads is the number of concurrent piece-hashing workers.
	// Checksum hashers always run single-threaded, since a whole-file
	// digest is inherently sequential.
	Threads int
}

// DefaultOptions returns sensible defaults: a 1 MiB minimum chunk, 128
// MiB of buffered memory, and two hashing threads.
func DefaultOptions() Options {
	return Options{MinChunkSize: 1 << 20, MaxMemory: 128 << 20, Threads: 2}
}

// FileProgress reports which file is currently being processed and
// how many of its bytes have been hashed so far.
type FileProgress struct {
	FileIndex   int
	BytesHashed int64
}

// StorageHasher reads every file in a FileStorage and computes its
// piece hashes (v1, v2, or both for hybrid) plus any requested
// checksums, fully populating the storage for metafile creation.
type StorageHasher struct {
	storage  *metafile.FileStorage
	protocol metafile.Protocol
	opts     Options

	reader interface {
		Run(ctx context.Context) error
		BytesRead() int64
	}
	hasher          pieceHasher
	checksumHashers []*checksumHasher

	cumulativeFileSize []int64

	group  *errgroup.Group
	cancel context.CancelFunc

	started   atomic.Bool
	cancelled atomic.Bool
	stopped   atomic.Bool
}

// NewStorageHasher prepares a hasher for storage. If storage's piece
// size is unset it is chosen automatically (spec.md §4.D). Hybrid
// storages are padded for alignment (spec.md §4.E) before pieces are
// allocated.
func NewStorageHasher(storage *metafile.FileStorage, protocol metafile.Protocol, opts Options) (*StorageHasher, error) {
	if protocol == metafile.ProtocolNone {
		return nil, fmt.Errorf("pipeline: a hasher requires an explicit protocol")
	}
	if storage.PieceSize == 0 {
		if err := storage.SetPieceSize(metafile.AutoPieceSize(storage.TotalSize())); err != nil {
			return nil, err
		}
	}
	if storage.PieceSize&(storage.PieceSize-1) != 0 {
		return nil, fmt.Errorf("pipeline: piece size %d is not a power of two", storage.PieceSize)
	}

	if protocol == metafile.ProtocolHybrid {
		if err := storage.OptimizeAlignment(); err != nil {
			return nil, err
		}
	}
	if protocol == metafile.ProtocolV1 || protocol == metafile.ProtocolHybrid {
		storage.AllocatePieces()
	}

	h := &StorageHasher{storage: storage, protocol: protocol, opts: opts}
	if protocol == metafile.ProtocolV1 {
		h.cumulativeFileSize = inclusiveFileSizeScanV1(storage)
	} else {
		h.cumulativeFileSize = inclusiveFileSizeScanV2(storage)
	}
	return h, nil
}

// Start launches the reader, piece hasher workers, and checksum
// hasher workers as goroutines under ctx. Cancelling ctx directly has
// the same effect as calling Cancel.
func (h *StorageHasher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	group, gctx := errgroup.WithContext(runCtx)
	h.group = group

	pieceSize := h.storage.PieceSize
	chunkSize := max(h.opts.MinChunkSize, pieceSize)
	maxMemory := h.opts.MaxMemory
	if maxMemory <= chunkSize {
		maxMemory = chunkSize * 4
	}
	queueCapacity := int(max(maxMemory/chunkSize, 1))

	var rd *reader
	if h.protocol == metafile.ProtocolV1 {
		r := newV1ChunkReader(h.storage, chunkSize, maxMemory)
		h.reader = r
		rd = &r.reader
		h.hasher = newV1PieceHasher(h.storage)
	} else {
		r := newV2ChunkReader(h.storage, chunkSize, maxMemory)
		h.reader = r
		rd = &r.reader
		h.hasher = newV2PieceHasher(h.storage, pieceSize, h.protocol == metafile.ProtocolHybrid)
	}

	hashQueue := make(chan Chunk, queueCapacity)
	rd.registerHashQueue(hashQueue)

	var checksumQueues []chan Chunk
	for _, algo := range h.opts.Checksums {
		ch := newChecksumHasher(h.storage, algo)
		h.checksumHashers = append(h.checksumHashers, ch)
		q := make(chan Chunk, queueCapacity)
		checksumQueues = append(checksumQueues, q)
		rd.registerChecksumQueue(q)
	}

	threads := max(h.opts.Threads, 1)
	for i := 0; i < threads; i++ {
		group.Go(func() error { return h.hasher.run(gctx, hashQueue) })
	}
	for i, ch := range h.checksumHashers {
		q := checksumQueues[i]
		group.Go(func() error { return ch.run(gctx, q) })
	}
	group.Go(func() error { return h.reader.Run(gctx) })

	h.started.Store(true)
}

// Cancel signals every stage to stop and discards unfinished work,
// blocking until all goroutines have exited.
func (h *StorageHasher) Cancel() {
	if h.done() {
		return
	}
	if !h.started.Load() {
		h.cancelled.Store(true)
		return
	}
	h.cancelled.Store(true)
	h.cancel()
	_ = h.group.Wait()
	h.stopped.Store(true)
}

// Wait blocks until the reader and every hasher have finished
// processing all data.
func (h *StorageHasher) Wait() error {
	err := h.group.Wait()
	h.stopped.Store(true)
	return err
}

func (h *StorageHasher) Running() bool   { return h.started.Load() && !h.cancelled.Load() && !h.stopped.Load() }
func (h *StorageHasher) Started() bool   { return h.started.Load() }
func (h *StorageHasher) Cancelled() bool { return h.cancelled.Load() }
func (h *StorageHasher) done() bool      { return h.cancelled.Load() || (h.started.Load() && h.stopped.Load()) }
func (h *StorageHasher) Done() bool      { return h.done() }

// BytesRead returns the number of bytes read from disk so far.
func (h *StorageHasher) BytesRead() int64 { return h.reader.BytesRead() }

// BytesHashed returns the number of bytes actually fed through a hash
// function so far (v1 and v2 compatibility hashing for a hybrid
// storage share one running total, since both are derived from the
// same blocks in a single pass).
func (h *StorageHasher) BytesHashed() int64 { return h.hasher.bytesHashed() }

// BytesDone returns the number of bytes whose processing (hashed or
// substituted for a missing file) has completed.
func (h *StorageHasher) BytesDone() int64 { return h.hasher.bytesDone() }

// CurrentFileProgress reports which file BytesDone currently falls
// within and how far into it processing has progressed.
func (h *StorageHasher) CurrentFileProgress() FileProgress {
	return currentFileProgress(h.cumulativeFileSize, h.BytesDone())
}

func currentFileProgress(cumulative []int64, bytes int64) FileProgress {
	idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] >= bytes })
	if idx >= len(cumulative) {
		idx = len(cumulative) - 1
	}
	if idx == 0 {
		return FileProgress{FileIndex: idx, BytesHashed: bytes}
	}
	return FileProgress{FileIndex: idx, BytesHashed: bytes - cumulative[idx-1]}
}

// inclusiveFileSizeScanV1 returns the running total of every file's
// size, in storage order, including padding.
func inclusiveFileSizeScanV1(storage *metafile.FileStorage) []int64 {
	out := make([]int64, len(storage.Files))
	var sum int64
	for i, f := range storage.Files {
		sum += f.Size
		out[i] = sum
	}
	return out
}

// inclusiveFileSizeScanV2 is the same running total, but padding
// entries contribute nothing: v2 padding is implicit and excluded
// from progress reporting.
func inclusiveFileSizeScanV2(storage *metafile.FileStorage) []int64 {
	out := make([]int64, len(storage.Files))
	var sum int64
	for i, f := range storage.Files {
		if !f.IsPadding() {
			sum += f.Size
		}
		out[i] = sum
	}
	return out
}
