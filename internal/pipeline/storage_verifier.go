package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/prxssh/dottorrent/internal/metafile"
)

// pieceVerifier is the verifier-side counterpart of pieceHasher: it
// consumes the same chunk stream but records a pass/fail PieceMap
// instead of writing hashes back into storage.
type pieceVerifier interface {
	run(ctx context.Context, queue <-chan Chunk) error
	bytesHashed() int64
	bytesDone() int64
	pieceMap() PieceMap
}

func (v *v1PieceVerifier) pieceMap() PieceMap { return v.result }
func (v *v2PieceVerifier) pieceMap() PieceMap { return v.result }

// StorageVerifier re-reads every file in a FileStorage and checks its
// bytes against the piece hashes (v1) or pieces root/piece layer (v2,
// hybrid) already recorded on it, without mutating the storage.
type StorageVerifier struct {
	storage  *metafile.FileStorage
	protocol metafile.Protocol
	opts     Options

	reader interface {
		Run(ctx context.Context) error
		BytesRead() int64
	}
	verifier pieceVerifier

	cumulativeFileSize []int64

	group  *errgroup.Group
	cancel context.CancelFunc

	started   atomic.Bool
	cancelled atomic.Bool
	stopped   atomic.Bool
}

// NewStorageVerifier prepares a verifier for storage. storage.PieceSize
// and its piece table/piece layers must already be populated, as they
// would be after parsing a metainfo file.
func NewStorageVerifier(storage *metafile.FileStorage, protocol metafile.Protocol, opts Options) (*StorageVerifier, error) {
	if protocol == metafile.ProtocolNone {
		return nil, fmt.Errorf("pipeline: a verifier requires an explicit protocol")
	}
	if storage.PieceSize == 0 {
		return nil, fmt.Errorf("pipeline: storage has no piece size to verify against")
	}

	v := &StorageVerifier{storage: storage, protocol: protocol, opts: opts}
	if protocol == metafile.ProtocolV1 {
		v.cumulativeFileSize = inclusiveFileSizeScanV1(storage)
	} else {
		v.cumulativeFileSize = inclusiveFileSizeScanV2(storage)
	}
	return v, nil
}

// Start launches the reader and verifier worker(s) as goroutines under
// ctx. Verification always runs with a single worker per protocol (a
// v2PieceVerifier keeps shared per-file Merkle state), so - unlike
// hashing - there is no concurrency knob here.
func (v *StorageVerifier) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	group, gctx := errgroup.WithContext(runCtx)
	v.group = group

	pieceSize := v.storage.PieceSize
	chunkSize := max(v.opts.MinChunkSize, pieceSize)
	maxMemory := v.opts.MaxMemory
	if maxMemory <= chunkSize {
		maxMemory = chunkSize * 4
	}
	queueCapacity := int(max(maxMemory/chunkSize, 1))

	var rd *reader
	if v.protocol == metafile.ProtocolV1 {
		r := newV1ChunkReader(v.storage, chunkSize, maxMemory)
		v.reader = r
		rd = &r.reader
		v.verifier = newV1PieceVerifier(v.storage)
	} else {
		r := newV2ChunkReader(v.storage, chunkSize, maxMemory)
		v.reader = r
		rd = &r.reader
		v.verifier = newV2PieceVerifier(v.storage, pieceSize)
	}

	queue := make(chan Chunk, queueCapacity)
	rd.registerHashQueue(queue)

	group.Go(func() error { return v.verifier.run(gctx, queue) })
	group.Go(func() error { return v.reader.Run(gctx) })

	v.started.Store(true)
}

// Cancel signals the reader and verifier to stop, blocking until both
// goroutines have exited.
func (v *StorageVerifier) Cancel() {
	if v.done() {
		return
	}
	if !v.started.Load() {
		v.cancelled.Store(true)
		return
	}
	v.cancelled.Store(true)
	v.cancel()
	_ = v.group.Wait()
	v.stopped.Store(true)
}

// Wait blocks until the reader and verifier have finished processing
// all data.
func (v *StorageVerifier) Wait() error {
	err := v.group.Wait()
	v.stopped.Store(true)
	return err
}

func (v *StorageVerifier) Running() bool   { return v.started.Load() && !v.cancelled.Load() && !v.stopped.Load() }
func (v *StorageVerifier) Started() bool   { return v.started.Load() }
func (v *StorageVerifier) Cancelled() bool { return v.cancelled.Load() }
func (v *StorageVerifier) done() bool      { return v.cancelled.Load() || (v.started.Load() && v.stopped.Load()) }
func (v *StorageVerifier) Done() bool      { return v.done() }

// BytesRead returns the number of bytes read from disk so far.
func (v *StorageVerifier) BytesRead() int64 { return v.reader.BytesRead() }

// BytesHashed returns the number of bytes fed through a hash function
// so far.
func (v *StorageVerifier) BytesHashed() int64 { return v.verifier.bytesHashed() }

// BytesDone returns the number of bytes whose verification (hashed or
// substituted for a missing file) has completed.
func (v *StorageVerifier) BytesDone() int64 { return v.verifier.bytesDone() }

// CurrentFileProgress reports which file BytesDone currently falls
// within and how far into it verification has progressed.
func (v *StorageVerifier) CurrentFileProgress() FileProgress {
	return currentFileProgress(v.cumulativeFileSize, v.BytesDone())
}

// Result returns the PieceMap recording which pieces verified
// successfully. Only meaningful once Wait has returned with a nil
// error.
func (v *StorageVerifier) Result() PieceMap { return v.verifier.pieceMap() }

// Percentage reports what fraction, in [0, 1], of file fileIndex's
// pieces verified successfully - mirroring v1_chunk_verifier and
// v2_chunk_verifier's percentage() accessor.
func (v *StorageVerifier) Percentage(fileIndex int) float64 {
	if fileIndex < 0 || fileIndex >= len(v.storage.Files) {
		return 0
	}
	result := v.verifier.pieceMap()

	if v.protocol == metafile.ProtocolV1 {
		start, end, err := v.storage.GetPiecesSpan(fileIndex)
		if err != nil || end <= start {
			return 0
		}
		good := 0
		for i := start; i < end; i++ {
			if result.Get(int(i)) {
				good++
			}
		}
		return float64(good) / float64(end-start)
	}

	entry := v.storage.Files[fileIndex]
	if entry.IsPadding() {
		return 1
	}
	slots := len(entry.PieceLayer)
	if slots == 0 {
		slots = 1
	}
	base := 0
	for i := 0; i < fileIndex; i++ {
		if f := v.storage.Files[i]; !f.IsPadding() {
			n := len(f.PieceLayer)
			if n == 0 {
				n = 1
			}
			base += n
		}
	}
	good := 0
	for k := 0; k < slots; k++ {
		if result.Get(base + k) {
			good++
		}
	}
	return float64(good) / float64(slots)
}
