package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// bufferPool hands out fixed-size byte slices bounded to a maximum
// total outstanding count, replacing the original C++ implementation's
// shared_ptr-backed object_pool: Get blocks (respecting ctx) until a
// buffer is free or the pool is under its capacity, and Put returns a
// buffer for reuse. A semaphore gates the capacity; the free buffers
// themselves are recycled through a sync.Pool so a long-running hasher
// doesn't keep reallocating the same sized slice.
type bufferPool struct {
	sem  *semaphore.Weighted
	pool sync.Pool
	size int
}

// newBufferPool returns a pool of buffers of length size, allowing at
// most capacity of them to be checked out at once.
func newBufferPool(size int, capacity int64) *bufferPool {
	if capacity < 1 {
		capacity = 1
	}
	bp := &bufferPool{
		sem:  semaphore.NewWeighted(capacity),
		size: size,
	}
	bp.pool.New = func() any {
		return make([]byte, bp.size)
	}
	return bp
}

// Get acquires a buffer of the pool's configured size, blocking until
// one is available or ctx is done.
func (bp *bufferPool) Get(ctx context.Context) ([]byte, error) {
	if err := bp.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	buf := bp.pool.Get().([]byte)
	return buf[:bp.size], nil
}

// Put returns buf to the pool for reuse. buf must have been obtained
// from Get on the same pool.
func (bp *bufferPool) Put(buf []byte) {
	bp.pool.Put(buf[:cap(buf)])
	bp.sem.Release(1)
}
