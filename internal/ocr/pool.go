package ocr

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many OCR jobs run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool admitting size concurrent jobs (at least one).
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release returns a slot taken by Acquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Size is the number of concurrent jobs the pool admits.
func (p *Pool) Size() int {
	return p.size
}
