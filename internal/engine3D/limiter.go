package engine3D

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxContexts bounds concurrent GPU contexts when no ceiling is configured.
const DefaultMaxContexts = 8

// Limiter caps the number of live GPU contexts. Requests past the ceiling are
// refused immediately, never queued.
type Limiter struct {
	sem   *semaphore.Weighted
	max   int
	inUse atomic.Int32
}

func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxContexts
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(max)), max: max}
}

func (l *Limiter) Acquire() error {
	if !l.sem.TryAcquire(1) {
		return ErrContextCeiling
	}
	l.inUse.Add(1)
	return nil
}

func (l *Limiter) Release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
}

func (l *Limiter) InUse() int { return int(l.inUse.Load()) }
func (l *Limiter) Max() int   { return l.max }
