package domain

import (
	"time"
)

// JobLock is the single lock shared by the refresh, cleanup and dedup jobs.
// The refresh job acquires it with a bounded wait; the maintenance jobs
// only ever try-acquire and skip their trigger when it is held.
type JobLock struct {
	ch chan struct{}
}

// NewJobLock creates an unheld JobLock.
func NewJobLock() *JobLock {
	return &JobLock{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is taken or the wait bound elapses.
// Returns false when the bound elapsed.
func (l *JobLock) Acquire(wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// TryAcquire takes the lock only if it is free.
func (l *JobLock) TryAcquire() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the lock. Must only be called by the current holder.
func (l *JobLock) Release() {
	<-l.ch
}
