// Package domain holds the shared state types for the synchronization jobs.
package domain

import (
	"sync"
	"time"
)

// JobState tracks whether a synchronization job is currently running and
// when the last run started and ended. All three scheduled jobs share one
// JobState, so at most one of them is active at a time.
type JobState struct {
	mu        sync.Mutex
	isRunning bool
	lastStart *time.Time
	lastEnd   *time.Time
}

// NewJobState creates an idle JobState.
func NewJobState() *JobState {
	return &JobState{}
}

// TryBegin marks the job as running and records the start time. Returns
// false without mutating state when a run is already in progress.
func (j *JobState) TryBegin(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return false
	}
	j.isRunning = true
	j.lastStart = &now
	j.lastEnd = nil
	return true
}

// MarkEnded clears the running flag and records the end time.
func (j *JobState) MarkEnded(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.isRunning = false
	j.lastEnd = &now
}

// ForceReset clears the running flag without recording an end time. Used to
// recover from a run that started but never ended.
func (j *JobState) ForceReset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.isRunning = false
}

// Snapshot returns the current running flag and run timestamps.
func (j *JobState) Snapshot() (isRunning bool, lastStart, lastEnd *time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.isRunning, j.lastStart, j.lastEnd
}

// Stuck reports whether a run started more than maxExecution ago and never
// ended.
func (j *JobState) Stuck(now time.Time, maxExecution time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isRunning || j.lastStart == nil || j.lastEnd != nil {
		return false
	}
	return now.Sub(*j.lastStart) > maxExecution
}

// EndedWithin reports whether the last run ended less than window ago.
func (j *JobState) EndedWithin(now time.Time, window time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.lastEnd == nil {
		return false
	}
	return now.Sub(*j.lastEnd) < window
}
