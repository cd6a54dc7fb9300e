package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"PriceStation/internal/statefile"
)

// ExceededError reports that the minimum interval since the last remote call hasn't elapsed.
type ExceededError struct {
	Remaining time.Duration
	LastQuery time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit: wait %.0f seconds before the next query (last query at %s)",
		e.Remaining.Seconds(), e.LastQuery.Local().Format("2006-01-02 15:04:05"))
}

// State is the persisted limiter state.
type State struct {
	LastQueryTime time.Time `json:"last_query_time"`
}

// Limiter enforces a minimum interval between remote calls across process runs.
// It is Cooling from a recorded call until the interval has passed, Ready otherwise.
type Limiter struct {
	path     string
	interval time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// New returns a Limiter persisting its state at path.
func New(path string, interval time.Duration) *Limiter {
	return &Limiter{
		path:     path,
		interval: interval,
		Now:      time.Now,
		Sleep:    sleepContext,
	}
}

// Interval returns the minimum spacing between calls.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Remaining returns how long until the next call is allowed, 0 when Ready.
func (l *Limiter) Remaining() (time.Duration, time.Time) {
	last, ok := l.lastQuery()
	if !ok {
		return 0, time.Time{}
	}
	remaining := l.interval - l.Now().Sub(last)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, last
}

// Check returns nil when a remote call may proceed. While cooling down it
// either sleeps until ready (blocking) or fails with *ExceededError.
func (l *Limiter) Check(ctx context.Context, blocking bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining, last := l.Remaining()
	if remaining <= 0 {
		return nil
	}
	if !blocking {
		return &ExceededError{Remaining: remaining, LastQuery: last}
	}
	log.Printf("[INFO] rate limit: waiting %.0fs before next query", remaining.Seconds())
	return l.Sleep(ctx, remaining)
}

// Wait blocks until a remote call may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.Check(ctx, true)
}

// Record marks a remote call attempt, successful or not.
func (l *Limiter) Record() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := statefile.Save(l.path, &State{LastQueryTime: l.Now()}); err != nil {
		return fmt.Errorf("save rate limit state: %w", err)
	}
	return nil
}

func (l *Limiter) lastQuery() (time.Time, bool) {
	var st State
	found, err := statefile.Load(l.path, &st)
	if err != nil {
		log.Printf("[WARN] rate limit: unreadable state %s: %v", l.path, err)
		return time.Time{}, false
	}
	if !found || st.LastQueryTime.IsZero() {
		return time.Time{}, false
	}
	return st.LastQueryTime, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
