package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy is a sliding-window rate-limit policy for one action kind.
type Policy struct {
	Action      string
	MaxAttempts int
	Window      time.Duration
}

// Fixed policies for the orchestrator entry points.
var (
	PolicyStoryGeneration   = Policy{Action: "story_generation", MaxAttempts: 3, Window: 60 * time.Second}
	PolicyStoryContinuation = Policy{Action: "story_continuation", MaxAttempts: 5, Window: 30 * time.Second}
	PolicyProfileBuilding   = Policy{Action: "profile_building", MaxAttempts: 3, Window: 120 * time.Second}
)

// Limiter checks whether a (user, action) pair may perform another attempt
// within the policy's sliding window. Allow records the attempt when it is
// admitted; rejected attempts are not recorded.
type Limiter interface {
	Allow(ctx context.Context, userID string, policy Policy) (bool, error)
}

// MemoryLimiter is the process-local ledger: an append-and-prune timestamp
// list per (user, action) key under one lock. Safe for concurrent use
// across sessions.
type MemoryLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewMemoryLimiter creates an in-memory sliding-window limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow prunes attempts older than the window, then admits and records the
// attempt if fewer than MaxAttempts remain.
func (l *MemoryLimiter) Allow(_ context.Context, userID string, policy Policy) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := userID + ":" + policy.Action
	now := l.now()
	cutoff := now.Add(-policy.Window)

	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= policy.MaxAttempts {
		l.attempts[key] = kept
		return false, nil
	}

	l.attempts[key] = append(kept, now)
	return true, nil
}
