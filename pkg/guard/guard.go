// Package guard holds the per-actor anti-abuse state: cooldown stamps, the
// verified-membership fast path and running counters. State is process-local
// and intentionally lost on restart.
package guard

import (
	"sync"
	"time"
)

// Stats are running counters for operator visibility.
type Stats struct {
	Attempts     uint64 `json:"attempts"`
	Passes       uint64 `json:"passes"`
	Failures     uint64 `json:"failures"`
	CooldownHits uint64 `json:"cooldown_hits"`
}

// Store serializes check-then-set per actor under one mutex so two
// near-simultaneous attempts by the same actor cannot both pass the gate.
type Store struct {
	mu        sync.Mutex
	window    time.Duration
	cooldowns map[string]time.Time
	verified  map[string]struct{}
	stats     Stats
	now       func() time.Time
}

func New(window time.Duration) *Store {
	return &Store{
		window:    window,
		cooldowns: make(map[string]time.Time),
		verified:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// TryAcquire atomically checks the actor's cooldown and stamps a new attempt.
// A rejected caller gets the remaining wait. The stamp is overwritten on every
// accepted attempt; an expired entry is reclaimed lazily here.
func (s *Store) TryAcquire(actorID string) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.cooldowns[actorID]; ok {
		if remaining := s.window - now.Sub(last); remaining > 0 {
			s.stats.CooldownHits++
			return false, remaining
		}
	}
	s.cooldowns[actorID] = now
	s.stats.Attempts++
	return true, 0
}

// MarkVerified records a successful verification for the fast-path check.
// The authoritative record lives with the verdict consumer; this cache only
// short-circuits repeat attempts.
func (s *Store) MarkVerified(actorID string) {
	s.mu.Lock()
	s.verified[actorID] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) IsVerified(actorID string) bool {
	s.mu.Lock()
	_, ok := s.verified[actorID]
	s.mu.Unlock()
	return ok
}

// Revoke clears the membership marker on explicit revocation.
func (s *Store) Revoke(actorID string) {
	s.mu.Lock()
	delete(s.verified, actorID)
	s.mu.Unlock()
}

// RecordResult updates pass/fail counters after a decision.
func (s *Store) RecordResult(passed bool) {
	s.mu.Lock()
	if passed {
		s.stats.Passes++
	} else {
		s.stats.Failures++
	}
	s.mu.Unlock()
}

func (s *Store) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// StartSweeper evicts expired cooldown entries on a fixed interval so memory
// stays bounded for actors who never return. The returned func stops the
// sweeper.
func (s *Store) StartSweeper(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for actor, last := range s.cooldowns {
		if now.Sub(last) > s.window {
			delete(s.cooldowns, actor)
		}
	}
}
