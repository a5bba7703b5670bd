package core

import (
	"sort"
	"sync"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// RateLimiter tracks successful sends per (recipient, category) and answers
// whether another send is currently allowed. Windows are trailing and
// exclusive of their boundary: an entry exactly one hour old no longer counts
// toward the hourly cap.
//
// History is process-local. It is bounded by the retention window
// (max(24h, cooldown)) and by a per-key entry cap, and is lost on restart.
type RateLimiter struct {
	mu        sync.Mutex
	policy    RateLimitPolicy
	clock     types.Clock
	history   map[string][]time.Time
	retention time.Duration
	maxKeep   int
}

// NewRateLimiter creates a RateLimiter. A nil clock uses types.RealClock.
func NewRateLimiter(policy RateLimitPolicy, clock types.Clock) *RateLimiter {
	if clock == nil {
		clock = types.RealClock{}
	}
	retention := 24 * time.Hour
	if policy.Cooldown > retention {
		retention = policy.Cooldown
	}
	maxKeep := max(policy.MaxPerHour, policy.MaxPerDay, 1)
	return &RateLimiter{
		policy:    policy,
		clock:     clock,
		history:   make(map[string][]time.Time),
		retention: retention,
		maxKeep:   maxKeep,
	}
}

// HistoryKey builds the rate-limit key for a recipient and category.
func HistoryKey(recipient string, category types.AlertCategory) string {
	return recipient + "_" + string(category)
}

// Policy returns the configured policy.
func (l *RateLimiter) Policy() RateLimitPolicy { return l.policy }

// IsLimited reports whether a send to recipient for category must be
// skipped, and which check blocked it.
func (l *RateLimiter) IsLimited(recipient string, category types.AlertCategory) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.history[HistoryKey(recipient, category)]
	if len(entries) == 0 {
		return false, LimitNone
	}
	now := l.clock.Now()

	if l.policy.Cooldown > 0 && entries[len(entries)-1].After(now.Add(-l.policy.Cooldown)) {
		return true, LimitCooldown
	}
	if l.policy.MaxPerHour > 0 && countSince(entries, now.Add(-time.Hour)) >= l.policy.MaxPerHour {
		return true, LimitHourly
	}
	if l.policy.MaxPerDay > 0 && countSince(entries, now.Add(-24*time.Hour)) >= l.policy.MaxPerDay {
		return true, LimitDaily
	}
	return false, LimitNone
}

// Record notes a successful send at the current clock time and trims the
// key's history.
func (l *RateLimiter) Record(recipient string, category types.AlertCategory) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := HistoryKey(recipient, category)
	now := l.clock.Now()
	entries := append(l.history[key], now)
	entries = dropBefore(entries, now.Add(-l.retention))
	if len(entries) > l.maxKeep {
		entries = append([]time.Time(nil), entries[len(entries)-l.maxKeep:]...)
	}
	l.history[key] = entries
}

// Prune drops expired entries and removes keys left empty. It returns the
// number of keys removed.
func (l *RateLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.retention)
	removed := 0
	for key, entries := range l.history {
		entries = dropBefore(entries, cutoff)
		if len(entries) == 0 {
			delete(l.history, key)
			removed++
			continue
		}
		l.history[key] = entries
	}
	return removed
}

// Snapshot returns a read-only summary of every key, sorted by key.
func (l *RateLimiter) Snapshot() []types.HistorySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.HistorySummary, 0, len(l.history))
	for key, entries := range l.history {
		if len(entries) == 0 {
			continue
		}
		out = append(out, types.HistorySummary{
			Key:         key,
			Count:       len(entries),
			LastMessage: entries[len(entries)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// countSince counts entries strictly after cutoff. Entries are in
// chronological order.
func countSince(entries []time.Time, cutoff time.Time) int {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].After(cutoff) })
	return len(entries) - i
}

// dropBefore removes entries at or before cutoff.
func dropBefore(entries []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].After(cutoff) })
	if i == 0 {
		return entries
	}
	return append(entries[:0:0], entries[i:]...)
}
