package core

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinavuser/reflectometry/internal/types"
)

const phoneA = "+15551110001"

func TestRateLimiter_FreshKeyNotLimited(t *testing.T) {
	l := NewRateLimiter(DefaultRateLimitPolicy(), newMockClock())

	limited, reason := l.IsLimited(phoneA, types.AlertOpenCircuit)
	assert.False(t, limited)
	assert.Equal(t, LimitNone, reason)
}

func TestRateLimiter_Cooldown(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(DefaultRateLimitPolicy(), clock)

	l.Record(phoneA, types.AlertOpenCircuit)

	limited, reason := l.IsLimited(phoneA, types.AlertOpenCircuit)
	assert.True(t, limited)
	assert.Equal(t, LimitCooldown, reason)

	clock.Advance(4*time.Minute + 59*time.Second)
	limited, _ = l.IsLimited(phoneA, types.AlertOpenCircuit)
	assert.True(t, limited, "still inside cooldown")

	// Exactly at the boundary the entry is no longer inside the window.
	clock.Advance(time.Second)
	limited, _ = l.IsLimited(phoneA, types.AlertOpenCircuit)
	assert.False(t, limited)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(DefaultRateLimitPolicy(), newMockClock())

	l.Record(phoneA, types.AlertOpenCircuit)

	limited, _ := l.IsLimited(phoneA, types.AlertTest)
	assert.False(t, limited, "other category for same recipient")
	limited, _ = l.IsLimited("+15551110002", types.AlertOpenCircuit)
	assert.False(t, limited, "same category for other recipient")
}

func TestRateLimiter_HourlyCap(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(RateLimitPolicy{MaxPerHour: 10, MaxPerDay: 50}, clock)

	for i := 0; i < 10; i++ {
		limited, _ := l.IsLimited(phoneA, types.AlertTest)
		require.False(t, limited, "send %d should be allowed", i)
		l.Record(phoneA, types.AlertTest)
		clock.Advance(time.Minute)
	}

	limited, reason := l.IsLimited(phoneA, types.AlertTest)
	assert.True(t, limited)
	assert.Equal(t, LimitHourly, reason)

	// The first entry was recorded 10 minutes ago; it leaves the window after
	// 50 more minutes.
	clock.Advance(50 * time.Minute)
	limited, _ = l.IsLimited(phoneA, types.AlertTest)
	assert.False(t, limited)
}

func TestRateLimiter_DailyCap(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(RateLimitPolicy{MaxPerHour: 10, MaxPerDay: 50}, clock)

	// 50 sends spread so no single hour holds 10.
	for i := 0; i < 50; i++ {
		l.Record(phoneA, types.AlertTest)
		clock.Advance(20 * time.Minute)
	}
	// 50 entries over 1000 minutes, all within the last 24h.
	limited, reason := l.IsLimited(phoneA, types.AlertTest)
	assert.True(t, limited)
	assert.Equal(t, LimitDaily, reason)
}

func TestRateLimiter_CooldownZeroDisablesCheck(t *testing.T) {
	l := NewRateLimiter(RateLimitPolicy{MaxPerHour: 2, MaxPerDay: 10}, newMockClock())

	l.Record(phoneA, types.AlertTest)
	limited, _ := l.IsLimited(phoneA, types.AlertTest)
	assert.False(t, limited)

	l.Record(phoneA, types.AlertTest)
	limited, reason := l.IsLimited(phoneA, types.AlertTest)
	assert.True(t, limited)
	assert.Equal(t, LimitHourly, reason)
}

func TestRateLimiter_RecordBoundsHistory(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(RateLimitPolicy{MaxPerHour: 3, MaxPerDay: 5}, clock)

	for i := 0; i < 20; i++ {
		l.Record(phoneA, types.AlertTest)
		clock.Advance(time.Second)
	}

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 5, snap[0].Count, "history capped at max(MaxPerHour, MaxPerDay)")
}

func TestRateLimiter_RecordDropsExpired(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(DefaultRateLimitPolicy(), clock)

	l.Record(phoneA, types.AlertTest)
	clock.Advance(25 * time.Hour)
	l.Record(phoneA, types.AlertTest)

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Count)
	assert.Equal(t, clock.Now(), snap[0].LastMessage)
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(DefaultRateLimitPolicy(), clock)

	l.Record(phoneA, types.AlertTest)
	clock.Advance(23 * time.Hour)
	l.Record("+15551110002", types.AlertTest)
	clock.Advance(2 * time.Hour)

	removed := l.Prune()

	assert.Equal(t, 1, removed)
	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "+15551110002_test", snap[0].Key)
}

func TestRateLimiter_RetentionCoversLongCooldown(t *testing.T) {
	clock := newMockClock()
	l := NewRateLimiter(RateLimitPolicy{Cooldown: 48 * time.Hour}, clock)

	l.Record(phoneA, types.AlertSystemError)
	clock.Advance(30 * time.Hour)
	l.Prune()

	limited, reason := l.IsLimited(phoneA, types.AlertSystemError)
	assert.True(t, limited)
	assert.Equal(t, LimitCooldown, reason)
}

func TestRateLimiter_SnapshotSortedByKey(t *testing.T) {
	l := NewRateLimiter(DefaultRateLimitPolicy(), newMockClock())

	l.Record("+2", types.AlertTest)
	l.Record("+1", types.AlertTest)
	l.Record("+1", types.AlertOpenCircuit)

	snap := l.Snapshot()
	keys := make([]string, len(snap))
	for i, s := range snap {
		keys[i] = s.Key
	}
	assert.Equal(t, []string{"+1_openCircuit", "+1_test", "+2_test"}, keys)
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	l := NewRateLimiter(RateLimitPolicy{MaxPerHour: 1000, MaxPerDay: 1000}, newMockClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := fmt.Sprintf("+1555000%04d", i%4)
			for j := 0; j < 50; j++ {
				l.IsLimited(phone, types.AlertTest)
				l.Record(phone, types.AlertTest)
			}
			l.Snapshot()
			l.Prune()
		}(i)
	}
	wg.Wait()

	total := 0
	for _, s := range l.Snapshot() {
		total += s.Count
	}
	assert.Equal(t, 1000, total)
}

func TestHistoryKey(t *testing.T) {
	assert.Equal(t, "+15551110001_openCircuit", HistoryKey(phoneA, types.AlertOpenCircuit))
}
