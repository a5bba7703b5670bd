package sms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// fakeSender records every message and fails for configured recipients.
type fakeSender struct {
	mu       sync.Mutex
	sent     []types.SMSMessage
	failFor  map[string]error
	panicFor map[string]bool
	block    bool
}

func (f *fakeSender) Send(ctx context.Context, msg types.SMSMessage) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	n := len(f.sent)
	err := f.failFor[msg.To]
	shouldPanic := f.panicFor[msg.To]
	block := f.block
	f.mu.Unlock()

	if shouldPanic {
		panic("gateway exploded")
	}
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SM%03d", n), nil
}

func (f *fakeSender) messages() []types.SMSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.SMSMessage(nil), f.sent...)
}

var errGateway = errors.New("gateway rejected message")

// mockClock is a manually advanced clock.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleep captures requested pauses without waiting.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
}

const (
	fromNumber = "+15550000000"
	phone1     = "+15551110001"
	phone2     = "+15551110002"
	phone3     = "+15551110003"
)
