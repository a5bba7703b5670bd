package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used by domain packages.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// SMSSender is the delivery channel contract: it transmits one text message
// and returns the gateway's message identifier.
type SMSSender interface {
	Send(ctx context.Context, msg SMSMessage) (messageID string, err error)
}

// SMSMessage is a single outbound text message.
type SMSMessage struct {
	To   string
	From string
	Body string
}
