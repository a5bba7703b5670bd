// Package core provides the shared notification infrastructure used by the
// SMS dispatcher and the reading intake path: per-recipient rate limiting,
// delivery metrics and the readings queue publisher.
package core

import (
	"context"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// RateLimitPolicy bounds how often one recipient may receive one alert
// category. Zero or negative caps disable that check; a zero Cooldown
// disables the cooldown.
type RateLimitPolicy struct {
	MaxPerHour int
	MaxPerDay  int
	Cooldown   time.Duration
}

// DefaultRateLimitPolicy returns 10 per hour, 50 per day and a 5 minute
// cooldown.
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		MaxPerHour: 10,
		MaxPerDay:  50,
		Cooldown:   5 * time.Minute,
	}
}

// LimitReason names the check that blocked a send.
type LimitReason string

const (
	LimitNone     LimitReason = ""
	LimitCooldown LimitReason = "cooldown"
	LimitHourly   LimitReason = "hourly_cap"
	LimitDaily    LimitReason = "daily_cap"
)

// MetricResult is the Result dimension value of a dispatch attempt.
type MetricResult string

const (
	MetricSuccess     MetricResult = "success"
	MetricFailed      MetricResult = "failed"
	MetricRateLimited MetricResult = "rate_limited"
	MetricUnavailable MetricResult = "unavailable"
)

// ResultFor maps a dispatch outcome to its metric dimension.
func ResultFor(o types.DispatchOutcome) MetricResult {
	if o.Success {
		return MetricSuccess
	}
	switch o.Reason {
	case types.ReasonRateLimited:
		return MetricRateLimited
	case types.ReasonUnavailable:
		return MetricUnavailable
	default:
		return MetricFailed
	}
}

// DispatchMetrics records delivery telemetry. Implementations must not block
// the caller for long and must never fail a delivery.
type DispatchMetrics interface {
	RecordDispatch(ctx context.Context, category types.AlertCategory, result MetricResult)
	RecordLatency(ctx context.Context, category types.AlertCategory, d time.Duration)
	RecordAlarm(ctx context.Context, matched bool)
}

// NoopMetrics discards all metrics. Used when METRICS_ENABLED is false.
type NoopMetrics struct{}

func (NoopMetrics) RecordDispatch(context.Context, types.AlertCategory, MetricResult) {}
func (NoopMetrics) RecordLatency(context.Context, types.AlertCategory, time.Duration) {}
func (NoopMetrics) RecordAlarm(context.Context, bool)                                 {}

var _ DispatchMetrics = NoopMetrics{}
