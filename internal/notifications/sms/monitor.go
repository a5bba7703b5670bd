package sms

import (
	"context"

	"github.com/abhinavuser/reflectometry/internal/notifications/core"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// ReadingEvaluation is the result of processing one submitted reading.
type ReadingEvaluation struct {
	ReadingID string                `json:"readingId"`
	Alarm     bool                  `json:"alarm"`
	Criteria  CriteriaMatch         `json:"criteria"`
	Results   *types.DispatchResult `json:"results,omitempty"`
}

// Monitor evaluates incoming readings and raises an open-circuit alert for
// each one that matches the thresholds.
type Monitor struct {
	thresholds Thresholds
	dispatcher *Dispatcher
	metrics    core.DispatchMetrics
	logger     types.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(thresholds Thresholds, dispatcher *Dispatcher, metrics core.DispatchMetrics, logger types.Logger) *Monitor {
	if metrics == nil {
		metrics = core.NoopMetrics{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Monitor{
		thresholds: thresholds,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Thresholds returns the alarm ranges in use.
func (m *Monitor) Thresholds() Thresholds { return m.thresholds }

// Process evaluates msg and dispatches when it is an alarm. A non-alarm
// reading returns a nil error and no results. An unavailable dispatcher is
// returned as an error. A Logger stored in ctx with types.WithLogger takes
// precedence over the Monitor's own.
func (m *Monitor) Process(ctx context.Context, msg types.ReadingMessage) (ReadingEvaluation, error) {
	criteria := m.thresholds.Evaluate(msg.Reading)
	alarm := m.thresholds.IsAlarm(msg.Reading)
	m.metrics.RecordAlarm(ctx, alarm)

	eval := ReadingEvaluation{
		ReadingID: msg.ReadingID,
		Alarm:     alarm,
		Criteria:  criteria,
	}
	log := m.logger
	if l := types.LoggerFromContext(ctx); l != nil {
		log = l
	}
	log = log.With("reading_id", msg.ReadingID)
	if !alarm {
		return eval, nil
	}

	log.Warn("open circuit detected",
		"impedance", criteria.Impedance,
		"voltage", criteria.Voltage,
		"current", criteria.Current,
		"reflection_coeff", criteria.ReflectionCoeff,
		"location", msg.Location,
	)

	outcomes, err := m.dispatcher.SendOpenCircuitAlert(ctx, AlertDetails{
		Location:    msg.Location,
		Coordinates: msg.Coordinates,
	})
	if err != nil {
		log.Error("open circuit alert not sent", "error", err.Error())
		return eval, err
	}

	res := types.Summarize(outcomes)
	eval.Results = &res
	log.Info("open circuit alert dispatched",
		"successful", res.Successful,
		"failed", res.Failed,
		"rate_limited", res.RateLimited,
	)
	return eval, nil
}
