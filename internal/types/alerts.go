package types

import "time"

// AlertCategory identifies the kind of alert being dispatched. It is also
// half of the rate-limit key (recipient, category).
type AlertCategory string

const (
	AlertOpenCircuit  AlertCategory = "openCircuit"
	AlertIllegalFence AlertCategory = "illegalFence"
	AlertSystemError  AlertCategory = "systemError"
	AlertTest         AlertCategory = "test"
)

// ValidAlertCategories lists the categories accepted by the send-alert API,
// in the order they are reported back to clients.
func ValidAlertCategories() []AlertCategory {
	return []AlertCategory{AlertOpenCircuit, AlertIllegalFence, AlertSystemError, AlertTest}
}

// Valid reports whether c is one of the known alert categories.
func (c AlertCategory) Valid() bool {
	switch c {
	case AlertOpenCircuit, AlertIllegalFence, AlertSystemError, AlertTest:
		return true
	}
	return false
}

// Reading is a snapshot of line measurements. Nil fields were not reported
// by the sensor and never satisfy a threshold range.
type Reading struct {
	Impedance       *float64 `json:"impedance,omitempty"`
	Voltage         *float64 `json:"voltage,omitempty"`
	Current         *float64 `json:"current,omitempty"`
	ReflectionCoeff *float64 `json:"reflectionCoeff,omitempty"`
}

// Float returns a pointer to v. Convenience for building Readings.
func Float(v float64) *float64 { return &v }

// IsEmpty reports whether no measurement is present.
func (r Reading) IsEmpty() bool {
	return r.Impedance == nil && r.Voltage == nil && r.Current == nil && r.ReflectionCoeff == nil
}

// DispatchReason explains a non-successful DispatchOutcome.
type DispatchReason string

const (
	ReasonRateLimited    DispatchReason = "rate_limited"
	ReasonUnavailable    DispatchReason = "unavailable"
	ReasonDeliveryFailed DispatchReason = "delivery_failed"
)

// DispatchOutcome is the result of one attempt to deliver one message to one
// recipient.
type DispatchOutcome struct {
	Success     bool           `json:"success"`
	PhoneNumber string         `json:"phoneNumber"`
	AlertType   AlertCategory  `json:"alertType"`
	MessageID   string         `json:"messageId,omitempty"`
	Reason      DispatchReason `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// DispatchResult aggregates the outcomes of a bulk send.
//
// Failed counts every non-successful outcome, including rate-limited skips;
// RateLimited breaks those skips out separately.
type DispatchResult struct {
	Total       int               `json:"total"`
	Successful  int               `json:"successful"`
	Failed      int               `json:"failed"`
	RateLimited int               `json:"rateLimited"`
	Details     []DispatchOutcome `json:"details"`
}

// Summarize builds a DispatchResult from individual outcomes.
func Summarize(outcomes []DispatchOutcome) DispatchResult {
	res := DispatchResult{
		Total:   len(outcomes),
		Details: outcomes,
	}
	if res.Details == nil {
		res.Details = []DispatchOutcome{}
	}
	for _, o := range outcomes {
		if o.Success {
			res.Successful++
			continue
		}
		res.Failed++
		if o.Reason == ReasonRateLimited {
			res.RateLimited++
		}
	}
	return res
}

// HistorySummary is a read-only projection of the rate limiter's history for
// one (recipient, category) key.
type HistorySummary struct {
	Key         string    `json:"key"`
	Count       int       `json:"count"`
	LastMessage time.Time `json:"lastMessage"`
}

// ServiceStatus reports dispatcher availability for observability.
type ServiceStatus struct {
	Available        bool             `json:"available"`
	Recipients       int              `json:"recipients"`
	TwilioConfigured bool             `json:"twilioConfigured"`
	MessageHistory   []HistorySummary `json:"messageHistory"`
}
