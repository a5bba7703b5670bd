package sms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abhinavuser/reflectometry/internal/notifications/core"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// TimestampLayout is how alert bodies render the send time.
const TimestampLayout = "2006-01-02 15:04:05 MST"

const (
	defaultLocation       = "Unknown Location"
	defaultSystemLocation = "System"
	defaultCoordinates    = "Coordinates not available"
	defaultSystemError    = "Unknown system error"

	defaultSendInterval = time.Second
	defaultSendTimeout  = 10 * time.Second
)

// Options configures a Dispatcher. Sender, From and Recipients come from
// configuration; everything else has a default.
type Options struct {
	Sender     types.SMSSender
	From       string
	Recipients []string

	Templates Templates
	Limiter   *core.RateLimiter
	Metrics   core.DispatchMetrics
	Clock     types.Clock
	Logger    types.Logger

	// SendInterval is the pause between consecutive recipients of one bulk
	// send. Negative disables it.
	SendInterval time.Duration
	// SendTimeout bounds a single gateway call.
	SendTimeout time.Duration
	// Sleep waits between bulk sends. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration)
}

// Dispatcher delivers alert text to recipients through an SMS gateway,
// subject to per-(recipient, category) rate limiting.
//
// The limit check, the gateway call and the history record for one message
// happen under one mutex, so two concurrent requests can never both pass
// the limiter for the same key.
type Dispatcher struct {
	mu sync.Mutex

	sender       types.SMSSender
	from         string
	recipients   []string
	templates    Templates
	limiter      *core.RateLimiter
	metrics      core.DispatchMetrics
	clock        types.Clock
	logger       types.Logger
	sendInterval time.Duration
	sendTimeout  time.Duration
	sleep        func(ctx context.Context, d time.Duration)
}

// NewDispatcher builds a Dispatcher from opts.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		sender:       opts.Sender,
		from:         opts.From,
		recipients:   append([]string(nil), opts.Recipients...),
		templates:    opts.Templates,
		limiter:      opts.Limiter,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		logger:       opts.Logger,
		sendInterval: opts.SendInterval,
		sendTimeout:  opts.SendTimeout,
		sleep:        opts.Sleep,
	}
	if d.templates == nil {
		d.templates = DefaultTemplates()
	}
	if d.clock == nil {
		d.clock = types.RealClock{}
	}
	if d.limiter == nil {
		d.limiter = core.NewRateLimiter(core.DefaultRateLimitPolicy(), d.clock)
	}
	if d.metrics == nil {
		d.metrics = core.NoopMetrics{}
	}
	if d.logger == nil {
		d.logger = types.NopLogger{}
	}
	if d.sendInterval == 0 {
		d.sendInterval = defaultSendInterval
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = defaultSendTimeout
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	return d
}

// GatewayConfigured reports whether a sender and origin number are set.
func (d *Dispatcher) GatewayConfigured() bool {
	return d.sender != nil && d.from != ""
}

// Available reports whether the gateway is configured and at least one
// recipient exists.
func (d *Dispatcher) Available() bool {
	return d.GatewayConfigured() && len(d.recipients) > 0
}

// Recipients returns a copy of the configured recipient list.
func (d *Dispatcher) Recipients() []string {
	return append([]string(nil), d.recipients...)
}

// Limiter exposes the rate limiter for pruning and status.
func (d *Dispatcher) Limiter() *core.RateLimiter { return d.limiter }

// SendToOne delivers message to one recipient. Every failure is reported in
// the returned outcome; it never returns an error.
func (d *Dispatcher) SendToOne(ctx context.Context, recipient, message string, category types.AlertCategory) types.DispatchOutcome {
	outcome := d.sendToOne(ctx, recipient, message, category)
	d.metrics.RecordDispatch(ctx, category, core.ResultFor(outcome))
	return outcome
}

func (d *Dispatcher) sendToOne(ctx context.Context, recipient, message string, category types.AlertCategory) types.DispatchOutcome {
	outcome := types.DispatchOutcome{
		PhoneNumber: recipient,
		AlertType:   category,
	}
	log := d.logger.With("phone_number", recipient, "alert_type", string(category))

	if !d.Available() {
		outcome.Reason = types.ReasonUnavailable
		outcome.Error = "SMS service not available"
		outcome.Timestamp = d.clock.Now()
		return outcome
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if limited, why := d.limiter.IsLimited(recipient, category); limited {
		log.Warn("sms rate limited", "limit", string(why))
		outcome.Reason = types.ReasonRateLimited
		outcome.Error = fmt.Sprintf("rate limited (%s)", why)
		outcome.Timestamp = d.clock.Now()
		return outcome
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	start := time.Now()
	id, err := d.deliver(sendCtx, types.SMSMessage{To: recipient, From: d.from, Body: message})
	cancel()
	d.metrics.RecordLatency(ctx, category, time.Since(start))

	outcome.Timestamp = d.clock.Now()
	if err != nil {
		log.Error("sms delivery failed", "error", err.Error())
		outcome.Reason = types.ReasonDeliveryFailed
		outcome.Error = err.Error()
		return outcome
	}

	d.limiter.Record(recipient, category)
	log.Info("sms sent", "message_id", id)
	outcome.Success = true
	outcome.MessageID = id
	return outcome
}

// deliver calls the gateway, converting a panic into an error so one bad
// recipient cannot abort a bulk send.
func (d *Dispatcher) deliver(ctx context.Context, msg types.SMSMessage) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sms sender panicked: %v", r)
		}
	}()
	return d.sender.Send(ctx, msg)
}

// SendToAll delivers message to every configured recipient in order, pausing
// SendInterval between consecutive sends. A per-recipient failure does not
// stop the loop. When the service is unavailable it returns a single
// ErrCodeSMSUnavailable error and attempts nothing.
func (d *Dispatcher) SendToAll(ctx context.Context, message string, category types.AlertCategory) ([]types.DispatchOutcome, error) {
	if !d.Available() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeSMSUnavailable,
			"SMS service not available",
			nil,
			map[string]any{
				"twilioConfigured": d.GatewayConfigured(),
				"recipients":       len(d.recipients),
			},
		)
	}

	outcomes := make([]types.DispatchOutcome, 0, len(d.recipients))
	for i, recipient := range d.recipients {
		if i > 0 && d.sendInterval > 0 {
			d.sleep(ctx, d.sendInterval)
		}
		outcomes = append(outcomes, d.SendToOne(ctx, recipient, message, category))
	}
	return outcomes, nil
}

// AlertDetails carries the placeholder values for tamper and system alerts.
// Empty fields fall back to defaults.
type AlertDetails struct {
	Location    string
	Coordinates string
	Error       string
}

// Render formats the category's template with details and the current time.
func (d *Dispatcher) Render(category types.AlertCategory, details AlertDetails) (string, error) {
	tmpl, ok := d.templates[category]
	if !ok {
		return "", types.NewAppError(
			types.ErrCodeValidationInvalidAlertType,
			fmt.Sprintf("no template for alert type %q", category),
			nil,
		)
	}

	location := details.Location
	if location == "" {
		location = defaultLocation
		if category == types.AlertSystemError {
			location = defaultSystemLocation
		}
	}
	data := map[string]string{
		PlaceholderLocation:  location,
		PlaceholderTimestamp: d.clock.Now().Format(TimestampLayout),
	}
	if category == types.AlertSystemError {
		data[PlaceholderError] = details.Error
		if data[PlaceholderError] == "" {
			data[PlaceholderError] = defaultSystemError
		}
	} else {
		data[PlaceholderCoordinates] = details.Coordinates
		if data[PlaceholderCoordinates] == "" {
			data[PlaceholderCoordinates] = defaultCoordinates
		}
	}
	return Format(tmpl, data), nil
}

func (d *Dispatcher) sendCategory(ctx context.Context, category types.AlertCategory, details AlertDetails) ([]types.DispatchOutcome, error) {
	msg, err := d.Render(category, details)
	if err != nil {
		return nil, err
	}
	return d.SendToAll(ctx, msg, category)
}

// SendOpenCircuitAlert notifies every recipient of an open-circuit alarm.
func (d *Dispatcher) SendOpenCircuitAlert(ctx context.Context, details AlertDetails) ([]types.DispatchOutcome, error) {
	return d.sendCategory(ctx, types.AlertOpenCircuit, details)
}

// SendIllegalFenceAlert notifies every recipient of a detected tap.
func (d *Dispatcher) SendIllegalFenceAlert(ctx context.Context, details AlertDetails) ([]types.DispatchOutcome, error) {
	return d.sendCategory(ctx, types.AlertIllegalFence, details)
}

// SendSystemErrorAlert notifies every recipient of a monitoring fault.
func (d *Dispatcher) SendSystemErrorAlert(ctx context.Context, details AlertDetails) ([]types.DispatchOutcome, error) {
	return d.sendCategory(ctx, types.AlertSystemError, details)
}

// SendTestAlert sends the test message to phoneNumber and then to every
// configured recipient other than phoneNumber. Each entry goes through
// SendToOne, so an unavailable service yields per-entry unavailable
// outcomes rather than an error.
func (d *Dispatcher) SendTestAlert(ctx context.Context, phoneNumber string) ([]types.DispatchOutcome, error) {
	msg, err := d.Render(types.AlertTest, AlertDetails{})
	if err != nil {
		return nil, err
	}

	targets := []string{phoneNumber}
	for _, r := range d.recipients {
		if r != phoneNumber {
			targets = append(targets, r)
		}
	}

	outcomes := make([]types.DispatchOutcome, 0, len(targets))
	for i, target := range targets {
		if i > 0 && d.sendInterval > 0 && d.Available() {
			d.sleep(ctx, d.sendInterval)
		}
		outcomes = append(outcomes, d.SendToOne(ctx, target, msg, types.AlertTest))
	}
	return outcomes, nil
}

// Status reports availability and a snapshot of the send history.
func (d *Dispatcher) Status() types.ServiceStatus {
	return types.ServiceStatus{
		Available:        d.Available(),
		Recipients:       len(d.recipients),
		TwilioConfigured: d.GatewayConfigured(),
		MessageHistory:   d.limiter.Snapshot(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
