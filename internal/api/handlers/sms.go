// Package handlers contains the HTTP handlers for the fence alerting API.
//
// This file implements the SMS endpoints:
//   - Service status (GET /sms/status)
//   - Manual and automated alert dispatch (POST /sms/send-alert)
//   - Reading intake (POST /sms/readings)
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abhinavuser/reflectometry/internal/core"
	ncore "github.com/abhinavuser/reflectometry/internal/notifications/core"
	"github.com/abhinavuser/reflectometry/internal/notifications/sms"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// AlertDispatcher is the subset of sms.Dispatcher used by the handler.
type AlertDispatcher interface {
	Status() types.ServiceStatus
	SendOpenCircuitAlert(ctx context.Context, details sms.AlertDetails) ([]types.DispatchOutcome, error)
	SendIllegalFenceAlert(ctx context.Context, details sms.AlertDetails) ([]types.DispatchOutcome, error)
	SendSystemErrorAlert(ctx context.Context, details sms.AlertDetails) ([]types.DispatchOutcome, error)
	SendTestAlert(ctx context.Context, phoneNumber string) ([]types.DispatchOutcome, error)
}

// ReadingProcessor evaluates a reading inline.
type ReadingProcessor interface {
	Process(ctx context.Context, msg types.ReadingMessage) (sms.ReadingEvaluation, error)
}

// ReadingPublisher enqueues a reading for asynchronous evaluation.
type ReadingPublisher interface {
	Publish(ctx context.Context, msg types.ReadingMessage) error
}

// SMSHandlerDeps groups the handler's collaborators. Publisher is optional;
// without it readings are evaluated inline by Monitor.
type SMSHandlerDeps struct {
	Dispatcher AlertDispatcher
	Monitor    ReadingProcessor
	Publisher  ReadingPublisher
	Thresholds sms.Thresholds
	Policy     ncore.RateLimitPolicy
	Validator  *core.Validator
	Clock      types.Clock
	Logger     *slog.Logger
}

// SMSHandler serves the /sms endpoints.
type SMSHandler struct {
	dispatcher AlertDispatcher
	monitor    ReadingProcessor
	publisher  ReadingPublisher
	thresholds sms.Thresholds
	policy     ncore.RateLimitPolicy
	validator  *core.Validator
	clock      types.Clock
	logger     *slog.Logger
}

// NewSMSHandler creates an SMSHandler.
func NewSMSHandler(deps SMSHandlerDeps) *SMSHandler {
	h := &SMSHandler{
		dispatcher: deps.Dispatcher,
		monitor:    deps.Monitor,
		publisher:  deps.Publisher,
		thresholds: deps.Thresholds,
		policy:     deps.Policy,
		validator:  deps.Validator,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if h.clock == nil {
		h.clock = types.RealClock{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.validator == nil {
		h.validator = core.NewValidator(h.logger)
	}
	return h
}

// RegisterRoutes mounts the SMS endpoints. Each handler answers every
// method so that unsupported ones get the JSON 405 body.
func (h *SMSHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/sms/status", h.HandleStatus)
	r.HandleFunc("/sms/send-alert", h.HandleSendAlert)
	r.HandleFunc("/sms/readings", h.HandleReadings)
}

type rateLimitView struct {
	MaxPerHour      int     `json:"maxPerHour"`
	MaxPerDay       int     `json:"maxPerDay"`
	CooldownMinutes float64 `json:"cooldownMinutes"`
}

type configurationView struct {
	RecipientsConfigured bool           `json:"recipientsConfigured"`
	TwilioConfigured     bool           `json:"twilioConfigured"`
	ServiceAvailable     bool           `json:"serviceAvailable"`
	RateLimit            rateLimitView  `json:"rateLimit"`
	Thresholds           sms.Thresholds `json:"thresholds"`
}

type statusResponse struct {
	Success       bool                `json:"success"`
	Timestamp     time.Time           `json:"timestamp"`
	SMSService    types.ServiceStatus `json:"smsService"`
	Configuration configurationView   `json:"configuration"`
}

// HandleStatus handles GET /sms/status.
func (h *SMSHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.MethodNotAllowed(w, r)
		return
	}

	status := h.dispatcher.Status()
	if status.MessageHistory == nil {
		status.MessageHistory = []types.HistorySummary{}
	}
	core.JSON(w, r, http.StatusOK, statusResponse{
		Success:    true,
		Timestamp:  h.clock.Now(),
		SMSService: status,
		Configuration: configurationView{
			RecipientsConfigured: status.Recipients > 0,
			TwilioConfigured:     status.TwilioConfigured,
			ServiceAvailable:     status.Available,
			RateLimit: rateLimitView{
				MaxPerHour:      h.policy.MaxPerHour,
				MaxPerDay:       h.policy.MaxPerDay,
				CooldownMinutes: h.policy.Cooldown.Minutes(),
			},
			Thresholds: h.thresholds,
		},
	})
}

type sendAlertRequest struct {
	AlertType   types.AlertCategory `json:"alertType"`
	Readings    *types.Reading      `json:"readings"`
	Location    string              `json:"location"`
	Coordinates string              `json:"coordinates"`
	TestMode    bool                `json:"testMode"`
	PhoneNumber string              `json:"phoneNumber"`
	Error       string              `json:"error"`
}

type sendAlertResponse struct {
	Success       bool                 `json:"success"`
	AlertType     types.AlertCategory  `json:"alertType"`
	Timestamp     time.Time            `json:"timestamp"`
	Results       types.DispatchResult `json:"results"`
	ServiceStatus types.ServiceStatus  `json:"serviceStatus"`
}

// HandleSendAlert handles POST /sms/send-alert.
//
// Dispatch runs on a context detached from the client, so a disconnect does
// not abort the remaining recipients. Per-send timeouts still apply.
func (h *SMSHandler) HandleSendAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.MethodNotAllowed(w, r)
		return
	}

	var req sendAlertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if req.AlertType == "" {
		h.writeValidation(w, r, types.ErrCodeValidationMissingField, "Missing required field: alertType",
			map[string]any{"validTypes": types.ValidAlertCategories()})
		return
	}
	if !req.AlertType.Valid() {
		h.writeValidation(w, r, types.ErrCodeValidationInvalidAlertType, "Invalid alertType",
			map[string]any{"validTypes": types.ValidAlertCategories()})
		return
	}

	ctx := context.WithoutCancel(r.Context())
	details := sms.AlertDetails{
		Location:    strings.TrimSpace(req.Location),
		Coordinates: strings.TrimSpace(req.Coordinates),
	}

	var (
		outcomes []types.DispatchOutcome
		err      error
	)
	switch req.AlertType {
	case types.AlertOpenCircuit:
		if req.Readings == nil {
			h.writeValidation(w, r, types.ErrCodeValidationMissingField, "Missing readings data for openCircuit alert", nil)
			return
		}
		if !req.TestMode && !h.thresholds.IsAlarm(*req.Readings) {
			h.writeValidation(w, r, types.ErrCodeValidationNoAlarm, "Readings do not indicate open circuit condition",
				map[string]any{
					"readings":   req.Readings,
					"thresholds": h.thresholds,
					"criteria":   h.thresholds.Evaluate(*req.Readings),
				})
			return
		}
		outcomes, err = h.dispatcher.SendOpenCircuitAlert(ctx, details)

	case types.AlertIllegalFence:
		if req.Readings == nil {
			h.writeValidation(w, r, types.ErrCodeValidationMissingField, "Missing readings data for illegalFence alert", nil)
			return
		}
		outcomes, err = h.dispatcher.SendIllegalFenceAlert(ctx, details)

	case types.AlertSystemError:
		details.Error = strings.TrimSpace(req.Error)
		outcomes, err = h.dispatcher.SendSystemErrorAlert(ctx, details)

	case types.AlertTest:
		phone := strings.TrimSpace(req.PhoneNumber)
		if phone == "" {
			h.writeValidation(w, r, types.ErrCodeValidationMissingField, "Missing phoneNumber for test SMS", nil)
			return
		}
		if !h.validator.ValidPhone(phone) {
			h.writeValidation(w, r, types.ErrCodeValidationInvalidPhone, "phoneNumber must be in E.164 format", nil)
			return
		}
		outcomes, err = h.dispatcher.SendTestAlert(ctx, phone)
	}

	if err != nil {
		h.writeDispatchError(w, r, req.AlertType, err)
		return
	}

	result := types.Summarize(outcomes)
	h.logger.Info("alert dispatched",
		slog.String("alert_type", string(req.AlertType)),
		slog.Int("total", result.Total),
		slog.Int("successful", result.Successful),
		slog.Int("rate_limited", result.RateLimited),
		slog.String("request_id", types.GetRequestID(r.Context())),
	)
	core.JSON(w, r, http.StatusOK, sendAlertResponse{
		Success:       true,
		AlertType:     req.AlertType,
		Timestamp:     h.clock.Now(),
		Results:       result,
		ServiceStatus: h.dispatcher.Status(),
	})
}

type readingRequest struct {
	ReadingID   string         `json:"readingId"`
	Readings    *types.Reading `json:"readings"`
	Location    string         `json:"location"`
	Coordinates string         `json:"coordinates"`
}

type readingAcceptedResponse struct {
	Accepted  bool   `json:"accepted"`
	ReadingID string `json:"readingId"`
}

// HandleReadings handles POST /sms/readings. With a queue configured the
// reading is enqueued and 202 is returned; otherwise it is evaluated inline.
func (h *SMSHandler) HandleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.MethodNotAllowed(w, r)
		return
	}

	var req readingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Readings == nil || req.Readings.IsEmpty() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidReading, "readings must contain at least one measurement", nil))
		return
	}

	msg := types.ReadingMessage{
		ReadingID:   req.ReadingID,
		Reading:     *req.Readings,
		Location:    strings.TrimSpace(req.Location),
		Coordinates: strings.TrimSpace(req.Coordinates),
		ReceivedAt:  h.clock.Now(),
		TraceID:     types.GetRequestID(r.Context()),
	}
	if msg.ReadingID == "" {
		msg.ReadingID = uuid.NewString()
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), msg); err != nil {
			h.logger.Error("failed to enqueue reading",
				slog.String("reading_id", msg.ReadingID),
				slog.String("error", err.Error()),
			)
			core.Error(w, r, err)
			return
		}
		core.JSON(w, r, http.StatusAccepted, readingAcceptedResponse{Accepted: true, ReadingID: msg.ReadingID})
		return
	}

	eval, err := h.monitor.Process(context.WithoutCancel(r.Context()), msg)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, eval)
}

// writeValidation writes a 400 body with the error message at the top level
// and any extra fields merged beside it.
func (h *SMSHandler) writeValidation(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string, extra map[string]any) {
	body := map[string]any{
		"success":   false,
		"error":     message,
		"code":      string(code),
		"timestamp": h.clock.Now(),
	}
	for k, v := range extra {
		body[k] = v
	}
	core.JSON(w, r, code.HTTPStatus(), body)
}

// writeDispatchError maps a dispatch failure to a response. An unavailable
// service is 503 with the current status; anything else is reported with
// its message.
func (h *SMSHandler) writeDispatchError(w http.ResponseWriter, r *http.Request, category types.AlertCategory, err error) {
	now := h.clock.Now()

	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeSMSUnavailable {
		h.logger.Warn("alert not dispatched: sms service unavailable",
			slog.String("alert_type", string(category)),
		)
		core.JSON(w, r, http.StatusServiceUnavailable, map[string]any{
			"success":       false,
			"error":         appErr.Message,
			"code":          string(appErr.Code),
			"timestamp":     now,
			"serviceStatus": h.dispatcher.Status(),
		})
		return
	}

	h.logger.Error("alert dispatch failed",
		slog.String("alert_type", string(category)),
		slog.String("error", err.Error()),
	)
	status := http.StatusInternalServerError
	message := err.Error()
	if appErr != nil {
		status = appErr.HTTPStatus()
		message = appErr.Message
	}
	core.JSON(w, r, status, map[string]any{
		"success":   false,
		"error":     message,
		"timestamp": now,
	})
}
