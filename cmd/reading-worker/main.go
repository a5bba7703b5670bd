// Package main is the entrypoint for the Reading Worker Lambda function.
//
// The worker consumes reading messages published by POST /sms/readings,
// evaluates each one against the open-circuit thresholds, and dispatches
// alerts through the same SMS pipeline as the API. Each invocation receives
// a batch of SQS messages and reports per-message failures so SQS retries
// only those.
//
// Rate-limit history lives in the Lambda container and is lost on a cold
// start.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/abhinavuser/reflectometry/internal/config"
	"github.com/abhinavuser/reflectometry/internal/external"
	ncore "github.com/abhinavuser/reflectometry/internal/notifications/core"
	"github.com/abhinavuser/reflectometry/internal/notifications/sms"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// ReadingProcessor evaluates one reading and dispatches when it alarms.
type ReadingProcessor interface {
	Process(ctx context.Context, msg types.ReadingMessage) (sms.ReadingEvaluation, error)
}

// Handler holds the dependencies for the reading worker Lambda handler.
type Handler struct {
	monitor ReadingProcessor
	logger  types.Logger
	now     func() time.Time
}

// Handle processes an SQS event containing one or more reading messages.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to process SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.ReadingMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal reading message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		// Permanent parse failure: ACK so it is not redelivered.
		return nil
	}

	logger := h.logger.With(
		"message_id", record.MessageId,
		"trace_id", msg.TraceID,
	)

	if sent, ok := record.Attributes["SentTimestamp"]; ok {
		if sentAt, err := parseMillisTimestamp(sent); err == nil {
			logger = logger.With("queue_lag_ms", h.now().Sub(sentAt).Milliseconds())
		}
	}

	eval, err := h.monitor.Process(types.WithLogger(ctx, logger), msg)
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeSMSUnavailable {
		// Redelivery cannot help until the gateway is configured.
		logger.Warn("alarm dropped; SMS service unavailable", "alarm", eval.Alarm)
		return nil
	}
	if err != nil {
		return fmt.Errorf("process reading %s: %w", msg.ReadingID, err)
	}

	logger.Info("reading evaluated", "reading_id", msg.ReadingID, "alarm", eval.Alarm)
	return nil
}

// parseMillisTimestamp parses the SQS SentTimestamp attribute.
func parseMillisTimestamp(ms string) (time.Time, error) {
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("Reading Worker Lambda initializing (cold start)")

	handler, err := newHandler(context.Background(), logger)
	if err != nil {
		logger.Error("Failed to initialize reading worker", "error", err)
		os.Exit(1)
	}

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/reading-worker
	if os.Getenv("APP_ENV") == "local" {
		if err := runLocal(context.Background(), handler, os.Stdin, os.Stderr); err != nil {
			logger.Error("Local invocation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

func newHandler(ctx context.Context, logger *slog.Logger) (*Handler, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	typedLogger := types.NewSlogLogger(logger)
	clock := types.RealClock{}

	var metrics ncore.DispatchMetrics = ncore.NoopMetrics{}
	if cfg.Observability.MetricsEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = ncore.NewCloudWatchDispatchMetrics(cw, cfg.Observability.MetricNamespace, typedLogger)
	}

	var sender types.SMSSender
	if cfg.Twilio.Configured() {
		sender = external.NewTwilioClient(
			&http.Client{Timeout: cfg.Twilio.Timeout},
			external.TwilioClientConfig{
				AccountSID: cfg.Twilio.AccountSID,
				AuthToken:  cfg.Twilio.AuthToken,
				BaseURL:    cfg.Twilio.BaseURL,
				Logger:     logger,
			},
		)
	} else {
		logger.Warn("twilio credentials incomplete; alarms will not be delivered")
	}

	limiter := ncore.NewRateLimiter(ncore.RateLimitPolicy{
		MaxPerHour: cfg.RateLimit.MaxPerHour,
		MaxPerDay:  cfg.RateLimit.MaxPerDay,
		Cooldown:   cfg.RateLimit.Cooldown(),
	}, clock)

	interval := cfg.RateLimit.SendInterval
	if interval == 0 {
		interval = -1
	}
	dispatcher := sms.NewDispatcher(sms.Options{
		Sender:       sender,
		From:         cfg.Twilio.PhoneNumber,
		Recipients:   cfg.Recipients.Phones,
		Limiter:      limiter,
		Metrics:      metrics,
		Clock:        clock,
		Logger:       typedLogger.With("component", "dispatcher"),
		SendInterval: interval,
		SendTimeout:  cfg.Twilio.Timeout,
	})

	monitor := sms.NewMonitor(sms.ThresholdsFromConfig(cfg.Thresholds), dispatcher, metrics, typedLogger.With("component", "monitor"))

	logger.Info("Reading Worker Lambda initialized",
		"recipients", len(cfg.Recipients.Phones),
		"twilio_configured", cfg.Twilio.Configured(),
		"metrics_enabled", cfg.Observability.MetricsEnabled,
	)

	return &Handler{monitor: monitor, logger: typedLogger, now: time.Now}, nil
}

// runLocal feeds one SQS event read from in to the handler and writes any
// partial failures to out.
func runLocal(ctx context.Context, h *Handler, in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parse stdin as SQS event: %w", err)
	}

	response, err := h.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	if len(response.BatchItemFailures) > 0 {
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	h.logger.Info("Handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
