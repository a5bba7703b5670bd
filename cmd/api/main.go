// Package main is the entry point for the fence alerting API server.
//
// It loads configuration, wires the SMS dispatcher, reading monitor and
// prediction service into the HTTP chassis, and serves until SIGINT or
// SIGTERM. A background loop prunes expired rate-limit history.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"github.com/abhinavuser/reflectometry/internal/api/handlers"
	"github.com/abhinavuser/reflectometry/internal/config"
	"github.com/abhinavuser/reflectometry/internal/core"
	"github.com/abhinavuser/reflectometry/internal/external"
	ncore "github.com/abhinavuser/reflectometry/internal/notifications/core"
	"github.com/abhinavuser/reflectometry/internal/notifications/sms"
	"github.com/abhinavuser/reflectometry/internal/prediction"
	"github.com/abhinavuser/reflectometry/internal/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("fence alert API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"recipients", len(cfg.Recipients.Phones),
		"twilio_configured", cfg.Twilio.Configured(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := newAWSClients(ctx, cfg)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg, logger, clients)
	if err != nil {
		return err
	}

	return serve(ctx, cfg, a, logger)
}

// awsClients are nil when the corresponding feature is disabled.
type awsClients struct {
	cloudwatch ncore.CloudWatchClient
	sqs        ncore.SQSSender
}

// newAWSClients loads the SDK config only when metrics or the readings
// queue are enabled, so local runs need no credentials.
func newAWSClients(ctx context.Context, cfg *config.Config) (awsClients, error) {
	var clients awsClients
	if !cfg.Observability.MetricsEnabled && cfg.AWS.ReadingsQueue == "" {
		return clients, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return clients, fmt.Errorf("loading AWS config: %w", err)
	}

	if cfg.Observability.MetricsEnabled {
		clients.cloudwatch = cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
	}
	if cfg.AWS.ReadingsQueue != "" {
		clients.sqs = sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
	}
	return clients, nil
}

// app holds the wired server and the components main supervises.
type app struct {
	server  *core.Server
	limiter *ncore.RateLimiter
}

// buildApp wires every component from configuration. It performs no I/O.
func buildApp(cfg *config.Config, logger *slog.Logger, clients awsClients) (*app, error) {
	typedLogger := types.NewSlogLogger(logger)
	clock := types.RealClock{}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	var metrics ncore.DispatchMetrics = ncore.NoopMetrics{}
	if clients.cloudwatch != nil {
		cw := ncore.NewCloudWatchDispatchMetrics(clients.cloudwatch, cfg.Observability.MetricNamespace, typedLogger)
		metrics = cw
		srv.Metrics = cw
	}

	var sender types.SMSSender
	if cfg.Twilio.Configured() {
		twilio := external.NewTwilioClient(
			&http.Client{Timeout: cfg.Twilio.Timeout},
			external.TwilioClientConfig{
				AccountSID: cfg.Twilio.AccountSID,
				AuthToken:  cfg.Twilio.AuthToken,
				BaseURL:    cfg.Twilio.BaseURL,
				Logger:     logger,
			},
		)
		sender = twilio
		srv.HealthProbes = append(srv.HealthProbes, core.PingProbe{ProbeName: "twilio", Target: twilio})
	} else {
		logger.Warn("twilio credentials incomplete; SMS alerts disabled")
	}

	policy := ncore.RateLimitPolicy{
		MaxPerHour: cfg.RateLimit.MaxPerHour,
		MaxPerDay:  cfg.RateLimit.MaxPerDay,
		Cooldown:   cfg.RateLimit.Cooldown(),
	}
	limiter := ncore.NewRateLimiter(policy, clock)

	dispatcher := sms.NewDispatcher(sms.Options{
		Sender:       sender,
		From:         cfg.Twilio.PhoneNumber,
		Recipients:   cfg.Recipients.Phones,
		Limiter:      limiter,
		Metrics:      metrics,
		Clock:        clock,
		Logger:       typedLogger.With("component", "dispatcher"),
		SendInterval: dispatchInterval(cfg.RateLimit.SendInterval),
		SendTimeout:  cfg.Twilio.Timeout,
	})

	thresholds := sms.ThresholdsFromConfig(cfg.Thresholds)
	monitor := sms.NewMonitor(thresholds, dispatcher, metrics, typedLogger.With("component", "monitor"))

	var publisher handlers.ReadingPublisher
	if clients.sqs != nil {
		publisher = ncore.NewReadingPublisher(clients.sqs, cfg.AWS.ReadingsQueue, typedLogger)
	}

	var classifier external.Classifier
	if cfg.Prediction.EndpointURL != "" {
		classifier = external.NewInferenceClient(
			&http.Client{Timeout: cfg.Prediction.Timeout},
			external.InferenceClientConfig{EndpointURL: cfg.Prediction.EndpointURL, Logger: logger},
		)
	}
	predictor := prediction.NewService(classifier, cfg.Prediction.Timeout, clock, typedLogger.With("component", "prediction"))

	smsHandler := handlers.NewSMSHandler(handlers.SMSHandlerDeps{
		Dispatcher: dispatcher,
		Monitor:    monitor,
		Publisher:  publisher,
		Thresholds: thresholds,
		Policy:     policy,
		Validator:  srv.Validator,
		Clock:      clock,
		Logger:     logger,
	})
	predictionHandler := handlers.NewPredictionHandler(predictor, srv.Validator, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		smsHandler.RegisterRoutes,
		predictionHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return &app{server: srv, limiter: limiter}, nil
}

// dispatchInterval maps the configured pause to the dispatcher's option:
// zero in configuration means no pause, which the dispatcher spells as a
// negative value.
func dispatchInterval(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// serve runs the HTTP server and the history pruner until ctx is cancelled
// or either fails, then shuts the server down gracefully.
func serve(ctx context.Context, cfg *config.Config, a *app, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runPruner(gCtx, a.limiter, cfg.RateLimit.PruneInterval, logger)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// runPruner drops expired rate-limit history every interval until ctx ends.
func runPruner(ctx context.Context, limiter *ncore.RateLimiter, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.Debug("pruned rate-limit history", "removed", n)
			}
		}
	}
}

// newLogger creates a JSON slog.Logger at the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
