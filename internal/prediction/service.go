package prediction

import (
	"context"
	"time"

	"github.com/abhinavuser/reflectometry/internal/external"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// Method names which scorer produced a Prediction.
type Method string

const (
	MethodModel     Method = "model"
	MethodHeuristic Method = "fallback_heuristic"
)

// RiskLevel buckets a prediction for operators.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

const defaultTimeout = 5 * time.Second

// Prediction is the scored verdict for one sample.
type Prediction struct {
	IsPositive      bool              `json:"isFence"`
	Confidence      float64           `json:"confidence"`
	Risk            RiskLevel         `json:"risk"`
	Method          Method            `json:"method"`
	InferenceTimeMs float64           `json:"inferenceTimeMs"`
	Timestamp       time.Time         `json:"timestamp"`
	Features        types.TDRFeatures `json:"features"`
}

// Service produces predictions. A nil classifier always uses the heuristic.
type Service struct {
	classifier external.Classifier
	timeout    time.Duration
	clock      types.Clock
	logger     types.Logger
}

// NewService creates a Service. timeout bounds each model call; zero uses
// five seconds.
func NewService(classifier external.Classifier, timeout time.Duration, clock types.Clock, logger types.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Service{classifier: classifier, timeout: timeout, clock: clock, logger: logger}
}

// ModelConfigured reports whether a remote model is wired.
func (s *Service) ModelConfigured() bool { return s.classifier != nil }

// Predict scores in. It never fails: model errors fall back to the
// heuristic and are logged.
func (s *Service) Predict(ctx context.Context, in Input) Prediction {
	features := DeriveFeatures(in)

	verdict, method := s.classify(ctx, features)
	return Prediction{
		IsPositive:      verdict.IsFence,
		Confidence:      verdict.Confidence,
		Risk:            riskFor(verdict),
		Method:          method,
		InferenceTimeMs: verdict.InferenceTimeMs,
		Timestamp:       s.clock.Now(),
		Features:        features,
	}
}

func (s *Service) classify(ctx context.Context, f types.TDRFeatures) (types.Classification, Method) {
	if s.classifier == nil {
		return Heuristic(f), MethodHeuristic
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	verdict, err := s.classifier.Classify(ctx, f)
	if err != nil {
		s.logger.Warn("model prediction failed, using heuristic", "error", err.Error())
		return Heuristic(f), MethodHeuristic
	}
	return verdict, MethodModel
}

func riskFor(c types.Classification) RiskLevel {
	switch {
	case c.IsFence && c.Confidence > 0.8:
		return RiskHigh
	case c.IsFence && c.Confidence > 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}
