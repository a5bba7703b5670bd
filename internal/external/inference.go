package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// InferenceClientConfig holds the configuration for creating an InferenceClient.
type InferenceClientConfig struct {
	EndpointURL string
	Logger      *slog.Logger
}

// InferenceClient posts TDR feature vectors to an HTTP model server and
// decodes its classification.
type InferenceClient struct {
	base     *BaseClient
	endpoint string
	logger   *slog.Logger
}

// NewInferenceClient creates an InferenceClient. One quick retry is allowed;
// callers bound the total time with a context deadline.
func NewInferenceClient(httpClient *http.Client, cfg InferenceClientConfig) *InferenceClient {
	base := NewBaseClient(
		httpClient,
		"inference",
		RetryPolicy{
			MaxRetries: 1,
			MinWait:    100 * time.Millisecond,
			MaxWait:    500 * time.Millisecond,
		},
		"FenceAlerts/1.0",
	)
	return NewInferenceClientWithBase(base, cfg)
}

// NewInferenceClientWithBase creates an InferenceClient with a pre-configured
// BaseClient.
func NewInferenceClientWithBase(base *BaseClient, cfg InferenceClientConfig) *InferenceClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InferenceClient{base: base, endpoint: cfg.EndpointURL, logger: logger}
}

// Classify sends features to the model endpoint.
func (c *InferenceClient) Classify(ctx context.Context, features types.TDRFeatures) (types.Classification, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return types.Classification{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal features", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Classification{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create inference request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return types.Classification{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return types.Classification{}, types.NewAppError(
			types.ErrCodeUpstreamPrediction,
			fmt.Sprintf("model returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			nil,
		)
	}

	var out types.Classification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Classification{}, types.NewAppError(types.ErrCodeUpstreamPrediction, "failed to decode model response", err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return types.Classification{}, types.NewAppError(
			types.ErrCodeUpstreamPrediction,
			fmt.Sprintf("model confidence %v outside [0,1]", out.Confidence),
			nil,
		)
	}
	return out, nil
}
