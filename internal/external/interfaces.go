package external

import (
	"context"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// HealthPinger is implemented by clients that can cheaply verify their
// upstream is reachable and the credentials are accepted.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

// Classifier scores a TDR feature vector.
type Classifier interface {
	Classify(ctx context.Context, features types.TDRFeatures) (types.Classification, error)
}

var _ Classifier = (*InferenceClient)(nil)
