package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scorer is an opaque trained model. Features arrive in the model's column
// order; the result is a probability for the classifier and a day count for
// the regressor.
type Scorer interface {
	Score(ctx context.Context, features []float64) (float64, error)
}

// RouteSource provides the persisted recommendation data loaded at startup.
type RouteSource interface {
	// TopRoutes returns the ranked routes per customer.
	TopRoutes(ctx context.Context) (map[string][]string, error)

	// FallbackRoutes returns the global ranked route list.
	FallbackRoutes(ctx context.Context) ([]string, error)
}

// PredictionLog is an audit record of one served prediction.
type PredictionLog struct {
	ID        uuid.UUID
	Request   CustomerEvent
	Response  PredictionResponse
	Latency   time.Duration
	CreatedAt time.Time
}

// PredictionLogRepository persists served predictions.
// This follows the Dependency Inversion Principle - domain defines the interface
type PredictionLogRepository interface {
	// SavePredictionLog persists a prediction request/response
	SavePredictionLog(ctx context.Context, entry PredictionLog) error

	// Health checks database connectivity
	Health(ctx context.Context) error
}
