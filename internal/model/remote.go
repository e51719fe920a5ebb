package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/metrics"
)

// Remote handles communication with an external model serving endpoint.
type Remote struct {
	name         string
	serviceURL   string
	featureNames []string
	httpClient   *http.Client
	cb           *gobreaker.CircuitBreaker[float64]
}

type scoreRequest struct {
	FeatureNames []string    `json:"feature_names"`
	Instances    [][]float64 `json:"instances"`
}

type scoreResponse struct {
	Predictions []float64 `json:"predictions"`
}

// NewRemote creates a scorer that POSTs feature vectors to serviceURL.
// The call deadline comes from the caller's context.
//
// Circuit breaker: opens after a 60% failure rate over at least 10 requests
// in a one minute window and probes again after 30 seconds.
func NewRemote(name, serviceURL string, featureNames []string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{}
	}
	cbName := "model-" + name
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("model circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Remote{
		name:         name,
		serviceURL:   serviceURL,
		featureNames: featureNames,
		httpClient:   client,
		cb:           cb,
	}
}

// Score calls the model service for a single instance.
func (r *Remote) Score(ctx context.Context, x []float64) (float64, error) {
	v, err := r.cb.Execute(func() (float64, error) {
		return r.score(ctx, x)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("model: %s unavailable: %w", r.name, err)
	}
	return v, err
}

func (r *Remote) score(ctx context.Context, x []float64) (float64, error) {
	body, err := json.Marshal(scoreRequest{
		FeatureNames: r.featureNames,
		Instances:    [][]float64{x},
	})
	if err != nil {
		return 0, fmt.Errorf("model: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("model: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("model: request to %s failed: %w", r.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model: %s returned status %d", r.name, resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("model: failed to decode response: %w", err)
	}
	if len(out.Predictions) != 1 {
		return 0, fmt.Errorf("model: %s returned %d predictions for 1 instance", r.name, len(out.Predictions))
	}
	return out.Predictions[0], nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
