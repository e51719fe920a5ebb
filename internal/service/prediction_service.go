package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/features"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/metrics"
	"github.com/growthlab/backend/internal/policy"
	"github.com/growthlab/backend/internal/recommend"
	"github.com/growthlab/backend/internal/validation"
	"github.com/growthlab/backend/pkg/utils"
)

// Dependencies are built once at startup and never mutated afterwards.
type Dependencies struct {
	Deriver    *features.Deriver
	Classifier domain.Scorer
	Regressor  domain.Scorer
	Routes     *recommend.Table

	// Logs is optional; when set every served prediction is persisted in the
	// background.
	Logs domain.PredictionLogRepository
}

// PredictionService turns a customer event into a repurchase prediction with
// route recommendations.
type PredictionService struct {
	deps Dependencies

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewPredictionService creates a new prediction service
func NewPredictionService(deps Dependencies) *PredictionService {
	if deps.Deriver == nil {
		deps.Deriver = features.NewDeriver()
	}
	if deps.Routes == nil {
		deps.Routes = recommend.NewTable(nil, nil)
	}
	return &PredictionService{deps: deps}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *PredictionService) WaitBackground() {
	s.wgBg.Wait()
}

// Routes exposes the recommendation table for health reporting.
func (s *PredictionService) Routes() *recommend.Table {
	return s.deps.Routes
}

// Predict validates the event, scores both models and assembles the
// response. Errors wrap domain.ErrValidation or domain.ErrUpstreamModel.
func (s *PredictionService) Predict(ctx context.Context, req domain.CustomerEvent) (domain.PredictionResponse, error) {
	start := time.Now()
	resp, err := s.predict(ctx, req)
	elapsed := time.Since(start)
	metrics.PredictionDuration.Observe(elapsed.Seconds())

	switch {
	case err == nil:
		metrics.PredictionsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrValidation):
		metrics.PredictionsTotal.WithLabelValues("validation_error").Inc()
		return domain.PredictionResponse{}, err
	default:
		metrics.PredictionsTotal.WithLabelValues("upstream_error").Inc()
		return domain.PredictionResponse{}, err
	}

	if s.deps.Logs != nil {
		s.saveLog(req, resp, elapsed)
	}
	return resp, nil
}

func (s *PredictionService) predict(ctx context.Context, req domain.CustomerEvent) (domain.PredictionResponse, error) {
	if err := validation.Struct(&req); err != nil {
		return domain.PredictionResponse{}, domain.Validationf("%s", err)
	}

	set, err := s.deps.Deriver.Derive(req)
	if err != nil {
		return domain.PredictionResponse{}, err
	}

	// The two models share no state, so they are scored concurrently.
	var probability, rawDays float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.deps.Classifier.Score(gctx, set.Classifier.Vector())
		probability = v
		return err
	})
	g.Go(func() error {
		v, err := s.deps.Regressor.Score(gctx, set.Regressor.Vector())
		rawDays = v
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, domain.ErrUpstreamModel) {
			err = domain.Upstream("model", err)
		}
		return domain.PredictionResponse{}, err
	}

	result := policy.Combine(probability, rawDays)
	if result.Days == domain.NoPurchaseExpected {
		metrics.RepurchaseSuppressed.Inc()
	}

	return domain.PredictionResponse{
		CustomerID:            req.CustomerID,
		RepurchaseProbability: utils.RoundTo(result.Probability*100, 2),
		PredictedDays:         utils.RoundTo(result.Days, 1),
		RecommendedRoutes:     s.deps.Routes.Lookup(req.CustomerID),
	}, nil
}

// saveLog persists the prediction asynchronously (tracked for graceful shutdown)
func (s *PredictionService) saveLog(req domain.CustomerEvent, resp domain.PredictionResponse, elapsed time.Duration) {
	entry := domain.PredictionLog{
		ID:        uuid.New(),
		Request:   req,
		Response:  resp,
		Latency:   elapsed,
		CreatedAt: time.Now().UTC(),
	}

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Logs.SavePredictionLog(bgCtx, entry); err != nil {
			metrics.PredictionLogErrors.Inc()
			logging.Warn().Err(err).Str("customer_id", req.CustomerID).Msg("failed to save prediction log")
		}
	}()
}
