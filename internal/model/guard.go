package model

import (
	"context"
	"fmt"
	"time"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/metrics"
	"github.com/growthlab/backend/pkg/utils"
)

// Guarded bounds a scorer with a deadline, records metrics and rejects
// outputs the policy cannot use. Every failure wraps domain.ErrUpstreamModel.
type Guarded struct {
	name        string
	inner       domain.Scorer
	timeout     time.Duration
	probability bool
}

// NewClassifier guards a scorer whose output must be a probability in [0,1].
func NewClassifier(inner domain.Scorer, timeout time.Duration) *Guarded {
	return &Guarded{name: "classifier", inner: inner, timeout: timeout, probability: true}
}

// NewRegressor guards a scorer whose output is a day count.
func NewRegressor(inner domain.Scorer, timeout time.Duration) *Guarded {
	return &Guarded{name: "regressor", inner: inner, timeout: timeout}
}

type scoreResult struct {
	value float64
	err   error
}

// Score runs the inner scorer in its own goroutine so that scorers which
// ignore ctx still respect the deadline.
func (g *Guarded) Score(ctx context.Context, x []float64) (float64, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan scoreResult, 1)
	go func() {
		v, err := g.inner.Score(ctx, x)
		done <- scoreResult{value: v, err: err}
	}()

	var res scoreResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = scoreResult{err: fmt.Errorf("scoring aborted: %w", ctx.Err())}
	}
	metrics.ModelScoreDuration.WithLabelValues(g.name).Observe(time.Since(start).Seconds())

	if res.err == nil {
		res.err = g.check(res.value)
	}
	if res.err != nil {
		metrics.ModelScoreErrors.WithLabelValues(g.name).Inc()
		return 0, domain.Upstream(g.name, res.err)
	}
	return res.value, nil
}

func (g *Guarded) check(v float64) error {
	if !utils.IsFinite(v) {
		return fmt.Errorf("non-finite output %v", v)
	}
	if g.probability && (v < 0 || v > 1) {
		return fmt.Errorf("probability %v outside [0,1]", v)
	}
	return nil
}
