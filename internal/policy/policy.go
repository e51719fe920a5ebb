// Package policy reconciles the classifier and regressor outputs into one
// prediction.
package policy

import (
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/pkg/utils"
)

// Combine applies the business rule: negative day estimates clamp to zero and
// are rounded to one decimal; when the repurchase probability is below the
// threshold the day estimate is replaced by domain.NoPurchaseExpected.
func Combine(probability, rawDays float64) domain.PredictionResult {
	days := utils.RoundTo(max(0, rawDays), 1)
	if probability < domain.RepurchaseThreshold {
		days = domain.NoPurchaseExpected
	}
	return domain.PredictionResult{
		Probability: probability,
		Days:        days,
	}
}
