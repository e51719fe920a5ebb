package domain

// CustomerEvent is a single purchase observation with the customer's
// accumulated history. History fields default to 0 for first-time customers.
type CustomerEvent struct {
	CustomerID               string   `json:"customer_id" validate:"required"`
	EventTimestamp           string   `json:"event_timestamp" validate:"required"`
	TransactionValue         *float64 `json:"transaction_value" validate:"required,gte=0"`
	TicketCount              int      `json:"ticket_count" validate:"gte=0"`
	AverageSpendToDate       float64  `json:"average_spend_to_date" validate:"gte=0"`
	PurchaseCountToDate      float64  `json:"purchase_count_to_date" validate:"gte=0"`
	MaxSpendToDate           float64  `json:"max_spend_to_date" validate:"gte=0"`
	MeanPurchaseIntervalDays float64  `json:"mean_purchase_interval_days" validate:"gte=0"`
	StdPurchaseIntervalDays  float64  `json:"std_purchase_interval_days" validate:"gte=0"`
}

// Value returns the transaction value, 0 when absent.
func (e CustomerEvent) Value() float64 {
	if e.TransactionValue == nil {
		return 0
	}
	return *e.TransactionValue
}

// NoPurchaseExpected marks a day estimate that must not be used.
const NoPurchaseExpected = -1.0

// RepurchaseThreshold is the probability below which the day estimate is suppressed.
const RepurchaseThreshold = 0.5

// PredictionResult is the reconciled output of the two models.
type PredictionResult struct {
	Probability float64
	Days        float64
}

// PredictionResponse is returned by the prediction endpoint.
type PredictionResponse struct {
	CustomerID            string   `json:"customer_id"`
	RepurchaseProbability float64  `json:"repurchase_probability"`
	PredictedDays         float64  `json:"predicted_days_to_next_purchase"`
	RecommendedRoutes     []string `json:"recommended_routes"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
