package domain

// ClassifierFeatureNames is the column order the repurchase classifier was
// trained on. It must change together with the model artifact.
var ClassifierFeatureNames = []string{
	"transaction_value",
	"ticket_count",
	"day_of_week",
	"day_of_month",
	"month",
	"year",
	"iso_week",
	"average_spend_to_date",
	"purchase_count_to_date",
	"max_spend_to_date",
}

// RegressorFeatureNames is the column order of the days-to-next-purchase
// regressor: the classifier columns followed by six more.
var RegressorFeatureNames = append(append([]string(nil), ClassifierFeatureNames...),
	"is_holiday",
	"is_month_start",
	"is_weekend",
	"mean_purchase_interval_days",
	"std_purchase_interval_days",
	"spend_vs_average",
)

// ClassifierFeatures is the classifier input. Field order matches
// ClassifierFeatureNames.
type ClassifierFeatures struct {
	TransactionValue    float64
	TicketCount         float64
	DayOfWeek           float64
	DayOfMonth          float64
	Month               float64
	Year                float64
	ISOWeek             float64
	AverageSpendToDate  float64
	PurchaseCountToDate float64
	MaxSpendToDate      float64
}

// Vector returns the features in model column order.
func (f ClassifierFeatures) Vector() []float64 {
	return []float64{
		f.TransactionValue,
		f.TicketCount,
		f.DayOfWeek,
		f.DayOfMonth,
		f.Month,
		f.Year,
		f.ISOWeek,
		f.AverageSpendToDate,
		f.PurchaseCountToDate,
		f.MaxSpendToDate,
	}
}

// RegressorFeatures is the regressor input. Field order matches
// RegressorFeatureNames.
type RegressorFeatures struct {
	ClassifierFeatures
	IsHoliday                float64
	IsMonthStart             float64
	IsWeekend                float64
	MeanPurchaseIntervalDays float64
	StdPurchaseIntervalDays  float64
	SpendVsAverage           float64
}

// Vector returns the features in model column order.
func (f RegressorFeatures) Vector() []float64 {
	return append(f.ClassifierFeatures.Vector(),
		f.IsHoliday,
		f.IsMonthStart,
		f.IsWeekend,
		f.MeanPurchaseIntervalDays,
		f.StdPurchaseIntervalDays,
		f.SpendVsAverage,
	)
}

// DerivedFeatureSet holds the calendar breakdown of an event and both model
// projections.
type DerivedFeatureSet struct {
	DayOfWeek      int // Monday=0 ... Sunday=6
	DayOfMonth     int
	Month          int
	Year           int
	ISOWeek        int
	IsHoliday      bool
	IsMonthStart   bool
	IsWeekend      bool
	SpendVsAverage float64

	Classifier ClassifierFeatures
	Regressor  RegressorFeatures
}
