// Package features turns a raw customer event into the feature vectors the
// repurchase classifier and the days-to-next-purchase regressor consume.
//
// Derivation is pure: calendar fields come from the event's own timestamp,
// never from the wall clock, so historical events replay identically.
package features

import (
	"strings"
	"time"

	"github.com/growthlab/backend/internal/domain"
)

// timestampLayouts are tried in order. Layouts without a zone read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Deriver computes DerivedFeatureSet values. The zero value is ready to use
// and never flags holidays.
type Deriver struct {
	holidays map[string]struct{}
}

// NewDeriver returns a Deriver with the given options applied.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithHolidays enables is_holiday for the given calendar dates. Without it the
// flag is always false, which is what the current models were trained with.
func WithHolidays(dates ...time.Time) Option {
	return func(d *Deriver) {
		if d.holidays == nil {
			d.holidays = make(map[string]struct{}, len(dates))
		}
		for _, t := range dates {
			d.holidays[t.Format(time.DateOnly)] = struct{}{}
		}
	}
}

// ParseTimestamp parses an ISO-8601 event timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.Validationf("event_timestamp %q is not a valid date-time", s)
}

// Derive builds both feature projections for event.
func (d *Deriver) Derive(event domain.CustomerEvent) (domain.DerivedFeatureSet, error) {
	if strings.TrimSpace(event.CustomerID) == "" {
		return domain.DerivedFeatureSet{}, domain.Validationf("customer_id is required")
	}
	ts, err := ParseTimestamp(event.EventTimestamp)
	if err != nil {
		return domain.DerivedFeatureSet{}, err
	}

	// The models take the calendar year, not the ISO year.
	_, week := ts.ISOWeek()

	set := domain.DerivedFeatureSet{
		DayOfWeek:      mondayFirst(ts.Weekday()),
		DayOfMonth:     ts.Day(),
		Month:          int(ts.Month()),
		Year:           ts.Year(),
		ISOWeek:        week,
		IsHoliday:      d.isHoliday(ts),
		SpendVsAverage: event.Value() - event.AverageSpendToDate,
	}
	set.IsMonthStart = set.DayOfMonth >= 1 && set.DayOfMonth <= 5
	set.IsWeekend = set.DayOfWeek >= 5

	set.Classifier = domain.ClassifierFeatures{
		TransactionValue:    event.Value(),
		TicketCount:         float64(event.TicketCount),
		DayOfWeek:           float64(set.DayOfWeek),
		DayOfMonth:          float64(set.DayOfMonth),
		Month:               float64(set.Month),
		Year:                float64(set.Year),
		ISOWeek:             float64(set.ISOWeek),
		AverageSpendToDate:  event.AverageSpendToDate,
		PurchaseCountToDate: event.PurchaseCountToDate,
		MaxSpendToDate:      event.MaxSpendToDate,
	}
	set.Regressor = domain.RegressorFeatures{
		ClassifierFeatures:       set.Classifier,
		IsHoliday:                boolFeature(set.IsHoliday),
		IsMonthStart:             boolFeature(set.IsMonthStart),
		IsWeekend:                boolFeature(set.IsWeekend),
		MeanPurchaseIntervalDays: event.MeanPurchaseIntervalDays,
		StdPurchaseIntervalDays:  event.StdPurchaseIntervalDays,
		SpendVsAverage:           set.SpendVsAverage,
	}
	return set, nil
}

func (d *Deriver) isHoliday(ts time.Time) bool {
	if len(d.holidays) == 0 {
		return false
	}
	_, ok := d.holidays[ts.Format(time.DateOnly)]
	return ok
}

// mondayFirst maps time.Weekday (Sunday=0) to Monday=0 ... Sunday=6.
func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
