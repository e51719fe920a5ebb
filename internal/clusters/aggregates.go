package clusters

import (
	"github.com/growthlab/backend/internal/domain"
)

// Metric names a compared aggregate column.
type Metric string

const (
	Monetary  Metric = "monetary"
	Frequency Metric = "frequency"
	Customers Metric = "customers"
)

// AggregateDelta compares one cluster across two days.
type AggregateDelta struct {
	Cluster   string
	Today     domain.ClusterAggregate
	Yesterday domain.ClusterAggregate

	MonetaryDiff  float64
	FrequencyDiff float64
	CustomerDiff  int

	MonetaryPct  float64
	FrequencyPct float64
	CustomerPct  float64
}

// Drops lists the metrics that went down, in Monetary, Frequency, Customers
// order.
func (d AggregateDelta) Drops() []Metric {
	var drops []Metric
	if d.MonetaryPct < 0 {
		drops = append(drops, Monetary)
	}
	if d.FrequencyPct < 0 {
		drops = append(drops, Frequency)
	}
	if d.CustomerPct < 0 {
		drops = append(drops, Customers)
	}
	return drops
}

// Pct returns the percent change of m.
func (d AggregateDelta) Pct(m Metric) float64 {
	switch m {
	case Monetary:
		return d.MonetaryPct
	case Frequency:
		return d.FrequencyPct
	default:
		return d.CustomerPct
	}
}

// CompareAggregates pairs clusters by name. Clusters missing from yesterday
// are skipped; the result follows today's order.
func CompareAggregates(today, yesterday []domain.ClusterAggregate) []AggregateDelta {
	prev := make(map[string]domain.ClusterAggregate, len(yesterday))
	for _, a := range yesterday {
		prev[a.Cluster] = a
	}

	var out []AggregateDelta
	for _, cur := range today {
		old, ok := prev[cur.Cluster]
		if !ok {
			continue
		}
		out = append(out, AggregateDelta{
			Cluster:       cur.Cluster,
			Today:         cur,
			Yesterday:     old,
			MonetaryDiff:  cur.MeanMonetary - old.MeanMonetary,
			FrequencyDiff: cur.MeanFrequency - old.MeanFrequency,
			CustomerDiff:  cur.CustomerCount - old.CustomerCount,
			MonetaryPct:   PercentChange(cur.MeanMonetary, old.MeanMonetary),
			FrequencyPct:  PercentChange(cur.MeanFrequency, old.MeanFrequency),
			CustomerPct:   PercentChange(float64(cur.CustomerCount), float64(old.CustomerCount)),
		})
	}
	return out
}
