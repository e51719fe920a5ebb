package domain

// ClusterAggregate is one row of the cluster summary table.
type ClusterAggregate struct {
	Cluster       string  `json:"cluster"`
	CustomerCount int     `json:"customer_count"`
	MeanRecency   float64 `json:"mean_recency"`
	MeanFrequency float64 `json:"mean_frequency"`
	MeanMonetary  float64 `json:"mean_monetary"`
}

// Transition counts customers that moved From one cluster To another between
// two snapshots.
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}
