// Package recommend serves ranked route recommendations per customer from a
// table loaded once at startup.
package recommend

import (
	"context"
	"slices"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/metrics"
)

// MaxRoutes is the number of routes kept per customer.
const MaxRoutes = 5

// Table is immutable after Build and safe for concurrent readers.
type Table struct {
	routes   map[string][]string
	fallback []string
}

// Build loads the table from src. Load failures are logged and leave the
// table in fallback-only mode; Build itself never fails.
func Build(ctx context.Context, src domain.RouteSource) *Table {
	log := logging.With("recommend")
	t := &Table{routes: map[string][]string{}}

	fallback, err := src.FallbackRoutes(ctx)
	if err != nil {
		log.Warn().Err(domain.Unavailable("fallback routes", err)).Msg("serving an empty fallback list")
	} else {
		t.fallback = truncate(fallback)
	}

	routes, err := src.TopRoutes(ctx)
	if err != nil {
		log.Warn().Err(domain.Unavailable("customer routes", err)).Msg("running in fallback-only mode")
	} else {
		for id, r := range routes {
			if len(r) > 0 {
				t.routes[id] = truncate(r)
			}
		}
	}

	metrics.RecommendationTableSize.Set(float64(len(t.routes)))
	log.Info().Int("customers", len(t.routes)).Int("fallback_routes", len(t.fallback)).Msg("recommendation table ready")
	return t
}

// NewTable builds a table from in-memory data.
func NewTable(routes map[string][]string, fallback []string) *Table {
	t := &Table{routes: make(map[string][]string, len(routes)), fallback: truncate(fallback)}
	for id, r := range routes {
		if len(r) > 0 {
			t.routes[id] = truncate(r)
		}
	}
	return t
}

// Lookup returns the customer's ranked routes, or the fallback list when the
// customer is unknown. The returned slice is a copy.
func (t *Table) Lookup(customerID string) []string {
	if r, ok := t.routes[customerID]; ok {
		metrics.RecommendationLookups.WithLabelValues("personalized").Inc()
		return slices.Clone(r)
	}
	metrics.RecommendationLookups.WithLabelValues("fallback").Inc()
	if t.fallback == nil {
		return []string{}
	}
	return slices.Clone(t.fallback)
}

// Personalized reports whether any customer-specific routes were loaded.
func (t *Table) Personalized() bool {
	return len(t.routes) > 0
}

// Size returns the number of customers with personalized routes.
func (t *Table) Size() int {
	return len(t.routes)
}

func truncate(r []string) []string {
	if len(r) > MaxRoutes {
		r = r[:MaxRoutes]
	}
	return slices.Clone(r)
}
