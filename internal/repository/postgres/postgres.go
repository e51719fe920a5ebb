package postgres

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthlab/backend/internal/domain"
)

var (
	_ domain.RouteSource             = (*PostgresRepository)(nil)
	_ domain.PredictionLogRepository = (*PostgresRepository)(nil)
)

// PostgresRepository reads recommendation tables and stores prediction logs.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// TopRoutes loads every customer's ranked routes.
func (r *PostgresRepository) TopRoutes(ctx context.Context) (map[string][]string, error) {
	query := `
		SELECT customer_id, route_id
		FROM customer_top_routes
		ORDER BY customer_id, route_rank
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query top routes: %w", err)
	}
	defer rows.Close()

	results := make(map[string][]string)
	for rows.Next() {
		var customerID, routeID string
		if err := rows.Scan(&customerID, &routeID); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan top route row: %w", err)
		}
		results[customerID] = append(results[customerID], routeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read top routes: %w", err)
	}

	return results, nil
}

// FallbackRoutes loads the global ranked route list.
func (r *PostgresRepository) FallbackRoutes(ctx context.Context) ([]string, error) {
	query := `
		SELECT route_id
		FROM fallback_routes
		ORDER BY route_rank
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query fallback routes: %w", err)
	}

	routes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan fallback routes: %w", err)
	}

	return routes, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// SavePredictionLog persists a prediction request/response to PostgreSQL
func (r *PostgresRepository) SavePredictionLog(ctx context.Context, entry domain.PredictionLog) error {
	query := `
		INSERT INTO prediction_logs (
			id, customer_id, event_timestamp, request,
			repurchase_probability, predicted_days, recommended_routes,
			latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	request, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode prediction request: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		entry.ID, entry.Request.CustomerID, entry.Request.EventTimestamp, request,
		entry.Response.RepurchaseProbability, entry.Response.PredictedDays, entry.Response.RecommendedRoutes,
		entry.Latency.Milliseconds(), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction log: %w", err)
	}

	return nil
}
