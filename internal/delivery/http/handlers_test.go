package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/recommend"
	"github.com/growthlab/backend/internal/repository/postgres"
	"github.com/growthlab/backend/internal/service"
)

type fixedScorer struct {
	value float64
	err   error
}

func (s fixedScorer) Score(context.Context, []float64) (float64, error) {
	return s.value, s.err
}

type downRepo struct{}

func (downRepo) SavePredictionLog(context.Context, domain.PredictionLog) error { return nil }
func (downRepo) Health(context.Context) error                                 { return errors.New("connection refused") }

const referenceBody = `{
	"customer_id": "C1",
	"event_timestamp": "2024-04-01T10:00:00",
	"transaction_value": 150.5,
	"ticket_count": 2,
	"average_spend_to_date": 120.0,
	"purchase_count_to_date": 10,
	"max_spend_to_date": 200.0,
	"mean_purchase_interval_days": 15.0,
	"std_purchase_interval_days": 5.0
}`

func newTestApp(t *testing.T, clf, reg domain.Scorer, routes *recommend.Table, repo domain.PredictionLogRepository) (*fiber.App, *service.PredictionService) {
	t.Helper()
	svc := service.NewPredictionService(service.Dependencies{
		Classifier: clf,
		Regressor:  reg,
		Routes:     routes,
		Logs:       repo,
	})
	app := NewApp(config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second})
	SetupRoutes(app, NewHandler(svc, repo))
	return app, svc
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestPredict_Success(t *testing.T) {
	routes := recommend.NewTable(map[string][]string{"C1": {"SP-RJ", "SP-BH"}}, []string{"RJ-SP"})
	repo := postgres.NewMockRepository(10)
	app, svc := newTestApp(t, fixedScorer{value: 0.8}, fixedScorer{value: 12.34}, routes, repo)

	for _, path := range []string{"/predict", "/api/v1/predict"} {
		code, body := post(t, app, path, referenceBody)
		assert.Equal(t, fiber.StatusOK, code, path)
		assert.Equal(t, "C1", body["customer_id"])
		assert.Equal(t, 80.0, body["repurchase_probability"])
		assert.Equal(t, 12.3, body["predicted_days_to_next_purchase"])
		assert.Equal(t, []any{"SP-RJ", "SP-BH"}, body["recommended_routes"])
	}

	svc.WaitBackground()
	assert.Len(t, repo.Entries(), 2)
}

func TestPredict_LowProbability(t *testing.T) {
	app, _ := newTestApp(t, fixedScorer{value: 0.2}, fixedScorer{value: 30}, recommend.NewTable(nil, []string{"RJ-SP"}), nil)

	code, body := post(t, app, "/predict", referenceBody)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 20.0, body["repurchase_probability"])
	assert.Equal(t, -1.0, body["predicted_days_to_next_purchase"])
	assert.Equal(t, []any{"RJ-SP"}, body["recommended_routes"])
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		clf  domain.Scorer
		body string
		code int
	}{
		{"malformed json", fixedScorer{value: 0.8}, `{"customer_id":`, fiber.StatusBadRequest},
		{"missing customer", fixedScorer{value: 0.8}, `{"event_timestamp":"2024-04-01","transaction_value":1}`, fiber.StatusBadRequest},
		{"missing value", fixedScorer{value: 0.8}, `{"customer_id":"C1","event_timestamp":"2024-04-01"}`, fiber.StatusBadRequest},
		{"bad timestamp", fixedScorer{value: 0.8}, `{"customer_id":"C1","event_timestamp":"soon","transaction_value":1}`, fiber.StatusBadRequest},
		{"model failure", fixedScorer{err: errors.New("model not loaded")}, referenceBody, fiber.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, tt.clf, fixedScorer{value: 3}, nil, nil)
			code, body := post(t, app, "/predict", tt.body)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body, "customer_id")
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		routes   *recommend.Table
		repo     domain.PredictionLogRepository
		status   string
		mode     string
		database string
	}{
		{"personalized", recommend.NewTable(map[string][]string{"C1": {"A"}}, nil), postgres.NewMockRepository(1), "ok", "personalized", "ok"},
		{"fallback only", recommend.NewTable(nil, []string{"A"}), nil, "ok", "fallback-only", "disabled"},
		{"database down", recommend.NewTable(nil, nil), downRepo{}, "degraded", "fallback-only", "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, fixedScorer{}, fixedScorer{}, tt.routes, tt.repo)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, tt.mode, body["recommendations"])
			assert.Equal(t, tt.database, body["database"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, fixedScorer{value: 0.8}, fixedScorer{value: 1}, nil, nil)
	post(t, app, "/predict", referenceBody)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "predictions_total")
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, fixedScorer{}, fixedScorer{}, nil, nil)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
