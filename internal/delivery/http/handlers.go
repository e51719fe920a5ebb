package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	predictionSvc *service.PredictionService
	repo          domain.PredictionLogRepository
}

// NewHandler creates a new handler. repo may be nil when prediction logging
// is disabled.
func NewHandler(predictionSvc *service.PredictionService, repo domain.PredictionLogRepository) *Handler {
	return &Handler{
		predictionSvc: predictionSvc,
		repo:          repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	routes := h.predictionSvc.Routes()
	mode := "fallback-only"
	if routes.Personalized() {
		mode = "personalized"
	}

	status := "ok"
	database := "disabled"
	if h.repo != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := h.repo.Health(ctx); err != nil {
			status = "degraded"
			database = err.Error()
		}
	}

	return c.JSON(fiber.Map{
		"status":          status,
		"service":         "growthlab-backend",
		"version":         "1.0.0",
		"recommendations": mode,
		"customers":       routes.Size(),
		"database":        database,
	})
}

// Predict scores a customer event and returns the repurchase prediction.
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req domain.CustomerEvent
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.predictionSvc.Predict(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}
