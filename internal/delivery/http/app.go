// Package http exposes the prediction service over Fiber.
package http

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/logging"
)

// NewApp builds the Fiber app with the shared middleware stack. Routes are
// added by SetupRoutes.
func NewApp(cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "GrowthLab Prediction API v1.0",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	return app
}

// ErrorHandler writes every failure as {"error": message}. Domain error kinds
// pick the status; anything unrecognised is a 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		logging.Error().Err(err).
			Str("request_id", requestID(c)).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return c.Status(code).JSON(domain.ErrorResponse{Error: message})
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUpstreamModel):
		return fiber.StatusBadGateway, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// RequestLogger logs one zerolog line per request. Errors are rendered
// through the app's error handler first so the logged status is final.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := logging.Info()
		if status >= fiber.StatusInternalServerError {
			event = logging.Warn()
		}
		event.
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
