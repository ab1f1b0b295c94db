package httpapi

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/agro-insight/internal/agro"
	"github.com/i474232898/agro-insight/internal/auth"
)

const appName = "agro-insight"

// NewApp builds the Fiber app with the shared error handler and middleware, and registers
// every route.
func NewApp(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		Immutable:             true, // query values end up in cached snapshots
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler(d.Logger),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(accessLog(d.Logger))
	app.Use(recover.New())

	RegisterRoutes(app, d)
	return app
}

// errorHandler renders every error as {"error": true, "message": ...}. Messages of
// unexpected errors are not exposed.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		err = classify(err)

		code := fiber.StatusInternalServerError
		message := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID), "err", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
}

// classify maps domain errors onto HTTP errors.
func classify(err error) error {
	switch {
	case errors.Is(err, agro.ErrInvalidCoordinate),
		errors.Is(err, auth.ErrInvalidRegistration),
		errors.Is(err, auth.ErrMissingProfileFields),
		errors.Is(err, auth.ErrEmailTaken):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInactiveAccount):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	return err
}

// accessLog writes one record per request. Errors are rendered here so the logged status
// is the one the client receives.
func accessLog(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		log.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return nil
	}
}
