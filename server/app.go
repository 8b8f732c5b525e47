package main

import (
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/service"
)

func newApp(svc *service.Service, auth *authenticator, logger log.FieldLogger) *fiber.App {
	handleError := errorHandler(logger)
	app := fiber.New(fiber.Config{
		AppName:      "trackerd",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: handleError,
	})

	app.Use(requestLogger(logger, handleError))

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", auth.middleware)
	(&handlers{svc: svc}).register(api)
	return app
}

// errorHandler maps tracker errors to status codes. Anything unrecognised
// is a 500 and gets logged.
func errorHandler(logger log.FieldLogger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := err.Error()

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code, msg = fe.Code, fe.Message
		case errors.Is(err, tracker.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, tracker.ErrInvalidArgument):
			code = fiber.StatusBadRequest
		case errors.Is(err, tracker.ErrAlreadyExists):
			code = fiber.StatusConflict
		}

		if code >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(log.Fields{"method": c.Method(), "path": c.Path()}).Error("request failed")
			msg = "internal error"
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// requestLogger logs one line per request once the error handler has set
// the final status.
func requestLogger(logger log.FieldLogger, handleError fiber.ErrorHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := handleError(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := log.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
		}
		if owner := ownerOf(c); owner != "" {
			fields["owner"] = owner
		}
		logger.WithFields(fields).Debug("request")
		return nil
	}
}
