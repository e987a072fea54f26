// Package handlers exposes the HTTP surface of the segmentation engine.
package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"segment-engine/config"
	"segment-engine/engine"
)

var validate = validator.New()

var appConfig *config.Config

// Init wires the loaded configuration into the handler package.
func Init(cfg *config.Config) {
	appConfig = cfg
}

// statusForError maps engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, engine.ErrConfig):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrDuplicateCampaign):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// evalTime reads the optional eval_time query parameter (RFC 3339) and
// defaults to the current time when absent. The default is truncated to the
// minute so back-to-back requests share a snapshot cache key.
func evalTime(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("eval_time")
	if raw == "" {
		return time.Now().UTC().Truncate(time.Minute), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid eval_time %q: expected RFC 3339", raw)
	}
	return t, nil
}
