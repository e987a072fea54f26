package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"segment-engine/engine"
	"segment-engine/models"
	"segment-engine/services"
)

type CampaignRequest struct {
	CampaignID string    `json:"campaign_id"`
	Name       string    `json:"name" validate:"required"`
	SentAt     time.Time `json:"sent_at" validate:"required"`
	Targets    []string  `json:"targets" validate:"required,min=1"`
	Filters    []string  `json:"filters"`
}

// IngestCampaign appends a sent campaign to the log. Retrying the same
// campaign is a no-op; a different payload under the same id is a 409.
func IngestCampaign(c *fiber.Ctx) error {
	var req CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.CampaignID == "" {
		req.CampaignID = uuid.NewString()
	}

	campaign := models.Campaign{
		CampaignID: req.CampaignID,
		Name:       req.Name,
		SentAt:     req.SentAt,
		Targets:    req.Targets,
		Filters:    req.Filters,
	}

	if err := services.IngestCampaign(c.Context(), campaign); err != nil {
		if errors.Is(err, engine.ErrDuplicateCampaign) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		slog.Error("Campaign ingest failed", "error", err, "campaignID", campaign.CampaignID)
		return errorResponse(c, err)
	}

	services.InvalidateSnapshots(c.Context())

	slog.Info("Campaign recorded",
		"campaignID", campaign.CampaignID,
		"targets", len(campaign.Targets))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"campaign_id": campaign.CampaignID,
	})
}

// GetCampaigns returns the campaign history, most recent first.
func GetCampaigns(c *fiber.Ctx) error {
	campaigns, err := services.GetCampaignHistory(c.Context())
	if err != nil {
		slog.Error("Failed to load campaign history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign history",
		})
	}
	return c.JSON(fiber.Map{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}
