package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"segment-engine/engine"
	"segment-engine/models"
	"segment-engine/services"
)

// buildCurrentTree recomputes the segment tree from the stored data set.
func buildCurrentTree(c *fiber.Ctx, evalAt time.Time) (*models.SegmentTree, []models.Order, error) {
	customers, err := services.GetAllCustomers(c.Context())
	if err != nil {
		return nil, nil, err
	}
	orders, err := services.GetAllOrders(c.Context())
	if err != nil {
		return nil, nil, err
	}

	metrics, err := engine.ComputeAllMetrics(customers, orders, evalAt, services.MetricsConfig(appConfig))
	if err != nil {
		return nil, nil, err
	}
	classified, err := engine.Classify(metrics, services.Rules(appConfig))
	if err != nil {
		return nil, nil, err
	}
	tree, err := engine.BuildSegmentTree(classified, engine.DefaultTreeConfig())
	if err != nil {
		return nil, nil, err
	}
	return tree, orders, nil
}

// GetSimilarity flags leaf segment pairs whose metric vectors are close.
func GetSimilarity(c *fiber.Ctx) error {
	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tree, _, err := buildCurrentTree(c, evalAt)
	if err != nil {
		slog.Error("Similarity detection failed", "error", err)
		return errorResponse(c, err)
	}

	opts := engine.SimilarityOptions{
		Threshold:       appConfig.SimilarityThreshold,
		SameStatusPairs: c.QueryBool("same_status", false),
	}
	flags := services.SimilarityDetector().Detect(tree, opts)

	return c.JSON(fiber.Map{
		"flags": flags,
		"count": len(flags),
	})
}

type ResolveRequest struct {
	SegmentA string `json:"segment_a" validate:"required"`
	SegmentB string `json:"segment_b" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=merged renamed ignored"`
}

// ResolveSimilarity acknowledges a flagged pair for the rest of the session.
func ResolveSimilarity(c *fiber.Ctx) error {
	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	services.SimilarityDetector().Resolve(req.SegmentA, req.SegmentB, models.FlagStatus(req.Status))

	slog.Info("Similarity flag resolved",
		"segmentA", req.SegmentA,
		"segmentB", req.SegmentB,
		"status", req.Status)
	return c.JSON(fiber.Map{
		"message": "Flag resolved",
	})
}

// GetSuggestions proposes one campaign per populated leaf segment.
func GetSuggestions(c *fiber.Ctx) error {
	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tree, orders, err := buildCurrentTree(c, evalAt)
	if err != nil {
		slog.Error("Suggestion generation failed", "error", err)
		return errorResponse(c, err)
	}

	suggestions := engine.SuggestCampaigns(tree, orders)
	return c.JSON(fiber.Map{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}
