package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"segment-engine/engine"
	"segment-engine/models"
	"segment-engine/services"
)

type MetricsRequest struct {
	Customers []models.Customer `json:"customers"`
	Orders    []models.Order    `json:"orders"`
}

// ComputeMetrics extracts RFM metrics for an inline batch of customers.
func ComputeMetrics(c *fiber.Ctx) error {
	var req MetricsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	metrics, err := engine.ComputeAllMetrics(req.Customers, req.Orders, evalAt, services.MetricsConfig(appConfig))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"evaluation_time": evalAt,
		"metrics":         metrics,
	})
}

type ClassifyRequest struct {
	Metrics []models.CustomerMetrics `json:"metrics"`
}

// ClassifyCustomers assigns a lifecycle status to each metric row.
func ClassifyCustomers(c *fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	classified, err := engine.Classify(req.Metrics, services.Rules(appConfig))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"classified": classified,
	})
}

type SegmentTreeRequest struct {
	Classified []models.ClassifiedCustomer `json:"classified"`
}

// BuildSegmentTree groups classified customers into the two-level tree.
func BuildSegmentTree(c *fiber.Ctx) error {
	var req SegmentTreeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	tree, err := engine.BuildSegmentTree(req.Classified, engine.DefaultTreeConfig())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(tree)
}

type CoverageRequest struct {
	Classified []models.ClassifiedCustomer `json:"classified"`
	Customers  []models.Customer           `json:"customers"`
	Orders     []models.Order              `json:"orders"`
	XDimension string                      `json:"x_dimension" validate:"required"`
	YDimension string                      `json:"y_dimension" validate:"required"`
}

// BuildCoverage cross-tabulates classified customers over two dimensions.
func BuildCoverage(c *fiber.Ctx) error {
	var req CoverageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	xDim, err := services.DimensionByName(req.XDimension)
	if err != nil {
		return errorResponse(c, err)
	}
	yDim, err := services.DimensionByName(req.YDimension)
	if err != nil {
		return errorResponse(c, err)
	}

	matrix, err := engine.BuildCoverageMatrix(
		req.Classified, req.Customers, req.Orders,
		xDim, yDim,
		services.CampaignLog(), appConfig.FreshnessWindowDays, evalAt)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(matrix)
}

// GetSnapshot runs the full pipeline over the stored data set.
func GetSnapshot(c *fiber.Ctx) error {
	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	xName := c.Query("x_dimension", "age")
	yName := c.Query("y_dimension", "ticket")
	xDim, err := services.DimensionByName(xName)
	if err != nil {
		return errorResponse(c, err)
	}
	yDim, err := services.DimensionByName(yName)
	if err != nil {
		return errorResponse(c, err)
	}

	snapshot, err := services.ComputeSnapshot(c.Context(), appConfig, xDim, yDim, evalAt)
	if err != nil {
		slog.Error("Snapshot computation failed", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(snapshot)
}
