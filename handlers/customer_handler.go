package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"segment-engine/models"
	"segment-engine/services"
)

type IngestRequest struct {
	Customers []models.Customer `json:"customers"`
	Orders    []models.Order    `json:"orders"`
}

// IngestData upserts customers and appends orders in one batch.
func IngestData(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Customers) == 0 && len(req.Orders) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty batch",
		})
	}

	customersUpserted, err := services.IngestCustomers(c.Context(), req.Customers)
	if err != nil {
		slog.Error("Customer ingest failed", "error", err)
		return errorResponse(c, err)
	}

	ordersInserted, err := services.IngestOrders(c.Context(), req.Orders)
	if err != nil {
		slog.Error("Order ingest failed", "error", err)
		return errorResponse(c, err)
	}

	services.InvalidateSnapshots(c.Context())

	slog.Info("Ingested batch",
		"customers", customersUpserted,
		"orders", ordersInserted)
	return c.JSON(fiber.Map{
		"customers_upserted": customersUpserted,
		"orders_inserted":    ordersInserted,
	})
}

// GetCustomers lists every known customer.
func GetCustomers(c *fiber.Ctx) error {
	customers, err := services.GetAllCustomers(c.Context())
	if err != nil {
		slog.Error("Failed to list customers", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list customers",
		})
	}
	return c.JSON(fiber.Map{
		"customers": customers,
		"count":     len(customers),
	})
}

// GetCustomerProfile returns a single customer with metrics, status and leaf.
func GetCustomerProfile(c *fiber.Ctx) error {
	customerID := c.Params("id")

	evalAt, err := evalTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	profile, err := services.GetCustomerProfile(c.Context(), appConfig, customerID, evalAt)
	if err != nil {
		slog.Error("Failed to build customer profile", "error", err, "customerID", customerID)
		return errorResponse(c, err)
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}
	return c.JSON(profile)
}

// GetSalesSummary returns per-month order counts and revenue.
func GetSalesSummary(c *fiber.Ctx) error {
	summary, err := services.GetMonthlySales(c.Context())
	if err != nil {
		slog.Error("Failed to summarize sales", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to summarize sales",
		})
	}
	return c.JSON(fiber.Map{
		"months": summary,
	})
}
