package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"segment-engine/engine"
	"segment-engine/models"
)

// IngestCustomers upserts a batch of customers by their external id.
// Demographics may be partial; a missing id rejects the whole batch so the
// caller can fix and retry (orders are only written after customers pass).
func IngestCustomers(ctx context.Context, customers []models.Customer) (int, error) {
	for _, c := range customers {
		if c.CustomerID == "" {
			return 0, &engine.InvalidInputError{RecordID: c.Name, Reason: "customer id is required"}
		}
		if c.Age < 0 {
			return 0, &engine.InvalidInputError{RecordID: c.CustomerID, Reason: "negative age"}
		}
	}

	collection := GetDatabase().Collection("customers")
	now := time.Now()

	count := 0
	for _, c := range customers {
		filter := bson.M{"customer_id": c.CustomerID}
		update := bson.M{
			"$set": bson.M{
				"name":       c.Name,
				"age":        c.Age,
				"gender":     c.Gender,
				"city":       c.City,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"customer_id": c.CustomerID,
				"created_at":  now,
			},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
			slog.Error("Failed to upsert customer", "customerID", c.CustomerID, "error", err)
			return count, err
		}
		count++
	}

	return count, nil
}

// IngestOrders records a batch of orders. Orders are immutable: a retry with
// a known order id is a no-op, the stored record is never rewritten.
// Malformed records (negative amount, missing timestamp, unknown channel)
// reject the batch before anything is written, never coerced.
func IngestOrders(ctx context.Context, orders []models.Order) (int, error) {
	for _, o := range orders {
		switch {
		case o.OrderID == "":
			return 0, &engine.InvalidInputError{RecordID: o.CustomerID, Reason: "order id is required"}
		case o.CustomerID == "":
			return 0, &engine.InvalidInputError{RecordID: o.OrderID, Reason: "customer id is required"}
		case o.Timestamp.IsZero():
			return 0, &engine.InvalidInputError{RecordID: o.OrderID, Reason: "timestamp is required"}
		case o.Amount < 0:
			return 0, &engine.InvalidInputError{RecordID: o.OrderID, Reason: "negative amount"}
		case !models.ValidChannel(o.Channel):
			return 0, &engine.InvalidInputError{RecordID: o.OrderID, Reason: "unknown channel " + string(o.Channel)}
		}
	}

	collection := GetDatabase().Collection("orders")

	count := 0
	for _, o := range orders {
		filter := bson.M{"order_id": o.OrderID}
		update := bson.M{
			"$setOnInsert": bson.M{
				"order_id":    o.OrderID,
				"customer_id": o.CustomerID,
				"timestamp":   o.Timestamp,
				"amount":      o.Amount,
				"channel":     o.Channel,
				"product":     o.Product,
			},
		}
		opts := options.Update().SetUpsert(true)
		result, err := collection.UpdateOne(ctx, filter, update, opts)
		if err != nil {
			slog.Error("Failed to insert order", "orderID", o.OrderID, "error", err)
			return count, err
		}
		if result.UpsertedCount > 0 {
			count++
		}
	}

	return count, nil
}

// GetCustomer retrieves a customer by external id
func GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	collection := GetDatabase().Collection("customers")

	var customer models.Customer
	err := collection.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&customer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Customer not found
		}
		return nil, err
	}

	return &customer, nil
}

// GetAllCustomers returns the full customer population
func GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	collection := GetDatabase().Collection("customers")

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"customer_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var customers []models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetAllOrders returns the full order history, oldest first
func GetAllOrders(ctx context.Context) ([]models.Order, error) {
	collection := GetDatabase().Collection("orders")

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"timestamp": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersByCustomer returns one customer's orders, oldest first
func GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	collection := GetDatabase().Collection("orders")

	cursor, err := collection.Find(ctx, bson.M{"customer_id": customerID},
		options.Find().SetSort(bson.M{"timestamp": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
