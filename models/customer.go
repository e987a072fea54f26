package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderChannel is the sales channel an order came through
type OrderChannel string

const (
	ChannelWeb      OrderChannel = "web"
	ChannelApp      OrderChannel = "app"
	ChannelWhatsApp OrderChannel = "whatsapp"
	ChannelEmail    OrderChannel = "email"
	ChannelOther    OrderChannel = "other"
)

// ValidChannel reports whether ch is one of the known sales channels
func ValidChannel(ch OrderChannel) bool {
	switch ch {
	case ChannelWeb, ChannelApp, ChannelWhatsApp, ChannelEmail, ChannelOther:
		return true
	}
	return false
}

// Customer represents a customer ingested from an external data source.
// Demographic attributes are optional; a zero Age or empty City means unknown.
type Customer struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CustomerID string             `bson:"customer_id" json:"customer_id"` // External unique ID
	Name       string             `bson:"name,omitempty" json:"name,omitempty"`
	Age        int                `bson:"age,omitempty" json:"age,omitempty"`       // 0 = unknown
	Gender     string             `bson:"gender,omitempty" json:"gender,omitempty"` // "" = unknown
	City       string             `bson:"city,omitempty" json:"city,omitempty"`     // "" = unknown
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Order is a single purchase event. Orders are immutable once recorded.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID    string             `bson:"order_id" json:"order_id"`
	CustomerID string             `bson:"customer_id" json:"customer_id"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Amount     float64            `bson:"amount" json:"amount"` // Non-negative
	Channel    OrderChannel       `bson:"channel" json:"channel"`
	Product    string             `bson:"product,omitempty" json:"product,omitempty"` // Category tag
}

// RecencyNever is the recency assigned to customers with no orders.
// It orders after every real recency value so "recency over N days" rules
// pick up never-buyers, and unlike +Inf it survives JSON round-trips.
const RecencyNever = 1 << 30

// CustomerMetrics is the RFM view of a single customer, derived from the
// order history relative to an evaluation timestamp. Metrics are a pure
// function of {orders, evaluation time, window config} and are never stored.
type CustomerMetrics struct {
	CustomerID     string  `json:"customer_id"`
	RecencyDays    int     `json:"recency_days"` // RecencyNever when OrderCount == 0
	Frequency      float64 `json:"frequency"`    // Orders per interval inside the lookback window
	PriorFrequency float64 `json:"prior_frequency"`
	Monetary       float64 `json:"monetary"` // Mean order amount (lifetime)
	TotalSpent     float64 `json:"total_spent"`
	OrderCount     int     `json:"order_count"`
}

// HasOrders reports whether the customer placed at least one order
func (m CustomerMetrics) HasOrders() bool {
	return m.OrderCount > 0
}

// ClassifiedCustomer pairs a customer with the lifecycle status the rule
// set assigned and the name of the rule that matched.
type ClassifiedCustomer struct {
	CustomerID string          `json:"customer_id"`
	Status     SegmentStatus   `json:"status"`
	Rule       string          `json:"rule"`
	Metrics    CustomerMetrics `json:"metrics"`
}
