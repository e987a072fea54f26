package engine

import (
	"sort"
	"time"

	"segment-engine/models"
)

const (
	// DefaultLookbackWindowDays is the window used for frequency computation
	DefaultLookbackWindowDays = 180
	// DefaultFrequencyIntervalDays is the unit frequency is expressed in.
	// Equal to the lookback window by default, so frequency reads as orders
	// per window; set to e.g. 90 for orders per quarter.
	DefaultFrequencyIntervalDays = 180
)

// MetricsConfig controls the frequency lookback window. Orders outside the
// window are excluded from frequency but still count toward lifetime totals.
type MetricsConfig struct {
	LookbackWindowDays    int `json:"lookback_window_days"`
	FrequencyIntervalDays int `json:"frequency_interval_days"`
}

// DefaultMetricsConfig returns the documented default window configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		LookbackWindowDays:    DefaultLookbackWindowDays,
		FrequencyIntervalDays: DefaultFrequencyIntervalDays,
	}
}

func (c MetricsConfig) normalized() MetricsConfig {
	if c.LookbackWindowDays <= 0 {
		c.LookbackWindowDays = DefaultLookbackWindowDays
	}
	if c.FrequencyIntervalDays <= 0 {
		c.FrequencyIntervalDays = DefaultFrequencyIntervalDays
	}
	return c
}

// intervalsPerWindow is the divisor for frequency, never below 1
func (c MetricsConfig) intervalsPerWindow() float64 {
	n := float64(c.LookbackWindowDays) / float64(c.FrequencyIntervalDays)
	if n < 1 {
		return 1
	}
	return n
}

// ComputeMetrics derives the RFM metrics of a single customer from its order
// history at the given evaluation time. Pure: no side effects, identical
// inputs yield identical output. Fails with InvalidInputError on negative
// amounts or orders timestamped after the evaluation time.
func ComputeMetrics(customerID string, orders []models.Order, evalTime time.Time, cfg MetricsConfig) (models.CustomerMetrics, error) {
	cfg = cfg.normalized()

	m := models.CustomerMetrics{
		CustomerID:  customerID,
		RecencyDays: models.RecencyNever,
	}

	windowStart := evalTime.AddDate(0, 0, -cfg.LookbackWindowDays)
	priorStart := evalTime.AddDate(0, 0, -2*cfg.LookbackWindowDays)

	var latest time.Time
	var windowOrders, priorOrders int
	for _, o := range orders {
		if o.Amount < 0 {
			return models.CustomerMetrics{}, &InvalidInputError{RecordID: o.OrderID, Reason: "negative amount"}
		}
		if o.Timestamp.After(evalTime) {
			return models.CustomerMetrics{}, &InvalidInputError{RecordID: o.OrderID, Reason: "order timestamp after evaluation time"}
		}

		m.OrderCount++
		m.TotalSpent += o.Amount
		if o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
		if o.Timestamp.After(windowStart) {
			windowOrders++
		} else if o.Timestamp.After(priorStart) {
			priorOrders++
		}
	}

	if m.OrderCount == 0 {
		return m, nil
	}

	m.RecencyDays = int(evalTime.Sub(latest).Hours() / 24)
	m.Frequency = float64(windowOrders) / cfg.intervalsPerWindow()
	m.PriorFrequency = float64(priorOrders) / cfg.intervalsPerWindow()
	m.Monetary = m.TotalSpent / float64(m.OrderCount)

	return m, nil
}

// ComputeAllMetrics derives metrics for every customer, including customers
// with no orders. Orders referencing an unknown customer are rejected rather
// than silently dropped. Output is sorted by customer id so repeated runs are
// byte-identical.
func ComputeAllMetrics(customers []models.Customer, orders []models.Order, evalTime time.Time, cfg MetricsConfig) ([]models.CustomerMetrics, error) {
	byCustomer := make(map[string][]models.Order, len(customers))
	for _, c := range customers {
		byCustomer[c.CustomerID] = nil
	}
	for _, o := range orders {
		if _, ok := byCustomer[o.CustomerID]; !ok {
			return nil, &InvalidInputError{RecordID: o.OrderID, Reason: "order references unknown customer " + o.CustomerID}
		}
		byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
	}

	out := make([]models.CustomerMetrics, 0, len(byCustomer))
	for id, customerOrders := range byCustomer {
		m, err := ComputeMetrics(id, customerOrders, evalTime, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })

	return out, nil
}
