package services

import (
	"context"
	"sort"

	"segment-engine/models"
)

// MonthlySales is the aggregated order activity of one calendar month
type MonthlySales struct {
	Month      string  `json:"month"` // YYYY-MM
	Orders     int     `json:"orders"`
	Revenue    float64 `json:"revenue"`
	MeanTicket float64 `json:"mean_ticket"`
}

// GetMonthlySales groups the full order history into calendar-month totals,
// oldest month first.
func GetMonthlySales(ctx context.Context) ([]MonthlySales, error) {
	orders, err := GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	return summarizeByMonth(orders), nil
}

func summarizeByMonth(orders []models.Order) []MonthlySales {
	byMonth := make(map[string]*MonthlySales)
	for _, o := range orders {
		month := o.Timestamp.UTC().Format("2006-01")
		s := byMonth[month]
		if s == nil {
			s = &MonthlySales{Month: month}
			byMonth[month] = s
		}
		s.Orders++
		s.Revenue += o.Amount
	}

	out := make([]MonthlySales, 0, len(byMonth))
	for _, s := range byMonth {
		if s.Orders > 0 {
			s.MeanTicket = s.Revenue / float64(s.Orders)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
