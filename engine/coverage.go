package engine

import (
	"fmt"
	"sort"
	"time"

	"segment-engine/models"
)

// DimensionKind selects what customer attribute a matrix axis buckets on
type DimensionKind string

const (
	DimensionAge       DimensionKind = "age"
	DimensionCity      DimensionKind = "city"
	DimensionChannel   DimensionKind = "channel"  // Dominant order channel
	DimensionProduct   DimensionKind = "product"  // Dominant product tag
	DimensionTicket    DimensionKind = "ticket"   // Mean order amount
	DimensionFrequency DimensionKind = "frequency"
	DimensionRecency   DimensionKind = "recency"
)

// Dimension is one axis of the coverage matrix. Continuous kinds (age,
// ticket, frequency, recency) bucket against explicit ascending breakpoints,
// never computed from the data, so matrices stay comparable across time
// snapshots. Labels has one more entry than Breakpoints: value < Breakpoints[i]
// falls in Labels[i], everything else in the last label. Categorical kinds
// (city, channel, product) take their labels from the observed values, sorted.
type Dimension struct {
	Name        string        `json:"name"`
	Kind        DimensionKind `json:"kind"`
	Breakpoints []float64     `json:"breakpoints,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
}

func (d Dimension) continuous() bool {
	switch d.Kind {
	case DimensionAge, DimensionTicket, DimensionFrequency, DimensionRecency:
		return true
	}
	return false
}

func (d Dimension) validate() error {
	switch d.Kind {
	case DimensionAge, DimensionTicket, DimensionFrequency, DimensionRecency:
		if len(d.Labels) != len(d.Breakpoints)+1 {
			return &ConfigError{Subject: d.Name, Reason: "continuous dimension needs len(labels) == len(breakpoints)+1"}
		}
		for i := 1; i < len(d.Breakpoints); i++ {
			if d.Breakpoints[i] <= d.Breakpoints[i-1] {
				return &ConfigError{Subject: d.Name, Reason: "breakpoints must be strictly ascending"}
			}
		}
	case DimensionCity, DimensionChannel, DimensionProduct:
		// Labels come from the data.
	default:
		return &ConfigError{Subject: d.Name, Reason: fmt.Sprintf("unknown dimension kind %q", d.Kind)}
	}
	return nil
}

// DefaultAgeDimension mirrors the dashboard's age bands
func DefaultAgeDimension() Dimension {
	return Dimension{
		Name:        "age",
		Kind:        DimensionAge,
		Breakpoints: []float64{26, 36, 46, 61},
		Labels:      []string{"18-25", "26-35", "36-45", "46-60", "60+"},
	}
}

// DefaultTicketDimension mirrors the dashboard's average-ticket bands
func DefaultTicketDimension() Dimension {
	return Dimension{
		Name:        "avg_ticket",
		Kind:        DimensionTicket,
		Breakpoints: []float64{50, 100},
		Labels:      []string{"low", "mid", "high"},
	}
}

// bucketFor places one customer on the dimension. ok is false when the
// customer has no value on this dimension (unknown age, no orders, ...);
// such customers are excluded from the matrix by policy, never folded into a
// synthetic bucket.
func (d Dimension) bucketFor(cust models.Customer, m models.CustomerMetrics, pref customerPrefs) (string, bool) {
	switch d.Kind {
	case DimensionAge:
		if cust.Age <= 0 {
			return "", false
		}
		return d.continuousLabel(float64(cust.Age)), true
	case DimensionCity:
		if cust.City == "" {
			return "", false
		}
		return cust.City, true
	case DimensionChannel:
		if pref.channel == "" {
			return "", false
		}
		return pref.channel, true
	case DimensionProduct:
		if pref.product == "" {
			return "", false
		}
		return pref.product, true
	case DimensionTicket:
		if !m.HasOrders() {
			return "", false
		}
		return d.continuousLabel(m.Monetary), true
	case DimensionFrequency:
		if !m.HasOrders() {
			return "", false
		}
		return d.continuousLabel(m.Frequency), true
	case DimensionRecency:
		if !m.HasOrders() {
			return "", false
		}
		return d.continuousLabel(float64(m.RecencyDays)), true
	}
	return "", false
}

func (d Dimension) continuousLabel(v float64) string {
	for i, bp := range d.Breakpoints {
		if v < bp {
			return d.Labels[i]
		}
	}
	return d.Labels[len(d.Labels)-1]
}

// customerPrefs are the order-derived categorical attributes of a customer
type customerPrefs struct {
	channel string
	product string
}

// dominantPrefs picks each customer's most frequent channel and product tag,
// ties broken lexicographically so repeated builds agree.
func dominantPrefs(orders []models.Order) map[string]customerPrefs {
	type counts struct {
		channel map[string]int
		product map[string]int
	}
	byCustomer := make(map[string]*counts)
	for _, o := range orders {
		c := byCustomer[o.CustomerID]
		if c == nil {
			c = &counts{channel: make(map[string]int), product: make(map[string]int)}
			byCustomer[o.CustomerID] = c
		}
		c.channel[string(o.Channel)]++
		if o.Product != "" {
			c.product[o.Product]++
		}
	}

	out := make(map[string]customerPrefs, len(byCustomer))
	for id, c := range byCustomer {
		out[id] = customerPrefs{
			channel: dominantKey(c.channel),
			product: dominantKey(c.product),
		}
	}
	return out
}

func dominantKey(m map[string]int) string {
	best, bestCount := "", 0
	for k, n := range m {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

// BuildCoverageMatrix cross-tabulates classified customers along two
// dimensions and annotates every cell with campaign impact from the log.
// Customers missing a value on either dimension are excluded from the grid
// and reported in ExcludedCount/ExcludedIDs.
func BuildCoverageMatrix(
	classified []models.ClassifiedCustomer,
	customers []models.Customer,
	orders []models.Order,
	xDim, yDim Dimension,
	log *CampaignLog,
	freshnessWindowDays int,
	evalTime time.Time,
) (*models.CoverageMatrix, error) {
	if err := xDim.validate(); err != nil {
		return nil, err
	}
	if err := yDim.validate(); err != nil {
		return nil, err
	}

	custByID := make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		custByID[c.CustomerID] = c
	}
	prefs := dominantPrefs(orders)

	type placement struct{ x, y string }
	placed := make(map[string]placement, len(classified))
	var excluded []string
	xSeen := make(map[string]bool)
	ySeen := make(map[string]bool)

	for _, cc := range classified {
		cust, ok := custByID[cc.CustomerID]
		if !ok {
			return nil, &InvalidInputError{RecordID: cc.CustomerID, Reason: "classified customer missing from customer set"}
		}
		p := prefs[cc.CustomerID]
		x, xok := xDim.bucketFor(cust, cc.Metrics, p)
		y, yok := yDim.bucketFor(cust, cc.Metrics, p)
		if !xok || !yok {
			excluded = append(excluded, cc.CustomerID)
			continue
		}
		placed[cc.CustomerID] = placement{x: x, y: y}
		xSeen[x] = true
		ySeen[y] = true
	}
	sort.Strings(excluded)

	xLabels := axisLabels(xDim, xSeen)
	yLabels := axisLabels(yDim, ySeen)

	xIndex := indexOf(xLabels)
	yIndex := indexOf(yLabels)

	cellMembers := make([][][]string, len(yLabels))
	for yi := range cellMembers {
		cellMembers[yi] = make([][]string, len(xLabels))
	}
	for id, p := range placed {
		yi, xi := yIndex[p.y], xIndex[p.x]
		cellMembers[yi][xi] = append(cellMembers[yi][xi], id)
	}

	matrix := &models.CoverageMatrix{
		XDimension:     xDim.Name,
		YDimension:     yDim.Name,
		XLabels:        xLabels,
		YLabels:        yLabels,
		Cells:          make([][]models.CoverageCell, len(yLabels)),
		IncludedCount:  len(placed),
		ExcludedCount:  len(excluded),
		ExcludedIDs:    excluded,
		EvaluationTime: evalTime,
	}

	for yi, yl := range yLabels {
		matrix.Cells[yi] = make([]models.CoverageCell, len(xLabels))
		for xi, xl := range xLabels {
			members := cellMembers[yi][xi]
			sort.Strings(members)

			cell := models.CoverageCell{
				XValue:       xl,
				YValue:       yl,
				Members:      members,
				MemberCount:  len(members),
				ImpactStatus: models.ImpactNone,
			}
			if log != nil {
				st := log.CellCoverageStats(members, freshnessWindowDays, evalTime)
				cell.CampaignCount = st.CampaignCount
				cell.LastCampaignAt = st.LastCampaignAt
				cell.ImpactStatus = st.Status
				cell.ImpactedMembers = st.ImpactedMembers
				cell.UnimpactedMembers = len(members) - st.ImpactedMembers
			}
			matrix.Cells[yi][xi] = cell
		}
	}

	return matrix, nil
}

// axisLabels returns configured labels for continuous dimensions (even empty
// buckets keep their column) and sorted observed values for categorical ones.
func axisLabels(d Dimension, seen map[string]bool) []string {
	if d.continuous() {
		out := make([]string, len(d.Labels))
		copy(out, d.Labels)
		return out
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func indexOf(labels []string) map[string]int {
	out := make(map[string]int, len(labels))
	for i, l := range labels {
		out[l] = i
	}
	return out
}
