package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/model"
)

// LeaderboardEntry is one size's standing in the monthly leaderboard.
// Money is decimal so revenue and profit render exactly in responses.
type LeaderboardEntry struct {
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	Pct      float64         `json:"pct"` // share of units sold, 0-100
}

// Leaderboard ranks sizes by units sold in one calendar month.
type Leaderboard struct {
	Month    string             `json:"month"` // YYYY-MM
	TotalQty int                `json:"total_qty"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// MonthlyLeaderboard restricts orders to Selesai within the calendar
// month of now (string-prefix match on YYYY-MM) and ranks the known
// sizes by quantity sold, descending. Revenue and profit come from the
// production spec's per-jar price and cost. Percentages are of total
// units, 0 when nothing sold this month.
func MonthlyLeaderboard(orders []model.Order, specs []model.ProductionSpec, now time.Time) Leaderboard {
	month := now.Format("2006-01")
	specMap := SpecMap(specs)

	entries := make([]LeaderboardEntry, len(enum.Sizes))
	index := make(map[string]int, len(enum.Sizes))
	for i, s := range enum.Sizes {
		entries[i] = LeaderboardEntry{Size: s, Revenue: decimal.Zero, Profit: decimal.Zero}
		index[s] = i
	}

	totalQty := 0
	for _, o := range orders {
		if o.OrderStatus != enum.OrderStatusDone || !strings.HasPrefix(o.Date, month) {
			continue
		}
		totalQty += o.Quantity

		i, ok := index[o.Size]
		if !ok {
			continue
		}
		spec := specMap[o.Size] // zero value: no spec means zero revenue
		qty := decimal.NewFromInt(int64(o.Quantity))
		price := decimal.NewFromFloat(spec.PricePerUnit)
		cost := decimal.NewFromFloat(spec.CostPerUnit)

		entries[i].Quantity += o.Quantity
		entries[i].Revenue = entries[i].Revenue.Add(qty.Mul(price))
		entries[i].Profit = entries[i].Profit.Add(qty.Mul(price.Sub(cost)))
	}

	if totalQty > 0 {
		for i := range entries {
			entries[i].Pct = float64(entries[i].Quantity) / float64(totalQty) * 100
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Quantity > entries[j].Quantity
	})

	return Leaderboard{Month: month, TotalQty: totalQty, Entries: entries}
}
