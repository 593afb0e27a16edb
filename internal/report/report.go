// Package report is the aggregation engine: pure functions computing
// business metrics from in-memory order/material/spec slices. Nothing
// here touches storage or the network, and nothing returns an error —
// malformed fields have already been coerced to zero values at decode
// time.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/format"
	"github.com/toko-nastar/api/internal/model"
)

// DailyBucket is one day of the sales series.
type DailyBucket struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Total float64 `json:"total"`
}

// SalesSeries returns days consecutive daily buckets ending on the
// given day, oldest first. Buckets are dense: days with no orders
// carry 0 rather than being omitted. days <= 0 yields an empty series.
// Order dates are matched by ISO string equality, never converted
// between timezones.
func SalesSeries(orders []model.Order, days int, end time.Time) []DailyBucket {
	if days <= 0 {
		return []DailyBucket{}
	}

	byDate := make(map[string]float64)
	for _, o := range orders {
		byDate[o.Date] += o.Total
	}

	series := make([]DailyBucket, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := format.ISODate(end.AddDate(0, 0, -i))
		series = append(series, DailyBucket{Date: date, Total: byDate[date]})
	}
	return series
}

// SizeRevenueDistribution sums order totals per known size. Orders with
// an unknown size value land in no bucket.
func SizeRevenueDistribution(orders []model.Order) map[string]float64 {
	dist := make(map[string]float64, len(enum.Sizes))
	for _, s := range enum.Sizes {
		dist[s] = 0
	}
	for _, o := range orders {
		if _, ok := dist[o.Size]; ok {
			dist[o.Size] += o.Total
		}
	}
	return dist
}

// SizeQuantityDistribution sums jar counts per known size. Kept
// separate from SizeRevenueDistribution: the dashboard donut uses
// quantities while the revenue report uses totals, and overloading one
// function with both meanings caused call-site confusion before.
func SizeQuantityDistribution(orders []model.Order) map[string]int {
	dist := make(map[string]int, len(enum.Sizes))
	for _, s := range enum.Sizes {
		dist[s] = 0
	}
	for _, o := range orders {
		if _, ok := dist[o.Size]; ok {
			dist[o.Size] += o.Quantity
		}
	}
	return dist
}

// TodaySummary is the dashboard headline for one calendar day.
type TodaySummary struct {
	Date       string  `json:"date"`
	OrderCount int     `json:"order_count"`
	Waiting    int     `json:"waiting"`
	Processing int     `json:"processing"`
	Done       int     `json:"done"`
	Unpaid     int     `json:"unpaid"`
	Revenue    float64 `json:"revenue"`
}

// Summarize computes the order/revenue headline for the given day.
func Summarize(orders []model.Order, date string) TodaySummary {
	s := TodaySummary{Date: date}
	for _, o := range orders {
		if o.Date != date {
			continue
		}
		s.OrderCount++
		s.Revenue += o.Total
		switch o.OrderStatus {
		case enum.OrderStatusWaiting:
			s.Waiting++
		case enum.OrderStatusProcessing:
			s.Processing++
		case enum.OrderStatusDone:
			s.Done++
		}
		if o.PaymentStatus == enum.PaymentStatusUnpaid {
			s.Unpaid++
		}
	}
	return s
}

// StatusCounts tallies orders per order status. Unknown statuses are
// counted as Menunggu, matching the decode default.
func StatusCounts(orders []model.Order) map[string]int {
	c := map[string]int{
		enum.OrderStatusWaiting:    0,
		enum.OrderStatusProcessing: 0,
		enum.OrderStatusDone:       0,
	}
	for _, o := range orders {
		if _, ok := c[o.OrderStatus]; ok {
			c[o.OrderStatus]++
		} else {
			c[enum.OrderStatusWaiting]++
		}
	}
	return c
}

// SortNewestFirst returns a copy of orders sorted by date descending,
// ties broken by ID descending (IDs embed the date plus a daily
// sequence, so this is stable across reloads).
func SortNewestFirst(orders []model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// FilterOrders narrows orders by status and a free-text query matching
// ID or customer name, case-insensitively. Empty status or "Semua"
// matches everything.
func FilterOrders(orders []model.Order, status, query string) []model.Order {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != "Semua" && o.OrderStatus != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(o.ID), q) &&
			!strings.Contains(strings.ToLower(o.CustomerName), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// PeriodTotals is the summary block of a period report.
type PeriodTotals struct {
	TotalSales   float64 `json:"total_sales"`
	TotalProfit  float64 `json:"total_profit"`
	TotalOrders  int     `json:"total_orders"`
	AverageOrder float64 `json:"average_order"`
}

// PeriodReport filters orders to the requested period and computes
// totals. Periods: "today", "week" (last 7 days), "month" (last 31
// days via calendar-month subtraction), "custom" with inclusive
// start/end dates. Profit is derived from the production specs; sizes
// without a spec contribute zero profit.
func PeriodReport(orders []model.Order, specs []model.ProductionSpec, period, start, end string, now time.Time) (PeriodTotals, []model.Order) {
	var from, to string
	today := format.ISODate(now)

	switch period {
	case "today":
		from, to = today, today
	case "week":
		from, to = format.ISODate(now.AddDate(0, 0, -7)), today
	case "month":
		from, to = format.ISODate(now.AddDate(0, -1, 0)), today
	case "custom":
		from, to = start, end
	default:
		from, to = "", today
	}

	specMap := SpecMap(specs)
	var filtered []model.Order
	var t PeriodTotals
	for _, o := range orders {
		if from != "" && o.Date < from {
			continue
		}
		if to != "" && o.Date > to {
			continue
		}
		filtered = append(filtered, o)
		t.TotalSales += o.Total
		t.TotalOrders++
		if spec, ok := specMap[o.Size]; ok {
			t.TotalProfit += float64(o.Quantity) * (spec.PricePerUnit - spec.CostPerUnit)
		}
	}
	if t.TotalOrders > 0 {
		t.AverageOrder = t.TotalSales / float64(t.TotalOrders)
	}
	return t, filtered
}

// SpecMap indexes production specs by size. Rows with an empty size
// are skipped; a duplicate size keeps the last row, matching
// last-writer-wins semantics on the sheet.
func SpecMap(specs []model.ProductionSpec) map[string]model.ProductionSpec {
	m := make(map[string]model.ProductionSpec, len(specs))
	for _, s := range specs {
		if s.Size == "" {
			continue
		}
		m[s.Size] = s
	}
	return m
}
