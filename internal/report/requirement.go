package report

import (
	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/model"
)

// JarCounts is the number of jars still to be produced, per size.
type JarCounts struct {
	Total  int            `json:"total"`
	BySize map[string]int `json:"by_size"`
}

// JarsToMake counts the jars of pending (Menunggu or Diproses) orders.
// Selesai orders are excluded: those jars are already made.
func JarsToMake(orders []model.Order) JarCounts {
	out := JarCounts{BySize: make(map[string]int, len(enum.Sizes))}
	for _, s := range enum.Sizes {
		out.BySize[s] = 0
	}
	for _, o := range orders {
		if o.OrderStatus == enum.OrderStatusDone {
			continue
		}
		out.Total += o.Quantity
		if _, ok := out.BySize[o.Size]; ok {
			out.BySize[o.Size] += o.Quantity
		}
	}
	return out
}

// MaterialNeed is the requirement line for one raw material.
type MaterialNeed struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Stock      float64 `json:"stock"`
	Need       float64 `json:"need"`
	Sufficient bool    `json:"sufficient"`
	Deficit    float64 `json:"deficit"` // max(0, need-stock)
}

// Requirement is the full material-requirement computation for the
// current pending workload.
type Requirement struct {
	TotalGrams float64        `json:"total_grams"`
	TotalKg    float64        `json:"total_kg"`
	Materials  []MaterialNeed `json:"materials"`
}

// MaterialRequirement computes how much of each raw material the
// pending orders (Menunggu/Diproses) demand. Per order the jar count
// times the spec's grams-per-jar gives finished grams; the kilogram
// total times each material's per-kg usage gives the need. Sizes
// without a production spec contribute zero grams.
func MaterialRequirement(orders []model.Order, specs []model.ProductionSpec, materials []model.Material) Requirement {
	specMap := SpecMap(specs)

	var totalGrams float64
	for _, o := range orders {
		if o.OrderStatus == enum.OrderStatusDone {
			continue
		}
		if spec, ok := specMap[o.Size]; ok {
			totalGrams += float64(o.Quantity) * spec.GramsPerUnit
		}
	}
	totalKg := totalGrams / 1000

	needs := make([]MaterialNeed, 0, len(materials))
	for _, m := range materials {
		need := totalKg * m.PerKgUsage
		deficit := need - m.Stock
		if deficit < 0 {
			deficit = 0
		}
		needs = append(needs, MaterialNeed{
			Name:       m.Name,
			Unit:       m.Unit,
			Stock:      m.Stock,
			Need:       need,
			Sufficient: m.Stock >= need,
			Deficit:    deficit,
		})
	}

	return Requirement{TotalGrams: totalGrams, TotalKg: totalKg, Materials: needs}
}

// InventoryStats is the stock-health block of the inventory page.
type InventoryStats struct {
	MaterialCount  int              `json:"material_count"`
	LowStockCount  int              `json:"low_stock_count"`
	InventoryValue float64          `json:"inventory_value"`
	Alerts         []model.Material `json:"alerts"`
}

// Inventory computes stock-level statistics. A material is low when
// its stock has fallen to or below its minimum.
func Inventory(materials []model.Material) InventoryStats {
	s := InventoryStats{MaterialCount: len(materials), Alerts: []model.Material{}}
	for _, m := range materials {
		s.InventoryValue += m.Price * m.Stock
		if m.Stock <= m.MinStock {
			s.LowStockCount++
			s.Alerts = append(s.Alerts, m)
		}
	}
	return s
}
