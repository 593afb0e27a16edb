// Package model defines the record types flowing between the
// spreadsheet tabs, the local store, and the HTTP surface. Sheet rows
// are loosely-typed string maps; decoding into these structs is the
// single place where defaults and numeric coercion happen.
package model

import (
	"encoding/json"
	"time"

	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/format"
)

// Row is a raw spreadsheet row as returned by the tab API: column
// header to cell value. Cells may be numbers or locale-formatted
// strings depending on how the sheet was filled in.
type Row = map[string]any

// Order is one customer order of nastar jars.
type Order struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"` // YYYY-MM-DD
	CustomerName  string  `json:"customer_name"`
	Phone         string  `json:"phone"`
	Size          string  `json:"size"`
	Quantity      int     `json:"quantity"`
	Total         float64 `json:"total"` // whole Rupiah
	OrderStatus   string  `json:"order_status"`
	PaymentStatus string  `json:"payment_status"`
	Notes         string  `json:"notes,omitempty"`
}

// OrderFromRow decodes a PESANAN row, applying defaults: missing
// statuses fall back to Menunggu / Belum Bayar, numerics coerce via
// format.ToNumber.
func OrderFromRow(r Row) Order {
	o := Order{
		ID:            format.ToString(r["ID"]),
		Date:          format.ToString(r["Tanggal"]),
		CustomerName:  format.ToString(r["Nama"]),
		Phone:         format.ToString(r["Telepon"]),
		Size:          format.ToString(r["Ukuran"]),
		Quantity:      format.ToInt(r["JumlahToples"]),
		Total:         format.ToNumber(r["Total"]),
		OrderStatus:   format.ToString(r["StatusPesanan"]),
		PaymentStatus: format.ToString(r["StatusBayar"]),
		Notes:         format.ToString(r["Catatan"]),
	}
	if o.OrderStatus == "" {
		o.OrderStatus = enum.OrderStatusWaiting
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = enum.PaymentStatusUnpaid
	}
	return o
}

// Row encodes the order as a PESANAN row for the tab API.
func (o Order) Row() Row {
	return Row{
		"ID":            o.ID,
		"Tanggal":       o.Date,
		"Nama":          o.CustomerName,
		"Telepon":       o.Phone,
		"Ukuran":        o.Size,
		"JumlahToples":  o.Quantity,
		"Total":         o.Total,
		"StatusPesanan": o.OrderStatus,
		"StatusBayar":   o.PaymentStatus,
		"Catatan":       o.Notes,
	}
}

// Material is a raw ingredient (bahan baku). Name is the natural key.
type Material struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Unit       string  `json:"unit"`
	Stock      float64 `json:"stock"`
	MinStock   float64 `json:"min_stock"`
	PerKgUsage float64 `json:"per_kg_usage"` // consumed per kg of finished nastar
	LastUpdate string  `json:"last_update,omitempty"`
}

// MaterialFromRow decodes a BAHAN_BAKU row.
func MaterialFromRow(r Row) Material {
	return Material{
		Name:       format.ToString(r["Bahan"]),
		Price:      format.ToNumber(r["Harga"]),
		Unit:       format.ToString(r["Satuan"]),
		Stock:      format.ToNumber(r["Stok"]),
		MinStock:   format.ToNumber(r["StokMin"]),
		PerKgUsage: format.ToNumber(r["Untuk1kgNastar"]),
		LastUpdate: format.ToString(r["TerakhirUpdate"]),
	}
}

// Row encodes the material as a BAHAN_BAKU row.
func (m Material) Row() Row {
	return Row{
		"Bahan":          m.Name,
		"Harga":          m.Price,
		"Satuan":         m.Unit,
		"Stok":           m.Stock,
		"StokMin":        m.MinStock,
		"Untuk1kgNastar": m.PerKgUsage,
		"TerakhirUpdate": m.LastUpdate,
	}
}

// ProductionSpec holds the per-size production parameters. Size is the
// natural key; exactly one row per known size.
type ProductionSpec struct {
	Size         string  `json:"size"`
	GramsPerUnit float64 `json:"grams_per_unit"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// SpecFromRow decodes a PRODUKSI row.
func SpecFromRow(r Row) ProductionSpec {
	return ProductionSpec{
		Size:         format.ToString(r["Ukuran"]),
		GramsPerUnit: format.ToNumber(r["Gram"]),
		CostPerUnit:  format.ToNumber(r["ModalPerToples"]),
		PricePerUnit: format.ToNumber(r["HargaJualPerToples"]),
	}
}

// Row encodes the spec as a PRODUKSI row.
func (p ProductionSpec) Row() Row {
	return Row{
		"Ukuran":             p.Size,
		"Gram":               p.GramsPerUnit,
		"ModalPerToples":     p.CostPerUnit,
		"HargaJualPerToples": p.PricePerUnit,
	}
}

// Customer is derived from the order list; never stored. Phone is the
// natural key, with name as fallback for orders without a phone.
type Customer struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	TotalOrders   int     `json:"total_orders"`
	TotalSpent    float64 `json:"total_spent"`
	LastOrderDate string  `json:"last_order_date"`
}

// QueueItem is one pending offline write awaiting delivery to the
// remote store. Items retry until delivered or the queue is cleared.
type QueueItem struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// UpdatePayload is the payload of update-order and delete-order queue
// items. Patch is nil for deletes.
type UpdatePayload struct {
	ID    string `json:"id"`
	Patch Row    `json:"patch,omitempty"`
}

// Settings is the process-wide configuration persisted in the local
// store and mutated from the settings page.
type Settings struct {
	RemoteBaseURL string             `json:"remote_base_url"`
	APIKey        string             `json:"api_key"`
	Prices        map[string]float64 `json:"prices"` // fallback price per size
	Theme         string             `json:"theme"`
}

// Backup is the export/import envelope. Sections are applied
// independently on import: a backup carrying only orders is valid.
type Backup struct {
	Orders    []Order    `json:"orders,omitempty"`
	Materials []Material `json:"materials,omitempty"`
	Config    *Settings  `json:"config,omitempty"`
	Timestamp string     `json:"timestamp"`
}
