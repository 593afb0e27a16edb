package enum

// ── State machines ──

const (
	OrderStatusWaiting    = "Menunggu"
	OrderStatusProcessing = "Diproses"
	OrderStatusDone       = "Selesai"
)

const (
	PaymentStatusUnpaid = "Belum Bayar"
	PaymentStatusPaid   = "Lunas"
)

// ── Product sizes ──
// Jar sizes drive per-unit pricing and material consumption. Exactly one
// PRODUKSI row exists per size.

const (
	Size400 = "400g"
	Size550 = "550g"
	Size600 = "600g"
)

// Sizes lists the known sizes in display order. Orders carrying an
// unknown size are ignored by the size-bucketed aggregations.
var Sizes = []string{Size400, Size550, Size600}

// ── Sync queue operations ──

const (
	SyncCreateOrder    = "create-order"
	SyncUpdateOrder    = "update-order"
	SyncDeleteOrder    = "delete-order"
	SyncUpsertMaterial = "upsert-material"
)

// ── Spreadsheet tabs ──

const (
	TabOrders    = "PESANAN"
	TabSpecs     = "PRODUKSI"
	TabMaterials = "BAHAN_BAKU"
)

// OrderIDPrefix is the leading token of generated order IDs
// (NST-YYYYMMDD-NNN).
const OrderIDPrefix = "NST"

// IsValidSize reports whether s is one of the known jar sizes.
func IsValidSize(s string) bool {
	switch s {
	case Size400, Size550, Size600:
		return true
	}
	return false
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusWaiting, OrderStatusProcessing, OrderStatusDone:
		return true
	}
	return false
}

// IsValidPaymentStatus reports whether s is a known payment status.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid:
		return true
	}
	return false
}
