package service

import (
	"context"
	"fmt"
	"log"

	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/format"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
	"github.com/toko-nastar/api/internal/sheet"
)

// CreateOrderInput is the validated input for a new order. The total
// is never taken from input; it is recomputed from the production
// spec's per-jar price.
type CreateOrderInput struct {
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName  string `json:"customer_name" validate:"required"`
	Phone         string `json:"phone"`
	Size          string `json:"size" validate:"required"`
	Quantity      int    `json:"quantity" validate:"min=1"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof='Belum Bayar' Lunas"`
	Notes         string `json:"notes"`
}

// UpdateOrderInput patches an existing order. Zero values leave the
// field unchanged; Notes is a pointer so it can be cleared explicitly.
type UpdateOrderInput struct {
	Size          string  `json:"size" validate:"omitempty"`
	Quantity      int     `json:"quantity" validate:"omitempty,min=1"`
	PaymentStatus string  `json:"payment_status" validate:"omitempty,oneof='Belum Bayar' Lunas"`
	Notes         *string `json:"notes"`
}

// MaterialInput upserts a raw material by name.
type MaterialInput struct {
	Name       string  `json:"name" validate:"required"`
	Price      float64 `json:"price" validate:"min=0"`
	Unit       string  `json:"unit"`
	Stock      float64 `json:"stock"`
	MinStock   float64 `json:"min_stock" validate:"min=0"`
	PerKgUsage float64 `json:"per_kg_usage" validate:"min=0"`
}

// SpecInput upserts a production spec by size.
type SpecInput struct {
	Size         string  `json:"size" validate:"required"`
	GramsPerUnit float64 `json:"grams_per_unit" validate:"min=0"`
	CostPerUnit  float64 `json:"cost_per_unit" validate:"min=0"`
	PricePerUnit float64 `json:"price_per_unit" validate:"min=0"`
}

// validateInput runs struct validation, folding failures into
// ErrValidation so callers can map them to a 400 without queueing.
func (s *Sync) validateInput(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// attemptRemote runs one remote write as part of a local-first
// operation. Connectivity-class failures (offline, transport error,
// 5xx) downgrade to a queued retry and report success — the write is
// already durable locally. Permanent rejections (4xx) surface as
// ErrRemoteRejected and are never queued: replaying an identical
// payload cannot succeed.
func (s *Sync) attemptRemote(opType string, payload any, call func() error) error {
	if !s.remoteReady() {
		s.enqueue(opType, payload)
		return nil
	}
	err := call()
	if err == nil {
		return nil
	}
	if sheet.IsRetryable(err) {
		log.Printf("ERROR: remote %s failed, queueing: %v", opType, err)
		s.enqueue(opType, payload)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRemoteRejected, err)
}

// CreateOrder validates, prices and stores a new order, local-first.
func (s *Sync) CreateOrder(ctx context.Context, in CreateOrderInput) (model.Order, error) {
	if err := s.validateInput(in); err != nil {
		return model.Order{}, err
	}
	if !enum.IsValidSize(in.Size) {
		return model.Order{}, fmt.Errorf("%w: unknown size %q", ErrValidation, in.Size)
	}

	date := in.Date
	if date == "" {
		date = format.ISODate(s.now())
	}
	payment := in.PaymentStatus
	if payment == "" {
		payment = enum.PaymentStatusUnpaid
	}

	// ID generation and insertion share one critical section so two
	// concurrent creates can never see the same max sequence.
	s.mu.Lock()
	order := model.Order{
		ID:            report.GenerateOrderID(s.orders, enum.OrderIDPrefix, s.now()),
		Date:          date,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		Size:          in.Size,
		Quantity:      in.Quantity,
		Total:         float64(in.Quantity) * s.unitPriceLocked(in.Size),
		OrderStatus:   enum.OrderStatusWaiting,
		PaymentStatus: payment,
		Notes:         in.Notes,
	}

	// Local-first: the UI sees the order immediately regardless of
	// connectivity. Newest first, matching the sheet's display order.
	s.orders = append([]model.Order{order}, s.orders...)
	orders := append([]model.Order(nil), s.orders...)
	s.mu.Unlock()
	s.persist(keyOrders, orders)

	err := s.attemptRemote(enum.SyncCreateOrder, order, func() error {
		return s.sheets.Create(ctx, enum.TabOrders, order.Row())
	})
	if err != nil {
		return order, err
	}

	s.notify("order.created", order)
	return order, nil
}

// patchOrder applies fn to the order with the given id in the local
// snapshot, persists, and returns the updated order and the sheet
// patch to deliver remotely.
func (s *Sync) patchOrder(id string, fn func(*model.Order) model.Row) (model.Order, model.Row, error) {
	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		patch := fn(&s.orders[i])
		updated := s.orders[i]
		orders := append([]model.Order(nil), s.orders...)
		s.mu.Unlock()
		s.persist(keyOrders, orders)
		return updated, patch, nil
	}
	s.mu.Unlock()
	return model.Order{}, nil, ErrOrderNotFound
}

// deliverOrderPatch sends (or queues) a patch for one order row.
func (s *Sync) deliverOrderPatch(ctx context.Context, id string, patch model.Row) error {
	payload := model.UpdatePayload{ID: id, Patch: patch}
	return s.attemptRemote(enum.SyncUpdateOrder, payload, func() error {
		return s.sheets.Update(ctx, enum.TabOrders, "ID", id, patch)
	})
}

// UpdateOrder patches an order's editable fields, recomputing the
// total when size or quantity change.
func (s *Sync) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (model.Order, error) {
	if err := s.validateInput(in); err != nil {
		return model.Order{}, err
	}
	if in.Size != "" && !enum.IsValidSize(in.Size) {
		return model.Order{}, fmt.Errorf("%w: unknown size %q", ErrValidation, in.Size)
	}

	updated, patch, err := s.patchOrder(id, func(o *model.Order) model.Row {
		patch := model.Row{}
		if in.Size != "" {
			o.Size = in.Size
			patch["Ukuran"] = o.Size
		}
		if in.Quantity > 0 {
			o.Quantity = in.Quantity
			patch["JumlahToples"] = o.Quantity
		}
		if in.Size != "" || in.Quantity > 0 {
			o.Total = float64(o.Quantity) * s.unitPriceLocked(o.Size)
			patch["Total"] = o.Total
		}
		if in.PaymentStatus != "" {
			o.PaymentStatus = in.PaymentStatus
			patch["StatusBayar"] = o.PaymentStatus
		}
		if in.Notes != nil {
			o.Notes = *in.Notes
			patch["Catatan"] = o.Notes
		}
		return patch
	})
	if err != nil {
		return model.Order{}, err
	}
	if len(patch) == 0 {
		return updated, nil
	}

	if err := s.deliverOrderPatch(ctx, id, patch); err != nil {
		return updated, err
	}
	s.notify("order.updated", updated)
	return updated, nil
}

// unitPriceLocked resolves the per-jar price for a size: the
// production spec wins, the settings price table is the fallback.
// Callers must hold s.mu.
func (s *Sync) unitPriceLocked(size string) float64 {
	for _, spec := range s.specs {
		if spec.Size == size {
			return spec.PricePerUnit
		}
	}
	return s.settings.Prices[size]
}

// AdvanceOrderStatus moves an order one step forward in
// Menunggu -> Diproses -> Selesai. Advancing a Selesai order is a
// no-op, not an error; statuses never regress.
func (s *Sync) AdvanceOrderStatus(ctx context.Context, id string) (model.Order, error) {
	var changed bool
	updated, patch, err := s.patchOrder(id, func(o *model.Order) model.Row {
		next := report.NextStatus(o.OrderStatus)
		if next == o.OrderStatus {
			return model.Row{}
		}
		changed = true
		o.OrderStatus = next
		return model.Row{"StatusPesanan": next}
	})
	if err != nil {
		return model.Order{}, err
	}
	if !changed {
		return updated, nil
	}

	if err := s.deliverOrderPatch(ctx, id, patch); err != nil {
		return updated, err
	}
	s.notify("order.status", updated)
	return updated, nil
}

// MarkPaid sets an order's payment status to Lunas. Idempotent.
func (s *Sync) MarkPaid(ctx context.Context, id string) (model.Order, error) {
	var changed bool
	updated, patch, err := s.patchOrder(id, func(o *model.Order) model.Row {
		if o.PaymentStatus == enum.PaymentStatusPaid {
			return model.Row{}
		}
		changed = true
		o.PaymentStatus = enum.PaymentStatusPaid
		return model.Row{"StatusBayar": enum.PaymentStatusPaid}
	})
	if err != nil {
		return model.Order{}, err
	}
	if !changed {
		return updated, nil
	}

	if err := s.deliverOrderPatch(ctx, id, patch); err != nil {
		return updated, err
	}
	s.notify("order.paid", updated)
	return updated, nil
}

// DeleteOrder removes an order locally and remotely.
func (s *Sync) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.ID == id {
			found = true
			continue
		}
		kept = append(kept, o)
	}
	s.orders = kept
	orders := append([]model.Order(nil), s.orders...)
	s.mu.Unlock()

	if !found {
		return ErrOrderNotFound
	}
	s.persist(keyOrders, orders)

	payload := model.UpdatePayload{ID: id}
	err := s.attemptRemote(enum.SyncDeleteOrder, payload, func() error {
		return s.sheets.Delete(ctx, enum.TabOrders, "ID", id)
	})
	if err != nil {
		return err
	}
	s.notify("order.deleted", map[string]string{"id": id})
	return nil
}

// SaveMaterial upserts a raw material by name. Stock is clamped to
// zero or above.
func (s *Sync) SaveMaterial(ctx context.Context, in MaterialInput) (model.Material, error) {
	if err := s.validateInput(in); err != nil {
		return model.Material{}, err
	}

	stock := in.Stock
	if stock < 0 {
		stock = 0
	}
	material := model.Material{
		Name:       in.Name,
		Price:      in.Price,
		Unit:       in.Unit,
		Stock:      stock,
		MinStock:   in.MinStock,
		PerKgUsage: in.PerKgUsage,
		LastUpdate: format.ISODate(s.now()),
	}

	s.mu.Lock()
	replaced := false
	for i := range s.materials {
		if s.materials[i].Name == material.Name {
			s.materials[i] = material
			replaced = true
			break
		}
	}
	if !replaced {
		s.materials = append(s.materials, material)
	}
	materials := append([]model.Material(nil), s.materials...)
	s.mu.Unlock()
	s.persist(keyMaterials, materials)

	err := s.attemptRemote(enum.SyncUpsertMaterial, material, func() error {
		if replaced {
			return s.sheets.Update(ctx, enum.TabMaterials, "Bahan", material.Name, material.Row())
		}
		return s.sheets.Create(ctx, enum.TabMaterials, material.Row())
	})
	if err != nil {
		return material, err
	}
	s.notify("material.saved", material)
	return material, nil
}

// SaveSpec upserts a production spec by size. Spec edits are rare and
// master-data-like; when the remote is unreachable they stay local
// until the next explicit save, they are not queued.
func (s *Sync) SaveSpec(ctx context.Context, in SpecInput) (model.ProductionSpec, error) {
	if err := s.validateInput(in); err != nil {
		return model.ProductionSpec{}, err
	}
	if !enum.IsValidSize(in.Size) {
		return model.ProductionSpec{}, fmt.Errorf("%w: unknown size %q", ErrValidation, in.Size)
	}

	spec := model.ProductionSpec{
		Size:         in.Size,
		GramsPerUnit: in.GramsPerUnit,
		CostPerUnit:  in.CostPerUnit,
		PricePerUnit: in.PricePerUnit,
	}

	s.mu.Lock()
	replaced := false
	for i := range s.specs {
		if s.specs[i].Size == spec.Size {
			s.specs[i] = spec
			replaced = true
			break
		}
	}
	if !replaced {
		s.specs = append(s.specs, spec)
	}
	specs := append([]model.ProductionSpec(nil), s.specs...)
	s.mu.Unlock()
	s.persist(keySpecs, specs)

	if s.remoteReady() {
		var err error
		if replaced {
			err = s.sheets.Update(ctx, enum.TabSpecs, "Ukuran", spec.Size, spec.Row())
		} else {
			err = s.sheets.Create(ctx, enum.TabSpecs, spec.Row())
		}
		if err != nil {
			if !sheet.IsRetryable(err) {
				return spec, fmt.Errorf("%w: %v", ErrRemoteRejected, err)
			}
			log.Printf("ERROR: remote spec save failed (kept locally): %v", err)
		}
	}
	s.notify("spec.saved", spec)
	return spec, nil
}
