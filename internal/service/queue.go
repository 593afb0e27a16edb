package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/sheet"
)

// enqueue appends an offline write to the durable retry queue and
// persists the queue immediately, so a reload cannot lose it.
func (s *Sync) enqueue(opType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are our own record types; this cannot happen short
		// of a programming error.
		log.Printf("ERROR: encode queue payload for %s: %v", opType, err)
		return
	}

	item := model.QueueItem{
		ID:         uuid.NewString(),
		Type:       opType,
		Payload:    data,
		EnqueuedAt: s.now(),
	}

	s.mu.Lock()
	s.queue = append(s.queue, item)
	queue := append([]model.QueueItem(nil), s.queue...)
	length := len(queue)
	s.mu.Unlock()

	s.persist(keyQueue, queue)
	s.notify("sync.queued", map[string]any{"type": opType, "queue_length": length})
}

// ProcessQueue drains the retry queue once: every currently-queued
// item is replayed against the remote store in enqueue order,
// sequentially so multiple patches to one row keep their order.
// Items that deliver are removed from the live queue by id (writes
// may enqueue new items mid-drain); items that fail stay queued for a
// later pass — there is no terminal failure state, losing a write is
// worse than retrying it. A no-op when offline, already syncing, or
// empty.
func (s *Sync) ProcessQueue(ctx context.Context) (QueueResult, error) {
	s.mu.Lock()
	if s.syncing || !s.online || len(s.queue) == 0 || !s.sheets.Configured() {
		s.mu.Unlock()
		return QueueResult{}, nil
	}
	s.syncing = true
	snapshot := make([]model.QueueItem, len(s.queue))
	copy(snapshot, s.queue)
	s.mu.Unlock()

	// The syncing guard must clear even if a replay panics or the
	// context dies mid-drain, and the surviving queue must hit disk.
	defer func() {
		s.mu.Lock()
		s.syncing = false
		queue := append([]model.QueueItem(nil), s.queue...)
		s.mu.Unlock()
		s.persist(keyQueue, queue)
	}()

	result := QueueResult{Total: len(snapshot)}
	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.replay(ctx, item); err != nil {
			log.Printf("ERROR: replay %s %s: %v (kept in queue)", item.Type, item.ID, err)
			continue
		}
		result.Succeeded++
		s.removeQueued(item.ID)
	}

	s.notify("sync.completed", result)
	return result, nil
}

// removeQueued drops one item from the live queue by id.
func (s *Sync) removeQueued(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// replay delivers one queued item to the remote store.
func (s *Sync) replay(ctx context.Context, item model.QueueItem) error {
	switch item.Type {
	case enum.SyncCreateOrder:
		var order model.Order
		if err := json.Unmarshal(item.Payload, &order); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sheets.Create(ctx, enum.TabOrders, order.Row())

	case enum.SyncUpdateOrder:
		var p model.UpdatePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sheets.Update(ctx, enum.TabOrders, "ID", p.ID, p.Patch)

	case enum.SyncDeleteOrder:
		var p model.UpdatePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sheets.Delete(ctx, enum.TabOrders, "ID", p.ID)

	case enum.SyncUpsertMaterial:
		var m model.Material
		if err := json.Unmarshal(item.Payload, &m); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		err := s.sheets.Update(ctx, enum.TabMaterials, "Bahan", m.Name, m.Row())
		var se *sheet.StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			// Row doesn't exist remotely yet: the upsert becomes an
			// append.
			return s.sheets.Create(ctx, enum.TabMaterials, m.Row())
		}
		return err

	default:
		return fmt.Errorf("unknown queue item type %q", item.Type)
	}
}
