// Package service hosts the synchronization service: the single owner
// of the in-memory order/material/spec collections and the bridge
// between the remote spreadsheet tabs and the local offline mirror.
// Reads prefer the remote and fall back to the last local snapshot;
// writes land locally first and reach the remote either inline or via
// the durable FIFO retry queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/model"
)

// Local store keys. The store namespaces them further with its own
// prefix.
const (
	keyOrders    = "orders"
	keyMaterials = "materials"
	keySpecs     = "specs"
	keyConfig    = "config"
	keyQueue     = "sync_queue"
)

// Errors returned by the sync service.
var (
	ErrValidation     = errors.New("validation failed")
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusRegress  = errors.New("order status can only move forward")
	ErrRemoteRejected = errors.New("remote store rejected the write")
	ErrImportFormat   = errors.New("import payload is malformed")
)

// TabStore is the remote spreadsheet-tabs API surface the service
// needs. Satisfied by *sheet.Client; narrow interface for testability.
type TabStore interface {
	Read(ctx context.Context, tab string) ([]model.Row, error)
	Create(ctx context.Context, tab string, row model.Row) error
	Update(ctx context.Context, tab, keyField, keyValue string, patch model.Row) error
	Delete(ctx context.Context, tab, keyField, keyValue string) error
	Configure(baseURL, apiKey string)
	Configured() bool
	ClearCache()
}

// KVStore is the local durable mirror. Satisfied by *localstore.Store.
type KVStore interface {
	Save(key string, v any) error
	Load(key string, out any) (bool, error)
	Delete(key string) error
	Clear() error
}

// Notifier receives user-visible events (toasts, sync progress) for
// broadcast to connected dashboards. Satisfied by the ws hub adapter.
type Notifier interface {
	Notify(event string, payload any)
}

// SyncStatus is the observable sync state: enough for a UI to render a
// persistent stuck-queue indicator instead of relying on transient
// toasts.
type SyncStatus struct {
	Online      bool `json:"online"`
	Syncing     bool `json:"syncing"`
	QueueLength int  `json:"queue_length"`
}

// QueueResult reports one drain pass.
type QueueResult struct {
	Succeeded int `json:"succeeded"`
	Total     int `json:"total"`
}

// Sync is the synchronization service. All mutation of the order and
// material collections goes through it; callers get copies, never the
// live slices.
type Sync struct {
	mu       sync.Mutex
	sheets   TabStore
	store    KVStore
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time

	online    bool
	syncing   bool
	queue     []model.QueueItem
	orders    []model.Order
	materials []model.Material
	specs     []model.ProductionSpec
	settings  model.Settings
}

// New builds the service and restores its state — snapshots, settings
// and the pending queue — from the local store. Corrupt or missing
// entries restore as empty, never as an error.
func New(sheets TabStore, store KVStore, notifier Notifier) *Sync {
	s := &Sync{
		sheets:   sheets,
		store:    store,
		notifier: notifier,
		validate: validator.New(),
		now:      time.Now,
	}

	s.mustLoad(keyOrders, &s.orders)
	s.mustLoad(keyMaterials, &s.materials)
	s.mustLoad(keySpecs, &s.specs)
	s.mustLoad(keyQueue, &s.queue)

	if found, _ := store.Load(keyConfig, &s.settings); found {
		sheets.Configure(s.settings.RemoteBaseURL, s.settings.APIKey)
	}
	if s.settings.Prices == nil {
		s.settings.Prices = make(map[string]float64)
	}
	return s
}

func (s *Sync) mustLoad(key string, out any) {
	if _, err := s.store.Load(key, out); err != nil {
		// Storage failures degrade to in-memory-only semantics.
		log.Printf("ERROR: restore %s from local store: %v", key, err)
	}
}

// notify is nil-safe so tests can run without a hub.
func (s *Sync) notify(event string, payload any) {
	if s.notifier != nil {
		s.notifier.Notify(event, payload)
	}
}

// persist writes a snapshot key, logging instead of failing: a full
// disk must not take down an otherwise working in-memory flow.
func (s *Sync) persist(key string, v any) {
	if err := s.store.Save(key, v); err != nil {
		log.Printf("ERROR: persist %s: %v", key, err)
	}
}

// --- Connectivity ---

// SetOnline flips the connectivity flag. A transition to online
// triggers a queue drain, awaited to completion before returning so
// the syncing flag is consistent when the caller observes it.
func (s *Sync) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if online == was {
		return
	}
	s.notify("connectivity", map[string]bool{"online": online})
	if online {
		if _, err := s.ProcessQueue(ctx); err != nil {
			log.Printf("ERROR: drain on reconnect: %v", err)
		}
	}
}

// Online reports the current connectivity flag.
func (s *Sync) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Status returns the observable sync state.
func (s *Sync) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatus{Online: s.online, Syncing: s.syncing, QueueLength: len(s.queue)}
}

// remoteReady reports whether a remote write can be attempted now.
func (s *Sync) remoteReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online && s.sheets.Configured()
}

// --- Reads ---
// Reads are best-effort: a remote failure falls back to the last local
// snapshot and never propagates to the caller.

// Orders returns the order list, refreshed from the remote when
// reachable and mirrored into the local store.
func (s *Sync) Orders(ctx context.Context) []model.Order {
	if s.remoteReady() {
		if rows, err := s.sheets.Read(ctx, enum.TabOrders); err == nil {
			orders := make([]model.Order, 0, len(rows))
			for _, r := range rows {
				orders = append(orders, model.OrderFromRow(r))
			}
			// Mirror to disk before the slice is shared, so writers
			// patching elements cannot race the marshal.
			s.persist(keyOrders, orders)
			s.mu.Lock()
			s.orders = orders
			s.mu.Unlock()
		} else {
			log.Printf("ERROR: read %s: %v (serving local snapshot)", enum.TabOrders, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Materials returns the material list, remote-first like Orders.
func (s *Sync) Materials(ctx context.Context) []model.Material {
	if s.remoteReady() {
		if rows, err := s.sheets.Read(ctx, enum.TabMaterials); err == nil {
			materials := make([]model.Material, 0, len(rows))
			for _, r := range rows {
				materials = append(materials, model.MaterialFromRow(r))
			}
			s.persist(keyMaterials, materials)
			s.mu.Lock()
			s.materials = materials
			s.mu.Unlock()
		} else {
			log.Printf("ERROR: read %s: %v (serving local snapshot)", enum.TabMaterials, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Material, len(s.materials))
	copy(out, s.materials)
	return out
}

// Specs returns the production specs, remote-first like Orders.
func (s *Sync) Specs(ctx context.Context) []model.ProductionSpec {
	if s.remoteReady() {
		if rows, err := s.sheets.Read(ctx, enum.TabSpecs); err == nil {
			specs := make([]model.ProductionSpec, 0, len(rows))
			for _, r := range rows {
				specs = append(specs, model.SpecFromRow(r))
			}
			s.persist(keySpecs, specs)
			s.mu.Lock()
			s.specs = specs
			s.mu.Unlock()
		} else {
			log.Printf("ERROR: read %s: %v (serving local snapshot)", enum.TabSpecs, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ProductionSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// --- Settings ---

// Settings returns the current persisted configuration.
func (s *Sync) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SaveSettings persists new configuration and reconfigures the remote
// client, dropping its cache.
func (s *Sync) SaveSettings(settings model.Settings) error {
	if settings.Prices == nil {
		settings.Prices = make(map[string]float64)
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if err := s.store.Save(keyConfig, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.sheets.Configure(settings.RemoteBaseURL, settings.APIKey)
	return nil
}
