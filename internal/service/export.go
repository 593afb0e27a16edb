package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/toko-nastar/api/internal/format"
	"github.com/toko-nastar/api/internal/model"
)

// Section labels and column order of the two-section CSV format. The
// format is inherited from the legacy app and deliberately narrow:
// homogeneous records only, string values wrapped in double quotes
// with no escaping of embedded quotes or commas. Do not harden it —
// files written by the legacy app must keep round-tripping. JSON is
// the lossless format.
const (
	csvSectionOrders    = "ORDERS"
	csvSectionMaterials = "MATERIALS"
)

var (
	orderCSVColumns = []string{
		"id", "date", "customer_name", "phone", "size",
		"quantity", "total", "order_status", "payment_status", "notes",
	}
	materialCSVColumns = []string{
		"name", "price", "unit", "stock", "min_stock", "per_kg_usage", "last_update",
	}
)

// Export serializes the local state. Formats: "json" (full backup
// envelope) or "csv" (orders + materials sections only).
func (s *Sync) Export(fmtName string) ([]byte, error) {
	s.mu.Lock()
	backup := model.Backup{
		Orders:    append([]model.Order(nil), s.orders...),
		Materials: append([]model.Material(nil), s.materials...),
		Timestamp: s.now().Format(time.RFC3339),
	}
	settings := s.settings
	backup.Config = &settings
	s.mu.Unlock()

	switch fmtName {
	case "", "json":
		return json.MarshalIndent(backup, "", "  ")
	case "csv":
		return []byte(toCSV(backup)), nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", ErrImportFormat, fmtName)
	}
}

// Import applies an exported payload. Sections apply independently: a
// payload carrying only orders is valid and leaves materials and
// config untouched. A malformed payload aborts before any mutation.
func (s *Sync) Import(data []byte, fmtName string) error {
	var backup model.Backup
	switch fmtName {
	case "", "json":
		var shape any
		if err := json.Unmarshal(data, &shape); err != nil {
			return fmt.Errorf("%w: %v", ErrImportFormat, err)
		}
		if _, ok := shape.(map[string]any); !ok {
			return fmt.Errorf("%w: top level is not an object", ErrImportFormat)
		}
		if err := json.Unmarshal(data, &backup); err != nil {
			return fmt.Errorf("%w: %v", ErrImportFormat, err)
		}
	case "csv":
		var err error
		backup, err = fromCSV(string(data))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown import format %q", ErrImportFormat, fmtName)
	}

	if backup.Orders != nil {
		s.persist(keyOrders, backup.Orders)
		s.mu.Lock()
		s.orders = backup.Orders
		s.mu.Unlock()
	}
	if backup.Materials != nil {
		s.persist(keyMaterials, backup.Materials)
		s.mu.Lock()
		s.materials = backup.Materials
		s.mu.Unlock()
	}
	if backup.Config != nil {
		if err := s.SaveSettings(*backup.Config); err != nil {
			return err
		}
	}

	s.notify("data.imported", map[string]int{
		"orders":    len(backup.Orders),
		"materials": len(backup.Materials),
	})
	return nil
}

// Backup produces a dated JSON backup and its download filename.
func (s *Sync) Backup() (string, []byte, error) {
	data, err := s.Export("json")
	if err != nil {
		return "", nil, err
	}
	name := fmt.Sprintf("nastar_backup_%s.json", format.ISODate(s.now()))
	return name, data, nil
}

// Restore applies a JSON backup file.
func (s *Sync) Restore(data []byte) error {
	return s.Import(data, "json")
}

// ClearAll irreversibly wipes the local store, the in-memory
// snapshots, the retry queue, and the remote read cache. Confirmation
// is the caller's job; the service clears unconditionally.
func (s *Sync) ClearAll() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear local store: %w", err)
	}

	s.mu.Lock()
	s.orders = nil
	s.materials = nil
	s.specs = nil
	s.queue = nil
	s.settings = model.Settings{Prices: make(map[string]float64)}
	s.mu.Unlock()

	s.persist(keyQueue, []model.QueueItem{})
	s.sheets.ClearCache()
	s.notify("data.cleared", nil)
	return nil
}

// --- CSV ---

func csvValue(v any) string {
	switch x := v.(type) {
	case string:
		return `"` + x + `"`
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func writeCSVSection(b *strings.Builder, label string, columns []string, rows []map[string]any) {
	if len(rows) == 0 {
		return
	}
	b.WriteString(label + "\n")
	b.WriteString(strings.Join(columns, ",") + "\n")
	for _, row := range rows {
		vals := make([]string, len(columns))
		for i, col := range columns {
			vals[i] = csvValue(row[col])
		}
		b.WriteString(strings.Join(vals, ",") + "\n")
	}
	b.WriteString("\n")
}

// asMaps converts records to column maps via their JSON tags.
func asMaps(v any) []map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func toCSV(backup model.Backup) string {
	var b strings.Builder
	writeCSVSection(&b, csvSectionOrders, orderCSVColumns, asMaps(backup.Orders))
	writeCSVSection(&b, csvSectionMaterials, materialCSVColumns, asMaps(backup.Materials))
	return b.String()
}

func parseCSVCell(cell string) any {
	if strings.HasPrefix(cell, `"`) && strings.HasSuffix(cell, `"`) && len(cell) >= 2 {
		return cell[1 : len(cell)-1]
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n
	}
	return cell
}

func fromCSV(data string) (model.Backup, error) {
	var backup model.Backup
	var section string
	var header []string
	var rows map[string][]map[string]any = map[string][]map[string]any{}

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == csvSectionOrders, trimmed == csvSectionMaterials:
			section = trimmed
			header = nil
		case trimmed == "":
			continue
		case section == "":
			return backup, fmt.Errorf("%w: data before a section label", ErrImportFormat)
		case header == nil:
			header = strings.Split(trimmed, ",")
		default:
			cells := strings.Split(trimmed, ",")
			row := make(map[string]any, len(header))
			for i, col := range header {
				if i < len(cells) {
					row[col] = parseCSVCell(cells[i])
				}
			}
			rows[section] = append(rows[section], row)
		}
	}

	if err := decodeRows(rows[csvSectionOrders], &backup.Orders); err != nil {
		return backup, err
	}
	if err := decodeRows(rows[csvSectionMaterials], &backup.Materials); err != nil {
		return backup, err
	}
	return backup, nil
}

func decodeRows(rows []map[string]any, out any) error {
	if rows == nil {
		return nil
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	return nil
}
