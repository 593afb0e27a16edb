package report

import (
	"sort"
	"strings"

	"github.com/toko-nastar/api/internal/model"
)

// CustomerLedger recomputes the customer list from scratch on every
// call. The legacy app incremented running totals on each new order,
// which drifted whenever an order was edited or deleted; a full
// recompute over a few hundred rows is cheap and cannot drift.
// Customers appear in order of their first order; phone is the key,
// falling back to the lowercased name when the phone is empty.
func CustomerLedger(orders []model.Order) []model.Customer {
	index := make(map[string]int)
	var ledger []model.Customer

	for _, o := range orders {
		key := o.Phone
		if key == "" {
			key = strings.ToLower(o.CustomerName)
		}
		if key == "" {
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(ledger)
			index[key] = i
			ledger = append(ledger, model.Customer{Name: o.CustomerName, Phone: o.Phone})
		}

		ledger[i].TotalOrders++
		ledger[i].TotalSpent += o.Total
		if o.Date > ledger[i].LastOrderDate {
			ledger[i].LastOrderDate = o.Date
		}
	}
	return ledger
}

// TopCustomers returns the n biggest spenders, stable-sorted so ties
// keep their ledger (first-order) position.
func TopCustomers(customers []model.Customer, n int) []model.Customer {
	out := make([]model.Customer, len(customers))
	copy(out, customers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpent > out[j].TotalSpent
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// TopMaterials returns the n materials holding the most inventory
// value (price times stock), stable-sorted.
func TopMaterials(materials []model.Material, n int) []model.Material {
	out := make([]model.Material, len(materials))
	copy(out, materials)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price*out[i].Stock > out[j].Price*out[j].Stock
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// FilterCustomers narrows the ledger by a free-text query matching
// name or phone.
func FilterCustomers(customers []model.Customer, query string) []model.Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return customers
	}
	out := make([]model.Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.Phone, q) {
			out = append(out, c)
		}
	}
	return out
}
