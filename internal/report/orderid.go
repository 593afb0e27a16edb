package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/model"
)

// NextStatus advances an order status one step forward:
// Menunggu -> Diproses -> Selesai. Selesai is terminal and idempotent,
// and anything unrecognized falls through to Selesai with it. Row
// decoding defaults blank statuses to Menunggu, so the fallback is
// unreachable in practice.
func NextStatus(s string) string {
	switch s {
	case enum.OrderStatusWaiting:
		return enum.OrderStatusProcessing
	case enum.OrderStatusProcessing:
		return enum.OrderStatusDone
	}
	return enum.OrderStatusDone
}

// GenerateOrderID builds the next PREFIX-YYYYMMDD-NNN id for the given
// day. NNN is the max sequence among existing ids with today's exact
// date prefix, plus one, zero-padded to three digits. Malformed or
// non-numeric suffixes are ignored when computing the max.
func GenerateOrderID(orders []model.Order, prefix string, now time.Time) string {
	day := now.Format("20060102")
	idPrefix := fmt.Sprintf("%s-%s-", prefix, day)

	max := 0
	for _, o := range orders {
		if !strings.HasPrefix(o.ID, idPrefix) {
			continue
		}
		n, err := strconv.Atoi(o.ID[len(idPrefix):])
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", idPrefix, max+1)
}
