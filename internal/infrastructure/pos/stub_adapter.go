package pos

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/posledger/backend/internal/domain/possync"
)

// stubHistoryDays is how far back a full resync reaches on the stub
const stubHistoryDays = 7

var stubMenu = []string{"Latte", "Americano", "Croissant", "Bagel", "House Salad", "Iced Tea"}

// StubAdapter serves deterministic orders for development and demos. The
// orders for a given tenant and date never change, so repeated syncs
// against the stub behave exactly like syncs against a quiet upstream.
type StubAdapter struct {
	ordersPerDay int
	now          func() time.Time
}

// NewStubAdapter creates a stub gateway emitting ordersPerDay orders per
// calendar day
func NewStubAdapter(ordersPerDay int) *StubAdapter {
	if ordersPerDay <= 0 {
		ordersPerDay = 5
	}
	return &StubAdapter{
		ordersPerDay: ordersPerDay,
		now:          time.Now,
	}
}

// FetchOrders generates the page of stub orders covering the requested window
func (a *StubAdapter) FetchOrders(ctx context.Context, req *possync.OrderFetchRequest) (*possync.OrderFetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start, end := a.resolveRange(req.Window)

	var all []possync.RawOrder
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		all = append(all, a.ordersFor(req.TenantID, day)...)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	offset := (req.PageNo - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return &possync.OrderFetchResponse{NextPageNo: req.PageNo + 1}, nil
	}

	limit := offset + pageSize
	if limit > len(all) {
		limit = len(all)
	}

	return &possync.OrderFetchResponse{
		Orders:     all[offset:limit],
		HasMore:    limit < len(all),
		NextPageNo: req.PageNo + 1,
	}, nil
}

func (a *StubAdapter) resolveRange(window *possync.SyncWindow) (time.Time, time.Time) {
	if window != nil {
		return window.StartDate, window.EndDate
	}
	end := possync.DateOf(a.now().UTC())
	return end.AddDate(0, 0, -(stubHistoryDays - 1)), end
}

// ordersFor derives the fixed set of orders for one tenant on one day
func (a *StubAdapter) ordersFor(tenantID uuid.UUID, day time.Time) []possync.RawOrder {
	orders := make([]possync.RawOrder, 0, a.ordersPerDay)
	for n := 0; n < a.ordersPerDay; n++ {
		seed := stubSeed(tenantID, day, n)
		placedAt := day.Add(time.Duration(8+seed%10) * time.Hour)

		itemCount := 1 + int(seed%3)
		items := make([]possync.RawOrderItem, 0, itemCount)
		orderTotal := decimal.Zero
		for i := 0; i < itemCount; i++ {
			itemSeed := seed + uint64(i)*7919
			qty := int64(1 + itemSeed%3)
			unitCents := int64(250 + (itemSeed%20)*25)
			lineTotal := decimal.New(unitCents*qty, -2)
			orderTotal = orderTotal.Add(lineTotal)
			items = append(items, possync.RawOrderItem{
				ExternalID: fmt.Sprintf("stub-item-%d-%d", seed, i),
				Name:       stubMenu[itemSeed%uint64(len(stubMenu))],
				Quantity:   qty,
				LineTotal:  lineTotal,
				TaxAmount:  lineTotal.Mul(decimal.NewFromFloat(0.08)).Round(2),
			})
		}

		orders = append(orders, possync.RawOrder{
			ExternalID: fmt.Sprintf("stub-order-%d", seed),
			PlacedAt:   placedAt,
			Items:      items,
			Payments: []possync.RawPayment{{
				ExternalID: fmt.Sprintf("stub-pay-%d", seed),
				Status:     possync.PaymentStatusCaptured,
				TipAmount:  orderTotal.Mul(decimal.NewFromFloat(0.1)).Round(2),
				PaidAt:     placedAt.Add(2 * time.Minute),
			}},
		})
	}
	return orders
}

func stubSeed(tenantID uuid.UUID, day time.Time, n int) uint64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	h.Write([]byte(day.Format("2006-01-02")))
	h.Write([]byte{byte(n)})
	return h.Sum64()
}

// Ensure StubAdapter implements POSGateway
var _ possync.POSGateway = (*StubAdapter)(nil)
