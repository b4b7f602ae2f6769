package possync

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Row Transform
// ---------------------------------------------------------------------------
// Pure, stateless conversion of raw POS snapshots into canonical ledger
// rows. Both the scoped and the full resync executors go through these
// functions, so a price-semantics fix lands everywhere at once.

// NormalizePrice derives the canonical price pair from a raw line-total.
// The line-total arrives already multiplied by quantity, so it is kept
// verbatim as the total and divided to get the true per-unit value. A zero
// quantity is undefined and yields a TransformError; callers skip the row.
func NormalizePrice(rawLineTotal decimal.Decimal, quantity int64) (unitPrice, totalPrice decimal.Decimal, err error) {
	if quantity == 0 {
		return decimal.Zero, decimal.Zero, NewTransformError("", "", "zero quantity")
	}
	totalPrice = rawLineTotal
	unitPrice = rawLineTotal.Div(decimal.NewFromInt(quantity))
	return unitPrice, totalPrice, nil
}

// settledStatuses is the explicit enumeration of payment statuses that count
// toward tip totals. Anything not listed here is excluded, including
// statuses this system has never seen.
var settledStatuses = map[PaymentStatus]struct{}{
	PaymentStatusCaptured:  {},
	PaymentStatusCompleted: {},
	PaymentStatusPaid:      {},
}

// IsSettledPayment reports whether a payment contributes to tip totals.
// Denied, voided and unrecognized statuses all fail closed.
func IsSettledPayment(status PaymentStatus) bool {
	_, ok := settledStatuses[status]
	return ok
}

// TransformOrder converts one raw order into ledger rows: a revenue row per
// line item, negative discount and void offset rows, a tax row per taxed
// item, and a tip row per settled payment. Items that cannot be normalized
// are skipped individually and reported; they never abort the order.
func TransformOrder(tenantID uuid.UUID, system POSSystem, order *RawOrder) ([]SaleRecord, []*TransformError) {
	var records []SaleRecord
	var failures []*TransformError

	saleDate := DateOf(order.PlacedAt)

	newRecord := func(adj AdjustmentType, item *RawOrderItem, qty int64, unit, total decimal.Decimal, parent *uuid.UUID) SaleRecord {
		rec := SaleRecord{
			ID:              uuid.New(),
			TenantID:        tenantID,
			System:          system,
			ExternalOrderID: order.ExternalID,
			SaleDate:        saleDate,
			SaleTime:        order.PlacedAt,
			Quantity:        qty,
			UnitPrice:       unit,
			TotalPrice:      total,
			Adjustment:      adj,
			ParentRecordID:  parent,
		}
		if item != nil {
			rec.ExternalItemID = item.ExternalID
			rec.ItemName = item.Name
		}
		return rec
	}

	for i := range order.Items {
		item := &order.Items[i]

		unit, total, err := NormalizePrice(item.LineTotal, item.Quantity)
		if err != nil {
			failures = append(failures, NewTransformError(order.ExternalID, item.ExternalID, "zero quantity"))
			continue
		}

		revenue := newRecord(AdjustmentRevenue, item, item.Quantity, unit, total, nil)
		records = append(records, revenue)

		if item.Voided {
			// Void offsets the full revenue row through the shared
			// normalization path, so the pair nets to zero.
			vUnit, vTotal, vErr := NormalizePrice(item.LineTotal.Neg(), item.Quantity)
			if vErr == nil {
				records = append(records, newRecord(AdjustmentVoid, item, item.Quantity, vUnit, vTotal, &revenue.ID))
			}
			continue
		}

		if !item.DiscountAmount.IsZero() {
			dUnit, dTotal, dErr := NormalizePrice(item.DiscountAmount.Neg(), item.Quantity)
			if dErr == nil {
				records = append(records, newRecord(AdjustmentDiscount, item, item.Quantity, dUnit, dTotal, &revenue.ID))
			}
		}

		if !item.TaxAmount.IsZero() {
			tUnit, tTotal, tErr := NormalizePrice(item.TaxAmount, item.Quantity)
			if tErr == nil {
				records = append(records, newRecord(AdjustmentTax, item, item.Quantity, tUnit, tTotal, &revenue.ID))
			}
		}
	}

	for i := range order.Payments {
		payment := &order.Payments[i]
		if !IsSettledPayment(payment.Status) {
			continue
		}
		if payment.TipAmount.IsZero() {
			continue
		}
		tip := newRecord(AdjustmentTip, nil, 1, payment.TipAmount, payment.TipAmount, nil)
		tip.ExternalItemID = payment.ExternalID
		tip.ItemName = "Tip"
		records = append(records, tip)
	}

	return records, failures
}
