package possync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// DailyAggregate
// ---------------------------------------------------------------------------

// DailyAggregate is the per-tenant, per-date rollup of ledger facts. It is a
// pure function of the SaleRecord rows sharing its date and is recomputed,
// never hand-edited.
//
// Discounts and Voids hold positive magnitudes; the underlying ledger rows
// carry the negative offsets.
type DailyAggregate struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Date       time.Time
	GrossSales decimal.Decimal
	Discounts  decimal.Decimal
	Voids      decimal.Decimal
	NetSales   decimal.Decimal
	Tax        decimal.Decimal
	Tips       decimal.Decimal
	ComputedAt time.Time
}

// BuildDailyAggregate recomputes the aggregate for one date from the current
// ledger rows for that date. Rows outside the date are rejected as an
// internal inconsistency (ErrAggregationMismatch), as is a net total that
// does not reconcile with its parts.
func BuildDailyAggregate(tenantID uuid.UUID, date time.Time, records []SaleRecord) (*DailyAggregate, error) {
	day := DateOf(date)

	gross := decimal.Zero
	discounts := decimal.Zero
	voids := decimal.Zero
	tax := decimal.Zero
	tips := decimal.Zero

	for i := range records {
		rec := &records[i]
		if !DateOf(rec.SaleDate).Equal(day) {
			return nil, fmt.Errorf("%w: record %s has sale_date %s, expected %s",
				ErrAggregationMismatch, rec.ID,
				rec.SaleDate.Format("2006-01-02"), day.Format("2006-01-02"))
		}
		switch rec.Adjustment {
		case AdjustmentRevenue:
			gross = gross.Add(rec.TotalPrice)
		case AdjustmentDiscount:
			discounts = discounts.Add(rec.TotalPrice.Neg())
		case AdjustmentVoid:
			voids = voids.Add(rec.TotalPrice.Neg())
		case AdjustmentTax:
			tax = tax.Add(rec.TotalPrice)
		case AdjustmentTip:
			tips = tips.Add(rec.TotalPrice)
		default:
			return nil, fmt.Errorf("%w: record %s has unknown adjustment type %q",
				ErrAggregationMismatch, rec.ID, rec.Adjustment)
		}
	}

	net := gross.Sub(discounts).Sub(voids)

	return &DailyAggregate{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Date:       day,
		GrossSales: gross,
		Discounts:  discounts,
		Voids:      voids,
		NetSales:   net,
		Tax:        tax,
		Tips:       tips,
		ComputedAt: time.Now(),
	}, nil
}

// Reconciles verifies the aggregate's internal arithmetic
func (a *DailyAggregate) Reconciles() bool {
	return a.NetSales.Equal(a.GrossSales.Sub(a.Discounts).Sub(a.Voids))
}

// ---------------------------------------------------------------------------
// DailyAggregateRepository
// ---------------------------------------------------------------------------

// DailyAggregateRepository persists daily aggregates. Only the aggregation
// engine writes to it; reporting consumers are read-only.
type DailyAggregateRepository interface {
	// Upsert replaces the aggregate keyed by (tenant, date)
	Upsert(ctx context.Context, agg *DailyAggregate) error

	// FindByDate returns the aggregate for a tenant and date, or
	// shared.ErrNotFound when none has been computed.
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*DailyAggregate, error)

	// FindRange returns aggregates for an inclusive date range, ascending
	FindRange(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) ([]DailyAggregate, error)
}
