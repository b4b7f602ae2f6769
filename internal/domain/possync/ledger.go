package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Unified Sales Ledger
// ---------------------------------------------------------------------------

// AdjustmentType classifies a ledger row's contribution to daily totals
type AdjustmentType string

const (
	AdjustmentRevenue  AdjustmentType = "REVENUE"
	AdjustmentDiscount AdjustmentType = "DISCOUNT"
	AdjustmentVoid     AdjustmentType = "VOID"
	AdjustmentTax      AdjustmentType = "TAX"
	AdjustmentTip      AdjustmentType = "TIP"
)

// IsValid returns true if the adjustment type is recognized
func (a AdjustmentType) IsValid() bool {
	switch a {
	case AdjustmentRevenue, AdjustmentDiscount, AdjustmentVoid, AdjustmentTax, AdjustmentTip:
		return true
	default:
		return false
	}
}

// SaleRecord is the canonical per-line-item sales fact.
//
// TotalPrice is the raw source line-total verbatim, never re-multiplied by
// quantity. UnitPrice is TotalPrice/Quantity; rows with zero quantity never
// reach the ledger. Discount and void rows carry negative amounts so every
// row type sums through the same arithmetic.
type SaleRecord struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	System          POSSystem
	ExternalOrderID string
	ExternalItemID  string
	SaleDate        time.Time
	SaleTime        time.Time
	ItemName        string
	Quantity        int64
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	Adjustment      AdjustmentType

	// Categorization state, written only by the batch applier
	SuggestedCategory string
	ApprovedCategory  string
	Categorized       bool

	// ParentRecordID links offset rows (discount, void, tax, tip) to the
	// revenue row they adjust, and split children to their parent.
	ParentRecordID *uuid.UUID
}

// ---------------------------------------------------------------------------
// SaleRecordRepository
// ---------------------------------------------------------------------------

// SaleRecordRepository persists the unified sales ledger. Only the sync
// executors write through ReplaceWindow; only the categorization batch
// applier writes through ApplySuggestions.
type SaleRecordRepository interface {
	// ReplaceWindow atomically replaces the row set for
	// (tenant, system, sale_date in window). Delete strictly precedes
	// insert inside one transaction; a nil window replaces all history
	// (full resync). No partial replacement is ever observable.
	ReplaceWindow(ctx context.Context, tenantID uuid.UUID, system POSSystem, window *SyncWindow, records []SaleRecord) error

	// FindByDate returns all ledger rows for a tenant and sale date
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]SaleRecord, error)

	// FindByIDs returns ledger rows by id for a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]SaleRecord, error)

	// ApplySuggestions writes suggested categories in one batch pass.
	// Rows already carrying an approved category are left untouched.
	ApplySuggestions(ctx context.Context, tenantID uuid.UUID, suggestions map[uuid.UUID]string) error
}
