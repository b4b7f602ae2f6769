package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Raw POS Snapshots
// ---------------------------------------------------------------------------

// PaymentStatus is the settlement state a POS system reports for a payment
type PaymentStatus string

const (
	PaymentStatusCaptured  PaymentStatus = "CAPTURED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusDenied    PaymentStatus = "DENIED"
	PaymentStatusVoided    PaymentStatus = "VOIDED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// RawOrderItem is a read-only line-item snapshot from the POS source.
// LineTotal is already multiplied by Quantity; that is a property of the
// upstream protocol, not something this system derives.
type RawOrderItem struct {
	ExternalID     string
	Name           string
	Quantity       int64
	LineTotal      decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Voided         bool
}

// RawPayment is a read-only payment snapshot from the POS source
type RawPayment struct {
	ExternalID string
	Status     PaymentStatus
	TipAmount  decimal.Decimal
	PaidAt     time.Time
}

// RawOrder is a read-only order snapshot from the POS source
type RawOrder struct {
	ExternalID string
	PlacedAt   time.Time
	Items      []RawOrderItem
	Payments   []RawPayment
}

// ---------------------------------------------------------------------------
// POSGateway Port
// ---------------------------------------------------------------------------

// OrderFetchRequest describes one page of raw orders to pull from a POS
// system. A nil Window means all history (full resync).
type OrderFetchRequest struct {
	TenantID       uuid.UUID
	System         POSSystem
	ExternalHandle string
	Window         *SyncWindow
	PageNo         int
	PageSize       int
}

// OrderFetchResponse is one page of raw orders from the POS source
type OrderFetchResponse struct {
	Orders     []RawOrder
	HasMore    bool
	NextPageNo int
}

// POSGateway is the port to an external POS integration. The core only
// consumes raw data through it; it owns no part of the upstream lifecycle.
type POSGateway interface {
	// FetchOrders pulls one page of raw orders with their items and
	// payments. Implementations map upstream failures onto the gateway
	// error sentinels so callers can classify them as transient.
	FetchOrders(ctx context.Context, req *OrderFetchRequest) (*OrderFetchResponse, error)
}

// POSGatewayRegistry resolves the gateway adapter for a POS system code
type POSGatewayRegistry interface {
	// Gateway returns the adapter for the system, or ErrGatewayNotRegistered
	Gateway(system POSSystem) (POSGateway, error)
}
