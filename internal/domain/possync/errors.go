package possync

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	// Connection errors
	ErrConnectionNotFound = errors.New("possync: no active POS connection for tenant")
	ErrConnectionInactive = errors.New("possync: POS connection is inactive")

	// Gateway errors (transient unless stated otherwise)
	ErrGatewayUnavailable   = errors.New("possync: POS gateway temporarily unavailable")
	ErrGatewayRequestFailed = errors.New("possync: POS gateway request failed")
	ErrGatewayRateLimited   = errors.New("possync: POS gateway rate limited")
	ErrGatewayNotRegistered = errors.New("possync: no gateway registered for POS system")

	// ErrTransientSource marks a raw-data fetch failure. The sync run for
	// the tenant is aborted and last_sync_time stays untouched, so the next
	// scheduled tick re-covers the same window.
	ErrTransientSource = errors.New("possync: transient source fetch failure")

	// ErrWindowComputation marks a malformed last_sync_time. The resolver
	// still returns the 90-day backfill window; callers log and continue.
	ErrWindowComputation = errors.New("possync: sync window computation failed")

	// ErrAggregationMismatch marks an internally inconsistent recompute for
	// a single date. Fatal for that date only.
	ErrAggregationMismatch = errors.New("possync: daily aggregate mismatch")

	ErrInvalidWindow = errors.New("possync: invalid sync window")
)

// IsTransientSourceError reports whether err should abort the tenant run and
// leave it retryable on the next tick.
func IsTransientSourceError(err error) bool {
	return errors.Is(err, ErrTransientSource) ||
		errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrGatewayRequestFailed) ||
		errors.Is(err, ErrGatewayRateLimited)
}

// ---------------------------------------------------------------------------
// TransformError
// ---------------------------------------------------------------------------

// TransformError describes a single raw row that could not be converted into
// a ledger row. It never aborts the surrounding window; the row is skipped
// and the rest of the window proceeds.
type TransformError struct {
	ExternalOrderID string
	ExternalItemID  string
	Reason          string
}

// Error implements the error interface
func (e *TransformError) Error() string {
	return fmt.Sprintf("possync: transform failed for order %s item %s: %s",
		e.ExternalOrderID, e.ExternalItemID, e.Reason)
}

// NewTransformError creates a TransformError for a raw order item
func NewTransformError(orderID, itemID, reason string) *TransformError {
	return &TransformError{
		ExternalOrderID: orderID,
		ExternalItemID:  itemID,
		Reason:          reason,
	}
}
