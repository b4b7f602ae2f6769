package possync

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Category Rules
// ---------------------------------------------------------------------------

// CategoryRule maps item names onto category suggestions. Rules are applied
// by the batch applier after a sync commits; the ledger insert itself never
// triggers per-row categorization.
type CategoryRule struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	// Keyword is matched case-insensitively against the item name
	Keyword  string
	Category string
	// System restricts the rule to one POS system when set
	System *POSSystem
	// Priority orders rules; lower values win on multiple matches
	Priority int
}

// Matches reports whether the rule applies to a ledger row
func (r *CategoryRule) Matches(rec *SaleRecord) bool {
	if r.System != nil && *r.System != rec.System {
		return false
	}
	return strings.Contains(strings.ToLower(rec.ItemName), strings.ToLower(r.Keyword))
}

// SuggestCategory evaluates rules against a row. Rules must be sorted by
// priority; the first match wins, making the result deterministic and
// independent of batch order.
func SuggestCategory(rules []CategoryRule, rec *SaleRecord) (string, bool) {
	for i := range rules {
		if rules[i].Matches(rec) {
			return rules[i].Category, true
		}
	}
	return "", false
}

// CategoryRuleRepository persists categorization rules
type CategoryRuleRepository interface {
	// FindForTenant returns the tenant's rules sorted by priority
	FindForTenant(ctx context.Context, tenantID uuid.UUID) ([]CategoryRule, error)
}
