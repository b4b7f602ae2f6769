package possync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/domain/shared"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// ---------------------------------------------------------------------------
// In-Memory Fakes
// ---------------------------------------------------------------------------

type fakeConnectionRepo struct {
	mu          sync.Mutex
	connections map[uuid.UUID]*possync.POSConnection
	markedAt    map[uuid.UUID]time.Time
}

func newFakeConnectionRepo(conns ...*possync.POSConnection) *fakeConnectionRepo {
	repo := &fakeConnectionRepo{
		connections: make(map[uuid.UUID]*possync.POSConnection),
		markedAt:    make(map[uuid.UUID]time.Time),
	}
	for _, c := range conns {
		repo.connections[c.TenantID] = c
	}
	return repo
}

func (r *fakeConnectionRepo) FindByTenant(_ context.Context, tenantID uuid.UUID, _ possync.POSSystem) (*possync.POSConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[tenantID]
	if !ok {
		return nil, possync.ErrConnectionNotFound
	}
	return conn, nil
}

func (r *fakeConnectionRepo) FindAllActive(_ context.Context) ([]possync.POSConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.POSConnection
	for _, c := range r.connections {
		if c.IsActive() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID.String() < out[j].TenantID.String() })
	return out, nil
}

func (r *fakeConnectionRepo) Save(_ context.Context, conn *possync.POSConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.TenantID] = conn
	return nil
}

func (r *fakeConnectionRepo) MarkSynced(_ context.Context, tenantID uuid.UUID, _ possync.POSSystem, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.connections[tenantID]; ok {
		t := at
		conn.LastSyncTime = &t
	}
	r.markedAt[tenantID] = at
	return nil
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	records []possync.SaleRecord

	replaceErr error
}

func (r *fakeLedgerRepo) ReplaceWindow(_ context.Context, tenantID uuid.UUID, system possync.POSSystem, window *possync.SyncWindow, records []possync.SaleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	kept := r.records[:0]
	for _, rec := range r.records {
		inScope := rec.TenantID == tenantID && rec.System == system &&
			(window == nil || window.Contains(rec.SaleDate))
		if !inScope {
			kept = append(kept, rec)
		}
	}
	r.records = append(kept, records...)
	return nil
}

func (r *fakeLedgerRepo) FindByDate(_ context.Context, tenantID uuid.UUID, date time.Time) ([]possync.SaleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := possync.DateOf(date)
	var out []possync.SaleRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && possync.DateOf(rec.SaleDate).Equal(day) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]possync.SaleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []possync.SaleRecord
	for _, rec := range r.records {
		if rec.TenantID != tenantID {
			continue
		}
		if _, ok := want[rec.ID]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ApplySuggestions(_ context.Context, tenantID uuid.UUID, suggestions map[uuid.UUID]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		rec := &r.records[i]
		if rec.TenantID != tenantID || rec.ApprovedCategory != "" {
			continue
		}
		if category, ok := suggestions[rec.ID]; ok {
			rec.SuggestedCategory = category
			rec.Categorized = true
		}
	}
	return nil
}

func (r *fakeLedgerRepo) all(tenantID uuid.UUID) []possync.SaleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.SaleRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out
}

type fakeAggregateRepo struct {
	mu         sync.Mutex
	aggregates map[string]*possync.DailyAggregate
}

func newFakeAggregateRepo() *fakeAggregateRepo {
	return &fakeAggregateRepo{aggregates: make(map[string]*possync.DailyAggregate)}
}

func aggKey(tenantID uuid.UUID, date time.Time) string {
	return tenantID.String() + "|" + possync.DateOf(date).Format("2006-01-02")
}

func (r *fakeAggregateRepo) Upsert(_ context.Context, agg *possync.DailyAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregates[aggKey(agg.TenantID, agg.Date)] = agg
	return nil
}

func (r *fakeAggregateRepo) FindByDate(_ context.Context, tenantID uuid.UUID, date time.Time) (*possync.DailyAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg, ok := r.aggregates[aggKey(tenantID, date)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return agg, nil
}

func (r *fakeAggregateRepo) FindRange(_ context.Context, tenantID uuid.UUID, startDate, endDate time.Time) ([]possync.DailyAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.DailyAggregate
	for d := possync.DateOf(startDate); !d.After(possync.DateOf(endDate)); d = d.AddDate(0, 0, 1) {
		if agg, ok := r.aggregates[aggKey(tenantID, d)]; ok {
			out = append(out, *agg)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules []possync.CategoryRule
	err   error
}

func (r *fakeRuleRepo) FindForTenant(_ context.Context, _ uuid.UUID) ([]possync.CategoryRule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rules, nil
}

// fakeGateway serves canned raw orders, optionally paginated or failing
type fakeGateway struct {
	mu       sync.Mutex
	orders   []possync.RawOrder
	err      error
	requests int
}

func (g *fakeGateway) FetchOrders(_ context.Context, req *possync.OrderFetchRequest) (*possync.OrderFetchResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	if g.err != nil {
		return nil, g.err
	}

	start := (req.PageNo - 1) * req.PageSize
	if start >= len(g.orders) {
		return &possync.OrderFetchResponse{}, nil
	}
	end := start + req.PageSize
	if end > len(g.orders) {
		end = len(g.orders)
	}
	return &possync.OrderFetchResponse{
		Orders:     g.orders[start:end],
		HasMore:    end < len(g.orders),
		NextPageNo: req.PageNo + 1,
	}, nil
}

type fakeRegistry struct {
	gateways map[possync.POSSystem]possync.POSGateway
}

func (r *fakeRegistry) Gateway(system possync.POSSystem) (possync.POSGateway, error) {
	gw, ok := r.gateways[system]
	if !ok {
		return nil, possync.ErrGatewayNotRegistered
	}
	return gw, nil
}

func singleGatewayRegistry(system possync.POSSystem, gw possync.POSGateway) *fakeRegistry {
	return &fakeRegistry{gateways: map[possync.POSSystem]possync.POSGateway{system: gw}}
}

// noopLocker always grants the lease
type noopLocker struct{}

func (noopLocker) TryAcquire(_ context.Context, _ uuid.UUID) (func(), bool, error) {
	return func() {}, true, nil
}

// deniedLocker never grants the lease
type deniedLocker struct{}

func (deniedLocker) TryAcquire(_ context.Context, _ uuid.UUID) (func(), bool, error) {
	return nil, false, nil
}
