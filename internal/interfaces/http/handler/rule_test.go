package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/interfaces/http/dto"
)

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID][]possync.CategoryRule
	err   error
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID][]possync.CategoryRule)}
}

func (r *fakeRuleRepo) FindForTenant(_ context.Context, tenantID uuid.UUID) ([]possync.CategoryRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]possync.CategoryRule(nil), r.rules[tenantID]...), nil
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *possync.CategoryRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rules[rule.TenantID] = append(r.rules[rule.TenantID], *rule)
	return nil
}

func (r *fakeRuleRepo) SaveBatch(_ context.Context, rules []possync.CategoryRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, rule := range rules {
		r.rules[rule.TenantID] = append(r.rules[rule.TenantID], rule)
	}
	return nil
}

func (r *fakeRuleRepo) ReplaceForTenant(_ context.Context, tenantID uuid.UUID, rules []possync.CategoryRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rules[tenantID] = append([]possync.CategoryRule(nil), rules...)
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rules[tenantID][:0]
	for _, rule := range r.rules[tenantID] {
		if rule.ID != id {
			kept = append(kept, rule)
		}
	}
	r.rules[tenantID] = kept
	return nil
}

func newRuleTestRouter(repo RuleRepository) *gin.Engine {
	r := gin.New()
	h := NewRuleHandler(repo)
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

func doCSV(r *gin.Engine, path string, tenantID uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-Tenant-ID", tenantID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRuleHandler_Create(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	w := doJSON(r, http.MethodPost, "/api/v1/categorization/rules", tenantID, CreateRuleRequest{
		Keyword:  "latte",
		Category: "Beverages",
		System:   "SQUARE",
		Priority: 2,
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := json.Marshal(resp.Data)
	var rule RuleResponse
	require.NoError(t, json.Unmarshal(data, &rule))
	assert.Equal(t, "latte", rule.Keyword)
	assert.Equal(t, "SQUARE", rule.System)
	assert.Equal(t, 2, rule.Priority)

	stored, err := repo.FindForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Beverages", stored[0].Category)
}

func TestRuleHandler_Create_Invalid(t *testing.T) {
	r := newRuleTestRouter(newFakeRuleRepo())

	t.Run("missing keyword", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/categorization/rules", uuid.New(),
			map[string]string{"category": "Food"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown system", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/categorization/rules", uuid.New(),
			CreateRuleRequest{Keyword: "latte", Category: "Beverages", System: "REGISTER"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuleHandler_List(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	system := possync.POSSystemSquare
	require.NoError(t, repo.Save(context.Background(), &possync.CategoryRule{
		ID: uuid.New(), TenantID: tenantID, Keyword: "latte", Category: "Beverages", System: &system, Priority: 1,
	}))
	require.NoError(t, repo.Save(context.Background(), &possync.CategoryRule{
		ID: uuid.New(), TenantID: uuid.New(), Keyword: "other", Category: "Food",
	}))

	w := doJSON(r, http.MethodGet, "/api/v1/categorization/rules", tenantID, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := json.Marshal(resp.Data)
	var rules []RuleResponse
	require.NoError(t, json.Unmarshal(data, &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "latte", rules[0].Keyword)
	assert.Equal(t, "SQUARE", rules[0].System)
}

func TestRuleHandler_Delete(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	rule := possync.CategoryRule{ID: uuid.New(), TenantID: tenantID, Keyword: "latte", Category: "Beverages"}
	require.NoError(t, repo.Save(context.Background(), &rule))

	w := doJSON(r, http.MethodDelete, "/api/v1/categorization/rules/"+rule.ID.String(), tenantID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, err := repo.FindForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	t.Run("malformed id", func(t *testing.T) {
		w := doJSON(r, http.MethodDelete, "/api/v1/categorization/rules/not-a-uuid", tenantID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuleHandler_Import(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	csv := "keyword,category,system,priority\n" +
		"latte,Beverages,SQUARE,1\n" +
		"burger,Food,,2\n"

	w := doCSV(r, "/api/v1/categorization/rules/import", tenantID, csv)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := json.Marshal(resp.Data)
	var summary RuleImportResponse
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, "append", summary.Mode)

	stored, err := repo.FindForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRuleHandler_Import_Replace(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	require.NoError(t, repo.Save(context.Background(), &possync.CategoryRule{
		ID: uuid.New(), TenantID: tenantID, Keyword: "old", Category: "Legacy",
	}))

	csv := "keyword,category\nlatte,Beverages\n"
	w := doCSV(r, "/api/v1/categorization/rules/import?mode=replace", tenantID, csv)

	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.FindForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "latte", stored[0].Keyword)
}

func TestRuleHandler_Import_RowErrors(t *testing.T) {
	repo := newFakeRuleRepo()
	r := newRuleTestRouter(repo)
	tenantID := uuid.New()

	csv := "keyword,category\n" +
		"latte,Beverages\n" +
		",Food\n"

	w := doCSV(r, "/api/v1/categorization/rules/import", tenantID, csv)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Contains(t, resp.Error.Details[0].Message, "row 3")

	// Nothing imported on a rejected file
	stored, err := repo.FindForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRuleHandler_Import_BadFile(t *testing.T) {
	r := newRuleTestRouter(newFakeRuleRepo())

	t.Run("empty body", func(t *testing.T) {
		w := doCSV(r, "/api/v1/categorization/rules/import", uuid.New(), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong headers", func(t *testing.T) {
		w := doCSV(r, "/api/v1/categorization/rules/import", uuid.New(), "a,b\n1,2\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad mode", func(t *testing.T) {
		w := doCSV(r, "/api/v1/categorization/rules/import?mode=merge", uuid.New(), "keyword,category\nx,y\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuleHandler_MissingTenant(t *testing.T) {
	r := newRuleTestRouter(newFakeRuleRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categorization/rules", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
