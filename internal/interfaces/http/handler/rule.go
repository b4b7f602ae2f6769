package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/csvimport"
	"github.com/posledger/backend/internal/interfaces/http/dto"
)

// RuleRepository is the persistence surface the rule endpoints need
type RuleRepository interface {
	FindForTenant(ctx context.Context, tenantID uuid.UUID) ([]possync.CategoryRule, error)
	Save(ctx context.Context, rule *possync.CategoryRule) error
	SaveBatch(ctx context.Context, rules []possync.CategoryRule) error
	ReplaceForTenant(ctx context.Context, tenantID uuid.UUID, rules []possync.CategoryRule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// RuleHandler manages categorization rules. Rules only affect rows written
// by later categorization passes; existing suggestions are not rewritten.
type RuleHandler struct {
	BaseHandler
	rules RuleRepository
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(rules RuleRepository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// RegisterRoutes registers categorization rule routes on the given router group
func (h *RuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/categorization/rules")
	{
		rules.GET("", h.ListRules)
		rules.POST("", h.CreateRule)
		rules.POST("/import", h.ImportRules)
		rules.DELETE("/:id", h.DeleteRule)
	}
}

// CreateRuleRequest adds a single categorization rule
type CreateRuleRequest struct {
	Keyword  string `json:"keyword" binding:"required,max=100"`
	Category string `json:"category" binding:"required,max=100"`
	System   string `json:"system"`
	Priority int    `json:"priority" binding:"min=0"`
}

// RuleResponse is the API view of a categorization rule
type RuleResponse struct {
	ID       string `json:"id"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	System   string `json:"system,omitempty"`
	Priority int    `json:"priority"`
}

// RuleImportResponse summarizes a CSV import
type RuleImportResponse struct {
	Imported  int    `json:"imported"`
	TotalRows int    `json:"total_rows"`
	Mode      string `json:"mode"`
}

func toRuleResponse(rule *possync.CategoryRule) RuleResponse {
	resp := RuleResponse{
		ID:       rule.ID.String(),
		Keyword:  rule.Keyword,
		Category: rule.Category,
		Priority: rule.Priority,
	}
	if rule.System != nil {
		resp.System = rule.System.String()
	}
	return resp
}

// ListRules returns the tenant's rules in application order
func (h *RuleHandler) ListRules(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	rules, err := h.rules.FindForTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]RuleResponse, len(rules))
	for i := range rules {
		responses[i] = toRuleResponse(&rules[i])
	}
	h.Success(c, responses)
}

// CreateRule adds one rule for the tenant
func (h *RuleHandler) CreateRule(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rule := possync.CategoryRule{
		ID:       uuid.New(),
		TenantID: tenantID,
		Keyword:  req.Keyword,
		Category: req.Category,
		Priority: req.Priority,
	}
	if req.System != "" {
		system := possync.POSSystem(req.System)
		if !system.IsValid() {
			h.BadRequest(c, "Unknown POS system: "+req.System)
			return
		}
		rule.System = &system
	}

	if err := h.rules.Save(c.Request.Context(), &rule); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRuleResponse(&rule))
}

// ImportRules loads rules from a CSV body with keyword, category, optional
// system and priority columns. Imports are all-or-nothing: any rejected row
// fails the request with per-row details. mode=replace swaps the tenant's
// whole rule set, the default appends.
func (h *RuleHandler) ImportRules(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	mode := c.DefaultQuery("mode", "append")
	if mode != "append" && mode != "replace" {
		h.BadRequest(c, "Invalid mode, expected append or replace")
		return
	}

	result, err := csvimport.ParseRules(c.Request.Body, tenantID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if !result.Valid() {
		details := make([]dto.ValidationDetail, len(result.RowErrors))
		for i, rowErr := range result.RowErrors {
			details[i] = dto.ValidationDetail{
				Field:   rowErr.Column,
				Message: rowErr.Error(),
			}
		}
		h.ValidationError(c, details)
		return
	}

	if mode == "replace" {
		err = h.rules.ReplaceForTenant(c.Request.Context(), tenantID, result.Rules)
	} else {
		err = h.rules.SaveBatch(c.Request.Context(), result.Rules)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RuleImportResponse{
		Imported:  len(result.Rules),
		TotalRows: result.TotalRows,
		Mode:      mode,
	})
}

// DeleteRule removes one rule by ID
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	if err := h.rules.Delete(c.Request.Context(), tenantID, ruleID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
