package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/interfaces/http/dto"
)

// ConnectionHandler manages tenant links to external POS systems
type ConnectionHandler struct {
	BaseHandler
	connections possync.ConnectionRepository
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(connections possync.ConnectionRepository) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// RegisterRoutes registers connection routes on the given router group
func (h *ConnectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conns := rg.Group("/connections")
	{
		conns.POST("", h.CreateConnection)
		conns.GET("/:system", h.GetConnection)
		conns.DELETE("/:system", h.DisableConnection)
	}
}

// CreateConnectionRequest registers a tenant's POS connection
type CreateConnectionRequest struct {
	System         string `json:"system" binding:"required"`
	ExternalHandle string `json:"external_handle" binding:"required"`
}

// ConnectionResponse is the API view of a POS connection
type ConnectionResponse struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	System         string     `json:"system"`
	ExternalHandle string     `json:"external_handle"`
	Status         string     `json:"status"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toConnectionResponse(conn *possync.POSConnection) ConnectionResponse {
	return ConnectionResponse{
		ID:             conn.ID.String(),
		TenantID:       conn.TenantID.String(),
		System:         conn.System.String(),
		ExternalHandle: conn.ExternalHandle,
		Status:         string(conn.Status),
		LastSyncTime:   conn.LastSyncTime,
		CreatedAt:      conn.CreatedAt,
	}
}

// CreateConnection registers a new connection for the tenant. One connection
// per (tenant, system) pair; a second registration conflicts.
func (h *ConnectionHandler) CreateConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	system := possync.POSSystem(req.System)
	if !system.IsValid() {
		h.BadRequest(c, "Unknown POS system: "+req.System)
		return
	}

	existing, err := h.connections.FindByTenant(c.Request.Context(), tenantID, system)
	if err != nil && !errors.Is(err, possync.ErrConnectionNotFound) {
		h.HandleError(c, err)
		return
	}
	if existing != nil {
		h.Conflict(c, dto.ErrCodeAlreadyExists, "Connection for this POS system already exists")
		return
	}

	conn := possync.NewPOSConnection(tenantID, system, req.ExternalHandle)
	if err := h.connections.Save(c.Request.Context(), conn); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toConnectionResponse(conn))
}

// GetConnection returns the tenant's connection for one POS system
func (h *ConnectionHandler) GetConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	system := possync.POSSystem(c.Param("system"))
	if !system.IsValid() {
		h.BadRequest(c, "Unknown POS system: "+c.Param("system"))
		return
	}

	conn, err := h.connections.FindByTenant(c.Request.Context(), tenantID, system)
	if err != nil {
		if errors.Is(err, possync.ErrConnectionNotFound) {
			h.NotFound(c, "Connection not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConnectionResponse(conn))
}

// DisableConnection takes the connection out of the scheduled sync rotation.
// Existing ledger rows and aggregates are kept.
func (h *ConnectionHandler) DisableConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	system := possync.POSSystem(c.Param("system"))
	if !system.IsValid() {
		h.BadRequest(c, "Unknown POS system: "+c.Param("system"))
		return
	}

	conn, err := h.connections.FindByTenant(c.Request.Context(), tenantID, system)
	if err != nil {
		if errors.Is(err, possync.ErrConnectionNotFound) {
			h.NotFound(c, "Connection not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	conn.Disable()
	if err := h.connections.Save(c.Request.Context(), conn); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConnectionResponse(conn))
}
