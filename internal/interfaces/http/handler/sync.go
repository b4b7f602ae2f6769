package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/scheduler"
	"github.com/posledger/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes administrative sync operations: queueing full resyncs,
// queueing window repairs, and inspecting the job history.
type SyncHandler struct {
	BaseHandler
	scheduler *scheduler.SyncScheduler
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sched *scheduler.SyncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: sched}
}

// RegisterRoutes registers sync routes on the given router group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/full", h.TriggerFullResync)
		sync.POST("/window", h.TriggerWindowSync)
		sync.GET("/jobs", h.ListJobs)
	}
}

// TriggerSyncRequest identifies the connection a sync job targets
type TriggerSyncRequest struct {
	System string `json:"system" binding:"required"`
}

// WindowSyncRequest bounds a repair sync to an inclusive date range
type WindowSyncRequest struct {
	System    string `json:"system" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// SyncJobResponse is the API view of a queued or finished sync job
type SyncJobResponse struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	System       string     `json:"system"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	RetryCount   int        `json:"retry_count"`
	RowsWritten  int        `json:"rows_written"`
	SkippedRows  int        `json:"skipped_rows"`
	Categorized  int        `json:"categorized"`
	DatesTouched int        `json:"dates_touched"`
	WindowStart  string     `json:"window_start,omitempty"`
	WindowEnd    string     `json:"window_end,omitempty"`
}

func toSyncJobResponse(job *scheduler.SyncJob) SyncJobResponse {
	resp := SyncJobResponse{
		ID:           job.ID.String(),
		TenantID:     job.TenantID.String(),
		System:       job.System.String(),
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Error:        job.Error,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		RetryCount:   job.RetryCount,
		RowsWritten:  job.RowsWritten,
		SkippedRows:  job.SkippedRows,
		Categorized:  job.Categorized,
		DatesTouched: job.DatesTouched,
	}
	if job.Window != nil {
		resp.WindowStart = job.Window.StartDate.Format("2006-01-02")
		resp.WindowEnd = job.Window.EndDate.Format("2006-01-02")
	}
	return resp
}

// TriggerFullResync queues a job that replaces the tenant's entire ledger
// for one POS system
func (h *SyncHandler) TriggerFullResync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	system := possync.POSSystem(req.System)
	if !system.IsValid() {
		h.BadRequest(c, "Unknown POS system: "+req.System)
		return
	}

	job, err := h.scheduler.ScheduleFullResync(tenantID, system)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	h.Accepted(c, toSyncJobResponse(job))
}

// TriggerWindowSync queues a job that re-syncs one inclusive date window
func (h *SyncHandler) TriggerWindowSync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req WindowSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	system := possync.POSSystem(req.System)
	if !system.IsValid() {
		h.BadRequest(c, "Unknown POS system: "+req.System)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		h.BadRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		h.BadRequest(c, "end_date must be YYYY-MM-DD")
		return
	}

	window, err := possync.NewSyncWindow(start, end)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.scheduler.ScheduleWindowSync(tenantID, system, window)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	h.Accepted(c, toSyncJobResponse(job))
}

// ListJobs returns the tenant's recent sync jobs, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	jobs := h.scheduler.GetJobHistoryByTenant(tenantID, limit)
	responses := make([]SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toSyncJobResponse(job))
	}

	h.Success(c, responses)
}

func (h *SyncHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Sync scheduler is not running")
	case errors.Is(err, scheduler.ErrJobQueueFull):
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Sync queue is full, retry later")
	default:
		h.InternalError(c, "Failed to queue sync job")
	}
}
