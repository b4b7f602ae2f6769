package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/domain/shared"
)

// AggregateHandler serves the read side of the daily rollups. It never
// writes; only the aggregation engine produces these rows.
type AggregateHandler struct {
	BaseHandler
	aggregates possync.DailyAggregateRepository
}

// NewAggregateHandler creates a new AggregateHandler
func NewAggregateHandler(aggregates possync.DailyAggregateRepository) *AggregateHandler {
	return &AggregateHandler{aggregates: aggregates}
}

// RegisterRoutes registers aggregate routes on the given router group
func (h *AggregateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	aggs := rg.Group("/aggregates")
	{
		aggs.GET("/daily", h.GetDailyAggregates)
	}
}

// DailyAggregateResponse is the API view of one day's rollup.
// Monetary fields are decimal strings to avoid float drift in clients.
type DailyAggregateResponse struct {
	Date       string    `json:"date"`
	GrossSales string    `json:"gross_sales"`
	Discounts  string    `json:"discounts"`
	Voids      string    `json:"voids"`
	NetSales   string    `json:"net_sales"`
	Tax        string    `json:"tax"`
	Tips       string    `json:"tips"`
	ComputedAt time.Time `json:"computed_at"`
}

func toDailyAggregateResponse(agg *possync.DailyAggregate) DailyAggregateResponse {
	money := func(d decimal.Decimal) string { return d.StringFixed(2) }
	return DailyAggregateResponse{
		Date:       agg.Date.Format("2006-01-02"),
		GrossSales: money(agg.GrossSales),
		Discounts:  money(agg.Discounts),
		Voids:      money(agg.Voids),
		NetSales:   money(agg.NetSales),
		Tax:        money(agg.Tax),
		Tips:       money(agg.Tips),
		ComputedAt: agg.ComputedAt,
	}
}

// GetDailyAggregates returns rollups for a single date (?date=) or an
// inclusive range (?start_date=&end_date=)
func (h *AggregateHandler) GetDailyAggregates(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}

		agg, err := h.aggregates.FindByDate(c.Request.Context(), tenantID, date)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				h.NotFound(c, "No aggregate computed for this date")
				return
			}
			h.HandleError(c, err)
			return
		}

		h.Success(c, toDailyAggregateResponse(agg))
		return
	}

	startRaw := c.Query("start_date")
	endRaw := c.Query("end_date")
	if startRaw == "" || endRaw == "" {
		h.BadRequest(c, "Provide either date or both start_date and end_date")
		return
	}

	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		h.BadRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		h.BadRequest(c, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		h.BadRequest(c, "end_date must not precede start_date")
		return
	}

	aggs, err := h.aggregates.FindRange(c.Request.Context(), tenantID, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]DailyAggregateResponse, 0, len(aggs))
	for i := range aggs {
		responses = append(responses, toDailyAggregateResponse(&aggs[i]))
	}

	h.Success(c, responses)
}
