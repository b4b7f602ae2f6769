package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/posledger/backend/internal/domain/possync"
)

// maxResponseSize is the maximum allowed response size from a POS API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// SquareConfig holds connection settings for the Square API
type SquareConfig struct {
	APIBaseURL  string
	AccessToken string
	Timeout     time.Duration
}

// Validate checks that the configuration is usable
func (c *SquareConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("square: api base url is required")
	}
	if c.AccessToken == "" {
		return errors.New("square: access token is required")
	}
	return nil
}

// SquareAdapter implements POSGateway for the Square platform
type SquareAdapter struct {
	config     *SquareConfig
	httpClient *http.Client
}

// NewSquareAdapter creates a new Square adapter with the given configuration
func NewSquareAdapter(config *SquareConfig) (*SquareAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SquareAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// FetchOrders pulls one page of orders for the connection's location
func (a *SquareAdapter) FetchOrders(ctx context.Context, req *possync.OrderFetchRequest) (*possync.OrderFetchResponse, error) {
	body := squareSearchOrdersRequest{
		LocationID: req.ExternalHandle,
		PageNo:     req.PageNo,
		PageSize:   req.PageSize,
	}
	if req.Window != nil {
		body.BeginTime = req.Window.StartDate.Format(time.RFC3339)
		// the window's end date is inclusive
		body.EndTime = req.Window.EndDate.AddDate(0, 0, 1).Format(time.RFC3339)
	}

	respBody, err := a.doRequest(ctx, "/v2/orders/search", &body)
	if err != nil {
		return nil, err
	}

	var resp squareSearchOrdersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: square: %v", possync.ErrGatewayRequestFailed, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: square: %s - %s", possync.ErrGatewayRequestFailed, resp.Errors[0].Code, resp.Errors[0].Detail)
	}

	out := &possync.OrderFetchResponse{
		Orders:     make([]possync.RawOrder, 0, len(resp.Orders)),
		HasMore:    resp.HasMore,
		NextPageNo: resp.NextPageNo,
	}
	if out.NextPageNo == 0 {
		out.NextPageNo = req.PageNo + 1
	}

	for i := range resp.Orders {
		out.Orders = append(out.Orders, convertSquareOrder(&resp.Orders[i]))
	}
	return out, nil
}

// doRequest performs an authenticated POST against the Square API
func (a *SquareAdapter) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("square: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("square: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: square: %v", possync.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("square: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: square", possync.ErrGatewayRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: square: HTTP %d", possync.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: square: HTTP %d", possync.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return body, nil
}

// convertSquareOrder converts a Square wire order to the domain raw order
func convertSquareOrder(order *squareOrder) possync.RawOrder {
	raw := possync.RawOrder{
		ExternalID: order.ID,
		Items:      make([]possync.RawOrderItem, 0, len(order.LineItems)),
		Payments:   make([]possync.RawPayment, 0, len(order.Tenders)),
	}
	if placedAt, ok := parseSquareTime(order.CreatedAt); ok {
		raw.PlacedAt = placedAt
	}

	for _, item := range order.LineItems {
		qty, err := strconv.ParseInt(item.Quantity, 10, 64)
		if err != nil {
			// keep the row; the transform rejects unusable quantities itself
			qty = 0
		}
		raw.Items = append(raw.Items, possync.RawOrderItem{
			ExternalID:     item.UID,
			Name:           item.Name,
			Quantity:       qty,
			LineTotal:      item.TotalMoney.Decimal(),
			DiscountAmount: item.TotalDiscountMoney.Decimal(),
			TaxAmount:      item.TotalTaxMoney.Decimal(),
			Voided:         item.Voided,
		})
	}

	for _, tender := range order.Tenders {
		payment := possync.RawPayment{
			ExternalID: tender.ID,
			Status:     mapSquareTenderStatus(tender.Status),
			TipAmount:  tender.TipMoney.Decimal(),
		}
		if paidAt, ok := parseSquareTime(tender.CreatedAt); ok {
			payment.PaidAt = paidAt
		}
		raw.Payments = append(raw.Payments, payment)
	}

	return raw
}

// mapSquareTenderStatus maps Square tender statuses onto payment statuses.
// Unknown statuses pass through verbatim and are treated as unsettled.
func mapSquareTenderStatus(status string) possync.PaymentStatus {
	switch status {
	case "CAPTURED":
		return possync.PaymentStatusCaptured
	case "COMPLETED":
		return possync.PaymentStatusCompleted
	case "AUTHORIZED":
		return possync.PaymentStatusPending
	case "VOIDED":
		return possync.PaymentStatusVoided
	case "FAILED":
		return possync.PaymentStatusDenied
	default:
		return possync.PaymentStatus(status)
	}
}

// Ensure SquareAdapter implements POSGateway
var _ possync.POSGateway = (*SquareAdapter)(nil)
