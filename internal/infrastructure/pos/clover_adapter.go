package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posledger/backend/internal/domain/possync"
)

// CloverConfig holds connection settings for the Clover API
type CloverConfig struct {
	APIBaseURL string
	APIToken   string
	Timeout    time.Duration
}

// Validate checks that the configuration is usable
func (c *CloverConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("clover: api base url is required")
	}
	if c.APIToken == "" {
		return errors.New("clover: api token is required")
	}
	return nil
}

// CloverAdapter implements POSGateway for the Clover platform
type CloverAdapter struct {
	config     *CloverConfig
	httpClient *http.Client
}

// NewCloverAdapter creates a new Clover adapter with the given configuration
func NewCloverAdapter(config *CloverConfig) (*CloverAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &CloverAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// cloverOrderList is the paginated order list response
type cloverOrderList struct {
	Elements []cloverOrder `json:"elements"`
	HasMore  bool          `json:"hasMore"`
}

// cloverOrder is one order as returned by the Clover API
type cloverOrder struct {
	ID          string `json:"id"`
	CreatedTime int64  `json:"createdTime"` // unix millis
	LineItems   struct {
		Elements []cloverLineItem `json:"elements"`
	} `json:"lineItems"`
	Payments struct {
		Elements []cloverPayment `json:"elements"`
	} `json:"payments"`
}

// cloverLineItem is one line of an order, amounts in cents
type cloverLineItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitQty   int64  `json:"unitQty"`
	Price     int64  `json:"price"`
	Discounts int64  `json:"discountAmount"`
	TaxAmount int64  `json:"taxAmount"`
	Refunded  bool   `json:"refunded"`
}

// cloverPayment is one payment applied to an order, amounts in cents
type cloverPayment struct {
	ID          string `json:"id"`
	Result      string `json:"result"`
	TipAmount   int64  `json:"tipAmount"`
	CreatedTime int64  `json:"createdTime"`
}

// FetchOrders pulls one page of orders for the connection's merchant
func (a *CloverAdapter) FetchOrders(ctx context.Context, req *possync.OrderFetchRequest) (*possync.OrderFetchResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(req.PageSize))
	query.Set("offset", strconv.Itoa((req.PageNo-1)*req.PageSize))
	query.Set("expand", "lineItems,payments")
	if req.Window != nil {
		query.Set("filter", fmt.Sprintf("createdTime>=%d&createdTime<%d",
			req.Window.StartDate.UnixMilli(),
			req.Window.EndDate.AddDate(0, 0, 1).UnixMilli(),
		))
	}

	endpoint := fmt.Sprintf("%s/v3/merchants/%s/orders?%s", a.config.APIBaseURL, req.ExternalHandle, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("clover: failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: clover: %v", possync.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("clover: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: clover", possync.ErrGatewayRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: clover: HTTP %d", possync.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: clover: HTTP %d", possync.ErrGatewayRequestFailed, resp.StatusCode)
	}

	var list cloverOrderList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: clover: %v", possync.ErrGatewayRequestFailed, err)
	}

	out := &possync.OrderFetchResponse{
		Orders:     make([]possync.RawOrder, 0, len(list.Elements)),
		HasMore:    list.HasMore,
		NextPageNo: req.PageNo + 1,
	}
	for i := range list.Elements {
		out.Orders = append(out.Orders, convertCloverOrder(&list.Elements[i]))
	}
	return out, nil
}

// convertCloverOrder converts a Clover wire order to the domain raw order
func convertCloverOrder(order *cloverOrder) possync.RawOrder {
	raw := possync.RawOrder{
		ExternalID: order.ID,
		PlacedAt:   time.UnixMilli(order.CreatedTime).UTC(),
		Items:      make([]possync.RawOrderItem, 0, len(order.LineItems.Elements)),
		Payments:   make([]possync.RawPayment, 0, len(order.Payments.Elements)),
	}

	for _, item := range order.LineItems.Elements {
		qty := item.UnitQty
		if qty == 0 && !item.Refunded {
			// Clover omits unitQty for single-unit lines
			qty = 1
		}
		raw.Items = append(raw.Items, possync.RawOrderItem{
			ExternalID:     item.ID,
			Name:           item.Name,
			Quantity:       qty,
			LineTotal:      decimal.New(item.Price, -2),
			DiscountAmount: decimal.New(item.Discounts, -2),
			TaxAmount:      decimal.New(item.TaxAmount, -2),
			Voided:         item.Refunded,
		})
	}

	for _, payment := range order.Payments.Elements {
		raw.Payments = append(raw.Payments, possync.RawPayment{
			ExternalID: payment.ID,
			Status:     mapCloverPaymentResult(payment.Result),
			TipAmount:  decimal.New(payment.TipAmount, -2),
			PaidAt:     time.UnixMilli(payment.CreatedTime).UTC(),
		})
	}

	return raw
}

// mapCloverPaymentResult maps Clover payment results onto payment statuses
func mapCloverPaymentResult(result string) possync.PaymentStatus {
	switch result {
	case "SUCCESS":
		return possync.PaymentStatusPaid
	case "DECLINED", "FAIL":
		return possync.PaymentStatusDenied
	case "VOIDED":
		return possync.PaymentStatusVoided
	default:
		return possync.PaymentStatus(result)
	}
}

// Ensure CloverAdapter implements POSGateway
var _ possync.POSGateway = (*CloverAdapter)(nil)
