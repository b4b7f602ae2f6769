package pos

import (
	"time"

	"github.com/shopspring/decimal"
)

// squareSearchOrdersRequest is the request body for the order search endpoint
type squareSearchOrdersRequest struct {
	LocationID string `json:"location_id"`
	BeginTime  string `json:"begin_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	PageNo     int    `json:"page_no"`
	PageSize   int    `json:"page_size"`
}

// squareSearchOrdersResponse is the response body for the order search endpoint
type squareSearchOrdersResponse struct {
	Orders     []squareOrder `json:"orders"`
	HasMore    bool          `json:"has_more"`
	NextPageNo int           `json:"next_page_no"`
	Errors     []squareError `json:"errors,omitempty"`
}

// squareError is an error entry returned by the Square API
type squareError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

// squareOrder is one order as returned by the Square API
type squareOrder struct {
	ID        string           `json:"id"`
	CreatedAt string           `json:"created_at"`
	LineItems []squareLineItem `json:"line_items"`
	Tenders   []squareTender   `json:"tenders"`
}

// squareLineItem is one line of an order
type squareLineItem struct {
	UID                string      `json:"uid"`
	Name               string      `json:"name"`
	Quantity           string      `json:"quantity"`
	TotalMoney         squareMoney `json:"total_money"`
	TotalDiscountMoney squareMoney `json:"total_discount_money"`
	TotalTaxMoney      squareMoney `json:"total_tax_money"`
	Voided             bool        `json:"voided"`
}

// squareTender is one payment applied to an order
type squareTender struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	TipMoney  squareMoney `json:"tip_money"`
	CreatedAt string      `json:"created_at"`
}

// squareMoney is an integer amount in the currency's smallest unit
type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Decimal converts the money amount from cents to a decimal value
func (m squareMoney) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// parseSquareTime parses the API's RFC3339 timestamps
func parseSquareTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
