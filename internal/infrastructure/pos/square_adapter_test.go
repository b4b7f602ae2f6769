package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posledger/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestSquareConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *SquareConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  &SquareConfig{APIBaseURL: "https://connect.squareup.com", AccessToken: "token"},
			wantErr: false,
		},
		{
			name:    "missing base url",
			config:  &SquareConfig{AccessToken: "token"},
			wantErr: true,
		},
		{
			name:    "missing access token",
			config:  &SquareConfig{APIBaseURL: "https://connect.squareup.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSquareAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter, err := NewSquareAdapter(&SquareConfig{APIBaseURL: "https://example.com", AccessToken: "token"})
		require.NoError(t, err)
		assert.NotNil(t, adapter)
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewSquareAdapter(&SquareConfig{})
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})
}

// ---------------------------------------------------------------------------
// Fetch Tests
// ---------------------------------------------------------------------------

func newSquareTestAdapter(t *testing.T, baseURL string) *SquareAdapter {
	t.Helper()
	adapter, err := NewSquareAdapter(&SquareConfig{
		APIBaseURL:  baseURL,
		AccessToken: "test-token",
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	return adapter
}

func squareFetchRequest(window *possync.SyncWindow) *possync.OrderFetchRequest {
	return &possync.OrderFetchRequest{
		TenantID:       uuid.New(),
		System:         possync.POSSystemSquare,
		ExternalHandle: "LOC123",
		Window:         window,
		PageNo:         1,
		PageSize:       100,
	}
}

func TestSquareAdapter_FetchOrders(t *testing.T) {
	t.Run("successful fetch converts orders", func(t *testing.T) {
		var captured squareSearchOrdersRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/orders/search", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			resp := squareSearchOrdersResponse{
				Orders: []squareOrder{
					{
						ID:        "ord-1",
						CreatedAt: "2024-03-10T14:30:00Z",
						LineItems: []squareLineItem{
							{
								UID:                "li-1",
								Name:               "Latte",
								Quantity:           "2",
								TotalMoney:         squareMoney{Amount: 900, Currency: "USD"},
								TotalDiscountMoney: squareMoney{Amount: 100, Currency: "USD"},
								TotalTaxMoney:      squareMoney{Amount: 72, Currency: "USD"},
							},
							{
								UID:      "li-2",
								Name:     "Voided Muffin",
								Quantity: "1",
								Voided:   true,
							},
						},
						Tenders: []squareTender{
							{
								ID:        "tender-1",
								Status:    "CAPTURED",
								TipMoney:  squareMoney{Amount: 150, Currency: "USD"},
								CreatedAt: "2024-03-10T14:31:00Z",
							},
						},
					},
				},
				HasMore:    true,
				NextPageNo: 2,
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		adapter := newSquareTestAdapter(t, server.URL)
		window, err := possync.NewSyncWindow(
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		)
		require.NoError(t, err)

		resp, err := adapter.FetchOrders(context.Background(), squareFetchRequest(&window))
		require.NoError(t, err)

		assert.Equal(t, "LOC123", captured.LocationID)
		assert.Equal(t, "2024-03-10T00:00:00Z", captured.BeginTime)
		// the end bound sent upstream is exclusive
		assert.Equal(t, "2024-03-13T00:00:00Z", captured.EndTime)

		assert.True(t, resp.HasMore)
		assert.Equal(t, 2, resp.NextPageNo)
		require.Len(t, resp.Orders, 1)

		order := resp.Orders[0]
		assert.Equal(t, "ord-1", order.ExternalID)
		assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), order.PlacedAt)
		require.Len(t, order.Items, 2)
		assert.Equal(t, "Latte", order.Items[0].Name)
		assert.Equal(t, int64(2), order.Items[0].Quantity)
		assert.True(t, order.Items[0].LineTotal.Equal(decimalFromCents(900)))
		assert.True(t, order.Items[0].DiscountAmount.Equal(decimalFromCents(100)))
		assert.True(t, order.Items[1].Voided)
		require.Len(t, order.Payments, 1)
		assert.Equal(t, possync.PaymentStatusCaptured, order.Payments[0].Status)
		assert.True(t, order.Payments[0].TipAmount.Equal(decimalFromCents(150)))
	})

	t.Run("nil window omits time bounds", func(t *testing.T) {
		var captured squareSearchOrdersRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(squareSearchOrdersResponse{})
		}))
		defer server.Close()

		adapter := newSquareTestAdapter(t, server.URL)
		_, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
		require.NoError(t, err)
		assert.Empty(t, captured.BeginTime)
		assert.Empty(t, captured.EndTime)
	})

	t.Run("unparseable quantity keeps the row with zero quantity", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(squareSearchOrdersResponse{
				Orders: []squareOrder{{
					ID:        "ord-bad-qty",
					CreatedAt: "2024-03-10T10:00:00Z",
					LineItems: []squareLineItem{{UID: "li-1", Name: "Mystery", Quantity: "two"}},
				}},
			})
		}))
		defer server.Close()

		adapter := newSquareTestAdapter(t, server.URL)
		resp, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
		require.NoError(t, err)
		require.Len(t, resp.Orders, 1)
		require.Len(t, resp.Orders[0].Items, 1)
		assert.Equal(t, int64(0), resp.Orders[0].Items[0].Quantity)
	})

	t.Run("api error entries fail the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(squareSearchOrdersResponse{
				Errors: []squareError{{Category: "INVALID_REQUEST_ERROR", Code: "BAD_REQUEST", Detail: "bad location"}},
			})
		}))
		defer server.Close()

		adapter := newSquareTestAdapter(t, server.URL)
		_, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
		assert.ErrorIs(t, err, possync.ErrGatewayRequestFailed)
	})
}

func TestSquareAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"rate limited", http.StatusTooManyRequests, possync.ErrGatewayRateLimited},
		{"server error", http.StatusInternalServerError, possync.ErrGatewayUnavailable},
		{"bad gateway", http.StatusBadGateway, possync.ErrGatewayUnavailable},
		{"client error", http.StatusUnauthorized, possync.ErrGatewayRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			adapter := newSquareTestAdapter(t, server.URL)
			_, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unreachable upstream maps to unavailable", func(t *testing.T) {
		adapter := newSquareTestAdapter(t, "http://127.0.0.1:1")
		_, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
		assert.ErrorIs(t, err, possync.ErrGatewayUnavailable)
	})

	t.Run("malformed body maps to request failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		adapter := newSquareTestAdapter(t, server.URL)
		_, err := adapter.FetchOrders(context.Background(), squareFetchRequest(nil))
		assert.ErrorIs(t, err, possync.ErrGatewayRequestFailed)
	})
}

func TestMapSquareTenderStatus(t *testing.T) {
	assert.Equal(t, possync.PaymentStatusCaptured, mapSquareTenderStatus("CAPTURED"))
	assert.Equal(t, possync.PaymentStatusCompleted, mapSquareTenderStatus("COMPLETED"))
	assert.Equal(t, possync.PaymentStatusPending, mapSquareTenderStatus("AUTHORIZED"))
	assert.Equal(t, possync.PaymentStatusVoided, mapSquareTenderStatus("VOIDED"))
	assert.Equal(t, possync.PaymentStatusDenied, mapSquareTenderStatus("FAILED"))
	assert.Equal(t, possync.PaymentStatus("SOMETHING_NEW"), mapSquareTenderStatus("SOMETHING_NEW"))
}
