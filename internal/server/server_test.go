package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parceldeck/broker/internal/order"
	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/parceldeck/broker/pkg/carrier/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *Server
	mock    *mock.Client
	orders  *storage.MemoryOrderStore
	wallets *storage.MemoryWalletStore
}

func newTestEnv(t *testing.T, balance int64) *testEnv {
	t.Helper()

	mockCarrier := mock.New(carrier.KeyGlovo)
	registry := carrier.NewRegistry()
	registry.Register(mockCarrier)

	partners := storage.NewMemoryPartnerStore(carrier.KeyGlovo)
	orders := storage.NewMemoryOrderStore()
	wallets := storage.NewMemoryWalletStore(map[string]int64{"biz-1": balance})
	rules := map[carrier.Key]quote.MarkupRule{
		carrier.KeyGlovo: {Flat: 20000},
	}
	logger := telemetry.NewNopLogger()

	aggregator := quote.NewAggregator(registry, partners, nil, rules, "", logger, nil)
	orchestrator := order.NewOrchestrator(registry, partners, orders, wallets, rules, nil, logger, nil)

	srv := New(Config{Port: 0}, aggregator, orchestrator, orders, wallets, logger, nil)
	return &testEnv{server: srv, mock: mockCarrier, orders: orders, wallets: wallets}
}

func quoteBody() map[string]any {
	location := func(city string) map[string]any {
		return map[string]any{
			"address": "12 Marina Road",
			"city":    city,
			"country": "NG",
			"contact": map[string]any{"name": "Ada", "phone": "+2348011111111"},
		}
	}
	return map[string]any{
		"pickup":   location("Lagos"),
		"delivery": location("Lagos"),
		"item": map[string]any{
			"description": "documents",
			"weight_kg":   1.5,
		},
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 0)
	rec := doJSON(t, env.server.Router(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGetQuotes(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/quotes", quoteBody(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 1)

	q := resp.Quotes[0]
	assert.Equal(t, carrier.KeyGlovo, q.Carrier)
	// 150000 mock cost plus 20000 flat markup.
	assert.Equal(t, int64(170000), q.PriceFinal.Amount)
	assert.Equal(t, "2-3 days", q.EstimatedDelivery)
	assert.Equal(t, carrier.ServiceStandard, q.ServiceLevel)
}

func TestGetQuotesWalletFilter(t *testing.T) {
	env := newTestEnv(t, 100000) // below the 170000 marked-up price

	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/quotes", quoteBody(),
		map[string]string{businessIDHeader: "biz-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Quotes)
}

func TestGetQuotesValidation(t *testing.T) {
	env := newTestEnv(t, 0)

	body := quoteBody()
	delete(body, "pickup")
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/quotes", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t, 500000)

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "glovo", resp.Carrier)
	assert.Equal(t, "pending", resp.Phase)
	assert.Equal(t, int64(170000), resp.Price.Amount)

	balance, err := env.wallets.Balance(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, int64(330000), balance)
}

func TestCreateOrderRequiresBusinessID(t *testing.T) {
	env := newTestEnv(t, 500000)

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/orders", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.mock.Calls("CreateOrder"))
}

func TestCreateOrderInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, 100000)

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, 0, env.mock.Calls("CreateOrder"))
}

func TestCreateOrderUnknownCarrier(t *testing.T) {
	env := newTestEnv(t, 500000)

	body := map[string]any{"carrier": "dhl", "request": quoteBody()}
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t, 500000)
	router := env.server.Router()

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/orders/%s", created.OrderID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got OrderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.OrderID, got.OrderID)
	assert.Equal(t, "confirmed", got.Status)
	assert.Equal(t, "pending", got.Phase)
	// Internal cost breakdown must not leak into the response body.
	assert.NotContains(t, rec.Body.String(), "platform_fee")
	assert.NotContains(t, rec.Body.String(), "provider_cost")
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t, 0)
	rec := doJSON(t, env.server.Router(), http.MethodGet, "/v1/orders/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncOrder(t *testing.T) {
	env := newTestEnv(t, 500000)
	router := env.server.Router()

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// The default mock tracking answer is in_transit.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%s/sync", created.OrderID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got OrderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "in_transit", got.Status)
	assert.Equal(t, "active", got.Phase)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t, 500000)
	router := env.server.Router()

	body := map[string]any{"carrier": "glovo", "request": quoteBody()}
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", body,
		map[string]string{businessIDHeader: "biz-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%s/cancel", created.OrderID),
		CancelOrderDTO{Reason: "customer changed mind"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got OrderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cancelled", got.Status)
	assert.Equal(t, "completed", got.Phase)

	// Cancellation refunds the debited amount in full.
	balance, err := env.wallets.Balance(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500000), balance)
}
