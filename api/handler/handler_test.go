package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/monitor"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/repository/memory"
	"github.com/fastygo/storefront/usecase/aggregate"
	loyaltyUC "github.com/fastygo/storefront/usecase/loyalty"
	paymentUC "github.com/fastygo/storefront/usecase/payment"
	promotionUC "github.com/fastygo/storefront/usecase/promotion"
	subscriptionUC "github.com/fastygo/storefront/usecase/subscription"
)

type envelope struct {
	Status string                 `json:"status"`
	Code   string                 `json:"code"`
	Data   json.RawMessage        `json:"data"`
	Error  string                 `json:"error"`
	Meta   map[string]interface{} `json:"meta"`
}

func call(t *testing.T, handler fasthttp.RequestHandler, id, body string) (int, envelope) {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	if id != "" {
		ctx.SetUserValue("id", id)
	}
	handler(ctx)

	var env envelope
	if raw := ctx.Response.Body(); len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return ctx.Response.StatusCode(), env
}

func dataField(t *testing.T, env envelope, field string) interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data[field]
}

func adapter() *httpcontext.Adapter {
	return httpcontext.NewAdapter(time.Second)
}

func newPaymentHandler() *PaymentHandler {
	repo := aggregate.NewRepository(memory.NewAggregateStore(), paymentUC.Codec(), nil)
	return NewPaymentHandler(paymentUC.New(repo, nil), adapter(), nil)
}

func TestPaymentHandler_Lifecycle(t *testing.T) {
	h := newPaymentHandler()

	status, env := call(t, h.Create, "", `{"order_id":"order-1","method":"card","provider":"stripe","amount":{"amount":"150.00","currency":"USD"}}`)
	require.Equal(t, http.StatusCreated, status, env.Error)
	id := dataField(t, env, "id").(string)
	assert.Equal(t, "pending", dataField(t, env, "status"))
	assert.EqualValues(t, 1, dataField(t, env, "version"))

	status, _ = call(t, h.Process, id, "")
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h.Complete, id, `{"transaction_id":"tx-1","reference":"inv-1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", dataField(t, env, "status"))

	status, env = call(t, h.Complete, id, `{"transaction_id":"tx-2","reference":"inv-2"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(domain.ErrCodeInvalidTransition), env.Code)

	status, env = call(t, h.PartialRefund, id, `{"amount":{"amount":"10.00","currency":"EUR"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(domain.ErrCodeInvalid), env.Code)

	status, env = call(t, h.PartialRefund, id, `{"amount":{"amount":"40.00","currency":"USD"}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "partially_refunded", dataField(t, env, "status"))
	remaining := dataField(t, env, "remaining_refundable").(map[string]interface{})
	assert.Equal(t, "110.00", remaining["amount"])

	status, env = call(t, h.Events, id, "")
	require.Equal(t, http.StatusOK, status)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 4)

	status, env = call(t, h.Delete, id, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(domain.ErrCodeInvariant), env.Code)

	status, _ = call(t, h.Refund, id, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, h.Delete, id, "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestPaymentHandler_CompleteWithoutReference(t *testing.T) {
	h := newPaymentHandler()
	status, env := call(t, h.Create, "", `{"order_id":"order-1","method":"card","provider":"stripe","amount":{"amount":"20.00","currency":"USD"}}`)
	require.Equal(t, http.StatusCreated, status)
	id := dataField(t, env, "id").(string)
	status, _ = call(t, h.Process, id, "")
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h.Complete, id, `{"transaction_id":"tx-1"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, "completed", dataField(t, env, "status"))
	assert.Equal(t, "tx-1", dataField(t, env, "transaction_id"))
}

func TestPaymentHandler_ValidationDetails(t *testing.T) {
	h := newPaymentHandler()

	status, env := call(t, h.Create, "", `{"order_id":"","method":"card","provider":"stripe","amount":{"amount":"abc","currency":"US"}}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(domain.ErrCodeInvalid), env.Code)
	details, ok := env.Meta["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "is required", details["order_id"])
	assert.Equal(t, "must be numeric", details["amount.amount"])
	assert.Equal(t, "must be exactly 3 characters long", details["amount.currency"])

	status, env = call(t, h.Create, "", `{"order_id":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid json", env.Meta["details"].(map[string]interface{})["payload"])

	status, _ = call(t, h.Create, "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPaymentHandler_NotFoundAndMissingID(t *testing.T) {
	h := newPaymentHandler()

	status, env := call(t, h.Get, "missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(domain.ErrCodeNotFound), env.Code)

	status, _ = call(t, h.Process, "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPaymentHandler_ListByOrder(t *testing.T) {
	h := newPaymentHandler()
	for _, order := range []string{"order-1", "order-1", "order-2"} {
		status, _ := call(t, h.Create, "", fmt.Sprintf(`{"order_id":%q,"method":"card","provider":"stripe","amount":{"amount":"5.00","currency":"USD"}}`, order))
		require.Equal(t, http.StatusCreated, status)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/v1/payments?order_id=order-1&limit=10")
	h.List(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var env envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, env.Meta["count"])
	assert.EqualValues(t, 10, env.Meta["limit"])
	assert.EqualValues(t, 0, env.Meta["offset"])
}

func TestPagination_ClampsToStoreLimit(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", defaultPageSize, 0},
		{"limit=20&offset=40", 20, 40},
		{"limit=150", repository.MaxPageSize, 0},
		{"limit=-3&offset=-1", defaultPageSize, 0},
		{"limit=abc", defaultPageSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ctx := &fasthttp.RequestCtx{}
			ctx.Request.SetRequestURI("/api/v1/payments?" + tt.query)
			limit, offset := pagination(ctx)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestFlashSaleHandler_StockCeiling(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t.Cleanup(domain.SetClock(func() time.Time { return now }))

	repo := aggregate.NewRepository(memory.NewAggregateStore(), promotionUC.Codec(), nil)
	h := NewFlashSaleHandler(promotionUC.New(repo, 3, nil), adapter(), nil)

	body := fmt.Sprintf(`{"sale_id":"summer","product_id":"sku-1","sale_price":{"amount":"9.99","currency":"USD"},"stock_limit":5,"starts_at":%q,"ends_at":%q}`,
		now.Add(-time.Hour).Format(time.RFC3339), now.Add(time.Hour).Format(time.RFC3339))
	status, env := call(t, h.Create, "", body)
	require.Equal(t, http.StatusCreated, status, env.Error)
	id := dataField(t, env, "id").(string)
	assert.Equal(t, true, dataField(t, env, "live"))

	status, env = call(t, h.RecordSale, id, `{"quantity":4}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, dataField(t, env, "remaining_stock"))

	status, env = call(t, h.RecordSale, id, `{"quantity":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(domain.ErrCodeInvariant), env.Code)

	status, _ = call(t, h.RecordSale, id, `{"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = call(t, h.RecordSale, id, `{"quantity":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Meta["details"], "quantity")

	status, env = call(t, h.UpdateLimits, id, `{"stock_limit":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status, env.Error)
}

func TestFlashSaleHandler_WindowValidation(t *testing.T) {
	repo := aggregate.NewRepository(memory.NewAggregateStore(), promotionUC.Codec(), nil)
	h := NewFlashSaleHandler(promotionUC.New(repo, 1, nil), adapter(), nil)

	status, env := call(t, h.Create, "", `{"sale_id":"s","product_id":"p","sale_price":{"amount":"1.00","currency":"USD"},"starts_at":"2024-06-02T00:00:00Z","ends_at":"2024-06-01T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, status)
	details := env.Meta["details"].(map[string]interface{})
	assert.Contains(t, details, "ends_at")
}

func TestLoyaltyHandler_Points(t *testing.T) {
	repo := aggregate.NewRepository(memory.NewAggregateStore(), loyaltyUC.Codec(), nil)
	h := NewLoyaltyHandler(loyaltyUC.New(repo, 3, nil), adapter(), nil)

	status, env := call(t, h.Open, "", `{"customer_id":"c-1"}`)
	require.Equal(t, http.StatusCreated, status)
	id := dataField(t, env, "id").(string)

	status, env = call(t, h.AddPoints, id, `{"points":100,"reason":"order"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, dataField(t, env, "balance"))

	status, env = call(t, h.DeductPoints, id, `{"points":150}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(domain.ErrCodeInvariant), env.Code)

	status, env = call(t, h.AssignTier, id, `{"tier_id":"gold"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "gold", dataField(t, env, "tier_id"))

	status, env = call(t, h.ClearTier, id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, dataField(t, env, "tier_id"))

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/v1/loyalty-accounts?customer_id=c-1")
	h.FindByCustomer(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
}

func TestSubscriptionHandler_Flow(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	t.Cleanup(domain.SetClock(func() time.Time { return start }))

	plan, err := domain.NewPlan("basic", "Basic", domain.MustMoney("9.00", "USD"), domain.IntervalMonthly, 0)
	require.NoError(t, err)
	repo := aggregate.NewRepository(memory.NewAggregateStore(), subscriptionUC.Codec(), nil)
	h := NewSubscriptionHandler(subscriptionUC.New(repo, subscriptionUC.NewStaticCatalog(plan), nil), adapter(), nil)

	status, env := call(t, h.Plans, "", "")
	require.Equal(t, http.StatusOK, status)
	var plans []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "basic", plans[0]["id"])

	status, _ = call(t, h.Create, "", `{"customer_id":"c-1","plan_id":"gold"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = call(t, h.Create, "", `{"customer_id":"c-1","plan_id":"basic"}`)
	require.Equal(t, http.StatusCreated, status)
	id := dataField(t, env, "id").(string)
	assert.Equal(t, "active", dataField(t, env, "status"))

	status, env = call(t, h.SetAutoRenew, id, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Meta["details"], "enabled")

	status, env = call(t, h.SetAutoRenew, id, `{"enabled":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, dataField(t, env, "auto_renew"))

	status, _ = call(t, h.Suspend, id, "")
	require.Equal(t, http.StatusOK, status)
	status, env = call(t, h.Renew, id, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(domain.ErrCodeInvalidTransition), env.Code)

	status, env = call(t, h.Cancel, id, `{"reason":"too expensive"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", dataField(t, env, "status"))

	status, _ = call(t, h.Delete, id, "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, h.Get, id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", domain.Invalid("amount", "bad"), http.StatusBadRequest, "INVALID"},
		{"not found", domain.ErrAggregateNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invariant", fmt.Errorf("wrap: %w", domain.ErrStockExceeded), http.StatusUnprocessableEntity, "INVARIANT"},
		{"transition", &domain.TransitionError{Kind: "payment", From: "completed", Op: "process"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"deleted", domain.ErrAggregateDeleted, http.StatusConflict, "INVALID_TRANSITION"},
		{"concurrent", domain.ErrConcurrentModification, http.StatusConflict, codeConcurrentModification},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	h := newBaseHandler(nil, nil)
	ctx := &fasthttp.RequestCtx{}
	h.respondError(ctx, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	assert.NotContains(t, string(ctx.Response.Body()), "connection refused")
}

type fakeStatus struct {
	status monitor.Status
	online bool
}

func (f fakeStatus) GetStatus() monitor.Status { return f.status }
func (f fakeStatus) IsOnline() bool            { return f.online }

func TestHealthHandler_Check(t *testing.T) {
	status := monitor.Status{Services: map[string]bool{"postgres": true}, Outbox: true, OutboxSize: 3, LastCheck: time.Now()}

	code, env := call(t, NewHealthHandler(fakeStatus{status: status, online: true}, nil, nil).Check, "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", env.Status)

	status.Services["postgres"] = false
	code, env = call(t, NewHealthHandler(fakeStatus{status: status}, nil, nil).Check, "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "DEGRADED", env.Code)
}
