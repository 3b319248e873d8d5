package router

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/storefront/api/handler"
	"github.com/fastygo/storefront/internal/infrastructure/monitor"
	"github.com/fastygo/storefront/repository/memory"
	"github.com/fastygo/storefront/usecase/aggregate"
	loyaltyUC "github.com/fastygo/storefront/usecase/loyalty"
	paymentUC "github.com/fastygo/storefront/usecase/payment"
	promotionUC "github.com/fastygo/storefront/usecase/promotion"
	subscriptionUC "github.com/fastygo/storefront/usecase/subscription"
)

func newRouter(t *testing.T) fasthttp.RequestHandler {
	t.Helper()
	store := memory.NewAggregateStore()
	mon := monitor.New(nil, time.Minute, nil)

	handlers := Handlers{
		Payment:   apiHandler.NewPaymentHandler(paymentUC.New(aggregate.NewRepository(store, paymentUC.Codec(), nil), nil), nil, nil),
		FlashSale: apiHandler.NewFlashSaleHandler(promotionUC.New(aggregate.NewRepository(store, promotionUC.Codec(), nil), 1, nil), nil, nil),
		Loyalty:   apiHandler.NewLoyaltyHandler(loyaltyUC.New(aggregate.NewRepository(store, loyaltyUC.Codec(), nil), 1, nil), nil, nil),
		Subscription: apiHandler.NewSubscriptionHandler(
			subscriptionUC.New(aggregate.NewRepository(store, subscriptionUC.Codec(), nil), subscriptionUC.NewStaticCatalog(), nil), nil, nil),
		Health:  apiHandler.NewHealthHandler(mon, nil, nil),
		Metrics: func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(http.StatusOK) },
	}
	deny := func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(http.StatusUnauthorized) }
	}
	return New(handlers, deny, "").Handler
}

func serve(handler fasthttp.RequestHandler, method, uri string) int {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	handler(ctx)
	return ctx.Response.StatusCode()
}

func TestRouter_ReadsArePublic(t *testing.T) {
	h := newRouter(t)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics"))
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/plans"))
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/payments/unknown"))
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/subscriptions/unknown"))
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/api/v1/payments"))
}

func TestRouter_MutationsRequireAuth(t *testing.T) {
	h := newRouter(t)

	routes := []struct{ method, uri string }{
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/payments/p-1/partial-refund"},
		{http.MethodDelete, "/api/v1/payments/p-1"},
		{http.MethodPost, "/api/v1/flash-sale-items/f-1/sales"},
		{http.MethodPost, "/api/v1/loyalty-accounts/l-1/deduct"},
		{http.MethodDelete, "/api/v1/loyalty-accounts/l-1/tier"},
		{http.MethodPost, "/api/v1/subscriptions/s-1/auto-renew"},
		{http.MethodPost, "/api/v1/subscriptions/s-1/expire"},
	}
	for _, route := range routes {
		assert.Equal(t, http.StatusUnauthorized, serve(h, route.method, route.uri), route.uri)
	}
}

func TestRouter_HealthBeforeFirstCheck(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, serve(newRouter(t), http.MethodGet, "/health"))
}
