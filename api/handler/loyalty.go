package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/api/transport"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/usecase/aggregate"
	loyaltyUC "github.com/fastygo/storefront/usecase/loyalty"
)

type loyaltyEntry = *aggregate.Entry[*domain.LoyaltyAccount]

type LoyaltyHandler struct {
	baseHandler
	uc *loyaltyUC.UseCase
}

func NewLoyaltyHandler(uc *loyaltyUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Open loyalty account
// @Tags loyalty
// @Router /api/v1/loyalty-accounts [post]
func (h *LoyaltyHandler) Open(ctx *fasthttp.RequestCtx) {
	var req transport.OpenLoyaltyAccountRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entry, err := h.uc.Open(stdCtx, req.CustomerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewLoyaltyAccountView(entry.Aggregate, entry.Version))
}

// @Summary Get loyalty account
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id} [get]
func (h *LoyaltyHandler) Get(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewLoyaltyAccountView, h.uc.Get)
}

// @Summary Find a customer's loyalty account
// @Tags loyalty
// @Router /api/v1/loyalty-accounts [get]
func (h *LoyaltyHandler) FindByCustomer(ctx *fasthttp.RequestCtx) {
	customerID := string(ctx.QueryArgs().Peek("customer_id"))
	if customerID == "" {
		h.respondError(ctx, domain.Invalid("customer_id", "customer_id query parameter is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	account, err := h.uc.GetByCustomer(stdCtx, customerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewLoyaltyAccountView(account, 0))
}

// @Summary Add points
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id}/add [post]
func (h *LoyaltyHandler) AddPoints(ctx *fasthttp.RequestCtx) {
	var req transport.PointsRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewLoyaltyAccountView, func(stdCtx context.Context, id string) (loyaltyEntry, error) {
		return h.uc.AddPoints(stdCtx, id, req.Points, req.Reason)
	})
}

// @Summary Deduct points
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id}/deduct [post]
func (h *LoyaltyHandler) DeductPoints(ctx *fasthttp.RequestCtx) {
	var req transport.PointsRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewLoyaltyAccountView, func(stdCtx context.Context, id string) (loyaltyEntry, error) {
		return h.uc.DeductPoints(stdCtx, id, req.Points, req.Reason)
	})
}

// @Summary Assign tier
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id}/tier [post]
func (h *LoyaltyHandler) AssignTier(ctx *fasthttp.RequestCtx) {
	var req transport.AssignTierRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewLoyaltyAccountView, func(stdCtx context.Context, id string) (loyaltyEntry, error) {
		return h.uc.AssignTier(stdCtx, id, req.TierID, req.ExpiresAt)
	})
}

// @Summary Clear tier
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id}/tier [delete]
func (h *LoyaltyHandler) ClearTier(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewLoyaltyAccountView, h.uc.ClearTier)
}

// @Summary Delete loyalty account
// @Tags loyalty
// @Router /api/v1/loyalty-accounts/{id} [delete]
func (h *LoyaltyHandler) Delete(ctx *fasthttp.RequestCtx) {
	remove(h.baseHandler, ctx, h.uc.Delete)
}
