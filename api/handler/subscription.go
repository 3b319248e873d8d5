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
	subscriptionUC "github.com/fastygo/storefront/usecase/subscription"
)

type subscriptionEntry = *aggregate.Entry[*domain.Subscription]

type SubscriptionHandler struct {
	baseHandler
	uc *subscriptionUC.UseCase
}

func NewSubscriptionHandler(uc *subscriptionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List plans
// @Tags subscriptions
// @Router /api/v1/plans [get]
func (h *SubscriptionHandler) Plans(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	plans, err := h.uc.Plans(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	views := make([]transport.PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, transport.NewPlanView(p))
	}
	h.respondSuccess(ctx, http.StatusOK, views)
}

// @Summary Subscribe to a plan
// @Tags subscriptions
// @Router /api/v1/subscriptions [post]
func (h *SubscriptionHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.CreateSubscriptionRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entry, err := h.uc.Subscribe(stdCtx, subscriptionUC.SubscribeInput{
		CustomerID:    req.CustomerID,
		PlanID:        req.PlanID,
		AutoRenew:     req.AutoRenew,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewSubscriptionView(entry.Aggregate, entry.Version))
}

// @Summary Get subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, h.uc.Get)
}

// @Summary List a customer's subscriptions
// @Tags subscriptions
// @Router /api/v1/subscriptions [get]
func (h *SubscriptionHandler) List(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)
	customerID := string(ctx.QueryArgs().Peek("customer_id"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	subs, err := h.uc.ListByCustomer(stdCtx, customerID, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, transport.MapViews(subs, transport.NewSubscriptionView), len(subs), limit, offset)
}

// @Summary Renew subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/renew [post]
func (h *SubscriptionHandler) Renew(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, h.uc.Renew)
}

// @Summary Convert trial
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/convert [post]
func (h *SubscriptionHandler) ConvertTrial(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, h.uc.ConvertTrial)
}

// @Summary Suspend subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/suspend [post]
func (h *SubscriptionHandler) Suspend(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, h.uc.Suspend)
}

// @Summary Reactivate subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/activate [post]
func (h *SubscriptionHandler) Activate(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, h.uc.Activate)
}

// @Summary Cancel subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(ctx *fasthttp.RequestCtx) {
	var req transport.ReasonRequest
	if !h.decodeOptional(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, func(stdCtx context.Context, id string) (subscriptionEntry, error) {
		return h.uc.Cancel(stdCtx, id, req.Reason)
	})
}

// @Summary Toggle auto-renew
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/auto-renew [post]
func (h *SubscriptionHandler) SetAutoRenew(ctx *fasthttp.RequestCtx) {
	var req transport.AutoRenewRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, func(stdCtx context.Context, id string) (subscriptionEntry, error) {
		return h.uc.SetAutoRenew(stdCtx, id, *req.Enabled)
	})
}

// @Summary Mark subscription expired
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id}/expire [post]
func (h *SubscriptionHandler) Expire(ctx *fasthttp.RequestCtx) {
	var req transport.ExpireSubscriptionRequest
	if !h.decodeOptional(ctx, &req) {
		return
	}
	at := domain.Now()
	if req.At != nil {
		at = *req.At
	}
	handleEntry(h.baseHandler, ctx, transport.NewSubscriptionView, func(stdCtx context.Context, id string) (subscriptionEntry, error) {
		return h.uc.Expire(stdCtx, id, at)
	})
}

// @Summary Delete subscription
// @Tags subscriptions
// @Router /api/v1/subscriptions/{id} [delete]
func (h *SubscriptionHandler) Delete(ctx *fasthttp.RequestCtx) {
	remove(h.baseHandler, ctx, h.uc.Delete)
}
