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
	paymentUC "github.com/fastygo/storefront/usecase/payment"
)

type paymentEntry = *aggregate.Entry[*domain.Payment]

type PaymentHandler struct {
	baseHandler
	uc *paymentUC.UseCase
}

func NewPaymentHandler(uc *paymentUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create payment
// @Tags payments
// @Router /api/v1/payments [post]
func (h *PaymentHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.CreatePaymentRequest
	if !h.decode(ctx, &req) {
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entry, err := h.uc.Create(stdCtx, paymentUC.CreateInput{
		OrderID:  req.OrderID,
		Method:   req.Method,
		Provider: req.Provider,
		Amount:   amount,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewPaymentView(entry.Aggregate, entry.Version))
}

// @Summary Get payment
// @Tags payments
// @Router /api/v1/payments/{id} [get]
func (h *PaymentHandler) Get(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, h.uc.Get)
}

// @Summary List payments of an order
// @Tags payments
// @Router /api/v1/payments [get]
func (h *PaymentHandler) List(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)
	orderID := string(ctx.QueryArgs().Peek("order_id"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payments, err := h.uc.ListByOrder(stdCtx, orderID, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, transport.MapViews(payments, transport.NewPaymentView), len(payments), limit, offset)
}

// @Summary Payment event history
// @Tags payments
// @Router /api/v1/payments/{id}/events [get]
func (h *PaymentHandler) Events(ctx *fasthttp.RequestCtx) {
	id, ok := h.idParam(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	records, err := h.uc.History(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, records)
}

// @Summary Start processing
// @Tags payments
// @Router /api/v1/payments/{id}/process [post]
func (h *PaymentHandler) Process(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, h.uc.Process)
}

// @Summary Complete payment
// @Tags payments
// @Router /api/v1/payments/{id}/complete [post]
func (h *PaymentHandler) Complete(ctx *fasthttp.RequestCtx) {
	var req transport.CompletePaymentRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		return h.uc.Complete(stdCtx, id, req.TransactionID, req.Reference)
	})
}

// @Summary Fail payment
// @Tags payments
// @Router /api/v1/payments/{id}/fail [post]
func (h *PaymentHandler) Fail(ctx *fasthttp.RequestCtx) {
	var req transport.FailPaymentRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		return h.uc.Fail(stdCtx, id, req.Reason)
	})
}

// @Summary Cancel payment
// @Tags payments
// @Router /api/v1/payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(ctx *fasthttp.RequestCtx) {
	var req transport.ReasonRequest
	if !h.decodeOptional(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		entry, err := h.uc.Cancel(stdCtx, id, req.Reason)
		if err == nil {
			h.logWith(stdCtx).Info("payment cancelled", zap.String("payment_id", id))
		}
		return entry, err
	})
}

// @Summary Refund payment in full
// @Tags payments
// @Router /api/v1/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		entry, err := h.uc.Refund(stdCtx, id)
		if err == nil {
			h.logWith(stdCtx).Info("payment refunded", zap.String("payment_id", id))
		}
		return entry, err
	})
}

// @Summary Refund part of a payment
// @Tags payments
// @Router /api/v1/payments/{id}/partial-refund [post]
func (h *PaymentHandler) PartialRefund(ctx *fasthttp.RequestCtx) {
	var req transport.PartialRefundRequest
	if !h.decode(ctx, &req) {
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		entry, err := h.uc.PartiallyRefund(stdCtx, id, amount)
		if err == nil {
			h.logWith(stdCtx).Info("payment partially refunded",
				zap.String("payment_id", id),
				zap.String("amount", amount.String()))
		}
		return entry, err
	})
}

// @Summary Update transaction id, reference or metadata
// @Tags payments
// @Router /api/v1/payments/{id}/metadata [post]
func (h *PaymentHandler) UpdateDetails(ctx *fasthttp.RequestCtx) {
	var req transport.PaymentDetailsRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewPaymentView, func(stdCtx context.Context, id string) (paymentEntry, error) {
		return h.uc.UpdateDetails(stdCtx, id, paymentUC.UpdateDetails{
			TransactionID: req.TransactionID,
			Reference:     req.Reference,
			Metadata:      req.Metadata,
		})
	})
}

// @Summary Delete payment
// @Tags payments
// @Router /api/v1/payments/{id} [delete]
func (h *PaymentHandler) Delete(ctx *fasthttp.RequestCtx) {
	remove(h.baseHandler, ctx, h.uc.Delete)
}
