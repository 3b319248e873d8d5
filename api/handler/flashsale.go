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
	promotionUC "github.com/fastygo/storefront/usecase/promotion"
)

type flashSaleEntry = *aggregate.Entry[*domain.FlashSaleItem]

type FlashSaleHandler struct {
	baseHandler
	uc *promotionUC.UseCase
}

func NewFlashSaleHandler(uc *promotionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *FlashSaleHandler {
	return &FlashSaleHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create flash sale item
// @Tags flash-sale
// @Router /api/v1/flash-sale-items [post]
func (h *FlashSaleHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.CreateFlashSaleItemRequest
	if !h.decode(ctx, &req) {
		return
	}
	input, err := flashSaleInput(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entry, err := h.uc.Create(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewFlashSaleItemView(entry.Aggregate, entry.Version))
}

// @Summary Get flash sale item
// @Tags flash-sale
// @Router /api/v1/flash-sale-items/{id} [get]
func (h *FlashSaleHandler) Get(ctx *fasthttp.RequestCtx) {
	handleEntry(h.baseHandler, ctx, transport.NewFlashSaleItemView, h.uc.Get)
}

// @Summary List items of a sale
// @Tags flash-sale
// @Router /api/v1/flash-sale-items [get]
func (h *FlashSaleHandler) List(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)
	saleID := string(ctx.QueryArgs().Peek("sale_id"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.ListBySale(stdCtx, saleID, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, transport.MapViews(items, transport.NewFlashSaleItemView), len(items), limit, offset)
}

// @Summary Record a sale
// @Tags flash-sale
// @Router /api/v1/flash-sale-items/{id}/sales [post]
func (h *FlashSaleHandler) RecordSale(ctx *fasthttp.RequestCtx) {
	var req transport.RecordSaleRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewFlashSaleItemView, func(stdCtx context.Context, id string) (flashSaleEntry, error) {
		return h.uc.RecordSale(stdCtx, id, req.Quantity)
	})
}

// @Summary Change sale price
// @Tags flash-sale
// @Router /api/v1/flash-sale-items/{id}/price [post]
func (h *FlashSaleHandler) ChangePrice(ctx *fasthttp.RequestCtx) {
	var req transport.ChangePriceRequest
	if !h.decode(ctx, &req) {
		return
	}
	price, err := req.Price.Money()
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewFlashSaleItemView, func(stdCtx context.Context, id string) (flashSaleEntry, error) {
		return h.uc.ChangePrice(stdCtx, id, price)
	})
}

// @Summary Update stock and per-customer limits
// @Tags flash-sale
// @Router /api/v1/flash-sale-items/{id}/stock-limit [post]
func (h *FlashSaleHandler) UpdateLimits(ctx *fasthttp.RequestCtx) {
	var req transport.StockLimitRequest
	if !h.decode(ctx, &req) {
		return
	}
	handleEntry(h.baseHandler, ctx, transport.NewFlashSaleItemView, func(stdCtx context.Context, id string) (flashSaleEntry, error) {
		return h.uc.UpdateLimits(stdCtx, id, req.StockLimit, req.PerCustomerLimit)
	})
}

// @Summary Delete flash sale item
// @Tags flash-sale
// @Router /api/v1/flash-sale-items/{id} [delete]
func (h *FlashSaleHandler) Delete(ctx *fasthttp.RequestCtx) {
	remove(h.baseHandler, ctx, h.uc.Delete)
}

func flashSaleInput(req transport.CreateFlashSaleItemRequest) (promotionUC.CreateInput, error) {
	salePrice, err := req.SalePrice.Money()
	if err != nil {
		return promotionUC.CreateInput{}, err
	}
	var original *domain.Money
	if req.OriginalPrice != nil {
		m, err := req.OriginalPrice.Money()
		if err != nil {
			return promotionUC.CreateInput{}, err
		}
		original = &m
	}
	window, err := domain.NewSaleWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		return promotionUC.CreateInput{}, err
	}
	return promotionUC.CreateInput{
		SaleID:           req.SaleID,
		ProductID:        req.ProductID,
		SalePrice:        salePrice,
		OriginalPrice:    original,
		StockLimit:       req.StockLimit,
		PerCustomerLimit: req.PerCustomerLimit,
		Window:           window,
	}, nil
}
