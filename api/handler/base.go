package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/api/transport"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	appLogger "github.com/fastygo/storefront/pkg/logger"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase/aggregate"
)

const defaultPageSize = 50

// codeConcurrentModification lets clients tell a lost race, which is worth
// retrying, from a transition that will never succeed.
const codeConcurrentModification = "CONCURRENT_MODIFICATION"

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data))
}

func (h baseHandler) respondList(ctx *fasthttp.RequestCtx, data interface{}, count, limit, offset int) {
	h.respondJSON(ctx, http.StatusOK, transport.NewList(data, transport.PageMeta{Limit: limit, Offset: offset, Count: count}))
}

func (h baseHandler) respondNoContent(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(http.StatusNoContent)
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	var verr *transport.ValidationError
	if errors.As(err, &verr) {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewValidationError(string(domain.ErrCodeInvalid), verr))
		return
	}

	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", string(ctx.Path())),
			zap.String("request_id", string(ctx.Response.Header.Peek("X-Request-ID"))),
			zap.Error(err))
		h.respondJSON(ctx, status, transport.NewError(code, "internal error", nil))
		return
	}

	var field string
	var derr *domain.Error
	if errors.As(err, &derr) {
		field = derr.Field
	}
	h.respondJSON(ctx, status, transport.NewFieldError(code, err.Error(), field))
}

// decode reads and validates the request body. It writes the error response
// itself and reports whether the handler may continue.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst any) bool {
	if err := transport.Decode(ctx.PostBody(), dst); err != nil {
		h.respondError(ctx, err)
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be omitted.
func (h baseHandler) decodeOptional(ctx *fasthttp.RequestCtx, dst any) bool {
	if len(ctx.PostBody()) == 0 {
		return true
	}
	return h.decode(ctx, dst)
}

func (h baseHandler) idParam(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing id", nil))
		return "", false
	}
	return id, true
}

func (h baseHandler) logWith(stdCtx context.Context) *zap.Logger {
	logger := appLogger.WithRequestID(stdCtx, h.logger)
	if actor := httpcontext.ActorID(stdCtx); actor != "" {
		logger = logger.With(zap.String("actor_id", actor))
	}
	return logger
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeInvariant):
		return http.StatusUnprocessableEntity, string(domain.ErrCodeInvariant)
	case domain.IsDomainError(err, domain.ErrCodeInvalidTransition):
		return http.StatusConflict, string(domain.ErrCodeInvalidTransition)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, codeConcurrentModification
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}

func pagination(ctx *fasthttp.RequestCtx) (limit, offset int) {
	limit = parseInt(string(ctx.QueryArgs().Peek("limit")), defaultPageSize)
	offset = parseInt(string(ctx.QueryArgs().Peek("offset")), 0)
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = repository.PageLimit(limit)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

// handleEntry runs fn against the aggregate named by the {id} path parameter
// and responds with its view at the returned version.
func handleEntry[T domain.Aggregate, V any](h baseHandler, ctx *fasthttp.RequestCtx, view func(T, int64) V, fn func(context.Context, string) (*aggregate.Entry[T], error)) {
	id, ok := h.idParam(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entry, err := fn(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view(entry.Aggregate, entry.Version))
}

// remove soft-deletes the aggregate named by the {id} path parameter.
func remove(h baseHandler, ctx *fasthttp.RequestCtx, fn func(context.Context, string) error) {
	id, ok := h.idParam(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := fn(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondNoContent(ctx)
}
