package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/storefront/api/handler"
)

type Handlers struct {
	Payment      *apiHandler.PaymentHandler
	FlashSale    *apiHandler.FlashSaleHandler
	Loyalty      *apiHandler.LoyaltyHandler
	Subscription *apiHandler.SubscriptionHandler
	Health       *apiHandler.HealthHandler
	// Metrics serves the Prometheus scrape endpoint; nil disables it.
	Metrics fasthttp.RequestHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// New registers every route. Reads are public, mutations pass through auth.
func New(handlers Handlers, auth Middleware, metricsPath string) *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, handlers.Metrics)
	}

	api := r.Group("/api/v1")

	p := handlers.Payment
	api.GET("/payments", p.List)
	api.POST("/payments", auth(p.Create))
	api.GET("/payments/{id}", p.Get)
	api.GET("/payments/{id}/events", p.Events)
	api.POST("/payments/{id}/process", auth(p.Process))
	api.POST("/payments/{id}/complete", auth(p.Complete))
	api.POST("/payments/{id}/fail", auth(p.Fail))
	api.POST("/payments/{id}/cancel", auth(p.Cancel))
	api.POST("/payments/{id}/refund", auth(p.Refund))
	api.POST("/payments/{id}/partial-refund", auth(p.PartialRefund))
	api.POST("/payments/{id}/metadata", auth(p.UpdateDetails))
	api.DELETE("/payments/{id}", auth(p.Delete))

	f := handlers.FlashSale
	api.GET("/flash-sale-items", f.List)
	api.POST("/flash-sale-items", auth(f.Create))
	api.GET("/flash-sale-items/{id}", f.Get)
	api.POST("/flash-sale-items/{id}/sales", auth(f.RecordSale))
	api.POST("/flash-sale-items/{id}/price", auth(f.ChangePrice))
	api.POST("/flash-sale-items/{id}/stock-limit", auth(f.UpdateLimits))
	api.DELETE("/flash-sale-items/{id}", auth(f.Delete))

	l := handlers.Loyalty
	api.GET("/loyalty-accounts", l.FindByCustomer)
	api.POST("/loyalty-accounts", auth(l.Open))
	api.GET("/loyalty-accounts/{id}", l.Get)
	api.POST("/loyalty-accounts/{id}/add", auth(l.AddPoints))
	api.POST("/loyalty-accounts/{id}/deduct", auth(l.DeductPoints))
	api.POST("/loyalty-accounts/{id}/tier", auth(l.AssignTier))
	api.DELETE("/loyalty-accounts/{id}/tier", auth(l.ClearTier))
	api.DELETE("/loyalty-accounts/{id}", auth(l.Delete))

	s := handlers.Subscription
	api.GET("/plans", s.Plans)
	api.GET("/subscriptions", s.List)
	api.POST("/subscriptions", auth(s.Create))
	api.GET("/subscriptions/{id}", s.Get)
	api.POST("/subscriptions/{id}/renew", auth(s.Renew))
	api.POST("/subscriptions/{id}/convert", auth(s.ConvertTrial))
	api.POST("/subscriptions/{id}/suspend", auth(s.Suspend))
	api.POST("/subscriptions/{id}/activate", auth(s.Activate))
	api.POST("/subscriptions/{id}/cancel", auth(s.Cancel))
	api.POST("/subscriptions/{id}/auto-renew", auth(s.SetAutoRenew))
	api.POST("/subscriptions/{id}/expire", auth(s.Expire))
	api.DELETE("/subscriptions/{id}", auth(s.Delete))

	return r
}
