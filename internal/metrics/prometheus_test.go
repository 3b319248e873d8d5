package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/storefront/domain"
)

func TestCollector_Aggregates(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	c.ObserveSave(domain.KindPayment, "saved", 3*time.Millisecond)
	c.ObserveSave(domain.KindPayment, "conflict", time.Millisecond)
	c.ObserveSave(domain.KindPayment, "saved", time.Millisecond)
	c.ObserveEvents([]domain.EventRecord{
		{AggregateKind: domain.KindPayment, Name: "payment.created"},
		{AggregateKind: domain.KindPayment, Name: "payment.created"},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.aggregateSaves.WithLabelValues(domain.KindPayment, "saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.aggregateSaves.WithLabelValues(domain.KindPayment, "conflict")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues(domain.KindPayment, "payment.created")))
}

func TestCollector_Outbox(t *testing.T) {
	c, err := New("shop")
	require.NoError(t, err)

	c.ObservePublished(3)
	c.ObservePublishFailure()
	c.ObserveDropped()
	c.SetBacklog(7)
	c.ObserveSweep(1, 2, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.outboxPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outboxFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outboxDropped))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.outboxBacklog))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweeps.WithLabelValues("expired")))
}

func TestCollector_HTTP(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	r := router.New()
	r.SaveMatchedRoutePath = true
	r.GET("/api/v1/payments/{id}", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})
	r.GET("/metrics", c.Handler())
	handler := c.Middleware(r.Handler)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/api/v1/payments/pay-1")
	handler(&ctx)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/v1/payments/{id}", "404")))

	var scrape fasthttp.RequestCtx
	scrape.Request.Header.SetMethod(fasthttp.MethodGet)
	scrape.Request.SetRequestURI("/metrics")
	handler(&scrape)
	assert.Equal(t, fasthttp.StatusOK, scrape.Response.StatusCode())
	assert.True(t, strings.Contains(string(scrape.Response.Body()), "storefront_http_requests_total"))
}
