// Package metrics collects Prometheus metrics for the store and serves
// them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the catalog, card search and checkout code report to.
type Recorder interface {
	RecordProductImport(created bool)
	RecordCardsPlaced(count int)
	RecordCardSearch(provider, outcome string)
	RecordOrderPlaced(total float64)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

var _ Recorder = (*Collector)(nil)

type Collector struct {
	productsImported *prometheus.CounterVec
	cardsPlaced      prometheus.Counter
	cardSearches     *prometheus.CounterVec
	ordersPlaced     prometheus.Counter
	orderRevenue     prometheus.Counter
	httpDuration     *prometheus.HistogramVec
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		productsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_products_imported_total",
			Help: "Import candidates resolved to a product, by result.",
		}, []string{"result"}),
		cardsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_binder_cards_placed_total",
			Help: "Cards placed into binder positions.",
		}),
		cardSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_card_search_requests_total",
			Help: "External card search calls, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_orders_placed_total",
			Help: "Orders created at checkout.",
		}),
		orderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_order_revenue_total",
			Help: "Sum of checkout order totals.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardvault_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.productsImported,
		c.cardsPlaced,
		c.cardSearches,
		c.ordersPlaced,
		c.orderRevenue,
		c.httpDuration,
	)

	return c
}

func (c *Collector) RecordProductImport(created bool) {
	result := "reused"
	if created {
		result = "created"
	}
	c.productsImported.WithLabelValues(result).Inc()
}

func (c *Collector) RecordCardsPlaced(count int) {
	c.cardsPlaced.Add(float64(count))
}

func (c *Collector) RecordCardSearch(provider, outcome string) {
	c.cardSearches.WithLabelValues(provider, outcome).Inc()
}

func (c *Collector) RecordOrderPlaced(total float64) {
	c.ordersPlaced.Inc()
	c.orderRevenue.Add(total)
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Nop discards everything. Used where no registry is wired, mostly tests.
type Nop struct{}

func (Nop) RecordProductImport(bool) {}
func (Nop) RecordCardsPlaced(int) {}
func (Nop) RecordCardSearch(string, string) {}
func (Nop) RecordOrderPlaced(float64) {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
