// Package metrics exposes the engine's operational counters and gauges in
// Prometheus format. Collection always runs; the HTTP listener only starts
// when an address is configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcabot_buy_total",
			Help: "Total number of executed buys",
		},
		[]string{"instrument"},
	)

	sellTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcabot_sell_total",
			Help: "Total number of executed sells",
		},
		[]string{"instrument"},
	)

	skipTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcabot_skip_total",
			Help: "Total number of skipped steps by reason",
		},
		[]string{"instrument", "reason"},
	)

	tickTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dcabot_tick_total",
			Help: "Total number of completed monitoring ticks",
		},
	)

	remainingBudget = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcabot_remaining_budget_krw",
			Help: "Unspent portion of the investment pool in KRW",
		},
	)

	nextBuyPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcabot_next_buy_price",
			Help: "Current drop-trigger threshold per instrument",
		},
		[]string{"instrument"},
	)

	unrealizedPct = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcabot_unrealized_pct",
			Help: "Unrealized profit/loss percentage per instrument",
		},
		[]string{"instrument"},
	)
)

func RecordBuy(instrument string)  { buyTotal.WithLabelValues(instrument).Inc() }
func RecordSell(instrument string) { sellTotal.WithLabelValues(instrument).Inc() }
func RecordSkip(instrument, reason string) {
	skipTotal.WithLabelValues(instrument, reason).Inc()
}
func RecordTick()                       { tickTotal.Inc() }
func SetRemainingBudget(krw float64)    { remainingBudget.Set(krw) }
func SetNextBuyPrice(inst string, p float64) {
	nextBuyPrice.WithLabelValues(inst).Set(p)
}
func SetUnrealizedPct(inst string, pct float64) {
	unrealizedPct.WithLabelValues(inst).Set(pct)
}

// Serve starts the /metrics listener. It blocks, so callers run it in its
// own goroutine; errors surface on the returned channel.
func Serve(addr string) <-chan error {
	errc := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		errc <- srv.ListenAndServe()
	}()
	return errc
}
