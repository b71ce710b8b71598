package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kistrader_ticks_total", Help: "Control loop ticks by phase"},
		[]string{"phase"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kistrader_orders_total", Help: "Orders submitted by side and outcome"},
		[]string{"side", "outcome"},
	)
	SignalChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kistrader_signal_checks_total", Help: "Breakout evaluations by result"},
		[]string{"result"},
	)
	BalanceAuditsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "kistrader_balance_audits_total", Help: "Holdings refreshes reported to the operator"},
	)
)

// Signal check results.
const (
	ResultBuy    = "buy"
	ResultHold   = "hold"
	ResultNoData = "no_data"
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, SignalChecksTotal, BalanceAuditsTotal)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
