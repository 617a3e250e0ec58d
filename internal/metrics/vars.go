package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RPCLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lp_rpc_latency_seconds",
		Help:    "Latency of eth_call requests by contract method",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	RPCErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lp_rpc_errors_total",
		Help: "Failed eth_call requests by contract method",
	}, []string{"method"})

	PriceFeedLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lp_pricefeed_latency_seconds",
		Help:    "Time to fetch USD quotes",
		Buckets: prometheus.DefBuckets,
	})

	PriceFeedErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lp_pricefeed_errors_total",
		Help: "Price feed failures by kind (network, http, decode)",
	}, []string{"kind"})

	AssetUSD = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lp_asset_usd",
		Help: "Last fetched USD price per asset id",
	}, []string{"asset"})

	Ratio = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lp_pool_ratio",
		Help: "Last observed pool price ratio (quote per base)",
	}, []string{"pair"})

	Alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lp_alerts_total",
		Help: "Threshold alerts by direction and delivery outcome",
	}, []string{"direction", "outcome"})

	LastCheck = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lp_last_check_timestamp_seconds",
		Help: "Unix time of the last completed ratio check",
	})
)

func init() {
	prometheus.MustRegister(
		RPCLatency,
		RPCErrors,
		PriceFeedLatency,
		PriceFeedErrors,
		AssetUSD,
		Ratio,
		Alerts,
		LastCheck,
	)
}
