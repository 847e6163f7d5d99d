package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests        *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	baseFeeGwei     prometheus.Gauge
	currentBaseGwei prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feesuggest",
			Name:      "suggestions_total",
			Help:      "Fee suggestions computed, by operation and result.",
		}, []string{"op", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feesuggest",
			Name:      "fee_history_fetch_seconds",
			Help:      "Latency of eth_feeHistory fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"window"}),
		baseFeeGwei: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "feesuggest",
			Name:      "base_fee_suggestion_gwei",
			Help:      "Most recent max base fee suggestion.",
		}),
		currentBaseGwei: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "feesuggest",
			Name:      "current_base_fee_gwei",
			Help:      "Pending block base fee seen by the most recent suggestion.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.fetchDuration, m.baseFeeGwei, m.currentBaseGwei} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
