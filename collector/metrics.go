package collector

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PromMetrics struct {
	CollectionsTotal *prometheus.CounterVec
	RetryQueueDepth  prometheus.Gauge
	AnonymityScore   prometheus.Histogram
}

func InitPromMetrics(port int16) *PromMetrics {
	reg := prometheus.NewRegistry()

	// labels
	var (
		collectionLabels = []string{"circle", "outcome"}
	)

	m := &PromMetrics{
		CollectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tanda_collector_collections_total",
			Help: "The number of collection attempts by circle and outcome",
		}, collectionLabels),
		RetryQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tanda_collector_retry_queue_depth",
			Help: "The current number of pending retry entries",
		}),
		AnonymityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tanda_collector_anonymity_score",
			Help:    "Anonymity scores of completed collections",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}

	reg.MustRegister(m.CollectionsTotal)
	reg.MustRegister(m.RetryQueueDepth)
	reg.MustRegister(m.AnonymityScore)

	// Expose /metrics HTTP endpoint
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), nil))
	}()

	return m
}

func (m *PromMetrics) IncCollections(circle, outcome string) {
	m.CollectionsTotal.WithLabelValues(circle, outcome).Inc()
}

func (m *PromMetrics) SetRetryQueueDepth(depth int) {
	m.RetryQueueDepth.Set(float64(depth))
}

func (m *PromMetrics) ObserveAnonymityScore(score int) {
	m.AnonymityScore.Observe(float64(score))
}
