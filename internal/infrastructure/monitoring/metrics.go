package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type PaymentMetrics struct {
	InitiatedTotal *prometheus.CounterVec
	ConfirmedTotal *prometheus.CounterVec
	ExpiredTotal   prometheus.Counter
	InboundTotal   *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collections_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Payments = PaymentMetrics{
		InitiatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collections_engine_payments_initiated_total",
				Help: "Total number of payment requests initiated, by outcome.",
			},
			[]string{"status"},
		),
		ConfirmedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collections_engine_payments_confirmed_total",
				Help: "Total number of payment confirmation attempts, by outcome.",
			},
			[]string{"status"},
		),
		ExpiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collections_engine_payments_expired_total",
				Help: "Total number of pending payments force-expired by the sweeper.",
			},
		),
		InboundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collections_engine_inbound_replies_total",
				Help: "Total number of inbound webhook replies, by resolution.",
			},
			[]string{"resolution"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordInitiation(status string) {
	Payments.InitiatedTotal.WithLabelValues(status).Inc()
}

func RecordConfirmation(status string) {
	Payments.ConfirmedTotal.WithLabelValues(status).Inc()
}

func RecordExpiry(count int) {
	Payments.ExpiredTotal.Add(float64(count))
}

func RecordInboundReply(resolution string) {
	Payments.InboundTotal.WithLabelValues(resolution).Inc()
}
