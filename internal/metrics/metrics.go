package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "code"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Total number of rejected calculations by offending field",
		},
		[]string{"field"},
	)

	calculationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_calculation_duration_seconds",
			Help:    "Latency of sizing calculations",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"endpoint"},
	)

	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_warnings_total",
			Help: "Total number of assessment warnings by code",
		},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(calculationDuration)
	prometheus.MustRegister(warningsTotal)
}

// Handler 返回 Prometheus 指标接口。
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentHandler 为处理器统计按状态码划分的请求数。
func InstrumentHandler(endpoint string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		requestsTotal.MustCurryWith(prometheus.Labels{"endpoint": endpoint}),
		h,
	)
}

// RecordRejection 记录一次输入校验失败。
func RecordRejection(field string) {
	if field == "" {
		field = "unknown"
	}
	rejectionsTotal.WithLabelValues(field).Inc()
}

// ObserveCalculation 记录计算耗时。
func ObserveCalculation(endpoint string, started time.Time) {
	calculationDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

// RecordWarning 记录评估提示。
func RecordWarning(code string) {
	warningsTotal.WithLabelValues(code).Inc()
}
