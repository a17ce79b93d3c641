package metrics

import (
	"net/http"
	"strconv"
	"time"

	"momentum-backtest/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backtest collectors on a private registry. It implements
// backtest.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RunMonths     prometheus.Histogram
	StepsTotal    prometheus.Counter
	StepDuration  prometheus.Histogram
	FallbackTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of finished backtest runs by outcome.",
		}, []string{"outcome"}),
		RunMonths: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_months",
			Help:    "Rebalance dates simulated per run.",
			Buckets: prometheus.ExponentialBuckets(12, 2, 6),
		}),
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_steps_total",
			Help: "Total number of rebalance dates simulated.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_step_duration_seconds",
			Help:    "Time to simulate one rebalance date in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		FallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volatility_fallbacks_total",
			Help: "Total number of volatility forecasts served by a fallback.",
		}, []string{"estimator"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.RunsTotal, m.RunMonths, m.StepsTotal, m.StepDuration, m.FallbackTotal,
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) StepObserved(_ string, d time.Duration) {
	m.StepsTotal.Inc()
	m.StepDuration.Observe(d.Seconds())
}

func (m *Metrics) FallbackObserved(_ string, est model.Estimator) {
	m.FallbackTotal.WithLabelValues(string(est)).Inc()
}

func (m *Metrics) RunFinished(_ string, months int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if err == nil {
		m.RunMonths.Observe(float64(months))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
