package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	reg *prometheus.Registry

	requests   *prometheus.CounterVec   // action, code
	duration   *prometheus.HistogramVec // action
	credit     *prometheus.CounterVec   // action
	poolPicks  *prometheus.CounterVec   // result: hit/empty/error
	searchVids prometheus.Histogram
}

// 每个 Server 一个 registry，测试里重复 NewServer 不会重复注册
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dy_api_requests_total",
			Help: "API requests by action and HTTP status.",
		}, []string{"action", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dy_api_action_duration_seconds",
			Help:    "Time spent handling an API action.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		}, []string{"action"}),
		credit: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dy_api_credit_consumed_total",
			Help: "Credit consumed by action.",
		}, []string{"action"}),
		poolPicks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dy_cookie_pool_picks_total",
			Help: "Cookie pool picks by result.",
		}, []string{"result"}),
		searchVids: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dy_search_videos",
			Help:    "Videos returned per search.",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *metrics) observe(action string, code int, start time.Time) {
	m.requests.WithLabelValues(action, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// statusRecorder 记下 handler 写出的状态码
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
