package metrics

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements ports.PayoutMetrics on its own registry.
type Prometheus struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	otp         *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

var _ ports.PayoutMetrics = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_transitions_total",
				Help: "Payout actions entering each status",
			},
			[]string{"status"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_rejections_total",
				Help: "Payout requests refused before an action was created",
			},
			[]string{"reason"},
		),
		otp: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_verifications_total",
				Help: "OTP verification attempts by result",
			},
			[]string{"result"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_runs_total",
				Help: "Background job runs by job and outcome",
			},
			[]string{"job", "outcome"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"route", "method", "code"},
		),
	}
}

func (p *Prometheus) ObserveTransition(status domain.ActionStatus) {
	p.transitions.WithLabelValues(string(status)).Inc()
}

func (p *Prometheus) ObserveRejection(reason string) {
	p.rejections.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ObserveOTPVerification(result string) {
	p.otp.WithLabelValues(result).Inc()
}

// ObserveJob counts one background job run.
func (p *Prometheus) ObserveJob(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.jobRuns.WithLabelValues(job, outcome).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (p *Prometheus) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	p.httpLatency.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
