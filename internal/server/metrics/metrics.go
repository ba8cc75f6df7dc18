// Package metrics counts auth operation outcomes and exposes them in the
// Prometheus text format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpForgotPassword = "forgot_password"
	OpResetPassword  = "reset_password"
	OpAvatarUpload   = "avatar_upload"
)

// Recorder receives one call per finished operation.
type Recorder interface {
	Record(op string, err error, elapsed time.Duration)
}

// Outcome maps an operation error onto a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorConflict):
		return "conflict"
	case errors.Is(err, common.ErrorUnauthorized):
		return "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrorBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}

type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheus registers the auth collectors plus Go runtime and process
// collectors on a private registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()

	p := &Prometheus{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authkeeper",
			Name:      "operations_total",
			Help:      "Auth operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authkeeper",
			Name:      "operation_duration_seconds",
			Help:      "Auth operation latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
	}

	reg.MustRegister(
		p.operations,
		p.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Record(op string, err error, elapsed time.Duration) {
	p.operations.WithLabelValues(op, Outcome(err)).Inc()
	p.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) Record(string, error, time.Duration) {}
