// Package metrics provides Prometheus metrics for the ir-learner daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/ir-learner/internal/control"
	"github.com/sweeney/ir-learner/internal/logic"
)

// Recorder implements control.Observer and exposes the results as
// Prometheus metrics on its own registry.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	decoded     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	detections  prometheus.Counter
	identified  *prometheus.CounterVec
	progress    prometheus.Gauge
	learning    prometheus.Gauge
	committed   prometheus.Gauge
	mqttUp      prometheus.Gauge
	mqttPending prometheus.Gauge
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry uses reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// NewRecorder creates a Recorder and registers its metrics.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{namespace: "irlearner"}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	r.initializeMetrics()
	return r
}

func (r *Recorder) initializeMetrics() {
	auto := promauto.With(r.registry)

	r.decoded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "decoded_events_total",
		Help:      "Decoded IR events received, by protocol",
	}, []string{"protocol"})

	r.rejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rejected_events_total",
		Help:      "Events dropped by the registrar, by reason",
	}, []string{"reason"})

	r.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "outcomes_total",
		Help:      "Registration and replay outcomes",
	}, []string{"outcome"})

	r.detections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "detections_total",
		Help:      "Live recurrences of the learned signal",
	})

	r.identified = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "identified_buttons_total",
		Help:      "Fingerprinted button presses, by table and button",
	}, []string{"table", "button"})

	r.progress = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "registration_progress",
		Help:      "Accepted samples in the registration buffer",
	})

	r.learning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "learning",
		Help:      "1 while in learning mode",
	})

	r.committed = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "signal_committed",
		Help:      "1 once a signal has been learned",
	})

	r.mqttUp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "mqtt_connected",
		Help:      "1 while the broker connection is up",
	})

	r.mqttPending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "mqtt_buffered_messages",
		Help:      "Messages waiting for the broker",
	})
}

// Decoded counts a decoded event.
func (r *Recorder) Decoded(ev logic.DecodedEvent) {
	r.decoded.WithLabelValues(ev.Protocol.String()).Inc()
}

// Rejected counts a registrar rejection.
func (r *Recorder) Rejected(rej logic.Rejection) {
	r.rejected.WithLabelValues(string(rej)).Inc()
}

// Reported counts a controller report.
func (r *Recorder) Reported(rep control.Report) {
	switch rep.Kind {
	case control.KindOutcome:
		r.outcomes.WithLabelValues(string(rep.Outcome)).Inc()
	case control.KindDetected:
		r.detections.Inc()
	case control.KindIdentified:
		r.identified.WithLabelValues(rep.Table, rep.Button).Inc()
	}
}

// SetStatus updates the state gauges.
func (r *Recorder) SetStatus(st control.Status) {
	r.progress.Set(float64(st.Progress))
	r.learning.Set(boolGauge(st.Mode == logic.ModeLearning))
	r.committed.Set(boolGauge(st.Learned.Committed))
}

// SetMQTT updates the broker gauges.
func (r *Recorder) SetMQTT(connected bool, buffered int) {
	r.mqttUp.Set(boolGauge(connected))
	r.mqttPending.Set(float64(buffered))
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
