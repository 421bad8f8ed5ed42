package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeGate/internal/domain"
)

// Recorder implements ports.Metrics with Prometheus counters.
type Recorder struct {
	decisions    *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	degradations *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// NewRecorder creates the counters and registers them on reg.
// A nil reg uses a fresh registry, which keeps tests independent.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_gate_decisions_total",
				Help: "Risk gate decisions by reason code",
			},
			[]string{"reason"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_attempts_total",
				Help: "Dispatched order attempts by classified result",
			},
			[]string{"symbol", "mode", "result"},
		),
		degradations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_normalization_degraded_total",
				Help: "Orders sent without usable asset metadata",
			},
			[]string{"symbol", "reason"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_operator_alerts_total",
				Help: "Attempts whose venue state is unknown and need operator review",
			},
			[]string{"kind"},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{r.decisions, r.attempts, r.degradations, r.alerts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveDecision counts a gate decision.
func (r *Recorder) ObserveDecision(reason domain.ReasonCode) {
	r.decisions.WithLabelValues(string(reason)).Inc()
}

// ObserveResult counts a classified attempt.
func (r *Recorder) ObserveResult(symbol string, mode domain.ExecutionMode, kind domain.ResultKind) {
	r.attempts.WithLabelValues(symbol, string(mode), string(kind)).Inc()
}

// ObserveDegradation counts an order normalized without metadata.
func (r *Recorder) ObserveDegradation(symbol string, reason string) {
	r.degradations.WithLabelValues(symbol, reason).Inc()
}

// ObserveOperatorAlert counts a transport error or ambiguous reply.
func (r *Recorder) ObserveOperatorAlert(kind domain.ResultKind) {
	r.alerts.WithLabelValues(string(kind)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
