package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

var _ ports.Metrics = (*Recorder)(nil)

// counterValue returns the value of the series of family name whose labels match.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveDecision(domain.ReasonOK)
	r.ObserveDecision(domain.ReasonCooldownActive)
	r.ObserveDecision(domain.ReasonCooldownActive)
	r.ObserveResult("ETH", domain.ModeLive, domain.KindTransportError)
	r.ObserveResult("ETH", domain.ModeSimulated, domain.KindFilled)
	r.ObserveDegradation("ETH", "asset_spec_missing")
	r.ObserveOperatorAlert(domain.KindAmbiguous)

	assert.Equal(t, 2.0, counterValue(t, reg, "tradegate_gate_decisions_total", map[string]string{"reason": "COOLDOWN_ACTIVE"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tradegate_gate_decisions_total", map[string]string{"reason": "OK"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tradegate_attempts_total", map[string]string{"mode": "LIVE", "result": "TRANSPORT_ERROR"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tradegate_normalization_degraded_total", map[string]string{"reason": "asset_spec_missing"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tradegate_operator_alerts_total", map[string]string{"kind": "AMBIGUOUS"}))
}

func TestRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestRecorderHandler(t *testing.T) {
	r, err := NewRecorder(nil)
	require.NoError(t, err)
	r.ObserveOperatorAlert(domain.KindTransportError)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tradegate_operator_alerts_total{kind="TRANSPORT_ERROR"} 1`)
}
