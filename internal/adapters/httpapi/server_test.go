package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...ports.Fields) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...ports.Fields) {
}

type mockService struct {
	gotIdentity string
	gotProposal domain.TradeProposal
	gotMode     domain.ExecutionMode
	gotParams   domain.RiskParams
	attempt     *domain.Attempt
	state       domain.TraderRiskState
	err         error
}

func (m *mockService) Evaluate(ctx context.Context, identity string, p domain.TradeProposal) (*domain.Attempt, error) {
	m.gotIdentity, m.gotProposal = identity, p
	return m.attempt, m.err
}

func (m *mockService) Status(ctx context.Context, identity string) (domain.TraderRiskState, error) {
	m.gotIdentity = identity
	return m.state, m.err
}

func (m *mockService) ListStates(ctx context.Context) ([]domain.TraderRiskState, error) {
	return []domain.TraderRiskState{m.state}, m.err
}

func (m *mockService) SetMode(ctx context.Context, identity string, mode domain.ExecutionMode) (domain.TraderRiskState, error) {
	m.gotIdentity, m.gotMode = identity, mode
	return m.state, m.err
}

func (m *mockService) UpdateParams(ctx context.Context, identity string, params domain.RiskParams) (domain.TraderRiskState, error) {
	m.gotIdentity, m.gotParams = identity, params
	return m.state, m.err
}

func newTestServer(t *testing.T, svc Service) http.Handler {
	t.Helper()
	s, err := NewServer(Config{
		Service: svc,
		Logger:  &mockLogger{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("tradegate_attempts_total 0\n"))
		}),
	})
	require.NoError(t, err)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Config{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestEvaluateEndpoint(t *testing.T) {
	order := domain.NormalizedOrder{Symbol: "ETH", Side: domain.Buy, Price: 100, Size: 0.1}
	svc := &mockService{attempt: &domain.Attempt{
		Allowed:    true,
		Reason:     domain.ReasonOK,
		Order:      &order,
		StopLoss:   99,
		TakeProfit: 101,
		Result:     domain.Filled{OrderID: "sim-1", Price: 100, Size: 0.1, PnL: 0.1},
		Record:     &domain.AttemptRecord{ID: "rec-1"},
	}}
	h := newTestServer(t, svc)

	rec := do(t, h, http.MethodPost, "/v1/identities/trader-1/attempts",
		`{"symbol":"ETH","side":"long","balance":1000,"confidence":0.8}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "trader-1", svc.gotIdentity)
	assert.Equal(t, domain.TradeProposal{Symbol: "ETH", Side: domain.Buy, Balance: 1000, Confidence: 0.8}, svc.gotProposal)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["allowed"])
	assert.Equal(t, "rec-1", got["attemptId"])
	result := got["result"].(map[string]interface{})
	assert.Equal(t, "FILLED", result["kind"])
	assert.Equal(t, "sim-1", result["orderId"])
}

func TestEvaluateEndpointDenied(t *testing.T) {
	svc := &mockService{attempt: &domain.Attempt{Allowed: false, Reason: domain.ReasonCooldownActive}}
	h := newTestServer(t, svc)

	rec := do(t, h, http.MethodPost, "/v1/identities/t/attempts", `{"symbol":"ETH","side":"SELL","balance":1000,"confidence":0.8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false,"reason":"COOLDOWN_ACTIVE"}`, rec.Body.String())
}

func TestEvaluateEndpointUnsavedOutcome(t *testing.T) {
	order := domain.NormalizedOrder{Symbol: "ETH", Side: domain.Buy, Price: 100, Size: 0.1}
	svc := &mockService{
		attempt: &domain.Attempt{
			Allowed: true,
			Reason:  domain.ReasonOK,
			Order:   &order,
			Result:  domain.Filled{OrderID: "77", Price: 100, Size: 0.1},
			Record:  &domain.AttemptRecord{ID: "rec-9"},
		},
		err: fmt.Errorf("save state for t: %w", ports.ErrUpdateFailed),
	}
	h := newTestServer(t, svc)

	rec := do(t, h, http.MethodPost, "/v1/identities/t/attempts", `{"symbol":"ETH","side":"BUY","balance":1000,"confidence":0.8}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rec-9", got["attemptId"])
	assert.Contains(t, got["error"], "database update failed")
	result := got["result"].(map[string]interface{})
	assert.Equal(t, "FILLED", result["kind"])
	assert.Equal(t, "77", result["orderId"])
}

func TestEvaluateEndpointBadInput(t *testing.T) {
	h := newTestServer(t, &mockService{})

	rec := do(t, h, http.MethodPost, "/v1/identities/t/attempts", `{"symbol":"ETH","side":"HOLD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/identities/t/attempts", `{"symbol":"ETH","side":"BUY","leverage":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/identities/t/attempts", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", ports.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("x: %w", ports.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", ports.ErrLiveDisabled), http.StatusForbidden},
		{fmt.Errorf("x: %w", ports.ErrPriceUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", ports.ErrDBConnection), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := newTestServer(t, &mockService{err: tt.err})
		rec := do(t, h, http.MethodGet, "/v1/identities/t/status", "")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestStatusEndpoint(t *testing.T) {
	st, err := domain.NewTraderRiskState("trader-1", domain.DefaultRiskParams())
	require.NoError(t, err)
	st.TotalTrades = 3
	st.LastTradeAt = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

	h := newTestServer(t, &mockService{state: st})
	rec := do(t, h, http.MethodGet, "/v1/identities/trader-1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "trader-1", got.Identity)
	assert.Equal(t, "SIMULATED", got.Mode)
	assert.Equal(t, 3, got.TotalTrades)
	assert.Equal(t, 180.0, got.MinTradeIntervalSeconds)
	assert.Equal(t, "2024-05-14T12:00:00Z", got.LastTradeAt)
}

func TestSetModeEndpoint(t *testing.T) {
	svc := &mockService{state: domain.TraderRiskState{Identity: "t", RiskParams: domain.RiskParams{Mode: domain.ModeLive}}}
	h := newTestServer(t, svc)

	rec := do(t, h, http.MethodPut, "/v1/identities/t/mode", `{"mode":"live"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ModeLive, svc.gotMode)
}

func TestUpdateParamsEndpoint(t *testing.T) {
	svc := &mockService{}
	h := newTestServer(t, svc)

	rec := do(t, h, http.MethodPut, "/v1/identities/t/params", `{
		"riskPerTrade": 0.02, "maxPositionSize": 0.05, "minConfidence": 0.5,
		"stopLossPct": 0.01, "takeProfitPct": 0.02, "minTradeIntervalSeconds": 60,
		"dailyPnlStop": -0.03, "consecutiveLossStop": 4
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.02, svc.gotParams.RiskPerTrade)
	assert.Equal(t, time.Minute, svc.gotParams.MinTradeInterval)
	assert.Equal(t, 4, svc.gotParams.ConsecutiveLossStop)
}

func TestListAndOperationalEndpoints(t *testing.T) {
	h := newTestServer(t, &mockService{state: domain.TraderRiskState{Identity: "a"}})

	rec := do(t, h, http.MethodGet, "/v1/identities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "a", views[0].Identity)

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tradegate_attempts_total")

	rec = do(t, h, http.MethodDelete, "/v1/identities/a/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
