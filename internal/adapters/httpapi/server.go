package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

const maxRequestBytes = 64 << 10

// Service is the part of the execution service exposed over HTTP.
type Service interface {
	Evaluate(ctx context.Context, identity string, proposal domain.TradeProposal) (*domain.Attempt, error)
	Status(ctx context.Context, identity string) (domain.TraderRiskState, error)
	ListStates(ctx context.Context) ([]domain.TraderRiskState, error)
	SetMode(ctx context.Context, identity string, mode domain.ExecutionMode) (domain.TraderRiskState, error)
	UpdateParams(ctx context.Context, identity string, params domain.RiskParams) (domain.TraderRiskState, error)
}

// Config holds configuration for the HTTP API.
type Config struct {
	Addr           string
	Service        Service
	Logger         ports.Logger
	MetricsHandler http.Handler // Mounted on /metrics when set
}

// Server exposes the execution service to the orchestration layer.
type Server struct {
	svc    Service
	logger ports.Logger
	srv    *http.Server
}

// NewServer creates a Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("service and logger are required for HTTP API: %w", ports.ErrConfigurationError)
	}
	s := &Server{svc: cfg.Service, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/identities/{id}/attempts", s.handleEvaluate)
	mux.HandleFunc("GET /v1/identities/{id}/status", s.handleStatus)
	mux.HandleFunc("PUT /v1/identities/{id}/mode", s.handleSetMode)
	mux.HandleFunc("PUT /v1/identities/{id}/params", s.handleUpdateParams)
	mux.HandleFunc("GET /v1/identities", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info(context.Background(), "HTTP API listening", ports.Fields{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if !s.decode(w, r, &req) {
		return
	}
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorView{Error: fmt.Sprintf("invalid side %q", req.Side)})
		return
	}

	attempt, err := s.svc.Evaluate(r.Context(), r.PathValue("id"), domain.TradeProposal{
		Symbol:     req.Symbol,
		Side:       side,
		Balance:    req.Balance,
		Confidence: req.Confidence,
		ReduceOnly: req.ReduceOnly,
	})
	if err != nil && attempt != nil {
		// Dispatched but not persisted; the caller still needs the outcome.
		s.logger.Error(r.Context(), err, "Attempt completed but state was not saved")
		v := toAttemptView(attempt)
		v.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, v)
		return
	}
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptView(attempt))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateView(st))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	states, err := s.svc.ListStates(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	views := make([]stateView, 0, len(states))
	for _, st := range states {
		views = append(views, toStateView(st))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !s.decode(w, r, &req) {
		return
	}
	// Unknown names are rejected by SetMode, not mapped to SIMULATED.
	mode := domain.ExecutionMode(strings.ToUpper(strings.TrimSpace(req.Mode)))

	st, err := s.svc.SetMode(r.Context(), r.PathValue("id"), mode)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateView(st))
}

func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.svc.UpdateParams(r.Context(), r.PathValue("id"), req.toParams())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateView(st))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, err, "HTTP request failed")
	}
	writeJSON(w, status, errorView{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRiskParams):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrLiveDisabled):
		return http.StatusForbidden
	case errors.Is(err, ports.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
