package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradeGate/internal/domain"
	"tradeGate/internal/execution"
	"tradeGate/internal/normalize"
	"tradeGate/internal/ports"
	"tradeGate/internal/risk"
)

// Config holds the collaborators and defaults of the ExecutionService.
type Config struct {
	Logger        ports.Logger
	MarketData    ports.MarketData
	Dispatcher    *execution.Dispatcher
	States        ports.TraderStateRepository
	Recorder      ports.AttemptRecorder // Optional
	Metrics       ports.Metrics         // Optional
	DefaultParams domain.RiskParams     // Applied to identities seen for the first time
	Builder       domain.BuilderInfo
	AllowLive     bool             // Global opt-in; without it no identity can be switched to LIVE
	Clock         func() time.Time // Defaults to time.Now
}

// ExecutionService is the single entry point of the core. Every call for a given
// identity runs under that identity's lock; different identities run in parallel.
type ExecutionService struct {
	logger        ports.Logger
	market        ports.MarketData
	dispatcher    *execution.Dispatcher
	states        ports.TraderStateRepository
	recorder      ports.AttemptRecorder
	metrics       ports.Metrics
	defaultParams domain.RiskParams
	builder       domain.BuilderInfo
	allowLive     bool
	now           func() time.Time

	locksMu sync.Mutex
	locks   map[string]*identityLock
}

// identityLock serializes one identity. pending holds a state that was
// applied after a dispatch but could not be saved; it shadows the store
// until a later save succeeds, so an unsaved fill still counts for the gate.
type identityLock struct {
	mu      sync.Mutex
	refs    int
	pending *domain.TraderRiskState
}

// NewExecutionService creates a new application service instance.
func NewExecutionService(cfg Config) (*ExecutionService, error) {
	if cfg.Logger == nil || cfg.MarketData == nil || cfg.Dispatcher == nil || cfg.States == nil {
		return nil, fmt.Errorf("missing required dependencies for ExecutionService: %w", ports.ErrConfigurationError)
	}
	if err := cfg.DefaultParams.Validate(); err != nil {
		return nil, fmt.Errorf("default risk parameters: %w: %w", ports.ErrConfigurationError, err)
	}
	if cfg.DefaultParams.Mode == domain.ModeLive && (!cfg.AllowLive || !cfg.Dispatcher.LiveEnabled()) {
		return nil, fmt.Errorf("default mode LIVE requires live trading to be allowed and a transport: %w", ports.ErrLiveDisabled)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &ExecutionService{
		logger:        cfg.Logger,
		market:        cfg.MarketData,
		dispatcher:    cfg.Dispatcher,
		states:        cfg.States,
		recorder:      cfg.Recorder,
		metrics:       metrics,
		defaultParams: cfg.DefaultParams,
		builder:       cfg.Builder,
		allowLive:     cfg.AllowLive,
		now:           clock,
		locks:         make(map[string]*identityLock),
	}, nil
}

// ReasonSizeTooSmall prefixes the rejection of an order whose size rounds to zero.
const ReasonSizeTooSmall = "SIZE_TOO_SMALL"

// acquire locks identity and returns its entry. Entries are dropped by
// release once nobody holds or waits for them and nothing is pending.
func (s *ExecutionService) acquire(identity string) *identityLock {
	s.locksMu.Lock()
	l, ok := s.locks[identity]
	if !ok {
		l = &identityLock{}
		s.locks[identity] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (s *ExecutionService) release(identity string, l *identityLock) {
	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 && l.pending == nil {
		delete(s.locks, identity)
	}
	s.locksMu.Unlock()
	l.mu.Unlock()
}

// Evaluate runs one proposal through the whole pipeline: gate, sizing,
// normalization, dispatch, classification and state update.
// A denied attempt is returned with Allowed=false and no error. When the state
// cannot be saved after dispatch, the attempt is returned along with the error.
func (s *ExecutionService) Evaluate(ctx context.Context, identity string, proposal domain.TradeProposal) (*domain.Attempt, error) {
	if err := validateProposal(identity, proposal); err != nil {
		return nil, err
	}

	l := s.acquire(identity)
	defer s.release(identity, l)

	state, err := s.loadOrCreate(ctx, identity, l)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if allowed, reason := risk.Evaluate(state, now); !allowed {
		return s.deny(ctx, state, proposal, reason, now), nil
	}
	if allowed, reason := risk.CheckConfidence(state, proposal.Confidence); !allowed {
		return s.deny(ctx, state, proposal, reason, now), nil
	}
	s.metrics.ObserveDecision(domain.ReasonOK)

	price, err := s.market.GetReferencePrice(ctx, proposal.Symbol)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to get reference price", ports.Fields{"identity": identity, "symbol": proposal.Symbol})
		return nil, fmt.Errorf("reference price for %s: %w: %w", proposal.Symbol, ports.ErrPriceUnavailable, err)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("reference price for %s is %v: %w", proposal.Symbol, price, ports.ErrPriceUnavailable)
	}

	notional := risk.SizeNotional(proposal.Balance, state.RiskPerTrade)
	req := domain.OrderRequest{
		Symbol:     proposal.Symbol,
		Side:       proposal.Side,
		Size:       risk.BaseSize(notional, price),
		Price:      price,
		ReduceOnly: proposal.ReduceOnly,
	}

	spec := s.assetSpec(ctx, proposal.Symbol)
	order, degradation := normalize.Normalize(req, spec, s.builder)
	if degradation != normalize.DegradationNone {
		s.logger.Warn(ctx, "Order sent without full asset metadata", ports.Fields{
			"identity": identity,
			"symbol":   proposal.Symbol,
			"reason":   string(degradation),
			"price":    order.Price,
			"size":     order.Size,
		})
		s.metrics.ObserveDegradation(proposal.Symbol, string(degradation))
	}

	stopLoss, takeProfit := risk.DeriveProtectiveLevels(order.Price, order.Side, state.StopLossPct, state.TakeProfitPct)
	stopLoss = normalize.AlignLevel(stopLoss, spec)
	takeProfit = normalize.AlignLevel(takeProfit, spec)

	var result domain.AttemptResult
	if order.Size > 0 {
		result = s.dispatcher.Dispatch(ctx, execution.DispatchRequest{
			Identity:   identity,
			Order:      order,
			TakeProfit: takeProfit,
			Notional:   notional,
			Balance:    proposal.Balance,
			Mode:       state.Mode,
		})
	} else {
		s.logger.Warn(ctx, "Order size rounds to zero, not dispatched", ports.Fields{
			"identity": identity,
			"symbol":   proposal.Symbol,
			"notional": notional,
			"price":    order.Price,
		})
		result = domain.Rejected{Reasons: []string{fmt.Sprintf("%s: size rounds to zero", ReasonSizeTooSmall)}}
	}

	completedAt := s.now()
	record := s.buildRecord(identity, order, result, state.Mode, completedAt)
	s.observeResult(ctx, record, result)
	s.record(ctx, record)

	attempt := &domain.Attempt{
		Allowed:    true,
		Reason:     domain.ReasonOK,
		Order:      &order,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Result:     result,
		Record:     &record,
	}

	updated := risk.Apply(state, result, completedAt)
	if err := s.states.SaveState(ctx, updated); err != nil {
		s.logger.Error(ctx, err, "Failed to save trader state after attempt", ports.Fields{
			"identity": identity,
			"result":   domain.KindOf(result),
			"recordId": record.ID,
		})
		// The order may already be on the venue; the caller gets the outcome with the error.
		l.pending = &updated
		return attempt, fmt.Errorf("save state for %s: %w", identity, err)
	}
	l.pending = nil

	return attempt, nil
}

func validateProposal(identity string, p domain.TradeProposal) error {
	var errs []string
	if strings.TrimSpace(identity) == "" {
		errs = append(errs, "identity must be set")
	}
	if strings.TrimSpace(p.Symbol) == "" {
		errs = append(errs, "symbol must be set")
	}
	if !p.Side.Valid() {
		errs = append(errs, fmt.Sprintf("invalid side %q", p.Side))
	}
	if !(p.Balance > 0) || math.IsInf(p.Balance, 0) {
		errs = append(errs, "balance must be positive")
	}
	if p.Confidence < 0 || p.Confidence > 1 || math.IsNaN(p.Confidence) {
		errs = append(errs, "confidence must be in [0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return nil
}

func (s *ExecutionService) deny(ctx context.Context, state domain.TraderRiskState, p domain.TradeProposal, reason domain.ReasonCode, now time.Time) *domain.Attempt {
	fields := ports.Fields{
		"identity": state.Identity,
		"symbol":   p.Symbol,
		"reason":   reason,
	}
	if reason == domain.ReasonCooldownActive {
		fields["cooldownRemaining"] = risk.CooldownRemaining(state, now).String()
	}
	s.logger.Info(ctx, "Trade attempt denied", fields)
	s.metrics.ObserveDecision(reason)
	return &domain.Attempt{Allowed: false, Reason: reason}
}

// assetSpec fetches metadata; lookup failures degrade to a nil spec.
func (s *ExecutionService) assetSpec(ctx context.Context, symbol string) *domain.AssetSpec {
	spec, err := s.market.GetAssetSpec(ctx, symbol)
	if err != nil {
		s.logger.Warn(ctx, "Asset metadata lookup failed", ports.Fields{"symbol": symbol, "error": err.Error()})
		return nil
	}
	return spec
}

func (s *ExecutionService) buildRecord(identity string, order domain.NormalizedOrder, result domain.AttemptResult, mode domain.ExecutionMode, at time.Time) domain.AttemptRecord {
	rec := domain.AttemptRecord{
		ID:        uuid.NewString(),
		Identity:  identity,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Size:      order.Size,
		Price:     order.Price,
		Result:    domain.KindOf(result),
		Detail:    domain.Describe(result),
		Mode:      mode,
		Timestamp: at,
	}
	if fill, ok := result.(domain.Filled); ok {
		rec.Size = fill.Size
		rec.Price = fill.Price
		rec.PnL = fill.PnL
	}
	return rec
}

func (s *ExecutionService) observeResult(ctx context.Context, rec domain.AttemptRecord, result domain.AttemptResult) {
	s.metrics.ObserveResult(rec.Symbol, rec.Mode, rec.Result)

	fields := ports.Fields{
		"identity": rec.Identity,
		"symbol":   rec.Symbol,
		"side":     rec.Side,
		"attempt":  rec.ID,
	}
	switch r := result.(type) {
	case domain.TransportError:
		// The order may or may not be live on the venue.
		s.logger.Error(ctx, r.Cause, "Order outcome unknown after transport failure", fields)
		s.metrics.ObserveOperatorAlert(domain.KindTransportError)
	case domain.Ambiguous:
		fields["payload"] = r.RawPayload
		s.logger.Warn(ctx, "Order outcome ambiguous, operator review required", fields)
		s.metrics.ObserveOperatorAlert(domain.KindAmbiguous)
	case domain.Rejected:
		fields["reasons"] = strings.Join(r.Reasons, "; ")
		s.logger.Info(ctx, "Order rejected by exchange", fields)
	}
}

func (s *ExecutionService) record(ctx context.Context, rec domain.AttemptRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordAttempt(ctx, rec); err != nil {
		s.logger.Error(ctx, err, "Failed to record attempt", ports.Fields{"attempt": rec.ID, "identity": rec.Identity})
	}
}

// loadOrCreate must be called with the identity lock held.
func (s *ExecutionService) loadOrCreate(ctx context.Context, identity string, l *identityLock) (domain.TraderRiskState, error) {
	if l.pending != nil {
		return *l.pending, nil
	}
	stored, err := s.states.LoadState(ctx, identity)
	if err != nil {
		return domain.TraderRiskState{}, fmt.Errorf("load state for %s: %w", identity, err)
	}
	if stored != nil {
		return *stored, nil
	}

	state, err := domain.NewTraderRiskState(identity, s.defaultParams)
	if err != nil {
		return domain.TraderRiskState{}, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}
	state.UpdatedAt = s.now()
	s.logger.Info(ctx, "Created risk state for new identity", ports.Fields{"identity": identity, "mode": state.Mode})
	return state, nil
}

// Status returns a copy of the identity's current risk state.
// Returns ports.ErrNotFound if the identity has never been seen.
func (s *ExecutionService) Status(ctx context.Context, identity string) (domain.TraderRiskState, error) {
	l := s.acquire(identity)
	defer s.release(identity, l)

	if l.pending != nil {
		return *l.pending, nil
	}
	stored, err := s.states.LoadState(ctx, identity)
	if err != nil {
		return domain.TraderRiskState{}, fmt.Errorf("load state for %s: %w", identity, err)
	}
	if stored == nil {
		return domain.TraderRiskState{}, fmt.Errorf("identity %s: %w", identity, ports.ErrNotFound)
	}
	return *stored, nil
}

// ListStates returns every stored risk state.
func (s *ExecutionService) ListStates(ctx context.Context) ([]domain.TraderRiskState, error) {
	return s.states.ListStates(ctx)
}

// SetMode switches an identity between SIMULATED and LIVE.
// LIVE is refused unless live trading is globally allowed and a transport exists.
func (s *ExecutionService) SetMode(ctx context.Context, identity string, mode domain.ExecutionMode) (domain.TraderRiskState, error) {
	if mode != domain.ModeSimulated && mode != domain.ModeLive {
		return domain.TraderRiskState{}, fmt.Errorf("unknown execution mode %q: %w", mode, ports.ErrInvalidRequest)
	}
	if mode == domain.ModeLive && (!s.allowLive || !s.dispatcher.LiveEnabled()) {
		return domain.TraderRiskState{}, fmt.Errorf("identity %s: %w", identity, ports.ErrLiveDisabled)
	}

	return s.update(ctx, identity, func(state domain.TraderRiskState) (domain.TraderRiskState, error) {
		params := state.RiskParams
		params.Mode = mode
		return state.WithParams(params)
	}, "Execution mode changed", ports.Fields{"mode": mode})
}

// UpdateParams replaces the identity's configurable risk parameters after validation.
// Counters are preserved. The mode is not changed here; use SetMode.
func (s *ExecutionService) UpdateParams(ctx context.Context, identity string, params domain.RiskParams) (domain.TraderRiskState, error) {
	return s.update(ctx, identity, func(state domain.TraderRiskState) (domain.TraderRiskState, error) {
		params.Mode = state.Mode
		next, err := state.WithParams(params)
		if err != nil {
			return state, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
		}
		return next, nil
	}, "Risk parameters updated", nil)
}

// ResetDaily clears the daily P&L and loss streak for one identity.
// It is meant to be driven by the daily rollover scheduler only.
func (s *ExecutionService) ResetDaily(ctx context.Context, identity string) error {
	_, err := s.update(ctx, identity, func(state domain.TraderRiskState) (domain.TraderRiskState, error) {
		return state.ResetDaily(), nil
	}, "Daily counters reset", nil)
	return err
}

func (s *ExecutionService) update(ctx context.Context, identity string, mutate func(domain.TraderRiskState) (domain.TraderRiskState, error), msg string, fields ports.Fields) (domain.TraderRiskState, error) {
	if strings.TrimSpace(identity) == "" {
		return domain.TraderRiskState{}, fmt.Errorf("identity must be set: %w", ports.ErrInvalidRequest)
	}

	l := s.acquire(identity)
	defer s.release(identity, l)

	state, err := s.loadOrCreate(ctx, identity, l)
	if err != nil {
		return domain.TraderRiskState{}, err
	}

	next, err := mutate(state)
	if err != nil {
		return state, err
	}
	next.UpdatedAt = s.now()

	if err := s.states.SaveState(ctx, next); err != nil {
		s.logger.Error(ctx, err, "Failed to save trader state", ports.Fields{"identity": identity})
		return state, fmt.Errorf("save state for %s: %w", identity, err)
	}
	l.pending = nil

	logFields := ports.Fields{"identity": identity}
	for k, v := range fields {
		logFields[k] = v
	}
	s.logger.Info(ctx, msg, logFields)
	return next, nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveDecision(domain.ReasonCode)                             {}
func (noopMetrics) ObserveResult(string, domain.ExecutionMode, domain.ResultKind) {}
func (noopMetrics) ObserveDegradation(string, string)                             {}
func (noopMetrics) ObserveOperatorAlert(domain.ResultKind)                        {}
