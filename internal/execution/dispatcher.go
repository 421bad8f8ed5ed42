package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

// DefaultSubmitTimeout bounds a live submission when no timeout is configured.
const DefaultSubmitTimeout = 10 * time.Second

// Config holds configuration for the Dispatcher.
type Config struct {
	Transport     ports.OrderTransport // Nil disables the live path
	Logger        ports.Logger
	SubmitTimeout time.Duration
	TimeInForce   string
}

// DispatchRequest is everything the dispatcher needs for one order.
type DispatchRequest struct {
	Identity   string
	Order      domain.NormalizedOrder
	TakeProfit float64
	Notional   float64
	Balance    float64
	Mode       domain.ExecutionMode
}

// Dispatcher routes normalized orders either to the simulator or to the exchange.
type Dispatcher struct {
	transport     ports.OrderTransport
	logger        ports.Logger
	submitTimeout time.Duration
	tif           string
}

// NewDispatcher creates a dispatcher. The live path is only available when a transport is set.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for dispatcher: %w", ports.ErrConfigurationError)
	}
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	tif := cfg.TimeInForce
	if tif == "" {
		tif = DefaultTimeInForce
	}
	return &Dispatcher{
		transport:     cfg.Transport,
		logger:        cfg.Logger,
		submitTimeout: timeout,
		tif:           tif,
	}, nil
}

// LiveEnabled reports whether a transport is configured.
func (d *Dispatcher) LiveEnabled() bool {
	return d.transport != nil
}

// Dispatch executes the request and returns its classified outcome.
// Only an explicit ModeLive reaches the network.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) domain.AttemptResult {
	if req.Mode != domain.ModeLive {
		return d.simulate(ctx, req)
	}
	return d.submit(ctx, req)
}

func (d *Dispatcher) simulate(ctx context.Context, req DispatchRequest) domain.AttemptResult {
	pnl := SimulatedPnL(req.Order.Side, req.Order.Price, req.TakeProfit, req.Notional)
	fill := domain.Filled{
		OrderID: "sim-" + uuid.NewString(),
		Price:   req.Order.Price,
		Size:    req.Order.Size,
		PnL:     pnl,
	}
	if req.Balance > 0 {
		fill.PnLFraction = pnl / req.Balance
	}

	d.logger.Info(ctx, "Simulated fill", ports.Fields{
		"identity": req.Identity,
		"symbol":   req.Order.Symbol,
		"side":     req.Order.Side,
		"price":    fill.Price,
		"size":     fill.Size,
		"pnl":      pnl,
	})
	return fill
}

func (d *Dispatcher) submit(ctx context.Context, req DispatchRequest) domain.AttemptResult {
	op := "SubmitOrder"
	if d.transport == nil {
		return domain.TransportError{Cause: fmt.Errorf("%s: %w", op, ports.ErrLiveDisabled)}
	}

	payload, err := EncodeOrder(req.Order, d.tif)
	if err != nil {
		return domain.TransportError{Cause: fmt.Errorf("%s: encode order: %w", op, err)}
	}

	submitCtx, cancel := context.WithTimeout(ctx, d.submitTimeout)
	defer cancel()

	start := time.Now()
	raw, err := d.transport.Submit(submitCtx, payload)
	if err == nil && submitCtx.Err() != nil {
		// A reply that arrives after the deadline is not trusted.
		err = submitCtx.Err()
	}
	if err != nil {
		err = translateTransportError(op, err)
	}

	result := Classify(raw, err, req.Order)
	if fill, ok := result.(domain.Filled); ok {
		// Entry fills carry no realized P&L yet.
		fill.PnL, fill.PnLFraction = 0, 0
		result = fill
	}

	d.logger.Info(ctx, "Live order submitted", ports.Fields{
		"identity": req.Identity,
		"symbol":   req.Order.Symbol,
		"side":     req.Order.Side,
		"price":    req.Order.Price,
		"size":     req.Order.Size,
		"result":   domain.KindOf(result),
		"latency":  time.Since(start).String(),
	})
	return result
}

// SimulatedPnL is the hypothetical P&L of an order that fills at its take-profit level.
func SimulatedPnL(side domain.OrderSide, entry, takeProfit, notional float64) float64 {
	if entry <= 0 {
		return 0
	}
	pnl := (takeProfit - entry) / entry * notional
	if side == domain.Sell {
		return -pnl
	}
	return pnl
}

func translateTransportError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s canceled: %w: %w", op, ports.ErrContextCanceled, err)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}
