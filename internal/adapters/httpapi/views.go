package httpapi

import (
	"time"

	"tradeGate/internal/domain"
)

type proposalRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Balance    float64 `json:"balance"`
	Confidence float64 `json:"confidence"`
	ReduceOnly bool    `json:"reduceOnly"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type paramsRequest struct {
	RiskPerTrade            float64 `json:"riskPerTrade"`
	MaxPositionSize         float64 `json:"maxPositionSize"`
	MinConfidence           float64 `json:"minConfidence"`
	StopLossPct             float64 `json:"stopLossPct"`
	TakeProfitPct           float64 `json:"takeProfitPct"`
	MinTradeIntervalSeconds float64 `json:"minTradeIntervalSeconds"`
	DailyPnLStop            float64 `json:"dailyPnlStop"`
	ConsecutiveLossStop     int     `json:"consecutiveLossStop"`
}

func (p paramsRequest) toParams() domain.RiskParams {
	return domain.RiskParams{
		RiskPerTrade:        p.RiskPerTrade,
		MaxPositionSize:     p.MaxPositionSize,
		MinConfidence:       p.MinConfidence,
		StopLossPct:         p.StopLossPct,
		TakeProfitPct:       p.TakeProfitPct,
		MinTradeInterval:    time.Duration(p.MinTradeIntervalSeconds * float64(time.Second)),
		DailyPnLStop:        p.DailyPnLStop,
		ConsecutiveLossStop: p.ConsecutiveLossStop,
	}
}

type orderView struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	ReduceOnly bool    `json:"reduceOnly"`
	Degraded   bool    `json:"degraded"`
}

type resultView struct {
	Kind       string   `json:"kind"`
	OrderID    string   `json:"orderId,omitempty"`
	Price      float64  `json:"price,omitempty"`
	Size       float64  `json:"size,omitempty"`
	FeeApplied bool     `json:"feeApplied,omitempty"`
	PnL        float64  `json:"pnl,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	Error      string   `json:"error,omitempty"`
	RawPayload string   `json:"rawPayload,omitempty"`
}

type attemptView struct {
	Allowed    bool        `json:"allowed"`
	Reason     string      `json:"reason"`
	Order      *orderView  `json:"order,omitempty"`
	StopLoss   float64     `json:"stopLoss,omitempty"`
	TakeProfit float64     `json:"takeProfit,omitempty"`
	Result     *resultView `json:"result,omitempty"`
	AttemptID  string      `json:"attemptId,omitempty"`
	Error      string      `json:"error,omitempty"` // Set when the outcome could not be persisted
}

type stateView struct {
	Identity                string  `json:"identity"`
	Mode                    string  `json:"mode"`
	RiskPerTrade            float64 `json:"riskPerTrade"`
	MaxPositionSize         float64 `json:"maxPositionSize"`
	MinConfidence           float64 `json:"minConfidence"`
	StopLossPct             float64 `json:"stopLossPct"`
	TakeProfitPct           float64 `json:"takeProfitPct"`
	MinTradeIntervalSeconds float64 `json:"minTradeIntervalSeconds"`
	DailyPnLStop            float64 `json:"dailyPnlStop"`
	ConsecutiveLossStop     int     `json:"consecutiveLossStop"`
	DailyPnL                float64 `json:"dailyPnl"`
	ConsecutiveLosses       int     `json:"consecutiveLosses"`
	LastTradeAt             string  `json:"lastTradeAt,omitempty"`
	TotalTrades             int     `json:"totalTrades"`
	TotalPnL                float64 `json:"totalPnl"`
	UpdatedAt               string  `json:"updatedAt,omitempty"`
}

type errorView struct {
	Error string `json:"error"`
}

func toAttemptView(a *domain.Attempt) attemptView {
	v := attemptView{
		Allowed:    a.Allowed,
		Reason:     string(a.Reason),
		StopLoss:   a.StopLoss,
		TakeProfit: a.TakeProfit,
	}
	if a.Order != nil {
		v.Order = &orderView{
			Symbol:     a.Order.Symbol,
			Side:       string(a.Order.Side),
			Price:      a.Order.Price,
			Size:       a.Order.Size,
			ReduceOnly: a.Order.ReduceOnly,
			Degraded:   a.Order.Degraded,
		}
	}
	if a.Result != nil {
		v.Result = toResultView(a.Result)
	}
	if a.Record != nil {
		v.AttemptID = a.Record.ID
	}
	return v
}

func toResultView(r domain.AttemptResult) *resultView {
	v := &resultView{Kind: string(domain.KindOf(r))}
	switch res := r.(type) {
	case domain.Filled:
		v.OrderID = res.OrderID
		v.Price = res.Price
		v.Size = res.Size
		v.FeeApplied = res.FeeApplied
		v.PnL = res.PnL
	case domain.Rejected:
		v.Reasons = res.Reasons
	case domain.TransportError:
		v.Error = domain.Describe(res)
	case domain.Ambiguous:
		v.RawPayload = res.RawPayload
	}
	return v
}

func toStateView(s domain.TraderRiskState) stateView {
	v := stateView{
		Identity:                s.Identity,
		Mode:                    string(s.Mode),
		RiskPerTrade:            s.RiskPerTrade,
		MaxPositionSize:         s.MaxPositionSize,
		MinConfidence:           s.MinConfidence,
		StopLossPct:             s.StopLossPct,
		TakeProfitPct:           s.TakeProfitPct,
		MinTradeIntervalSeconds: s.MinTradeInterval.Seconds(),
		DailyPnLStop:            s.DailyPnLStop,
		ConsecutiveLossStop:     s.ConsecutiveLossStop,
		DailyPnL:                s.DailyPnL,
		ConsecutiveLosses:       s.ConsecutiveLosses,
		TotalTrades:             s.TotalTrades,
		TotalPnL:                s.TotalPnL,
	}
	if !s.LastTradeAt.IsZero() {
		v.LastTradeAt = s.LastTradeAt.UTC().Format(time.RFC3339)
	}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}
