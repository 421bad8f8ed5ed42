package domain

import (
	"strings"
	"time"
)

// AttemptResult is the outcome of a dispatched order. Exactly one of
// Filled, Rejected, TransportError or Ambiguous implements it.
type AttemptResult interface {
	isAttemptResult()
}

// Filled means the venue (or the simulator) confirmed the order.
type Filled struct {
	OrderID     string
	Price       float64
	Size        float64
	FeeApplied  bool
	PnL         float64 // Realized or simulated P&L in quote currency
	PnLFraction float64 // PnL relative to the balance the attempt was sized from
}

// Rejected means the venue refused the order, overall or per item.
type Rejected struct {
	Reasons []string
}

// TransportError means the outcome is unknown because the request failed in transit.
type TransportError struct {
	Cause error
}

// Ambiguous means the venue replied with a shape that could not be classified.
type Ambiguous struct {
	RawPayload string
}

func (Filled) isAttemptResult()         {}
func (Rejected) isAttemptResult()       {}
func (TransportError) isAttemptResult() {}
func (Ambiguous) isAttemptResult()      {}

// ResultKind is a stable name for an AttemptResult variant.
type ResultKind string

const (
	KindFilled         ResultKind = "FILLED"
	KindRejected       ResultKind = "REJECTED"
	KindTransportError ResultKind = "TRANSPORT_ERROR"
	KindAmbiguous      ResultKind = "AMBIGUOUS"
)

// KindOf returns the variant name of r.
func KindOf(r AttemptResult) ResultKind {
	switch r.(type) {
	case Filled:
		return KindFilled
	case Rejected:
		return KindRejected
	case TransportError:
		return KindTransportError
	default:
		return KindAmbiguous
	}
}

// Describe returns a short human readable detail for r.
func Describe(r AttemptResult) string {
	switch v := r.(type) {
	case Filled:
		return "order " + v.OrderID
	case Rejected:
		return strings.Join(v.Reasons, "; ")
	case TransportError:
		if v.Cause == nil {
			return "transport failure"
		}
		return v.Cause.Error()
	case Ambiguous:
		return v.RawPayload
	default:
		return ""
	}
}

// AttemptRecord is emitted after every dispatched attempt for the caller to persist.
type AttemptRecord struct {
	ID        string
	Identity  string
	Symbol    string
	Side      OrderSide
	Size      float64
	Price     float64
	Result    ResultKind
	Detail    string
	PnL       float64
	Mode      ExecutionMode
	Timestamp time.Time
}

// Attempt is what the core returns for one proposal.
type Attempt struct {
	Allowed    bool
	Reason     ReasonCode
	Order      *NormalizedOrder // Nil when the gate denied the attempt
	StopLoss   float64
	TakeProfit float64
	Result     AttemptResult  // Nil when the gate denied the attempt
	Record     *AttemptRecord // Nil when the gate denied the attempt
}
