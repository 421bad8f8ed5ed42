package ports

import "tradeGate/internal/domain"

// Metrics receives the operator-facing signals of the execution pipeline.
type Metrics interface {
	// ObserveDecision counts a gate decision by reason code.
	ObserveDecision(reason domain.ReasonCode)
	// ObserveResult counts a classified attempt result.
	ObserveResult(symbol string, mode domain.ExecutionMode, kind domain.ResultKind)
	// ObserveDegradation counts an order that was sent without asset metadata.
	ObserveDegradation(symbol string, reason string)
	// ObserveOperatorAlert counts outcomes that may require operator intervention.
	ObserveOperatorAlert(kind domain.ResultKind)
}
