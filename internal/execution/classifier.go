package execution

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"tradeGate/internal/domain"
)

// genericFailure is used when the venue reports failure without any message.
const genericFailure = "exchange reported failure"

var (
	positiveVocabulary = []string{"success", "filled", "order placed", "accepted"}
	negativeVocabulary = []string{"error", "fail", "reject", "unsuccess", "unfilled", "cancel", "insufficient", "invalid", "denied", "cannot", "unable", "not "}
)

type replyEnvelope struct {
	Status   *string         `json:"status"`
	Response json.RawMessage `json:"response"`
}

type replyBody struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Data    struct {
		Statuses []json.RawMessage `json:"statuses"`
	} `json:"data"`
}

type filledStatus struct {
	TotalSz json.Number `json:"totalSz"`
	AvgPx   json.Number `json:"avgPx"`
	Oid     json.Number `json:"oid"`
}

type restingStatus struct {
	Oid json.Number `json:"oid"`
}

type itemStatus struct {
	Error   string         `json:"error"`
	Filled  *filledStatus  `json:"filled"`
	Resting *restingStatus `json:"resting"`
}

// itemSummary is the per-item evidence collected from a structured reply.
type itemSummary struct {
	errors   []string
	filled   *filledStatus
	resting  *restingStatus
	accepted bool
	unknown  int
}

// Classify maps an exchange reply (or the transport failure that replaced it)
// onto exactly one AttemptResult. Success requires explicit positive evidence;
// every other shape resolves to a non-success variant.
func Classify(raw []byte, transportErr error, order domain.NormalizedOrder) domain.AttemptResult {
	if transportErr != nil {
		return domain.TransportError{Cause: transportErr}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return domain.Ambiguous{RawPayload: string(raw)}
	}

	if !json.Valid(trimmed) {
		if trimmed[0] == '<' || !utf8.Valid(trimmed) {
			return domain.Ambiguous{RawPayload: string(raw)}
		}
		return classifyText(string(trimmed), order)
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return domain.Ambiguous{RawPayload: string(raw)}
		}
		return classifyText(text, order)
	case '{':
		return classifyEnvelope(trimmed, order)
	default:
		return domain.Ambiguous{RawPayload: string(raw)}
	}
}

func classifyEnvelope(raw []byte, order domain.NormalizedOrder) domain.AttemptResult {
	var env replyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == nil {
		return domain.Ambiguous{RawPayload: string(raw)}
	}

	switch strings.ToLower(*env.Status) {
	case "ok":
		return classifyOK(env.Response, raw, order)
	case "err", "error":
		return domain.Rejected{Reasons: []string{failureMessage(env.Response)}}
	default:
		return domain.Ambiguous{RawPayload: string(raw)}
	}
}

func classifyOK(response json.RawMessage, raw []byte, order domain.NormalizedOrder) domain.AttemptResult {
	var body replyBody
	if len(response) == 0 || json.Unmarshal(response, &body) != nil {
		return domain.Ambiguous{RawPayload: string(raw)}
	}

	items := summarize(body.Data.Statuses)
	switch {
	case len(items.errors) > 0:
		return domain.Rejected{Reasons: items.errors}
	case items.unknown > 0 || len(body.Data.Statuses) == 0:
		return domain.Ambiguous{RawPayload: string(raw)}
	case items.filled != nil:
		fill := domain.Filled{
			OrderID:    items.filled.Oid.String(),
			Price:      order.Price,
			Size:       order.Size,
			FeeApplied: feeApplied(order),
		}
		if px, err := items.filled.AvgPx.Float64(); err == nil && px > 0 {
			fill.Price = px
		}
		if sz, err := items.filled.TotalSz.Float64(); err == nil && sz > 0 {
			fill.Size = sz
		}
		return fill
	case items.resting != nil:
		return domain.Filled{
			OrderID:    items.resting.Oid.String(),
			Price:      order.Price,
			Size:       order.Size,
			FeeApplied: feeApplied(order),
		}
	case items.accepted:
		return domain.Filled{Price: order.Price, Size: order.Size, FeeApplied: feeApplied(order)}
	default:
		return domain.Ambiguous{RawPayload: string(raw)}
	}
}

func summarize(statuses []json.RawMessage) itemSummary {
	var s itemSummary
	for _, raw := range statuses {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			s.unknown++
			continue
		}

		if trimmed[0] == '"' {
			var text string
			if json.Unmarshal(trimmed, &text) != nil {
				s.unknown++
			} else if isPositive(text) {
				s.accepted = true
			} else {
				s.errors = append(s.errors, text)
			}
			continue
		}

		var item itemStatus
		if json.Unmarshal(trimmed, &item) != nil {
			s.unknown++
			continue
		}
		switch {
		case item.Error != "":
			s.errors = append(s.errors, item.Error)
		case item.Filled != nil:
			if s.filled == nil {
				s.filled = item.Filled
			}
		case item.Resting != nil:
			if s.resting == nil {
				s.resting = item.Resting
			}
		default:
			s.unknown++
		}
	}
	return s
}

// failureMessage extracts the most specific message from an error envelope.
func failureMessage(response json.RawMessage) string {
	trimmed := bytes.TrimSpace(response)
	if len(trimmed) == 0 {
		return genericFailure
	}

	var text string
	if json.Unmarshal(trimmed, &text) == nil {
		if strings.TrimSpace(text) != "" {
			return text
		}
		return genericFailure
	}

	var body replyBody
	if json.Unmarshal(trimmed, &body) != nil {
		return genericFailure
	}
	if items := summarize(body.Data.Statuses); len(items.errors) > 0 {
		return strings.Join(items.errors, "; ")
	}
	if body.Error != "" {
		return body.Error
	}
	if body.Message != "" {
		return body.Message
	}
	return genericFailure
}

func classifyText(text string, order domain.NormalizedOrder) domain.AttemptResult {
	if isPositive(text) {
		return domain.Filled{Price: order.Price, Size: order.Size, FeeApplied: feeApplied(order)}
	}
	return domain.Rejected{Reasons: []string{text}}
}

// isPositive requires at least one success word and no failure word.
func isPositive(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range negativeVocabulary {
		if strings.Contains(lower, word) {
			return false
		}
	}
	for _, word := range positiveVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func feeApplied(order domain.NormalizedOrder) bool {
	return order.Builder.Address != "" && order.Builder.FeeTenthsBps > 0
}
