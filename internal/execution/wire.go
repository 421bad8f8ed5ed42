package execution

import (
	"encoding/json"
	"strings"

	"tradeGate/internal/domain"
)

// DefaultTimeInForce is the time-in-force used for limit orders unless configured otherwise.
const DefaultTimeInForce = "IOC"

type wireLimit struct {
	TIF string `json:"tif"`
}

type wireOrderType struct {
	Limit wireLimit `json:"limit"`
}

type wireBuilder struct {
	Address      string `json:"address"`
	FeeTenthsBps int    `json:"feeTenthsBps"`
}

// wireOrder is the exchange order endpoint schema.
type wireOrder struct {
	Symbol     string        `json:"symbol"`
	IsBuy      bool          `json:"isBuy"`
	Size       float64       `json:"size"`
	Price      float64       `json:"price"`
	OrderType  wireOrderType `json:"orderType"`
	ReduceOnly bool          `json:"reduceOnly"`
	Builder    wireBuilder   `json:"builder"`
}

// EncodeOrder renders a normalized order into the venue's JSON schema.
func EncodeOrder(order domain.NormalizedOrder, tif string) ([]byte, error) {
	if strings.TrimSpace(tif) == "" {
		tif = DefaultTimeInForce
	}
	return json.Marshal(wireOrder{
		Symbol:     order.Symbol,
		IsBuy:      order.IsBuy(),
		Size:       order.Size,
		Price:      order.Price,
		OrderType:  wireOrderType{Limit: wireLimit{TIF: tif}},
		ReduceOnly: order.ReduceOnly,
		Builder: wireBuilder{
			Address:      order.Builder.Address,
			FeeTenthsBps: order.Builder.FeeTenthsBps,
		},
	})
}
