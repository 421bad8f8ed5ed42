package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		tick  float64
		want  float64
	}{
		{name: "already on grid", price: 100, tick: 0.5, want: 100},
		{name: "rounds down", price: 100.2, tick: 0.5, want: 100},
		{name: "rounds up", price: 100.3, tick: 0.5, want: 100.5},
		{name: "tie rounds away from zero", price: 100.25, tick: 0.5, want: 100.5},
		{name: "cent tick", price: 1891.4049, tick: 0.01, want: 1891.4},
		{name: "cent tie", price: 0.125, tick: 0.01, want: 0.13},
		{name: "integer tick", price: 64123.5, tick: 1, want: 64124},
		{name: "zero tick unchanged", price: 101.234, tick: 0, want: 101.234},
		{name: "negative tick unchanged", price: 101.234, tick: -0.1, want: 101.234},
		{name: "nan tick unchanged", price: 101.234, tick: math.NaN(), want: 101.234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundPrice(tt.price, tt.tick))
		})
	}
}

func TestRoundPriceNonFinitePriceUnchanged(t *testing.T) {
	assert.True(t, math.IsNaN(RoundPrice(math.NaN(), 0.5)))
	assert.True(t, math.IsInf(RoundPrice(math.Inf(1), 0.5), 1))
}

func TestRoundPriceIdempotent(t *testing.T) {
	ticks := []float64{0.00001, 0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 10}
	for _, tick := range ticks {
		for p := 0.0; p < 2500; p += 7.31337 {
			once := RoundPrice(p, tick)
			twice := RoundPrice(once, tick)
			if once != twice {
				t.Fatalf("RoundPrice not idempotent for price=%v tick=%v: %v != %v", p, tick, once, twice)
			}
		}
	}
}

func TestRoundPriceNonPositiveTickIsIdentity(t *testing.T) {
	for _, tick := range []float64{0, -0.01, -1} {
		for p := -50.0; p < 50; p += 3.3 {
			assert.Equal(t, p, RoundPrice(p, tick))
		}
	}
}

func TestRoundSize(t *testing.T) {
	tests := []struct {
		name     string
		size     float64
		decimals int
		want     float64
	}{
		{name: "two decimals", size: 0.123456, decimals: 2, want: 0.12},
		{name: "tie away from zero", size: 0.125, decimals: 2, want: 0.13},
		{name: "four decimals", size: 1.23456789, decimals: 4, want: 1.2346},
		{name: "zero decimals rounds to integer", size: 2.5, decimals: 0, want: 3},
		{name: "negative decimals rounds to integer", size: 7.4, decimals: -3, want: 7},
		{name: "huge decimals capped", size: 0.1, decimals: 40, want: 0.1},
		{name: "negative size unchanged", size: -1.23456, decimals: 2, want: -1.23456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundSize(tt.size, tt.decimals))
		})
	}
}

func TestRoundSizeNonPositiveDecimalsMatchesMathRound(t *testing.T) {
	for s := 0.0; s < 100; s += 0.37 {
		for _, d := range []int{0, -1, -5} {
			assert.Equal(t, math.Round(s), RoundSize(s, d), "size=%v decimals=%d", s, d)
		}
	}
}

func TestRoundSizeIdempotent(t *testing.T) {
	for d := 0; d <= 8; d++ {
		for s := 0.0; s < 50; s += 0.0137 {
			once := RoundSize(s, d)
			assert.Equal(t, once, RoundSize(once, d))
		}
	}
}

func TestRoundSizeNonFiniteUnchanged(t *testing.T) {
	assert.True(t, math.IsNaN(RoundSize(math.NaN(), 2)))
	assert.True(t, math.IsInf(RoundSize(math.Inf(1), 2), 1))
}

func FuzzRoundPriceIdempotent(f *testing.F) {
	f.Add(100.25, 0.5)
	f.Add(1891.4049, 0.01)
	f.Add(0.000123, 0.000001)
	f.Fuzz(func(t *testing.T, price, tick float64) {
		if math.IsNaN(price) || math.IsNaN(tick) || price < 0 || price > 1e9 || tick < 1e-8 || tick > 1e4 {
			t.Skip()
		}
		once := RoundPrice(price, tick)
		if twice := RoundPrice(once, tick); once != twice {
			t.Fatalf("not idempotent: price=%v tick=%v once=%v twice=%v", price, tick, once, twice)
		}
	})
}
