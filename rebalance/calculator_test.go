package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSellDownToTarget(t *testing.T) {
	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets:  []TargetAllocation{{Symbol: "AAPL", TargetPercent: 50}},
	}
	prices := PriceMap{"AAPL": 100}

	result, err := Compute(req, prices)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, result.TotalValue)
	assert.Equal(t, 1000.0, result.InvestableValue)

	rec := result.Recommendations["AAPL"]
	assert.Equal(t, 100.0, rec.CurrentPrice)
	assert.Equal(t, 1000.0, rec.CurrentValue)
	assert.Equal(t, 500.0, rec.TargetValue)
	assert.Equal(t, -500.0, rec.DifferenceValue)
	assert.Equal(t, ActionSell, rec.Action)
	assert.Equal(t, 5.0, rec.SharesToTrade)
}

func TestComputeBuyFromZero(t *testing.T) {
	// A target with no matching holding starts from a current value of 0.
	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets: []TargetAllocation{
			{Symbol: "AAPL", TargetPercent: 80},
			{Symbol: "TSLA", TargetPercent: 20},
		},
	}
	prices := PriceMap{"AAPL": 100, "TSLA": 200}

	result, err := Compute(req, prices)
	require.NoError(t, err)
	require.Equal(t, 1000.0, result.InvestableValue)

	rec := result.Recommendations["TSLA"]
	assert.Equal(t, 0.0, rec.CurrentValue)
	assert.Equal(t, 200.0, rec.TargetValue)
	assert.Equal(t, 200.0, rec.DifferenceValue)
	assert.Equal(t, ActionBuy, rec.Action)
	assert.Equal(t, 1.0, rec.SharesToTrade)
}

func TestComputeHoldWhenBalanced(t *testing.T) {
	req := Request{
		Holdings: []Holding{
			{Symbol: "AAPL", Shares: 10},
			{Symbol: "MSFT", Shares: 5},
		},
		Targets: []TargetAllocation{
			{Symbol: "AAPL", TargetPercent: 50},
			{Symbol: "MSFT", TargetPercent: 50},
		},
	}
	prices := PriceMap{"AAPL": 100, "MSFT": 200}

	result, err := Compute(req, prices)
	require.NoError(t, err)

	for symbol, rec := range result.Recommendations {
		assert.Equal(t, ActionHold, rec.Action, symbol)
		assert.Equal(t, 0.0, rec.DifferenceValue, symbol)
		assert.Equal(t, 0.0, rec.SharesToTrade, symbol)
	}
}

func TestComputeAllocationExceeded(t *testing.T) {
	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets: []TargetAllocation{
			{Symbol: "AAPL", TargetPercent: 60},
			{Symbol: "TSLA", TargetPercent: 41},
		},
	}
	prices := PriceMap{"AAPL": 100, "TSLA": 200}

	result, err := Compute(req, prices)
	assert.Nil(t, result)

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, 101.0, allocErr.Sum)
}

func TestComputeAllocationUnder100Allowed(t *testing.T) {
	// The remainder stays uninvested; no row is produced for it.
	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets:  []TargetAllocation{{Symbol: "AAPL", TargetPercent: 30}},
	}
	prices := PriceMap{"AAPL": 100}

	result, err := Compute(req, prices)
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, 1)
	assert.Equal(t, 300.0, result.Recommendations["AAPL"].TargetValue)
}

func TestComputeMissingPrice(t *testing.T) {
	tests := []struct {
		name   string
		prices PriceMap
		symbol string
	}{
		{"absent holding price", PriceMap{"TSLA": 200}, "AAPL"},
		{"zero price", PriceMap{"AAPL": 0, "TSLA": 200}, "AAPL"},
		{"negative price", PriceMap{"AAPL": -1, "TSLA": 200}, "AAPL"},
		{"absent target price", PriceMap{"AAPL": 100}, "TSLA"},
	}

	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets:  []TargetAllocation{{Symbol: "TSLA", TargetPercent: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compute(req, tt.prices)
			assert.Nil(t, result)

			var priceErr *PriceError
			require.ErrorAs(t, err, &priceErr)
			assert.Equal(t, tt.symbol, priceErr.Symbol)
		})
	}
}

func TestComputeNonTargetHoldingCountsTowardTotal(t *testing.T) {
	// Holdings outside the target set raise the total value but never get
	// a recommendation row of their own.
	req := Request{
		Holdings: []Holding{
			{Symbol: "AAPL", Shares: 10},
			{Symbol: "GOOGL", Shares: 2},
		},
		Targets: []TargetAllocation{{Symbol: "AAPL", TargetPercent: 50}},
	}
	prices := PriceMap{"AAPL": 100, "GOOGL": 500}

	result, err := Compute(req, prices)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, result.TotalValue)
	assert.Len(t, result.Recommendations, 1)
	assert.NotContains(t, result.Recommendations, "GOOGL")
	// Half of the combined value, so the AAPL position is already there.
	assert.Equal(t, ActionHold, result.Recommendations["AAPL"].Action)
}

func TestComputeCashBuffer(t *testing.T) {
	req := Request{
		Holdings:          []Holding{{Symbol: "AAPL", Shares: 10}},
		Targets:           []TargetAllocation{{Symbol: "AAPL", TargetPercent: 100}},
		CashBufferPercent: 10,
	}
	prices := PriceMap{"AAPL": 100}

	result, err := Compute(req, prices)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, result.TotalValue)
	assert.Equal(t, 900.0, result.InvestableValue)

	rec := result.Recommendations["AAPL"]
	assert.Equal(t, 900.0, rec.TargetValue)
	assert.Equal(t, -100.0, rec.DifferenceValue)
	assert.Equal(t, ActionSell, rec.Action)
	assert.Equal(t, 1.0, rec.SharesToTrade)
}

func TestComputeRounding(t *testing.T) {
	req := Request{
		Holdings: []Holding{{Symbol: "AAPL", Shares: 3}},
		Targets:  []TargetAllocation{{Symbol: "AAPL", TargetPercent: 33.33}},
	}
	prices := PriceMap{"AAPL": 99.99}

	result, err := Compute(req, prices)
	require.NoError(t, err)

	// Total value stays exact; presentation fields carry 2 decimals.
	assert.InDelta(t, 299.97, result.TotalValue, 1e-9)
	rec := result.Recommendations["AAPL"]
	assert.Equal(t, 99.99, rec.CurrentPrice)
	assert.Equal(t, 299.97, rec.CurrentValue)
	assert.Equal(t, 99.98, rec.TargetValue)
	assert.Equal(t, -199.99, rec.DifferenceValue)
	assert.Equal(t, 2.0, rec.SharesToTrade)
}

func TestComputeDeterministic(t *testing.T) {
	req := Request{
		Holdings: []Holding{
			{Symbol: "AAPL", Shares: 12.5},
			{Symbol: "MSFT", Shares: 7},
		},
		Targets: []TargetAllocation{
			{Symbol: "AAPL", TargetPercent: 40},
			{Symbol: "MSFT", TargetPercent: 35},
			{Symbol: "TSLA", TargetPercent: 25},
		},
		CashBufferPercent: 5,
	}
	prices := PriceMap{"AAPL": 187.3, "MSFT": 411.22, "TSLA": 244.5}

	first, err := Compute(req, prices)
	require.NoError(t, err)
	second, err := Compute(req, prices)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
