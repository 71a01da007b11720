// Package rebalance computes buy/sell/hold recommendations that move a
// set of holdings toward a set of target percentage allocations.
package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Holding is a position currently owned.
type Holding struct {
	Symbol string  `json:"symbol" binding:"required"`
	Shares float64 `json:"shares" binding:"required,gt=0"`
}

// TargetAllocation is the desired share of investable value for one symbol.
type TargetAllocation struct {
	Symbol        string  `json:"symbol" binding:"required"`
	TargetPercent float64 `json:"target_percent" binding:"min=0,max=100"`
}

// PriceMap holds the resolved price per symbol. Prices must be positive;
// a missing or non-positive entry makes the symbol unpriceable.
type PriceMap map[string]float64

// Recommendation is the computed action for one target symbol.
// Monetary fields and SharesToTrade are rounded to 2 decimal places.
type Recommendation struct {
	CurrentPrice    float64 `json:"current_price"`
	CurrentValue    float64 `json:"current_value"`
	TargetValue     float64 `json:"target_value"`
	DifferenceValue float64 `json:"difference_value"`
	Action          string  `json:"action"`
	SharesToTrade   float64 `json:"shares_to_trade"`
}

// Request carries everything Compute needs besides prices.
type Request struct {
	Holdings          []Holding
	Targets           []TargetAllocation
	CashBufferPercent float64
}

// Result is the outcome of one rebalance computation. TotalValue and
// InvestableValue are exact (unrounded); the recommendation map is keyed
// by target symbol.
type Result struct {
	TotalValue      float64
	InvestableValue float64
	Recommendations map[string]Recommendation
}

// PriceError reports a symbol without a usable price.
type PriceError struct {
	Symbol string
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("no usable price for %s", e.Symbol)
}

// AllocationError reports target percentages summing above 100.
type AllocationError struct {
	Sum float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("target allocation exceeds 100%%: %.2f", e.Sum)
}

// Compute maps holdings, prices and target allocations to per-symbol
// recommendations. It is pure: no I/O, no shared state, identical inputs
// yield identical output.
//
// Holdings without a matching target contribute to TotalValue but produce
// no recommendation row; targets without a matching holding are treated
// as buys from zero. Targets may sum to less than 100 (the remainder
// stays uninvested); a sum above 100 is rejected before any computation.
func Compute(req Request, prices PriceMap) (*Result, error) {
	var sum float64
	for _, t := range req.Targets {
		sum += t.TargetPercent
	}
	if sum > 100 {
		return nil, &AllocationError{Sum: sum}
	}

	for _, h := range req.Holdings {
		if prices[h.Symbol] <= 0 {
			return nil, &PriceError{Symbol: h.Symbol}
		}
	}
	for _, t := range req.Targets {
		if prices[t.Symbol] <= 0 {
			return nil, &PriceError{Symbol: t.Symbol}
		}
	}

	var totalValue float64
	currentValues := make(map[string]float64, len(req.Holdings))
	for _, h := range req.Holdings {
		value := h.Shares * prices[h.Symbol]
		totalValue += value
		currentValues[h.Symbol] = value
	}
	investableValue := totalValue * (1 - req.CashBufferPercent/100)

	recommendations := make(map[string]Recommendation, len(req.Targets))
	for _, t := range req.Targets {
		price := prices[t.Symbol]
		currentValue := currentValues[t.Symbol]
		targetValue := investableValue * (t.TargetPercent / 100)
		diffValue := targetValue - currentValue

		action := ActionHold
		if diffValue > 0 {
			action = ActionBuy
		} else if diffValue < 0 {
			action = ActionSell
		}

		sharesToTrade := abs(diffValue) / price

		recommendations[t.Symbol] = Recommendation{
			CurrentPrice:    Round2(price),
			CurrentValue:    Round2(currentValue),
			TargetValue:     Round2(targetValue),
			DifferenceValue: Round2(diffValue),
			Action:          action,
			SharesToTrade:   Round2(sharesToTrade),
		}
	}

	return &Result{
		TotalValue:      totalValue,
		InvestableValue: investableValue,
		Recommendations: recommendations,
	}, nil
}

// Round2 rounds v half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
