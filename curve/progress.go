package curve

import (
	"math/big"
)

var percentScale = big.NewInt(10000)

// ComputeProgress derives the funding and supply metrics of a snapshot.
// Percentages have 2 decimal precision and are clamped to [0, 100].
func ComputeProgress(state *TokenChainState) Progress {
	if state == nil {
		return Progress{}
	}

	return Progress{
		FundingPercentage: clampedPercentage(state.Collateral, state.FundingGoal),
		IsGoalReached:     isGoalReached(state.Collateral, state.FundingGoal),
		SupplyUtilization: clampedPercentage(state.TotalSupply, state.MaxSupply),
	}
}

func isGoalReached(collateral, fundingGoal *big.Int) bool {
	if collateral == nil || fundingGoal == nil || fundingGoal.Sign() <= 0 {
		return false
	}

	return collateral.Cmp(fundingGoal) >= 0
}

func clampedPercentage(value, total *big.Int) float64 {
	if value == nil || total == nil || total.Sign() <= 0 || value.Sign() <= 0 {
		return 0
	}

	if value.Cmp(total) >= 0 {
		return 100
	}

	// value * 10000 / total fits in an int64 since value < total
	basis := new(big.Int).Mul(value, percentScale)
	basis.Quo(basis, total)

	return float64(basis.Int64()) / 100
}
