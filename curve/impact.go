package curve

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	maxCurveImpact  = 50
	maxSimpleImpact = 100
	drainedImpact   = 100
)

// ImpactSeverity classifies a price impact percentage for display
type ImpactSeverity string

const (
	ImpactLow      ImpactSeverity = "low"
	ImpactMinor    ImpactSeverity = "minor"
	ImpactModerate ImpactSeverity = "moderate"
	ImpactHigh     ImpactSeverity = "high"
)

// PriceImpact approximates the price change in percent caused by a trade of amount.
// Buys are in native units, sells in token units. Invalid amounts yield 0.
func PriceImpact(state *TokenChainState, amount string, direction Direction) float64 {
	value, err := decimal.NewFromString(amount)
	if err != nil || !value.IsPositive() || state == nil {
		return 0
	}

	trade := value.InexactFloat64()
	collateral := FromBaseUnits(state.Collateral, nativeDecimals).InexactFloat64()
	virtualSupply := FromBaseUnits(state.VirtualSupply, nativeDecimals).InexactFloat64()

	if virtualSupply <= 0 || collateral <= 0 {
		return simplePriceImpact(collateral, trade)
	}

	switch direction {
	case DirectionBuy:
		return buyPriceImpact(collateral, virtualSupply, trade)
	case DirectionSell:
		return sellPriceImpact(collateral, virtualSupply, trade)
	default:
		return 0
	}
}

// the curve is approximated by the average of the price before and after the trade
func buyPriceImpact(collateral, virtualSupply, trade float64) float64 {
	currentPrice := collateral / virtualSupply
	newCollateral := collateral + trade

	averagePrice := (currentPrice + newCollateral/virtualSupply) / 2
	tokensReceived := trade / averagePrice

	newPrice := newCollateral / (virtualSupply + tokensReceived)
	impact := (newPrice - currentPrice) / currentPrice * 100

	return clampImpact(impact, maxCurveImpact)
}

func sellPriceImpact(collateral, virtualSupply, trade float64) float64 {
	if trade >= virtualSupply {
		return drainedImpact
	}

	currentPrice := collateral / virtualSupply
	newVirtualSupply := virtualSupply - trade

	averagePrice := (currentPrice + collateral/newVirtualSupply) / 2
	nativeOut := trade * averagePrice

	newCollateral := collateral - nativeOut
	if newCollateral <= 0 {
		return drainedImpact
	}

	newPrice := newCollateral / newVirtualSupply
	impact := (currentPrice - newPrice) / currentPrice * 100

	return clampImpact(impact, maxCurveImpact)
}

func simplePriceImpact(liquidity, trade float64) float64 {
	if liquidity <= 0 {
		return maxCurveImpact
	}

	return clampImpact(math.Sqrt(trade/liquidity)*100, maxSimpleImpact)
}

func clampImpact(impact, limit float64) float64 {
	if math.IsNaN(impact) || impact < 0 {
		return 0
	}
	return math.Min(impact, limit)
}

func ImpactSeverityOf(impact float64) ImpactSeverity {
	switch {
	case impact > 15:
		return ImpactHigh
	case impact > 5:
		return ImpactModerate
	case impact > 1:
		return ImpactMinor
	default:
		return ImpactLow
	}
}

// ImpactWarning returns the warning text shown for impact, empty if none is needed
func ImpactWarning(impact float64) string {
	switch {
	case impact > 20:
		return "Very high price impact! Consider reducing trade size."
	case impact > 10:
		return "High price impact. Double-check your trade."
	case impact > 5:
		return "Moderate price impact."
	default:
		return ""
	}
}

// MinTokensReceived applies slippagePct to an expected token amount
func MinTokensReceived(expected decimal.Decimal, slippagePct float64) decimal.Decimal {
	return expected.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100))))
}

// MaxNativeNeeded applies slippagePct to an expected native amount
func MaxNativeNeeded(expected decimal.Decimal, slippagePct float64) decimal.Decimal {
	return expected.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100))))
}
