package curve

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// nativeDecimals is the precision of the native currency and of curve tokens
const nativeDecimals = 18

// plain decimal notation, no sign or exponent
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ValidateAmount parses a user supplied amount. It must be a positive decimal with at most maxDecimals fractional digits.
func ValidateAmount(amount string, maxDecimals int) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if !amountPattern.MatchString(amount) {
		return decimal.Zero, newError(KindInvalidInput, "validate amount", common.Address{}, fmt.Errorf("malformed amount %q", amount))
	}

	if idx := strings.IndexByte(amount, '.'); idx >= 0 && len(amount)-idx-1 > maxDecimals {
		return decimal.Zero, newError(KindInvalidInput, "validate amount", common.Address{}, fmt.Errorf("amount %q has more than %v decimals", amount, maxDecimals))
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, newError(KindInvalidInput, "validate amount", common.Address{}, err)
	}

	if !value.IsPositive() {
		return decimal.Zero, newError(KindInvalidInput, "validate amount", common.Address{}, fmt.Errorf("amount must be positive"))
	}

	return value, nil
}

// TruncateAmount cuts amount down to places fractional digits. It never rounds up.
// Malformed amounts yield "0".
func TruncateAmount(amount string, places int) string {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "0"
	}

	return value.Truncate(int32(places)).String()
}

// ToBaseUnits converts a decimal amount into the smallest unit, dropping excess precision
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromBaseUnits converts an amount in the smallest unit into a decimal amount
func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
