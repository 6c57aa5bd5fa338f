package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func FormatFloat(num float64, precision int) string {
	p := message.NewPrinter(language.English)
	f := fmt.Sprintf("%%.%vf", precision)
	s := p.Sprintf(f, num)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// FormatPercentage formats a percentage value with 2 decimals, trimming trailing zeros
func FormatPercentage(percentage float64) string {
	return FormatFloat(percentage, 2) + "%"
}

// FormatTokenAmount formats a decimal amount with thousands separators, truncated to precision places
func FormatTokenAmount(amount decimal.Decimal, precision int32, symbol string) string {
	amount = amount.Truncate(precision)

	intPart := amount.Truncate(0)
	fracPart := strings.TrimPrefix(amount.Sub(intPart).Abs().StringFixed(precision), "0")
	fracPart = strings.TrimRight(strings.TrimRight(fracPart, "0"), ".")

	var formatted string
	if intValue := intPart.BigInt(); intValue.IsInt64() {
		p := message.NewPrinter(language.English)
		formatted = p.Sprintf("%d", intValue.Int64())
	} else {
		formatted = intValue.String()
	}
	if amount.IsNegative() && intPart.IsZero() {
		formatted = "-" + formatted
	}
	formatted += fracPart

	if symbol != "" {
		return formatted + " " + symbol
	}
	return formatted
}
