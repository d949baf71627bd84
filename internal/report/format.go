package report

import (
	"math"

	"github.com/shopspring/decimal"
)

// FormatCurrency 以最多三位小数输出金额，整数不带小数位。
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(3)
	if d.IsNegative() {
		return "-$" + formatAmount(d.Neg())
	}
	return "$" + formatAmount(d)
}

// FormatUnits 输出 "N units"。
func FormatUnits(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return formatAmount(decimal.NewFromFloat(v).Round(3)) + " units"
}

// FormatPrice 与 FormatCurrency 相同但不带货币符号。
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return formatAmount(decimal.NewFromFloat(v).Round(3))
}

// FormatRatio 输出 "5.00:1"。
func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2) + ":1"
}

// FormatPercent 输出 "1.5%"。
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(3).String() + "%"
}

func formatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(3)
}
