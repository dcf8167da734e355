package zoho

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
