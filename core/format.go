package core

import "github.com/shopspring/decimal"

// FormatAmount renders units as a decimal with trailing zeros and a trailing
// decimal point removed: FormatAmount(NewUnits(321_000_000), 8) == "3.21".
func FormatAmount(units Units, decimals uint8) string {
	return decimal.NewFromBigInt(units.Big(), -int32(decimals)).String()
}

func FormatAmountWithSymbol(units Units, decimals uint8, symbol string) string {
	return FormatAmount(units, decimals) + " " + symbol
}

// FormatTokenAmount formats units using the token's own decimals and symbol.
func FormatTokenAmount(units Units, token Cryptocurrency) string {
	return FormatAmountWithSymbol(units, token.Decimals(), token.Symbol())
}
