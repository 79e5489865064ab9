package engine

import "github.com/shopspring/decimal"

// Order sizes are computed in decimals and truncated, never rounded up:
// overshooting the free balance or the held quantity gets the order
// rejected by the venue.

// buyQuoteAmount is the quote currency committed on an entry: a fixed
// fraction of the free balance, truncated to the venue's quote precision.
func buyQuoteAmount(balance, fraction float64, precision int32) decimal.Decimal {
	return decimal.NewFromFloat(balance).
		Mul(decimal.NewFromFloat(fraction)).
		RoundDown(precision)
}

// sellQuantity formats a held base quantity for the venue, truncated to its
// quantity step.
func sellQuantity(qty float64, precision int32) decimal.Decimal {
	return decimal.NewFromFloat(qty).RoundDown(precision)
}

// baseQuantity converts a quote amount to base units at the given price,
// truncated to the venue's quantity step.
func baseQuantity(quote decimal.Decimal, price float64, precision int32) decimal.Decimal {
	return quote.Div(decimal.NewFromFloat(price)).RoundDown(precision)
}
