package backtest

import (
	"github.com/etnz/backtest/date"
	"github.com/shopspring/decimal"
)

// Prices gives the price of an asset symbol on a date. *Frame implements it.
type Prices interface {
	Price(on date.Date, symbol string) (float64, bool)
}

// price reads a price and converts it to decimal.
func price(prices Prices, on date.Date, symbol string) (decimal.Decimal, error) {
	p, ok := prices.Price(on, symbol)
	if !ok {
		return decimal.Zero, &MissingPriceError{Symbol: symbol, On: on}
	}
	return decimal.NewFromFloat(p), nil
}

// ValueAt returns the total value of quantities at the prices of the given date.
func ValueAt(on date.Date, quantities Quantities, prices Prices) (decimal.Decimal, error) {
	total := decimal.Zero
	// iterate in a stable order so that the decimal sum and the reported error are deterministic.
	for _, symbol := range quantities.Symbols() {
		p, err := price(prices, on, symbol)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(quantities[symbol].value.Mul(p))
	}
	return total, nil
}

// QuantitiesFromWeights converts weights into quantities for a total value at the prices
// of the given date: quantity = weight × total / price.
//
// Cash weights (checksum ~0) convert to an empty Quantities.
func QuantitiesFromWeights(on date.Date, weights Weights, total decimal.Decimal, prices Prices) (Quantities, error) {
	quantities := make(Quantities, len(weights))
	if weights.IsCash() {
		return quantities, nil
	}
	for _, symbol := range weights.Symbols() {
		p, err := price(prices, on, symbol)
		if err != nil {
			return nil, err
		}
		if p.IsZero() {
			return nil, &ZeroPriceError{Symbol: symbol, On: on}
		}
		w := decimal.NewFromFloat(weights[symbol])
		quantities[symbol] = Quantity{value: divide(w.Mul(total), p)}
	}
	return quantities, nil
}

// divide returns x / y with at least decimal.DivisionPrecision significant digits,
// whatever the magnitude of the quotient.
func divide(x, y decimal.Decimal) decimal.Decimal {
	scale := int32(decimal.DivisionPrecision)
	if leading := intDigits(y) - intDigits(x) + 1; leading > 0 {
		scale += leading
	}
	return x.DivRound(y, scale)
}

// intDigits returns the number of digits of d before the decimal point, negative when
// d is smaller than 0.1.
func intDigits(d decimal.Decimal) int32 {
	return int32(len(d.Coefficient().String())) + d.Exponent()
}
