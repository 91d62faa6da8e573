// Package quantity does the decimal arithmetic behind stock and cost bookkeeping
// so float64 fields never accumulate binary rounding drift.
package quantity

import "github.com/shopspring/decimal"

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func Add(a, b float64) float64 { return d(a).Add(d(b)).InexactFloat64() }

func Sub(a, b float64) float64 { return d(a).Sub(d(b)).InexactFloat64() }

func Mul(a, b float64) float64 { return d(a).Mul(d(b)).InexactFloat64() }

func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(d(v))
	}
	return total.InexactFloat64()
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(f float64) float64 {
	return d(f).Round(2).InexactFloat64()
}

// ClampZero subtracts b from a and floors the result at zero.
func ClampZero(a, b float64) float64 {
	r := d(a).Sub(d(b))
	if r.IsNegative() {
		return 0
	}
	return r.InexactFloat64()
}

// SplitEven divides total into n shares floored to 2 decimals; the last share takes the remainder.
func SplitEven(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	t := d(total)
	cnt := decimal.NewFromInt(int64(n))
	base := t.Div(cnt).RoundFloor(2)
	rem := t.Sub(base.Mul(cnt))

	shares := make([]float64, n)
	for i := range shares {
		shares[i] = base.InexactFloat64()
	}
	shares[n-1] = base.Add(rem).InexactFloat64()
	return shares
}

// Rescale returns value / from * to rounded to 2 decimals. from must be non-zero.
func Rescale(value, from, to float64) float64 {
	return d(value).Div(d(from)).Mul(d(to)).Round(2).InexactFloat64()
}

// UnitPrice is cost / qty, or zero when qty is zero.
func UnitPrice(cost, qty float64) float64 {
	if qty == 0 {
		return 0
	}
	return d(cost).Div(d(qty)).InexactFloat64()
}

// WeightedAverage blends an existing stock valuation with a purchase, rounded to whole units.
func WeightedAverage(stock, price, buyQty, buyPrice float64) float64 {
	totalQty := d(stock).Add(d(buyQty))
	if totalQty.IsZero() {
		return Round0(buyPrice)
	}
	value := d(stock).Mul(d(price)).Add(d(buyQty).Mul(d(buyPrice)))
	return value.Div(totalQty).Round(0).InexactFloat64()
}

func Round0(f float64) float64 {
	return d(f).Round(0).InexactFloat64()
}
