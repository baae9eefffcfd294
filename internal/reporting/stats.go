package reporting

import "github.com/shopspring/decimal"

// computeMean returns the arithmetic mean rounded to the mint's precision.
func computeMean(values []decimal.Decimal, decimals uint8) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(int32(decimals))
}

// computePercentile interpolates linearly between the closest ranks of sorted values.
func computePercentile(sorted []decimal.Decimal, p float64, decimals uint8) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := decimal.NewFromFloat(idx - float64(lower))
	return sorted[lower].Add(frac.Mul(sorted[upper].Sub(sorted[lower]))).Round(int32(decimals))
}
