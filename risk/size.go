// Package risk sizes orders against the session budget.
package risk

// Budget returns the per-symbol order budget: the cash snapshot taken at
// session start scaled by the configured buy percentage. The result is
// fixed for the whole session; fills never cause a recompute.
func Budget(cash int64, buyPercent float64) float64 {
	if cash <= 0 || buyPercent <= 0 {
		return 0
	}
	return float64(cash) * buyPercent
}

// Quantity returns the whole number of shares the budget affords at the
// given price. Zero means the caller must not place an order.
func Quantity(budget float64, price int64) int64 {
	if budget <= 0 || price <= 0 {
		return 0
	}
	return int64(budget / float64(price))
}
