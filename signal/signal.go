// Package signal implements the volatility-breakout entry rule.
package signal

// breakoutK scales the prior day's range when deriving the entry
// threshold. 0.5 is the classic Larry Williams setting and is part of the
// strategy, not a tuning knob.
const breakoutK = 0.5

// Target returns the day's entry threshold: today's open plus half the
// prior trading day's high-low range. Prices are integer KRW but the
// threshold can land on a half won, hence float64.
func Target(todayOpen, prevHigh, prevLow int64) float64 {
	return float64(todayOpen) + breakoutK*float64(prevHigh-prevLow)
}

// ShouldBuy reports whether the latest traded price has broken above the
// target. The comparison is strict: touching the target is not a break.
func ShouldBuy(current int64, target float64) bool {
	return float64(current) > target
}
