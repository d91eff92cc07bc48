package market

import "time"

const closeGrace = 2 * time.Second

// LastClosed returns the most recently fully closed candle of a series. The
// exchange includes the current, still-forming candle as the last element, so
// a candle only counts as closed once `now` has passed its close time.
// Trigger confirmation must never read the forming candle.
func LastClosed(candles []Candle, step time.Duration, now time.Time) (Candle, bool) {
	closed := DropUnclosed(candles, step, now)
	if len(closed) == 0 {
		return Candle{}, false
	}
	return closed[len(closed)-1], true
}

// DropUnclosed removes the trailing candle if it is still in progress.
func DropUnclosed(candles []Candle, step time.Duration, now time.Time) []Candle {
	if len(candles) == 0 || step <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	closeMs := last.OpenTime + step.Milliseconds()
	if now.UnixMilli() < closeMs+closeGrace.Milliseconds() {
		return candles[:len(candles)-1]
	}
	return candles
}
