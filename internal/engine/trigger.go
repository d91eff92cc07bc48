package engine

import (
	"time"

	"trapline/internal/broker"
	"trapline/internal/market"
)

// TriggerTTL is the validity window of an armed trigger. A trigger armed at T
// is expired at any check strictly after T+TTL.
const TriggerTTL = 15 * time.Minute

// Expired reports whether the trigger has outlived its validity window.
func (t *TriggerOrder) Expired(now time.Time) bool {
	if t == nil {
		return false
	}
	return now.Sub(t.ArmedAt) > TriggerTTL
}

// Confirms tests the trigger against the most recently closed fast candle.
// A touch is not enough: the candle must close beyond the trigger price AND
// in the trigger's direction, showing sustained force.
//
//	BUY:  close > trigger price AND close > open
//	SELL: close < trigger price AND close < open
//
// Both comparisons are strict; a close exactly at the trigger price holds.
func (t *TriggerOrder) Confirms(c market.Candle) bool {
	if t == nil {
		return false
	}
	switch t.Action {
	case broker.SideBuy:
		return c.Close > t.Price && c.Close > c.Open
	case broker.SideSell:
		return c.Close < t.Price && c.Close < c.Open
	}
	return false
}

// SaneDirection validates the trigger price against the current price before
// arming: a BUY trap must sit above the market, a SELL trap below. An
// inverted trap would fire instantly on the next candle, so it is discarded
// at arm time instead of ever reaching the confirmation check.
func SaneDirection(action broker.Side, triggerPrice, currentPrice float64) bool {
	if currentPrice <= 0 {
		// Without a reference price the check cannot run; let the
		// confirmation semantics handle it.
		return true
	}
	switch action {
	case broker.SideBuy:
		return triggerPrice > currentPrice
	case broker.SideSell:
		return triggerPrice < currentPrice
	}
	return false
}
