package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteCandles(start time.Time, n int) []Candle {
	out := make([]Candle, n)
	for i := range out {
		ot := start.Add(time.Duration(i) * time.Minute)
		out[i] = Candle{
			OpenTime:  ot.UnixMilli(),
			CloseTime: ot.Add(time.Minute).UnixMilli(),
			Open:      100, High: 101, Low: 99, Close: float64(100 + i), Volume: 1,
		}
	}
	return out
}

func TestDropUnclosedTrimsFormingCandle(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 5, 30, 0, time.UTC)
	candles := minuteCandles(now.Add(-6*time.Minute).Truncate(time.Minute), 6)

	closed := DropUnclosed(candles, time.Minute, now)
	assert.Len(t, closed, 5, "the forming candle is dropped")

	// Well past the close of the last candle: nothing to drop.
	later := now.Add(2 * time.Minute)
	assert.Len(t, DropUnclosed(candles, time.Minute, later), 6)
}

func TestDropUnclosedGracePeriod(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	candles := minuteCandles(start, 1)

	// One second after nominal close is still inside the grace window.
	assert.Len(t, DropUnclosed(candles, time.Minute, start.Add(time.Minute+time.Second)), 0)
	assert.Len(t, DropUnclosed(candles, time.Minute, start.Add(time.Minute+3*time.Second)), 1)
}

func TestLastClosed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 5, 30, 0, time.UTC)
	candles := minuteCandles(now.Add(-6*time.Minute).Truncate(time.Minute), 6)

	last, ok := LastClosed(candles, time.Minute, now)
	require.True(t, ok)
	assert.Equal(t, candles[4].Close, last.Close)

	_, ok = LastClosed(nil, time.Minute, now)
	assert.False(t, ok)

	_, ok = LastClosed(candles[5:], time.Minute, now)
	assert.False(t, ok, "only the forming candle present")
}
