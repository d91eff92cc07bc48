package market

import (
	"context"
	"fmt"
	"time"

	"trapline/internal/logger"
)

// CandleSource is the slice of the broker gateway the fetcher needs.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, g Granularity, limit int) ([]Candle, error)
	PriorDayRange(ctx context.Context, symbol string) (DayRange, error)
}

const defaultSeriesLimit = 50

// Fetcher assembles a per-cycle Snapshot. Pure read, no state.
type Fetcher struct {
	Source CandleSource
	Limit  int
}

func NewFetcher(source CandleSource) *Fetcher {
	return &Fetcher{Source: source, Limit: defaultSeriesLimit}
}

func (f *Fetcher) Fetch(ctx context.Context, symbol string) (Snapshot, error) {
	if f == nil || f.Source == nil {
		return Snapshot{}, fmt.Errorf("fetcher not initialized")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultSeriesLimit
	}
	snap := Snapshot{Symbol: symbol, TakenAt: time.Now().UTC()}
	series := []struct {
		g    Granularity
		dest *[]Candle
	}{
		{GranularityFast, &snap.Fast},
		{GranularityFast2x, &snap.Fast2x},
		{GranularityMedium, &snap.Medium},
		{GranularityMacro, &snap.Macro},
	}
	for _, s := range series {
		candles, err := f.Source.Candles(ctx, symbol, s.g, limit)
		if err != nil {
			return Snapshot{}, fmt.Errorf("fetch %s %s candles: %w", symbol, s.g.Interval, err)
		}
		*s.dest = candles
	}
	prev, err := f.Source.PriorDayRange(ctx, symbol)
	if err != nil {
		// The prior-day range is context for the oracle, not a gate; a miss
		// is tolerable where an empty fast series is not.
		logger.Warnf("Fetcher: prior day range unavailable symbol=%s err=%v", symbol, err)
	} else {
		snap.PrevDay = prev
	}
	return snap, nil
}
