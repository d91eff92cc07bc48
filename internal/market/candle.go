package market

import "time"

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// DayRange is the previous session's high/low/close.
type DayRange struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Granularity is one of the fixed timeframes a snapshot carries.
type Granularity struct {
	Name     string
	Interval string
	Step     time.Duration
}

var (
	// Binance has no 2m interval, so the second-fastest frame maps to 3m.
	GranularityFast   = Granularity{Name: "fast", Interval: "1m", Step: time.Minute}
	GranularityFast2x = Granularity{Name: "fast2x", Interval: "3m", Step: 3 * time.Minute}
	GranularityMedium = Granularity{Name: "medium", Interval: "5m", Step: 5 * time.Minute}
	GranularityMacro  = Granularity{Name: "macro", Interval: "15m", Step: 15 * time.Minute}
)

// Granularities lists the snapshot timeframes, fastest first.
func Granularities() []Granularity {
	return []Granularity{GranularityFast, GranularityFast2x, GranularityMedium, GranularityMacro}
}

// Snapshot is an immutable per-cycle bundle of candle series plus the prior
// session range. It is built fresh every cycle and discarded afterwards.
type Snapshot struct {
	Symbol  string
	Fast    []Candle
	Fast2x  []Candle
	Medium  []Candle
	Macro   []Candle
	PrevDay DayRange
	TakenAt time.Time
}

// Empty reports whether the fast series is unusable, which skips the profile
// for this cycle.
func (s Snapshot) Empty() bool {
	return len(s.Fast) == 0
}
