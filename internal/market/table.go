package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CandleTableOptions controls the metadata and precision of the CSV handed to
// the oracle.
type CandleTableOptions struct {
	Interval       string
	PricePrecision int
	Location       *time.Location
}

// PrecisionAuto derives the precision from the price magnitude.
const PrecisionAuto = math.MinInt32

// PrecisionRaw keeps the shortest round-trip representation.
const PrecisionRaw = -1

// BuildCandleTable renders a candle series as CSV with a metadata header
// line. Oldest row first; the oracle is told so explicitly.
func BuildCandleTable(candles []Candle, opts CandleTableOptions) string {
	if len(candles) == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecision(candles)
	}
	var b strings.Builder
	meta := []string{}
	if start := candles[0].OpenTime; start > 0 {
		meta = append(meta, fmt.Sprintf("WindowStart=%s", time.UnixMilli(start).In(loc).Format(time.RFC3339)))
	}
	if iv := strings.TrimSpace(opts.Interval); iv != "" {
		meta = append(meta, fmt.Sprintf("Interval=%s", strings.ToUpper(iv)))
	}
	meta = append(meta, "Order=OLDEST->NEWEST")
	b.WriteString("# " + strings.Join(meta, " ") + "\n")
	b.WriteString("Index,O,H,L,C,V\n")
	for idx, c := range candles {
		b.WriteString(strconv.Itoa(idx + 1))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Open, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.High, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Low, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Close, precision))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Volume, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

func autoPrecision(candles []Candle) int {
	maxVal := 0.0
	for _, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			if abs := math.Abs(v); abs > maxVal {
				maxVal = abs
			}
		}
	}
	switch {
	case maxVal >= 1000:
		return 1
	case maxVal >= 100:
		return 2
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}
