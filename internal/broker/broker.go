package broker

import (
	"context"

	"trapline/internal/market"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// OrderRequest is a market order with stop/target distances expressed in
// price-increment units (points).
type OrderRequest struct {
	Symbol       string
	Side         Side
	Size         float64
	StopPoints   int
	TargetPoints int
	Reason       string
}

type OrderResult struct {
	Ticket    string
	FillPrice float64
}

type AccountInfo struct {
	Balance float64
	Equity  float64
	Margin  float64
}

// Gateway is the broker capability set the core consumes. The live
// implementation talks to an exchange; the paper implementation fabricates
// fills without touching it.
type Gateway interface {
	Connect(ctx context.Context) error

	Candles(ctx context.Context, symbol string, g market.Granularity, limit int) ([]market.Candle, error)

	PriorDayRange(ctx context.Context, symbol string) (market.DayRange, error)

	HasOpenPosition(ctx context.Context, symbol string) (bool, error)

	LastPrice(ctx context.Context, symbol string) (float64, error)

	SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error)

	DailyRealizedPnL(ctx context.Context) (float64, error)

	AccountSummary(ctx context.Context) (AccountInfo, error)
}
