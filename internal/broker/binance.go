package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"trapline/internal/logger"
	"trapline/internal/market"
)

// Config describes the live gateway connection.
type Config struct {
	APIKey             string
	SecretKey          string
	RESTBaseURL        string
	HTTPTimeout        time.Duration
	MinStopDistancePct float64
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}

type symbolRules struct {
	tickSize decimal.Decimal
	stepSize decimal.Decimal
}

// Binance implements Gateway on top of the go-binance futures client.
type Binance struct {
	cfg    Config
	client *futures.Client

	rulesMu sync.RWMutex
	rules   map[string]symbolRules
}

func NewBinance(cfg Config) *Binance {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.SecretKey)
	if base := strings.TrimSpace(final.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Binance{
		cfg:    final,
		client: client,
		rules:  make(map[string]symbolRules),
	}
}

// Connect pings the exchange and caches per-symbol tick/step sizes. A failure
// here is fatal to the orchestrator: nothing works without market data.
func (b *Binance) Connect(ctx context.Context) error {
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("binance ping: %w", err)
	}
	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return fmt.Errorf("binance exchange info: %w", err)
	}
	b.rulesMu.Lock()
	for _, sym := range info.Symbols {
		rules := symbolRules{
			tickSize: decimal.NewFromFloat(0.01),
			stepSize: decimal.NewFromFloat(0.001),
		}
		if pf := sym.PriceFilter(); pf != nil {
			if tick, perr := decimal.NewFromString(pf.TickSize); perr == nil && tick.IsPositive() {
				rules.tickSize = tick
			}
		}
		if lf := sym.LotSizeFilter(); lf != nil {
			if step, serr := decimal.NewFromString(lf.StepSize); serr == nil && step.IsPositive() {
				rules.stepSize = step
			}
		}
		b.rules[strings.ToUpper(sym.Symbol)] = rules
	}
	b.rulesMu.Unlock()
	logger.Infof("Binance: connected, %d symbols cached", len(info.Symbols))
	return nil
}

func (b *Binance) symbolRules(symbol string) symbolRules {
	b.rulesMu.RLock()
	defer b.rulesMu.RUnlock()
	if rules, ok := b.rules[strings.ToUpper(symbol)]; ok {
		return rules
	}
	return symbolRules{
		tickSize: decimal.NewFromFloat(0.01),
		stepSize: decimal.NewFromFloat(0.001),
	}
}

func (b *Binance) Candles(ctx context.Context, symbol string, g market.Granularity, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 50
	}
	kls, err := b.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval(g.Interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

func (b *Binance) PriorDayRange(ctx context.Context, symbol string) (market.DayRange, error) {
	kls, err := b.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval("1d").
		Limit(2).
		Do(ctx)
	if err != nil {
		return market.DayRange{}, err
	}
	// The last element is the running session; the one before it is the
	// completed prior day.
	if len(kls) < 2 || kls[len(kls)-2] == nil {
		return market.DayRange{}, fmt.Errorf("no prior day candle for %s", symbol)
	}
	prev := kls[len(kls)-2]
	return market.DayRange{
		High:  parseFloat(prev.High),
		Low:   parseFloat(prev.Low),
		Close: parseFloat(prev.Close),
	}, nil
}

func (b *Binance) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	positions, err := b.client.NewGetPositionRiskService().Symbol(strings.ToUpper(symbol)).Do(ctx)
	if err != nil {
		return false, err
	}
	for _, pos := range positions {
		if pos == nil {
			continue
		}
		if amt := parseFloat(pos.PositionAmt); amt != 0 {
			return true, nil
		}
	}
	return false, nil
}

func (b *Binance) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(strings.ToUpper(symbol)).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 || prices[0] == nil {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return parseFloat(prices[0].Price), nil
}

func (b *Binance) SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if !req.Side.Valid() {
		return OrderResult{}, fmt.Errorf("invalid order side %q", req.Side)
	}
	if req.Size <= 0 {
		return OrderResult{}, fmt.Errorf("invalid order size %v", req.Size)
	}
	symbol := strings.ToUpper(req.Symbol)
	rules := b.symbolRules(symbol)
	qty := normalizeQuantity(decimal.NewFromFloat(req.Size), rules.stepSize)
	if !qty.IsPositive() {
		return OrderResult{}, fmt.Errorf("size %v below step %s for %s", req.Size, rules.stepSize, symbol)
	}

	side := futures.SideTypeBuy
	if req.Side == SideSell {
		side = futures.SideTypeSell
	}
	resp, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return OrderResult{}, fmt.Errorf("submit %s %s: %w", req.Side, symbol, err)
	}
	fill := parseFloat(resp.AvgPrice)
	if fill <= 0 {
		if last, perr := b.LastPrice(ctx, symbol); perr == nil {
			fill = last
		}
	}
	result := OrderResult{
		Ticket:    strconv.FormatInt(resp.OrderID, 10),
		FillPrice: fill,
	}
	b.placeProtectiveLegs(ctx, req, symbol, rules, fill)
	return result, nil
}

// placeProtectiveLegs attaches stop-loss / take-profit close orders. A failed
// leg leaves the entry standing; it is logged, never retried here.
func (b *Binance) placeProtectiveLegs(ctx context.Context, req OrderRequest, symbol string, rules symbolRules, fill float64) {
	if fill <= 0 || (req.StopPoints <= 0 && req.TargetPoints <= 0) {
		return
	}
	exitSide := futures.SideTypeSell
	if req.Side == SideSell {
		exitSide = futures.SideTypeBuy
	}
	price := decimal.NewFromFloat(fill)
	stopDist := widenedDistance(price, req.StopPoints, rules.tickSize, b.cfg.MinStopDistancePct)
	targetDist := widenedDistance(price, req.TargetPoints, rules.tickSize, b.cfg.MinStopDistancePct)

	var stopPrice, targetPrice decimal.Decimal
	if req.Side == SideBuy {
		stopPrice = price.Sub(stopDist)
		targetPrice = price.Add(targetDist)
	} else {
		stopPrice = price.Add(stopDist)
		targetPrice = price.Sub(targetDist)
	}
	stopPrice = snapToTick(stopPrice, rules.tickSize)
	targetPrice = snapToTick(targetPrice, rules.tickSize)

	if req.StopPoints > 0 {
		_, err := b.client.NewCreateOrderService().
			Symbol(symbol).
			Side(exitSide).
			Type(futures.OrderTypeStopMarket).
			StopPrice(stopPrice.String()).
			ClosePosition(true).
			Do(ctx)
		if err != nil {
			logger.Errorf("Binance: stop leg failed symbol=%s stop=%s err=%v", symbol, stopPrice, err)
		}
	}
	if req.TargetPoints > 0 {
		_, err := b.client.NewCreateOrderService().
			Symbol(symbol).
			Side(exitSide).
			Type(futures.OrderTypeTakeProfitMarket).
			StopPrice(targetPrice.String()).
			ClosePosition(true).
			Do(ctx)
		if err != nil {
			logger.Errorf("Binance: target leg failed symbol=%s target=%s err=%v", symbol, targetPrice, err)
		}
	}
}

func (b *Binance) DailyRealizedPnL(ctx context.Context) (float64, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	incomes, err := b.client.NewGetIncomeHistoryService().
		IncomeType("REALIZED_PNL").
		StartTime(dayStart.UnixMilli()).
		Limit(1000).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, inc := range incomes {
		if inc == nil {
			continue
		}
		if v, perr := decimal.NewFromString(inc.Income); perr == nil {
			total = total.Add(v)
		}
	}
	pnl, _ := total.Float64()
	return pnl, nil
}

func (b *Binance) AccountSummary(ctx context.Context) (AccountInfo, error) {
	acct, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{
		Balance: parseFloat(acct.TotalWalletBalance),
		Equity:  parseFloat(acct.TotalMarginBalance),
		Margin:  parseFloat(acct.TotalInitialMargin),
	}, nil
}

// widenedDistance converts points*tick into an absolute distance, widened to
// the per-instrument minimum so thin-tick symbols do not end up with a stop
// inside the spread.
func widenedDistance(price decimal.Decimal, points int, tick decimal.Decimal, minPct float64) decimal.Decimal {
	dist := tick.Mul(decimal.NewFromInt(int64(points)))
	if minPct > 0 {
		floor := price.Mul(decimal.NewFromFloat(minPct))
		if dist.LessThan(floor) {
			dist = floor
		}
	}
	return dist
}

func snapToTick(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price
	}
	return price.Div(tick).Floor().Mul(tick)
}

func normalizeQuantity(size, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return size
	}
	return size.Div(step).Floor().Mul(step)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
