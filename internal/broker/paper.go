package broker

import (
	"sync/atomic"
	"time"

	"trapline/internal/logger"
)

// PaperTrader simulates fills for replay profiles. It never reaches the live
// gateway: the ticket is fabricated and the supplied price is echoed back as
// the fill.
type PaperTrader struct {
	seq   atomic.Int64
	nowFn func() time.Time
}

func NewPaperTrader() *PaperTrader {
	return &PaperTrader{nowFn: time.Now}
}

func (p *PaperTrader) Simulate(req OrderRequest, price float64) OrderResult {
	n := p.seq.Add(1)
	now := p.nowFn
	if now == nil {
		now = time.Now
	}
	// Tickets look like live ones: date prefix plus a session sequence.
	ticket := now().UTC().Format("20060102") + paperTicketSep + pad6(n)
	logger.Infof("PaperTrader: simulated %s %s price=%v ticket=%s", req.Side, req.Symbol, price, ticket)
	return OrderResult{Ticket: ticket, FillPrice: price}
}

const paperTicketSep = "9"

func pad6(n int64) string {
	digits := []byte{'0', '0', '0', '0', '0', '0'}
	for i := 5; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}
