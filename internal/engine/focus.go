package engine

import "sync"

// Focus tracks the instrument the relay loops stream. The HTTP layer sets it,
// the market and tick loops read it.
type Focus struct {
	mu     sync.RWMutex
	symbol string
}

func NewFocus(symbol string) *Focus {
	return &Focus{symbol: symbol}
}

func (f *Focus) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.symbol
}

func (f *Focus) Set(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbol = symbol
}
