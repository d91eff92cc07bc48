package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trapline/internal/broker"
	"trapline/internal/market"
	"trapline/internal/oracle"
	"trapline/internal/relay"
	"trapline/internal/store"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) Candles(ctx context.Context, symbol string, g market.Granularity, limit int) ([]market.Candle, error) {
	args := m.Called(ctx, symbol, g, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.Candle), args.Error(1)
}

func (m *MockGateway) PriorDayRange(ctx context.Context, symbol string) (market.DayRange, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(market.DayRange), args.Error(1)
}

func (m *MockGateway) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	args := m.Called(ctx, symbol)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) LastPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockGateway) SubmitMarketOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderResult), args.Error(1)
}

func (m *MockGateway) DailyRealizedPnL(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockGateway) AccountSummary(ctx context.Context) (broker.AccountInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(broker.AccountInfo), args.Error(1)
}

type MockDecider struct {
	mock.Mock
}

func (m *MockDecider) Decide(ctx context.Context, req oracle.Request) (oracle.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(oracle.Result), args.Error(1)
}

// recordingRelay captures published events for assertions.
type recordingRelay struct {
	mu     sync.Mutex
	events []relay.Event
}

func (r *recordingRelay) Publish(evt relay.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingRelay) byType(evtType string) []relay.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []relay.Event
	for _, e := range r.events {
		if e.Type == evtType {
			out = append(out, e)
		}
	}
	return out
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
