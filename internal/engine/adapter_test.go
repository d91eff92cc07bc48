package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trapline/internal/market"
	"trapline/internal/oracle"
	"trapline/internal/profile"
)

type stubRenderer struct {
	images []oracle.ImageAttachment
	err    error
	calls  int
}

func (s *stubRenderer) Render(ctx context.Context, snap market.Snapshot) ([]oracle.ImageAttachment, error) {
	s.calls++
	return s.images, s.err
}

func snapshotAt(minute int) market.Snapshot {
	return market.Snapshot{
		Symbol:  "BTCUSDT",
		Fast:    fastSeries(100, 100.5),
		Medium:  fastSeries(100, 100.5),
		TakenAt: time.Date(2026, 3, 10, 12, minute, 7, 0, time.UTC),
	}
}

func TestConsultBuildsTablesFastestFirst(t *testing.T) {
	dec := new(MockDecider)
	states := NewStateStore()
	a := &Adapter{Decider: dec, States: states}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("m"), nil)

	snap := snapshotAt(3)
	snap.Fast2x = fastSeries(100, 100.5)
	snap.Macro = fastSeries(100, 100.5)
	a.Consult(context.Background(), profile.Profile{ID: "p1", Symbol: "BTCUSDT"}, snap)

	require.Len(t, got.Tables, 4)
	assert.Equal(t, "fast", got.Tables[0].Name)
	assert.Equal(t, "macro", got.Tables[3].Name)
	assert.Contains(t, got.Tables[0].CSV, "Order=OLDEST->NEWEST")
}

func TestConsultSkipsEmptySeries(t *testing.T) {
	dec := new(MockDecider)
	a := &Adapter{Decider: dec, States: NewStateStore()}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("m"), nil)

	a.Consult(context.Background(), profile.Profile{ID: "p1"}, snapshotAt(3))
	assert.Len(t, got.Tables, 2, "empty series produce no table")
}

func TestConsultAttachesImagesOnlyOnFiveMinuteMarks(t *testing.T) {
	dec := new(MockDecider)
	r := &stubRenderer{images: []oracle.ImageAttachment{{DataURI: "data:image/png;base64,AA"}}}
	a := &Adapter{Decider: dec, Renderer: r, States: NewStateStore()}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("m"), nil)

	a.Consult(context.Background(), profile.Profile{ID: "p1"}, snapshotAt(3))
	assert.Zero(t, r.calls, "off the mark: no render attempt")
	assert.Empty(t, got.Images)

	a.Consult(context.Background(), profile.Profile{ID: "p1"}, snapshotAt(10))
	assert.Equal(t, 1, r.calls)
	assert.Len(t, got.Images, 1)
}

func TestConsultCapsImageCount(t *testing.T) {
	dec := new(MockDecider)
	r := &stubRenderer{images: []oracle.ImageAttachment{
		{DataURI: "1"}, {DataURI: "2"}, {DataURI: "3"},
	}}
	a := &Adapter{Decider: dec, Renderer: r, States: NewStateStore()}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("m"), nil)

	a.Consult(context.Background(), profile.Profile{ID: "p1"}, snapshotAt(15))
	assert.Len(t, got.Images, maxImages)
}

func TestConsultRenderFailureFallsBackToTextOnly(t *testing.T) {
	dec := new(MockDecider)
	r := &stubRenderer{err: assert.AnError}
	a := &Adapter{Decider: dec, Renderer: r, States: NewStateStore()}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("m"), nil)

	a.Consult(context.Background(), profile.Profile{ID: "p1"}, snapshotAt(20))
	assert.Empty(t, got.Images, "a render fault must not block the consultation")
}

func TestConsultCarriesStateIntoRequest(t *testing.T) {
	dec := new(MockDecider)
	states := NewStateStore()
	states.SetMemory("p1", "support at 64k", 4)
	a := &Adapter{Decider: dec, States: states}

	var got oracle.Request
	dec.On("Decide", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(oracle.Request)
	}).Return(waitResult("rewritten"), nil)

	d := a.Consult(context.Background(), profile.Profile{ID: "p1", Symbol: "BTCUSDT", Strategy: "momo"}, snapshotAt(3))

	assert.Equal(t, "support at 64k", got.Memory)
	assert.Equal(t, 4, got.Relevance)
	assert.Equal(t, "momo", got.Strategy)

	assert.Equal(t, oracle.ActionWait, d.Decision)
	assert.Equal(t, "rewritten", states.Snapshot("p1").Memory)
}
