package oraclelog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "oracle.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, Record{
		TraceID: "t1", ProfileID: "p1", Symbol: "BTCUSDT",
		Decision: "WAIT", Relevance: 2, ImageCount: 0,
	}))
	require.NoError(t, s.Append(ctx, Record{
		TraceID: "t2", ProfileID: "p1", Symbol: "BTCUSDT",
		Decision: "BUY", Relevance: 5, ImageCount: 2,
	}))
	require.NoError(t, s.Append(ctx, Record{
		TraceID: "t3", ProfileID: "p2", Symbol: "ETHUSDT",
		Fallback: true, Error: "timeout",
	}))

	all, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].TraceID, "newest first")
	assert.True(t, all[0].Fallback)
	assert.NotZero(t, all[0].Timestamp)

	p1, err := s.Recent(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "BUY", p1[0].Decision)
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "oracle.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Append(context.Background(), Record{TraceID: "t"}))
	_, err = s.Recent(context.Background(), "", 1)
	assert.Error(t, err)
}
