package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `profiles:
  - id: btc-scalper
    symbol: btcusdt
    size: 0.002
    stop_points: 250
    target_points: 500
    window_start: "07:00"
    window_end: "21:00"
    environment: replay
    policy: scalper
    daily_target: 150
    daily_loss_limit: -75
    enabled: true
  - id: eth-sniper
    symbol: ETHUSDT
    size: 0.05
    environment: LIVE
    policy: SNIPER
    daily_loss_limit: -100
    enabled: true
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedLoaderParsesAndNormalizes(t *testing.T) {
	l, err := NewSeedLoader(writeSeed(t, seedYAML))
	require.NoError(t, err)
	defer l.Close()

	profiles := l.Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "BTCUSDT", profiles[0].Symbol)
	assert.Equal(t, EnvReplay, profiles[0].Environment)
	assert.Equal(t, 1, profiles[0].Position, "positions default to file order")
	assert.Equal(t, 2, profiles[1].Position)
}

func TestSeedLoaderRejectsDuplicateIDs(t *testing.T) {
	dup := `profiles:
  - {id: a, symbol: BTCUSDT, size: 1, environment: LIVE}
  - {id: a, symbol: ETHUSDT, size: 1, environment: LIVE}
`
	_, err := NewSeedLoader(writeSeed(t, dup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSeedLoaderRejectsInvalidProfile(t *testing.T) {
	_, err := NewSeedLoader(writeSeed(t, "profiles:\n  - {id: a, symbol: BTCUSDT, size: 0, environment: LIVE}\n"))
	assert.Error(t, err)
}

func TestSeedLoaderWatchNotifies(t *testing.T) {
	path := writeSeed(t, seedYAML)
	l, err := NewSeedLoader(path)
	require.NoError(t, err)
	defer l.Close()

	changed := make(chan []Profile, 1)
	l.Subscribe(func(profiles []Profile) {
		select {
		case changed <- profiles:
		default:
		}
	})
	require.NoError(t, l.Watch())

	updated := `profiles:
  - {id: sol-only, symbol: SOLUSDT, size: 1, environment: REPLAY, enabled: true}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case profiles := <-changed:
		require.Len(t, profiles, 1)
		assert.Equal(t, "SOLUSDT", profiles[0].Symbol)
	case <-time.After(3 * time.Second):
		t.Fatal("listener was not notified after seed rewrite")
	}
}
