package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() Profile {
	return Profile{
		ID:             "btc-day",
		Symbol:         "btcusdt",
		Size:           0.01,
		Environment:    "live",
		Policy:         "scalper",
		DailyLossLimit: -50,
	}
}

func TestNormalizeUppercasesEnums(t *testing.T) {
	p := validProfile()
	p.Normalize()
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, EnvLive, p.Environment)
	assert.Equal(t, PolicyScalper, p.Policy)
}

func TestValidate(t *testing.T) {
	p := validProfile()
	p.Normalize()
	require.NoError(t, p.Validate())

	bad := p
	bad.Size = 0
	assert.Error(t, bad.Validate())

	bad = p
	bad.Environment = "SANDBOX"
	assert.Error(t, bad.Validate())

	bad = p
	bad.Policy = "YOLO"
	assert.Error(t, bad.Validate())

	bad = p
	bad.DailyLossLimit = 50
	assert.Error(t, bad.Validate(), "loss limit must not be positive")

	ok := p
	ok.Policy = PolicyUnrestricted
	assert.NoError(t, ok.Validate())
}
