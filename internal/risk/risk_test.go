package risk

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFor(t *testing.T) {
	tests := []struct {
		tier Tier
		want Params
	}{
		{Low, Params{PositionSize: 0.10, StopLoss: 0.02, TakeProfit: 0.03}},
		{Medium, Params{PositionSize: 0.25, StopLoss: 0.03, TakeProfit: 0.05}},
		{High, Params{PositionSize: 0.50, StopLoss: 0.05, TakeProfit: 0.08}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			got, err := ParamsFor(tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Greater(t, got.PositionSize, 0.0)
			assert.LessOrEqual(t, got.PositionSize, 1.0)
		})
	}

	_, err := ParamsFor("extreme")
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, High, tier)

	_, err = ParseTier("")
	assert.ErrorIs(t, err, ErrUnknownTier)

	var decoded struct {
		Tier Tier `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"Medium"}`), &decoded))
	assert.Equal(t, Medium, decoded.Tier)
	assert.Error(t, json.Unmarshal([]byte(`{"tier":"yolo"}`), &decoded))
}

func TestPositionBudget(t *testing.T) {
	p := Params{PositionSize: 0.25}
	assert.Equal(t, 250.0, p.PositionBudget(1000, 1000))
	assert.Equal(t, 100.0, p.PositionBudget(1000, 100), "capped by cash")
	assert.Equal(t, 0.0, p.PositionBudget(1000, -5))
}

func TestExitReason(t *testing.T) {
	p, err := ParamsFor(Medium)
	require.NoError(t, err)

	assert.Equal(t, ReasonTakeProfit, p.ExitReason(100, 105))
	assert.Equal(t, ReasonTakeProfit, p.ExitReason(100, 120))
	assert.Equal(t, ReasonStopLoss, p.ExitReason(100, 97))
	assert.Equal(t, ReasonStopLoss, p.ExitReason(100, 50))
	assert.Empty(t, p.ExitReason(100, 104.9))
	assert.Empty(t, p.ExitReason(100, 97.5))
	assert.Empty(t, p.ExitReason(0, 97.5))
}

func TestLimits_AllowEntry(t *testing.T) {
	l := Limits{MaxDailyLoss: 0.05}
	assert.True(t, l.AllowEntry(1000, 1000))
	assert.True(t, l.AllowEntry(1000, 960))
	assert.True(t, l.AllowEntry(1000, 950))
	assert.False(t, l.AllowEntry(1000, 949))
	assert.True(t, l.AllowEntry(1000, 1200))

	assert.True(t, Limits{}.AllowEntry(1000, 1), "zero disables the limit")
}
