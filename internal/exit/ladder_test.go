package exit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLadder_Validation(t *testing.T) {
	_, err := NewLadder(SideStopLoss, nil, 1_000)
	assert.Error(t, err, "empty ladder must be rejected")

	_, err = NewLadder(SideStopLoss, []LevelConfig{
		{TriggerRatio: 0.5, Fraction: 0.5},
		{TriggerRatio: 0.7, Fraction: 0.5},
	}, 1_000)
	assert.Error(t, err, "stop-loss triggers must decrease")

	_, err = NewLadder(SideTakeProfit, []LevelConfig{
		{TriggerRatio: 2.0, Fraction: 0.5},
		{TriggerRatio: 1.5, Fraction: 0.5},
	}, 1_000)
	assert.Error(t, err, "take-profit triggers must increase")

	_, err = NewLadder(SideTakeProfit, []LevelConfig{
		{TriggerRatio: 1.5, Fraction: 1.5},
	}, 1_000)
	assert.Error(t, err, "fraction above 1 must be rejected")

	_, err = NewLadder(SideStopLoss, []LevelConfig{
		{TriggerRatio: 0, Fraction: 0.5},
	}, 1_000)
	assert.Error(t, err, "zero trigger must be rejected")
}

func TestNewLadder_CapsOversubscribedFractions(t *testing.T) {
	// The default take-profit fractions sum to 1.2; the last rung must
	// be squeezed to whatever is left.
	ladder, err := NewLadder(SideTakeProfit, DefaultTakeProfitLevels(), 1_000)
	require.NoError(t, err)

	var total uint64
	for _, level := range ladder.levels {
		total += level.Amount
	}
	assert.Equal(t, uint64(1_000), total)
	assert.Equal(t, uint64(0), ladder.levels[4].Amount, "the oversubscribed rung gets zero")
}

func TestLadder_FiresOnceAndLatches(t *testing.T) {
	ladder, err := NewLadder(SideStopLoss, DefaultStopLossLevels(), 1_000)
	require.NoError(t, err)

	fires := ladder.Observe(0.65)
	require.Len(t, fires, 1)
	assert.Equal(t, 0.7, fires[0].TriggerRatio)
	assert.Equal(t, uint64(500), fires[0].Amount)

	// Oscillating back above and below the trigger must not refire.
	assert.Empty(t, ladder.Observe(0.9))
	assert.Empty(t, ladder.Observe(0.65))
	assert.False(t, ladder.Exhausted())
}

func TestLadder_GapCrossingFiresAllPassedLevels(t *testing.T) {
	ladder, err := NewLadder(SideStopLoss, DefaultStopLossLevels(), 1_000)
	require.NoError(t, err)

	fires := ladder.Observe(0.4)
	require.Len(t, fires, 2, "a gap through both triggers fires both rungs")
	assert.Equal(t, 0.7, fires[0].TriggerRatio)
	assert.Equal(t, 0.5, fires[1].TriggerRatio)
	assert.True(t, ladder.Exhausted())
}

func TestLadder_TakeProfitDirection(t *testing.T) {
	ladder, err := NewLadder(SideTakeProfit, DefaultTakeProfitLevels(), 1_000)
	require.NoError(t, err)

	assert.Empty(t, ladder.Observe(1.2), "below the first trigger nothing fires")

	fires := ladder.Observe(1.6)
	require.Len(t, fires, 1)
	assert.Equal(t, uint64(400), fires[0].Amount)

	fires = ladder.Observe(12.0)
	// Levels 2x, 3x, 5x fire; the 10x rung latched too but its capped
	// amount is zero, so it emits nothing.
	require.Len(t, fires, 3)
	assert.True(t, ladder.Exhausted())
}

func TestLadder_ExactTriggerFires(t *testing.T) {
	ladder, err := NewLadder(SideStopLoss, DefaultStopLossLevels(), 1_000)
	require.NoError(t, err)

	fires := ladder.Observe(0.7)
	require.Len(t, fires, 1, "touching the trigger exactly counts as a crossing")
}
