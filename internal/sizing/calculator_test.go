package sizing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseLong() TradeInputs {
	return TradeInputs{
		TotalCapital:  10000,
		LiquidCapital: 10000,
		RiskPercent:   1,
		EntryPrice:    100,
		StopLossPrice: 99,
		TargetPrice:   105,
		Direction:     Long,
		Leverage:      1,
	}
}

func TestSuggestStopLoss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		entry     float64
		liquid    float64
		risk      float64
		leverage  float64
		direction Direction
		want      float64
	}{
		{"long", 100, 10000, 1, 1, Long, 99},
		{"short", 100, 10000, 1, 1, Short, 101},
		{"long leveraged", 100, 10000, 1, 10, Long, 99.9},
		{"short two percent", 50, 5000, 2, 2, Short, 50.5},
		{"zero entry", 0, 10000, 1, 1, Long, 0},
		{"zero leverage", 100, 10000, 1, 0, Long, 0},
		{"zero capital", 100, 0, 1, 1, Short, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SuggestStopLoss(tt.entry, tt.liquid, tt.risk, tt.leverage, tt.direction)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestATRStop(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 94, ATRStop(100, 3, 2, Long), 1e-9)
	assert.InDelta(t, 106, ATRStop(100, 3, 2, Short), 1e-9)
}

func TestCalculateTrade_LongScenario(t *testing.T) {
	t.Parallel()

	got, err := CalculateTrade(baseLong())
	require.NoError(t, err)

	assert.InDelta(t, 100.0, got.RiskAmount, 1e-9)
	assert.InDelta(t, 1.0, got.RiskPerUnit, 1e-9)
	assert.InDelta(t, 100.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 10000.0, got.CapitalRequired, 1e-9)
	assert.InDelta(t, 500.0, got.ExpectedReward, 1e-9)
	assert.InDelta(t, 5.0, got.RewardToRisk, 1e-9)
	assert.InDelta(t, 99.0, got.SuggestedStop, 1e-9)
	assert.InDelta(t, 99.0, got.EffectiveStop, 1e-9)
	assert.Zero(t, got.TotalCommission)
}

func TestCalculateTrade_ShortScenario(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.Direction = Short
	in.StopLossPrice = 102
	in.TargetPrice = 94

	got, err := CalculateTrade(in)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 5000.0, got.CapitalRequired, 1e-9)
	assert.InDelta(t, 300.0, got.ExpectedReward, 1e-9)
	assert.InDelta(t, 3.0, got.RewardToRisk, 1e-9)
	assert.InDelta(t, 101.0, got.SuggestedStop, 1e-9)
}

func TestCalculateTrade_UsesSuggestedStopWhenOmitted(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.StopLossPrice = 0

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 99.0, got.EffectiveStop, 1e-9)
	assert.InDelta(t, 100.0, got.PositionSize, 1e-9)
}

func TestCalculateTrade_DirectionConsistency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		direction Direction
		stop      float64
		message   string
	}{
		{"long stop above entry", Long, 101, "stop loss must be below entry price for a Long trade"},
		{"long stop at entry", Long, 100, "stop loss price cannot equal entry price"},
		{"short stop below entry", Short, 95, "stop loss must be above entry price for a Short trade"},
		{"short stop at entry", Short, 100, "stop loss price cannot equal entry price"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := baseLong()
			in.Direction = tt.direction
			in.StopLossPrice = tt.stop

			got, err := CalculateTrade(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, TradeMetrics{}, got)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "stop_loss_price", verr.Field)
		})
	}
}

func TestCalculateTrade_RejectsInvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mut   func(*TradeInputs)
		field string
	}{
		{"zero entry", func(in *TradeInputs) { in.EntryPrice = 0 }, "entry_price"},
		{"negative entry", func(in *TradeInputs) { in.EntryPrice = -5 }, "entry_price"},
		{"zero leverage", func(in *TradeInputs) { in.Leverage = 0 }, "leverage"},
		{"fractional leverage", func(in *TradeInputs) { in.Leverage = 0.5 }, "leverage"},
		{"negative liquid", func(in *TradeInputs) { in.LiquidCapital = -1 }, "liquid_capital"},
		{"zero risk", func(in *TradeInputs) { in.RiskPercent = 0 }, "risk_percent"},
		{"risk above 100", func(in *TradeInputs) { in.RiskPercent = 100.5 }, "risk_percent"},
		{"negative target", func(in *TradeInputs) { in.TargetPrice = -1 }, "target_price"},
		{"negative commission", func(in *TradeInputs) { in.CommissionPerSide = -1 }, "commission_per_side"},
		{"full slippage", func(in *TradeInputs) { in.SlippagePercent = 100 }, "slippage_percent"},
		{"unknown direction", func(in *TradeInputs) { in.Direction = "Sideways" }, "direction"},
		{"unknown mode", func(in *TradeInputs) { in.Mode = "double" }, "mode"},
		{"atr without value", func(in *TradeInputs) { in.UseATR = true; in.ATRMultiplier = 2 }, "atr_value"},
		{"atr without multiplier", func(in *TradeInputs) { in.UseATR = true; in.ATRValue = 2 }, "atr_multiplier"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := baseLong()
			tt.mut(&in)

			_, err := CalculateTrade(in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCalculateTrade_ZeroCapitalIsDegenerate(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.LiquidCapital = 0

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.Zero(t, got.RiskAmount)
	assert.Zero(t, got.PositionSize)
	assert.Zero(t, got.CapitalRequired)
	assert.Zero(t, got.ExpectedReward)
	assert.Zero(t, got.RewardToRisk)
}

func TestCalculateTrade_Idempotent(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.CommissionPerSide = 3
	in.SlippagePercent = 0.2

	first, err := CalculateTrade(in)
	require.NoError(t, err)
	second, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculateTrade_RiskAmountInvariant(t *testing.T) {
	t.Parallel()

	for _, risk := range []float64{0.25, 1, 2.5, 10, 100} {
		in := baseLong()
		in.LiquidCapital = 12345.67
		in.RiskPercent = risk

		got, err := CalculateTrade(in)
		require.NoError(t, err)
		assert.InDelta(t, in.LiquidCapital*risk/100, got.RiskAmount, 1e-9)
		assert.GreaterOrEqual(t, got.PositionSize, 0.0)
		assert.GreaterOrEqual(t, got.CapitalRequired, 0.0)
	}
}

func TestCalculateTrade_RewardScalesWithTargetDistance(t *testing.T) {
	t.Parallel()

	near := baseLong()
	near.TargetPrice = 103
	far := baseLong()
	far.TargetPrice = 106

	a, err := CalculateTrade(near)
	require.NoError(t, err)
	b, err := CalculateTrade(far)
	require.NoError(t, err)

	assert.InDelta(t, 2*a.ExpectedReward, b.ExpectedReward, 1e-9)
	assert.InDelta(t, 2*a.RewardToRisk, b.RewardToRisk, 1e-9)
}

func TestCalculateTrade_LeverageHalvesCapital(t *testing.T) {
	t.Parallel()

	one := baseLong()
	one.Leverage = 2
	two := baseLong()
	two.Leverage = 4

	a, err := CalculateTrade(one)
	require.NoError(t, err)
	b, err := CalculateTrade(two)
	require.NoError(t, err)

	assert.InDelta(t, a.PositionSize, b.PositionSize, 1e-9)
	assert.InDelta(t, a.CapitalRequired/2, b.CapitalRequired, 1e-9)
}

func TestCalculateTrade_LeveragedUnitsMode(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.Leverage = 5
	in.Mode = ModeLeveragedUnits

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 50000.0, got.PositionValue, 1e-9)
	assert.InDelta(t, 10000.0, got.CapitalRequired, 1e-9)
	assert.InDelta(t, 2500.0, got.ExpectedReward, 1e-9)
}

func TestCalculateTrade_Commission(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.CommissionPerSide = 5

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got.TotalCommission, 1e-9)
	assert.InDelta(t, 90.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 440.0, got.ExpectedReward, 1e-9)
	assert.InDelta(t, 4.4, got.RewardToRisk, 1e-9)
}

func TestCalculateTrade_CommissionMonotonic(t *testing.T) {
	t.Parallel()

	prev, err := CalculateTrade(baseLong())
	require.NoError(t, err)

	for _, c := range []float64{1, 5, 10, 25, 49} {
		in := baseLong()
		in.CommissionPerSide = c

		got, err := CalculateTrade(in)
		require.NoError(t, err)
		assert.Less(t, got.PositionSize, prev.PositionSize, "commission %v", c)
		assert.Less(t, got.ExpectedReward, prev.ExpectedReward, "commission %v", c)
		prev = got
	}

	for _, c := range []float64{50, 80} {
		in := baseLong()
		in.CommissionPerSide = c

		got, err := CalculateTrade(in)
		require.NoError(t, err)
		assert.Zero(t, got.PositionSize, "commission %v", c)
		assert.Zero(t, got.ExpectedReward, "commission %v", c)
	}
}

func TestCalculateTrade_Slippage(t *testing.T) {
	t.Parallel()

	long := baseLong()
	long.StopLossPrice = 98
	long.SlippagePercent = 1

	got, err := CalculateTrade(long)
	require.NoError(t, err)
	assert.InDelta(t, 97.02, got.EffectiveStop, 1e-9)
	assert.InDelta(t, 2.98, got.RiskPerUnit, 1e-9)
	assert.InDelta(t, 100/2.98, got.PositionSize, 1e-9)

	short := baseLong()
	short.Direction = Short
	short.StopLossPrice = 102
	short.TargetPrice = 90
	short.SlippagePercent = 1

	got, err = CalculateTrade(short)
	require.NoError(t, err)
	assert.InDelta(t, 103.02, got.EffectiveStop, 1e-9)
	assert.InDelta(t, 3.02, got.RiskPerUnit, 1e-9)
}

func TestCalculateTrade_ATRStop(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.StopLossPrice = 0
	in.UseATR = true
	in.ATRValue = 1.5
	in.ATRMultiplier = 2

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 97.0, got.SuggestedStop, 1e-9)
	assert.InDelta(t, 97.0, got.EffectiveStop, 1e-9)
	assert.InDelta(t, 100.0/3, got.PositionSize, 1e-9)

	// a user supplied stop still wins over the ATR suggestion
	in.StopLossPrice = 99
	got, err = CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 97.0, got.SuggestedStop, 1e-9)
	assert.InDelta(t, 99.0, got.EffectiveStop, 1e-9)
	assert.InDelta(t, 100.0, got.PositionSize, 1e-9)
}

func TestCalculateTrade_ATRStopBelowZero(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.StopLossPrice = 0
	in.UseATR = true
	in.ATRValue = 60
	in.ATRMultiplier = 2

	_, err := CalculateTrade(in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Direction{"Long": Long, "long": Long, " SHORT ": Short, "sell": Short} {
		got, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseDirection("flat")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalculateTrade_RejectsOverflowingResults(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.LiquidCapital = 1e308
	in.RiskPercent = 100

	got, err := CalculateTrade(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "results overflow")
	assert.Equal(t, TradeMetrics{}, got)
}

func TestCalculateTrade_CommissionExhaustsBudget(t *testing.T) {
	t.Parallel()

	in := baseLong()
	in.CommissionPerSide = 60

	got, err := CalculateTrade(in)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, got.TotalCommission, 1e-9)
	assert.Zero(t, got.PositionSize)
	assert.Zero(t, got.ExpectedReward)
	assert.Zero(t, got.RewardToRisk)
}
