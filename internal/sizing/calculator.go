package sizing

import (
	"fmt"
	"math"
)

// SuggestStopLoss 反推一个止损价，使最大杠杆满仓时触发止损恰好亏掉风险金额。
// 入场价、杠杆或流动资金非正时返回 0。
func SuggestStopLoss(entryPrice, liquidCapital, riskPercent, leverage float64, direction Direction) float64 {
	if entryPrice <= 0 || leverage <= 0 || liquidCapital <= 0 {
		return 0
	}

	riskAmount := liquidCapital * (riskPercent / 100)
	maxUnits := (liquidCapital * leverage) / entryPrice
	requiredRiskPerUnit := safeDivide(riskAmount, maxUnits)

	if direction == Short {
		return entryPrice + requiredRiskPerUnit
	}
	return entryPrice - requiredRiskPerUnit
}

// ATRStop 以 ATR 的倍数放置止损。
func ATRStop(entryPrice, atrValue, atrMultiplier float64, direction Direction) float64 {
	distance := atrValue * atrMultiplier
	if direction == Short {
		return entryPrice + distance
	}
	return entryPrice - distance
}

// CalculateTrade 根据输入计算风险金额、仓位、保证金与盈亏比。
// 输入在计算前统一校验，违反约束时返回 ErrInvalidInput 且不返回部分结果；
// 校验通过后所有除法均有保护，分母非正时对应指标为 0。
// 佣金吃掉全部风险预算时仓位为 0，ExpectedReward 与 RewardToRisk 同样为 0，
// 不会出现只扣佣金的负预期收益。
// 输入过大导致结果溢出为 Inf 或 NaN 时返回 ErrInvalidInput。
func CalculateTrade(in TradeInputs) (TradeMetrics, error) {
	if err := validate(in); err != nil {
		return TradeMetrics{}, err
	}

	mode := in.Mode
	if mode == "" {
		mode = ModeMargin
	}

	var m TradeMetrics
	m.RiskAmount = in.LiquidCapital * (in.RiskPercent / 100)

	if in.UseATR {
		m.SuggestedStop = ATRStop(in.EntryPrice, in.ATRValue, in.ATRMultiplier, in.Direction)
	} else {
		m.SuggestedStop = SuggestStopLoss(in.EntryPrice, in.LiquidCapital, in.RiskPercent, in.Leverage, in.Direction)
	}

	stop := in.StopLossPrice
	if stop == 0 {
		if m.SuggestedStop <= 0 {
			return TradeMetrics{}, invalid("stop_loss_price", "stop loss price is required when no stop can be suggested")
		}
		stop = m.SuggestedStop
	}
	if err := checkStop(in.Direction, in.EntryPrice, stop, ""); err != nil {
		return TradeMetrics{}, err
	}

	effective := stop
	if in.SlippagePercent > 0 {
		slip := in.SlippagePercent / 100
		if in.Direction == Short {
			effective = stop * (1 + slip)
		} else {
			effective = stop * (1 - slip)
		}
		if err := checkStop(in.Direction, in.EntryPrice, effective, " after slippage"); err != nil {
			return TradeMetrics{}, err
		}
	}
	m.EffectiveStop = effective
	m.RiskPerUnit = math.Abs(in.EntryPrice - effective)

	budget := m.RiskAmount
	if in.CommissionPerSide > 0 {
		m.TotalCommission = 2 * in.CommissionPerSide
		budget = math.Max(m.RiskAmount-m.TotalCommission, 0)
	}

	m.PositionSize = safeDivide(budget, m.RiskPerUnit)
	if mode == ModeLeveragedUnits {
		m.PositionSize *= in.Leverage
	}

	m.PositionValue = m.PositionSize * in.EntryPrice
	m.CapitalRequired = safeDivide(m.PositionValue, in.Leverage)

	if m.PositionSize > 0 {
		rewardPerUnit := math.Abs(in.TargetPrice - in.EntryPrice)
		m.ExpectedReward = rewardPerUnit*m.PositionSize - m.TotalCommission
	}
	m.RewardToRisk = safeDivide(m.ExpectedReward, m.RiskAmount)

	if !finite(m.RiskAmount, m.SuggestedStop, m.EffectiveStop, m.RiskPerUnit, m.PositionSize,
		m.PositionValue, m.CapitalRequired, m.TotalCommission, m.ExpectedReward, m.RewardToRisk) {
		return TradeMetrics{}, invalid("inputs", "inputs are too large: results overflow")
	}
	return m, nil
}

func validate(in TradeInputs) error {
	switch in.Direction {
	case Long, Short:
	default:
		return invalid("direction", fmt.Sprintf("direction must be Long or Short, got %q", in.Direction))
	}
	if _, err := ParseMode(string(in.Mode)); err != nil {
		return err
	}
	if !finite(in.TotalCapital, in.LiquidCapital, in.RiskPercent, in.EntryPrice, in.StopLossPrice,
		in.TargetPrice, in.Leverage, in.CommissionPerSide, in.SlippagePercent, in.ATRValue, in.ATRMultiplier) {
		return invalid("inputs", "inputs must be finite numbers")
	}
	if in.EntryPrice <= 0 {
		return invalid("entry_price", "entry price must be positive")
	}
	if in.Leverage < 1 {
		return invalid("leverage", "leverage must be at least 1")
	}
	if in.LiquidCapital < 0 {
		return invalid("liquid_capital", "liquid capital must not be negative")
	}
	if in.TotalCapital < 0 {
		return invalid("total_capital", "total capital must not be negative")
	}
	if in.RiskPercent <= 0 || in.RiskPercent > 100 {
		return invalid("risk_percent", "risk percent must be greater than 0 and at most 100")
	}
	if in.StopLossPrice < 0 {
		return invalid("stop_loss_price", "stop loss price must not be negative")
	}
	if in.TargetPrice < 0 {
		return invalid("target_price", "target price must not be negative")
	}
	if in.CommissionPerSide < 0 {
		return invalid("commission_per_side", "commission per side must not be negative")
	}
	if in.SlippagePercent < 0 || in.SlippagePercent >= 100 {
		return invalid("slippage_percent", "slippage percent must be at least 0 and below 100")
	}
	if in.UseATR {
		if in.ATRValue <= 0 {
			return invalid("atr_value", "ATR value must be positive when ATR stops are enabled")
		}
		if in.ATRMultiplier <= 0 {
			return invalid("atr_multiplier", "ATR multiplier must be positive when ATR stops are enabled")
		}
	}
	return nil
}

func checkStop(direction Direction, entry, stop float64, suffix string) error {
	if stop < 0 {
		return invalid("stop_loss_price", "stop loss price must not be negative"+suffix)
	}
	if stop == entry {
		return invalid("stop_loss_price", "stop loss price cannot equal entry price"+suffix)
	}
	if direction == Long && stop > entry {
		return invalid("stop_loss_price", "stop loss must be below entry price for a Long trade"+suffix)
	}
	if direction == Short && stop < entry {
		return invalid("stop_loss_price", "stop loss must be above entry price for a Short trade"+suffix)
	}
	return nil
}

// safeDivide 分母非正时返回 0。
func safeDivide(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
