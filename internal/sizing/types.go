package sizing

import (
	"errors"
	"fmt"
	"strings"
)

// Direction 表示交易方向。
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// ParseDirection 不区分大小写地解析方向字符串。
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return "", invalid("direction", fmt.Sprintf("direction must be Long or Short, got %q", value))
	}
}

// Mode 决定杠杆作用于哪一个指标。
type Mode string

const (
	// ModeMargin 杠杆只降低所需保证金，仓位为不加杠杆的单位数。
	ModeMargin Mode = "margin"
	// ModeLeveragedUnits 仓位单位数按杠杆放大，保证金仍为仓位价值除以杠杆。
	ModeLeveragedUnits Mode = "leveraged_units"
)

// ParseMode 解析杠杆模式，空字符串视为 ModeMargin。
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeMargin:
		return ModeMargin, nil
	case ModeLeveragedUnits:
		return ModeLeveragedUnits, nil
	default:
		return "", invalid("mode", fmt.Sprintf("mode must be %q or %q, got %q", ModeMargin, ModeLeveragedUnits, value))
	}
}

// TradeInputs 为一次仓位计算的全部输入。
type TradeInputs struct {
	TotalCapital  float64   `json:"total_capital"`
	LiquidCapital float64   `json:"liquid_capital"`
	RiskPercent   float64   `json:"risk_percent"`    // 0-100
	EntryPrice    float64   `json:"entry_price"`
	StopLossPrice float64   `json:"stop_loss_price"` // 0 表示采用建议止损
	TargetPrice   float64   `json:"target_price"`
	Direction     Direction `json:"direction"`
	Leverage      float64   `json:"leverage"`

	CommissionPerSide float64 `json:"commission_per_side"` // 单边手续费，0 表示不计
	SlippagePercent   float64 `json:"slippage_percent"`    // 止损滑点百分比，0-100

	UseATR        bool    `json:"use_atr"`
	ATRValue      float64 `json:"atr_value"`
	ATRMultiplier float64 `json:"atr_multiplier"`

	Mode Mode `json:"mode"`
}

// TradeMetrics 为仓位计算结果，所有数值均未做舍入。
type TradeMetrics struct {
	RiskAmount      float64 `json:"risk_amount"`
	RiskPerUnit     float64 `json:"risk_per_unit"`
	PositionSize    float64 `json:"position_size"`
	PositionValue   float64 `json:"position_value"`
	SuggestedStop   float64 `json:"suggested_stop"`
	EffectiveStop   float64 `json:"effective_stop"`
	CapitalRequired float64 `json:"capital_required"`
	ExpectedReward  float64 `json:"expected_reward"`
	RewardToRisk    float64 `json:"reward_to_risk"`
	TotalCommission float64 `json:"total_commission"`
}

// ErrInvalidInput 标记逻辑上无效的交易参数。
var ErrInvalidInput = errors.New("invalid input")

// ValidationError 描述被违反的输入约束。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is 使 errors.Is(err, ErrInvalidInput) 成立。
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
