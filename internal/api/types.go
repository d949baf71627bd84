package api

import (
	"quantum-ledger/internal/indicator"
	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
)

// TradeRequest 为 /calculate_trade/ 的请求体。
// RiskPercent 与 Leverage 省略时取配置中的默认值。
type TradeRequest struct {
	TotalCapital  float64  `json:"total_capital,omitempty"`
	LiquidCapital float64  `json:"liquid_capital"`
	RiskPercent   *float64 `json:"risk_percent,omitempty"`
	EntryPrice    float64  `json:"entry_price"`
	Direction     string   `json:"direction"`
	TargetPrice   float64  `json:"target_price"`
	Leverage      *float64 `json:"leverage,omitempty"`
	StopLossPrice float64  `json:"stop_loss_price"`

	CommissionPerSide float64 `json:"commission_per_side,omitempty"`
	SlippagePercent   float64 `json:"slippage_percent,omitempty"`

	UseATR        bool               `json:"use_atr,omitempty"`
	ATRValue      float64            `json:"atr_value,omitempty"`
	ATRMultiplier float64            `json:"atr_multiplier,omitempty"`
	ATRPeriod     int                `json:"atr_period,omitempty"`
	Candles       []indicator.Candle `json:"candles,omitempty"`

	Mode string `json:"mode,omitempty"`
}

// TradeResponse 为 /calculate_trade/ 的响应体，数值未做舍入。
type TradeResponse struct {
	RiskAmount      float64 `json:"risk_amount"`
	PositionSize    float64 `json:"position_size"`
	SuggestedStop   float64 `json:"suggested_stop"`
	CapitalRequired float64 `json:"capital_required"`
	ExpectedReward  float64 `json:"expected_reward"`
	RewardToRisk    float64 `json:"reward_to_risk"`

	EffectiveStop   float64 `json:"effective_stop"`
	RiskPerUnit     float64 `json:"risk_per_unit"`
	PositionValue   float64 `json:"position_value"`
	TotalCommission float64 `json:"total_commission"`

	Status   risk.StatusType `json:"status"`
	Warnings []risk.Warning  `json:"warnings"`

	// Inputs 为补齐默认值并解析 ATR 之后实际参与计算的输入。
	Inputs sizing.TradeInputs `json:"inputs"`
}

// Metrics 还原为计算结果。
func (r TradeResponse) Metrics() sizing.TradeMetrics {
	return sizing.TradeMetrics{
		RiskAmount:      r.RiskAmount,
		RiskPerUnit:     r.RiskPerUnit,
		PositionSize:    r.PositionSize,
		PositionValue:   r.PositionValue,
		SuggestedStop:   r.SuggestedStop,
		EffectiveStop:   r.EffectiveStop,
		CapitalRequired: r.CapitalRequired,
		ExpectedReward:  r.ExpectedReward,
		RewardToRisk:    r.RewardToRisk,
		TotalCommission: r.TotalCommission,
	}
}

// Assessment 还原为评估结果。
func (r TradeResponse) Assessment() risk.Assessment {
	return risk.Assessment{Status: r.Status, Warnings: r.Warnings}
}

func newTradeResponse(in sizing.TradeInputs, m sizing.TradeMetrics, a risk.Assessment) TradeResponse {
	warnings := a.Warnings
	if warnings == nil {
		warnings = []risk.Warning{}
	}
	return TradeResponse{
		RiskAmount:      m.RiskAmount,
		PositionSize:    m.PositionSize,
		SuggestedStop:   m.SuggestedStop,
		CapitalRequired: m.CapitalRequired,
		ExpectedReward:  m.ExpectedReward,
		RewardToRisk:    m.RewardToRisk,
		EffectiveStop:   m.EffectiveStop,
		RiskPerUnit:     m.RiskPerUnit,
		PositionValue:   m.PositionValue,
		TotalCommission: m.TotalCommission,
		Status:          a.Status,
		Warnings:        warnings,
		Inputs:          in,
	}
}

// SuggestStopRequest 为 /calculate_suggested_stop/ 的请求体。
type SuggestStopRequest struct {
	EntryPrice    float64  `json:"entry_price"`
	LiquidCapital float64  `json:"liquid_capital"`
	RiskPercent   *float64 `json:"risk_percent,omitempty"`
	Leverage      *float64 `json:"leverage,omitempty"`
	Direction     string   `json:"direction"`
}

// SuggestStopResponse 为 /calculate_suggested_stop/ 的响应体。
type SuggestStopResponse struct {
	SuggestedStop float64 `json:"suggested_stop"`
}

// ErrorResponse 为错误响应体。
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Float 返回指向 v 的指针，便于构造可选字段。
func Float(v float64) *float64 {
	return &v
}
