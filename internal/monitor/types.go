package monitor

import (
	"time"

	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventCalculation   EventType = "calculation"
	EventSuggestedStop EventType = "suggested_stop"
	EventRejected      EventType = "rejected"
)

// Event 封装通用监控事件。
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CalculationPayload 记录一次完整的仓位计算。
type CalculationPayload struct {
	Inputs     sizing.TradeInputs  `json:"inputs"`
	Metrics    sizing.TradeMetrics `json:"metrics"`
	Assessment risk.Assessment     `json:"assessment"`
}

// SuggestedStopPayload 记录建议止损的计算。
type SuggestedStopPayload struct {
	EntryPrice    float64          `json:"entry_price"`
	LiquidCapital float64          `json:"liquid_capital"`
	RiskPercent   float64          `json:"risk_percent"`
	Leverage      float64          `json:"leverage"`
	Direction     sizing.Direction `json:"direction"`
	SuggestedStop float64          `json:"suggested_stop"`
}

// RejectedPayload 记录被拒绝的输入。
type RejectedPayload struct {
	Endpoint string `json:"endpoint"`
	Field    string `json:"field,omitempty"`
	Detail   string `json:"detail"`
}
