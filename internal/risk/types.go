package risk

// StatusType 描述评估结果状态。
type StatusType string

const (
	StatusOK      StatusType = "ok"
	StatusWarn    StatusType = "warn"
	StatusBlocked StatusType = "blocked"
)

// Level 为提示的严重程度。
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// 提示代码。
const (
	CodeRewardRiskLow    = "RR_TOO_LOW"
	CodeCapitalExceeded  = "CAPITAL_EXCEEDED"
	CodeCapitalHigh      = "CAPITAL_HIGH"
	CodeLiquidAboveTotal = "LIQUID_ABOVE_TOTAL"
	CodeNoPosition       = "NO_POSITION"
)

// Policy 为评估阈值。
type Policy struct {
	MinRewardRisk    float64 // 最低盈亏比，如 2.0
	CapitalWarnRatio float64 // 保证金占流动资金比例的告警线，如 0.8
}

// Warning 为单条评估提示。
type Warning struct {
	Code    string `json:"code"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Assessment 为一次仓位计算的评估结果，不改变计算出的指标。
type Assessment struct {
	Status   StatusType `json:"status"`
	Warnings []Warning  `json:"warnings"`
}
