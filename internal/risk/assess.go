package risk

import (
	"fmt"

	"quantum-ledger/internal/sizing"
)

// DefaultPolicy 返回默认阈值。
func DefaultPolicy() Policy {
	return Policy{
		MinRewardRisk:    2.0,
		CapitalWarnRatio: 0.8,
	}
}

// Assess 根据计算结果给出盈亏比与资金占用提示。
func Assess(p Policy, in sizing.TradeInputs, m sizing.TradeMetrics) Assessment {
	a := Assessment{
		Status:   StatusOK,
		Warnings: make([]Warning, 0, 2),
	}

	if m.PositionSize <= 0 {
		a.add(CodeNoPosition, LevelWarning,
			"Position size is zero: the risk budget does not cover commissions or capital is empty.")
	}

	if p.MinRewardRisk > 0 && m.RewardToRisk < p.MinRewardRisk {
		a.add(CodeRewardRiskLow, LevelWarning,
			fmt.Sprintf("Reward-to-risk ratio (%.2f:1) is below %.2f:1. Consider adjusting your target.",
				m.RewardToRisk, p.MinRewardRisk))
	}

	switch {
	case m.CapitalRequired > in.LiquidCapital:
		a.add(CodeCapitalExceeded, LevelError,
			fmt.Sprintf("Required capital ($%.3f) exceeds your liquid capital ($%.3f).",
				m.CapitalRequired, in.LiquidCapital))
	case p.CapitalWarnRatio > 0 && m.CapitalRequired > p.CapitalWarnRatio*in.LiquidCapital:
		a.add(CodeCapitalHigh, LevelWarning,
			fmt.Sprintf("Trade uses more than %.0f%% of your liquid capital ($%.3f > %.0f%% of $%.3f).",
				p.CapitalWarnRatio*100, m.CapitalRequired, p.CapitalWarnRatio*100, in.LiquidCapital))
	}

	if in.TotalCapital > 0 && in.LiquidCapital > in.TotalCapital {
		a.add(CodeLiquidAboveTotal, LevelWarning,
			fmt.Sprintf("Liquid capital ($%.3f) is larger than total capital ($%.3f).",
				in.LiquidCapital, in.TotalCapital))
	}

	return a
}

func (a *Assessment) add(code string, level Level, msg string) {
	a.Warnings = append(a.Warnings, Warning{Code: code, Level: level, Message: msg})
	switch {
	case level == LevelError:
		a.Status = StatusBlocked
	case a.Status == StatusOK:
		a.Status = StatusWarn
	}
}

// HasCode 判断是否包含指定提示。
func (a Assessment) HasCode(code string) bool {
	for _, w := range a.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
