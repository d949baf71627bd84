package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
)

var (
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))
)

// RenderMetrics 以表格输出一次计算的输入与结果，随后输出评估提示。
func RenderMetrics(w io.Writer, in sizing.TradeInputs, m sizing.TradeMetrics, a risk.Assessment) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s @ %s", in.Direction, FormatPrice(in.EntryPrice)))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Max Risk Allowed", FormatCurrency(m.RiskAmount)},
		{"Position Size", FormatUnits(m.PositionSize)},
		{"Suggested Stop Loss", FormatCurrency(m.SuggestedStop)},
		{"Effective Stop Loss", FormatCurrency(m.EffectiveStop)},
		{"Risk Per Unit", FormatCurrency(m.RiskPerUnit)},
		{"Position Value", FormatCurrency(m.PositionValue)},
		{"Capital Required", FormatCurrency(m.CapitalRequired)},
		{"Expected Reward", FormatCurrency(m.ExpectedReward)},
		{"Reward-to-Risk Ratio", FormatRatio(m.RewardToRisk)},
	})
	if m.TotalCommission > 0 {
		t.AppendRow(table.Row{"Total Commission", FormatCurrency(m.TotalCommission)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()

	RenderAssessment(w, a)
}

// RenderAssessment 输出评估提示，无提示时输出一行确认信息。
func RenderAssessment(w io.Writer, a risk.Assessment) {
	if len(a.Warnings) == 0 {
		fmt.Fprintln(w, okStyle.Render("Trade passes all checks."))
		return
	}
	for _, warn := range a.Warnings {
		style := warningStyle
		if warn.Level == risk.LevelError {
			style = errorStyle
		}
		fmt.Fprintln(w, style.Render(fmt.Sprintf("[%s] %s", warn.Code, warn.Message)))
	}
}

// RenderError 以错误样式输出一行信息。
func RenderError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render(strings.TrimSpace(msg)))
}
