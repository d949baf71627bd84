package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"

	"quantum-ledger/internal/sizing"
)

// GridCell 为网格中一个风险比例与止损距离组合的结果。
type GridCell struct {
	RiskPercent     float64 `json:"risk_percent"`
	StopDistance    float64 `json:"stop_distance"`
	StopPrice       float64 `json:"stop_price"`
	RiskAmount      float64 `json:"risk_amount"`
	PositionSize    float64 `json:"position_size"`
	CapitalRequired float64 `json:"capital_required"`
	Err             string  `json:"error,omitempty"`
}

// Grid 为风险比例 x 止损距离的仓位矩阵，Cells[i][j] 对应 RiskLevels[i] 与 StopDistances[j]。
type Grid struct {
	Direction     sizing.Direction `json:"direction"`
	EntryPrice    float64          `json:"entry_price"`
	RiskLevels    []float64        `json:"risk_levels"`
	StopDistances []float64        `json:"stop_distances"`
	Cells         [][]GridCell     `json:"cells"`
}

// BuildGrid 以 base 为模板计算仓位矩阵，每个风险比例一行并发计算。
// 单元格的校验失败记录在 GridCell.Err 中，不影响其他单元格。
func BuildGrid(ctx context.Context, base sizing.TradeInputs, riskLevels, stopDistances []float64) (Grid, error) {
	if len(riskLevels) == 0 || len(stopDistances) == 0 {
		return Grid{}, errors.New("report: 风险比例与止损距离均不能为空")
	}
	for _, d := range stopDistances {
		if d <= 0 {
			return Grid{}, fmt.Errorf("report: 止损距离必须为正，实际 %v", d)
		}
	}

	grid := Grid{
		Direction:     base.Direction,
		EntryPrice:    base.EntryPrice,
		RiskLevels:    append([]float64(nil), riskLevels...),
		StopDistances: append([]float64(nil), stopDistances...),
		Cells:         make([][]GridCell, len(riskLevels)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, riskPct := range riskLevels {
		i, riskPct := i, riskPct
		group.Go(func() error {
			row := make([]GridCell, len(stopDistances))
			for j, dist := range stopDistances {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				row[j] = buildCell(base, riskPct, dist)
			}
			grid.Cells[i] = row
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Grid{}, err
	}

	return grid, nil
}

func buildCell(base sizing.TradeInputs, riskPct, dist float64) GridCell {
	in := base
	in.RiskPercent = riskPct
	in.UseATR = false
	if in.Direction == sizing.Short {
		in.StopLossPrice = in.EntryPrice + dist
	} else {
		in.StopLossPrice = in.EntryPrice - dist
	}

	cell := GridCell{
		RiskPercent:  riskPct,
		StopDistance: dist,
		StopPrice:    in.StopLossPrice,
	}
	// 止损价为 0 会被当作未填写而改用建议止损
	if in.StopLossPrice <= 0 {
		cell.Err = fmt.Sprintf("stop distance %g leaves no positive stop price below entry %g", dist, in.EntryPrice)
		return cell
	}

	m, err := sizing.CalculateTrade(in)
	if err != nil {
		cell.Err = err.Error()
		return cell
	}

	cell.RiskAmount = m.RiskAmount
	cell.PositionSize = m.PositionSize
	cell.CapitalRequired = m.CapitalRequired
	return cell
}

// RenderGrid 以表格输出仓位矩阵。
func RenderGrid(w io.Writer, g Grid) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Position size, %s @ %s", g.Direction, FormatPrice(g.EntryPrice)))

	header := table.Row{"Risk % \\ Stop distance"}
	for _, d := range g.StopDistances {
		header = append(header, FormatPrice(d))
	}
	t.AppendHeader(header)

	for i, row := range g.Cells {
		r := table.Row{FormatPercent(g.RiskLevels[i])}
		for _, cell := range row {
			if cell.Err != "" {
				r = append(r, "-")
				continue
			}
			r = append(r, FormatUnits(cell.PositionSize))
		}
		t.AppendRow(r)
	}
	t.Render()
}
