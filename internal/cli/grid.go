package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quantum-ledger/internal/report"
	"quantum-ledger/internal/sizing"
)

func newGridCmd(opts *globalOptions) *cobra.Command {
	var (
		liquid    float64
		entry     float64
		target    float64
		direction string
		leverage  float64
		risks     []float64
		stops     []float64
		xlsxPath  string
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Tabulate position sizes across risk percents and stop distances",
		Example: `  ledger grid --liquid 10000 --entry 100 --risks 0.5,1,2 --stops 0.5,1,2,5
  ledger grid --liquid 10000 --entry 100 --direction short --xlsx grid.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := sizing.ParseDirection(direction)
			if err != nil {
				return err
			}
			mode, err := sizing.ParseMode(opts.cfg.Calculator.Mode)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("leverage") {
				leverage = opts.cfg.Calculator.MinLeverage
			}

			base := sizing.TradeInputs{
				LiquidCapital: liquid,
				EntryPrice:    entry,
				TargetPrice:   target,
				Direction:     dir,
				Leverage:      leverage,
				Mode:          mode,
			}
			grid, err := report.BuildGrid(commandContext(cmd), base, risks, stops)
			if err != nil {
				return err
			}

			report.RenderGrid(cmd.OutOrStdout(), grid)
			if xlsxPath != "" {
				if err := report.WriteGridXLSX(grid, xlsxPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Grid written to %s\n", xlsxPath)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&liquid, "liquid", 0, "可用资金")
	fs.Float64Var(&entry, "entry", 0, "入场价")
	fs.Float64Var(&target, "target", 0, "目标价")
	fs.StringVar(&direction, "direction", "Long", "方向 Long|Short")
	fs.Float64Var(&leverage, "leverage", 1, "杠杆")
	fs.Float64SliceVar(&risks, "risks", []float64{0.5, 1, 1.5, 2}, "风险百分比列表")
	fs.Float64SliceVar(&stops, "stops", []float64{0.5, 1, 2, 5}, "止损距离列表（价格单位）")
	fs.StringVar(&xlsxPath, "xlsx", "", "同时写出 Excel 文件")
	_ = cmd.MarkFlagRequired("liquid")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}
