package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quantum-ledger/internal/api"
	"quantum-ledger/internal/client"
	"quantum-ledger/internal/indicator"
	"quantum-ledger/internal/report"
)

const remoteTimeout = 10 * time.Second

type tradeFlags struct {
	totalCapital  float64
	liquidCapital float64
	riskPercent   float64
	entry         float64
	stop          float64
	target        float64
	direction     string
	leverage      float64
	commission    float64
	slippage      float64
	useATR        bool
	atrValue      float64
	atrMultiplier float64
	atrPeriod     int
	candlesPath   string
	mode          string
}

func (f *tradeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.totalCapital, "total", 0, "总资金，可选")
	fs.Float64Var(&f.liquidCapital, "liquid", 0, "可用资金")
	fs.Float64Var(&f.riskPercent, "risk", 0, "单笔风险百分比，默认取 calculator.default_risk_percent")
	fs.Float64Var(&f.entry, "entry", 0, "入场价")
	fs.Float64Var(&f.stop, "stop", 0, "止损价，0 表示采用建议止损")
	fs.Float64Var(&f.target, "target", 0, "目标价")
	fs.StringVar(&f.direction, "direction", "Long", "方向 Long|Short")
	fs.Float64Var(&f.leverage, "leverage", 0, "杠杆，默认取 calculator.min_leverage")
	fs.Float64Var(&f.commission, "commission", 0, "单边手续费")
	fs.Float64Var(&f.slippage, "slippage", 0, "止损滑点百分比")
	fs.BoolVar(&f.useATR, "use-atr", false, "以 ATR 倍数建议止损")
	fs.Float64Var(&f.atrValue, "atr", 0, "ATR 数值")
	fs.Float64Var(&f.atrMultiplier, "atr-mult", 0, "ATR 倍数，默认取 calculator.default_atr_multiplier")
	fs.IntVar(&f.atrPeriod, "atr-period", 0, "由 K 线计算 ATR 时的周期")
	fs.StringVar(&f.candlesPath, "candles", "", "K 线 CSV 文件，提供时由其计算 ATR")
	fs.StringVar(&f.mode, "mode", "", "杠杆模式 margin|leveraged_units")

	_ = cmd.MarkFlagRequired("liquid")
	_ = cmd.MarkFlagRequired("entry")
}

func (f *tradeFlags) request(cmd *cobra.Command) (api.TradeRequest, error) {
	req := api.TradeRequest{
		TotalCapital:      f.totalCapital,
		LiquidCapital:     f.liquidCapital,
		EntryPrice:        f.entry,
		Direction:         f.direction,
		TargetPrice:       f.target,
		StopLossPrice:     f.stop,
		CommissionPerSide: f.commission,
		SlippagePercent:   f.slippage,
		UseATR:            f.useATR,
		ATRValue:          f.atrValue,
		ATRMultiplier:     f.atrMultiplier,
		ATRPeriod:         f.atrPeriod,
		Mode:              f.mode,
	}
	if cmd.Flags().Changed("risk") {
		req.RiskPercent = api.Float(f.riskPercent)
	}
	if cmd.Flags().Changed("leverage") {
		req.Leverage = api.Float(f.leverage)
	}

	if f.candlesPath != "" {
		candles, err := loadCandles(f.candlesPath)
		if err != nil {
			return api.TradeRequest{}, err
		}
		req.UseATR = true
		req.Candles = candles
	}
	return req, nil
}

func loadCandles(path string) ([]indicator.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 K 线文件失败: %w", err)
	}
	defer file.Close()

	return indicator.LoadCandlesCSV(file)
}

func newCalcCmd(opts *globalOptions) *cobra.Command {
	var (
		flags   tradeFlags
		remote  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Size a trade and report its risk metrics",
		Example: `  ledger calc --liquid 10000 --risk 1 --entry 100 --stop 99 --target 105
  ledger calc --liquid 10000 --entry 100 --target 90 --direction short --use-atr --atr 2.5
  ledger calc --liquid 10000 --entry 100 --target 105 --remote http://localhost:8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			var resp api.TradeResponse
			if remote != "" {
				resp, err = client.New(remote, remoteTimeout).CalculateTrade(commandContext(cmd), req)
			} else {
				resp, err = localCalculateTrade(cmd, opts, req)
			}
			if err != nil {
				report.RenderError(cmd.ErrOrStderr(), err.Error())
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			report.RenderMetrics(out, resp.Inputs, resp.Metrics(), resp.Assessment())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&remote, "remote", "", "通过 HTTP 接口计算，如 http://localhost:8000")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "以 JSON 输出结果")
	return cmd
}

func newSuggestStopCmd(opts *globalOptions) *cobra.Command {
	var (
		entry     float64
		liquid    float64
		riskPct   float64
		leverage  float64
		direction string
		remote    string
	)

	cmd := &cobra.Command{
		Use:   "suggest-stop",
		Short: "Suggest the stop at which a fully leveraged position loses exactly the risk amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SuggestStopRequest{
				EntryPrice:    entry,
				LiquidCapital: liquid,
				Direction:     direction,
			}
			if cmd.Flags().Changed("risk") {
				req.RiskPercent = api.Float(riskPct)
			}
			if cmd.Flags().Changed("leverage") {
				req.Leverage = api.Float(leverage)
			}

			var (
				stop float64
				err  error
			)
			if remote != "" {
				stop, err = client.New(remote, remoteTimeout).SuggestStop(commandContext(cmd), req)
			} else {
				var srv *api.Server
				if srv, err = localServer(opts); err == nil {
					var resp api.SuggestStopResponse
					resp, err = srv.SuggestStop(commandContext(cmd), req)
					stop = resp.SuggestedStop
				}
			}
			if err != nil {
				report.RenderError(cmd.ErrOrStderr(), err.Error())
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Suggested stop loss: %s\n", report.FormatCurrency(stop))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&entry, "entry", 0, "入场价")
	fs.Float64Var(&liquid, "liquid", 0, "可用资金")
	fs.Float64Var(&riskPct, "risk", 0, "单笔风险百分比")
	fs.Float64Var(&leverage, "leverage", 0, "杠杆")
	fs.StringVar(&direction, "direction", "Long", "方向 Long|Short")
	fs.StringVar(&remote, "remote", "", "通过 HTTP 接口计算")
	_ = cmd.MarkFlagRequired("entry")
	_ = cmd.MarkFlagRequired("liquid")
	return cmd
}

func localServer(opts *globalOptions) (*api.Server, error) {
	return api.NewServer(api.Options{
		Calculator: opts.cfg.Calculator,
		Logger:     opts.logger,
	})
}

func localCalculateTrade(cmd *cobra.Command, opts *globalOptions, req api.TradeRequest) (api.TradeResponse, error) {
	srv, err := localServer(opts)
	if err != nil {
		return api.TradeResponse{}, err
	}
	return srv.CalculateTrade(commandContext(cmd), req)
}
