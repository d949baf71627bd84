package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"quantum-ledger/internal/api"
	"quantum-ledger/internal/report"
	"quantum-ledger/internal/sizing"
)

func newInteractiveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Prompt for trade parameters and size the trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := promptTrade(opts)
			if err != nil {
				return err
			}

			resp, err := localCalculateTrade(cmd, opts, req)
			if err != nil {
				report.RenderError(cmd.ErrOrStderr(), err.Error())
				return err
			}
			report.RenderMetrics(cmd.OutOrStdout(), resp.Inputs, resp.Metrics(), resp.Assessment())
			return nil
		},
	}
}

func promptTrade(opts *globalOptions) (api.TradeRequest, error) {
	calc := opts.cfg.Calculator

	liquid, err := askNumber("Liquid capital:", "", "Capital available to fund this trade", greaterThan(0))
	if err != nil {
		return api.TradeRequest{}, err
	}
	riskPct, err := askNumber("Risk per trade (%):", formatDefault(calc.DefaultRiskPercent),
		"Share of liquid capital you accept to lose, 0-100", riskPercentValidator)
	if err != nil {
		return api.TradeRequest{}, err
	}
	entry, err := askNumber("Entry price:", "", "", greaterThan(0))
	if err != nil {
		return api.TradeRequest{}, err
	}

	var direction string
	if err = survey.AskOne(&survey.Select{
		Message: "Direction:",
		Options: []string{string(sizing.Long), string(sizing.Short)},
		Default: string(sizing.Long),
	}, &direction); err != nil {
		return api.TradeRequest{}, err
	}
	dir, err := sizing.ParseDirection(direction)
	if err != nil {
		return api.TradeRequest{}, err
	}

	leverage, err := askNumber("Leverage:", formatDefault(calc.MinLeverage), "", atLeast(calc.MinLeverage))
	if err != nil {
		return api.TradeRequest{}, err
	}

	suggested := sizing.SuggestStopLoss(entry, liquid, riskPct, leverage, dir)
	stop, err := askNumber("Stop loss price:", stopDefault(suggested),
		"Pre-filled with the stop at which a fully leveraged position loses the risk amount",
		atLeast(0))
	if err != nil {
		return api.TradeRequest{}, err
	}
	target, err := askNumber("Target price:", "", "", atLeast(0))
	if err != nil {
		return api.TradeRequest{}, err
	}

	return api.TradeRequest{
		LiquidCapital: liquid,
		RiskPercent:   api.Float(riskPct),
		EntryPrice:    entry,
		Direction:     string(dir),
		TargetPrice:   target,
		Leverage:      api.Float(leverage),
		StopLossPrice: stop,
	}, nil
}

func askNumber(message, def, help string, validate survey.Validator) (float64, error) {
	var answer string
	prompt := &survey.Input{
		Message: message,
		Default: def,
		Help:    help,
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(validate)); err != nil {
		return 0, err
	}
	return parseNumber(answer)
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", "")), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

// stopDefault 建议止损非正时不预填。
func stopDefault(suggested float64) string {
	if suggested <= 0 {
		return ""
	}
	return report.FormatPrice(suggested)
}

func formatDefault(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func numberValidator(check func(float64) error) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("unexpected answer type %T", ans)
		}
		v, err := parseNumber(s)
		if err != nil {
			return err
		}
		return check(v)
	}
}

func greaterThan(bound float64) survey.Validator {
	return numberValidator(func(v float64) error {
		if v <= bound {
			return fmt.Errorf("value must be greater than %g", bound)
		}
		return nil
	})
}

func atLeast(bound float64) survey.Validator {
	return numberValidator(func(v float64) error {
		if v < bound {
			return fmt.Errorf("value must be at least %g", bound)
		}
		return nil
	})
}

var riskPercentValidator = numberValidator(func(v float64) error {
	if v <= 0 || v > 100 {
		return fmt.Errorf("risk percent must be greater than 0 and at most 100")
	}
	return nil
})
