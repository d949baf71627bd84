// Package cli 提供 ledger 命令行入口。
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quantum-ledger/internal/config"
	"quantum-ledger/internal/log"
)

// Version 在构建时通过 -ldflags 注入。
var Version = "dev"

type globalOptions struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

// Execute 运行根命令，失败时以非零状态退出。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd 创建根命令及全部子命令。
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Position sizing and trade risk calculator",
		Long: `ledger sizes a trade from account capital, risk percent, entry, stop and target,
and reports capital required, expected reward and reward-to-risk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newCalcCmd(opts))
	rootCmd.AddCommand(newSuggestStopCmd(opts))
	rootCmd.AddCommand(newGridCmd(opts))
	rootCmd.AddCommand(newInteractiveCmd(opts))
	rootCmd.AddCommand(newEventsCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (o *globalOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger %s\n", Version)
		},
	}
}
