package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quantum-ledger/internal/app"
	"quantum-ledger/internal/store"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := opts.logger

			var sqliteStore *store.Store
			if cfg.Monitor.Enabled {
				var err error
				sqliteStore, err = store.NewSQLite(cfg.Database)
				if err != nil {
					logger.Error("初始化数据库失败", zap.Error(err))
					return err
				}
				defer func() {
					if closeErr := sqliteStore.Close(); closeErr != nil {
						logger.Warn("关闭数据库失败", zap.Error(closeErr))
					}
				}()
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.New(cfg, logger, sqliteStore).Run(ctx); err != nil {
				logger.Error("系统运行异常", zap.Error(err))
				return err
			}

			logger.Info("系统已安全退出")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，覆盖 server.addr")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
