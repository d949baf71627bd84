package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"quantum-ledger/internal/api"
	"quantum-ledger/internal/config"
	"quantum-ledger/internal/monitor"
	"quantum-ledger/internal/store"
)

// App 聚合核心依赖并驱动服务生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。store 为空时不记录监控事件。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 监听 server.addr 并阻塞直到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve 在给定监听器上提供接口，ctx 结束后优雅关闭。
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	handler, err := a.buildHandler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	a.logger.Info("仓位计算服务已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("addr", ln.Addr().String()),
		zap.String("mode", a.cfg.Calculator.Mode),
		zap.Bool("monitor", a.monitorEnabled()),
	)

	err = serveHTTP(ctx, ln, handler, a.cfg.Server, a.logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，已停止")
	return nil
}

func (a *App) monitorEnabled() bool {
	return a.cfg.Monitor.Enabled && a.store != nil
}

func (a *App) buildHandler() (http.Handler, error) {
	var mon *monitor.Service
	if a.monitorEnabled() {
		svc, err := monitor.NewService(a.store, a.logger)
		if err != nil {
			return nil, fmt.Errorf("初始化监控服务失败: %w", err)
		}
		mon = svc
	}

	srv, err := api.NewServer(api.Options{
		Calculator:   a.cfg.Calculator,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
		EventLimit:   a.cfg.Monitor.EventLimit,
		Logger:       a.logger,
		Monitor:      mon,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}
