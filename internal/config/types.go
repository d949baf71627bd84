package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Calculator CalculatorConfig `mapstructure:"calculator"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 描述 HTTP 接口参数。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// CalculatorConfig 管理仓位计算的默认值与提示阈值。
type CalculatorConfig struct {
	DefaultRiskPercent   float64 `mapstructure:"default_risk_percent"`
	MinLeverage          float64 `mapstructure:"min_leverage"`
	MinRewardRisk        float64 `mapstructure:"min_reward_risk"`
	CapitalWarnRatio     float64 `mapstructure:"capital_warn_ratio"`
	DefaultATRMultiplier float64 `mapstructure:"default_atr_multiplier"`
	ATRPeriod            int     `mapstructure:"atr_period"`
	Mode                 string  `mapstructure:"mode"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制计算事件的记录。
type MonitorConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	EventLimit int  `mapstructure:"event_limit"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr 不能为空"))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("server 读写超时必须为正"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 必须大于0"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		err = multierr.Append(err, errors.New("server.max_body_bytes 必须大于0"))
	}
	if c.Calculator.DefaultRiskPercent <= 0 || c.Calculator.DefaultRiskPercent > 100 {
		err = multierr.Append(err, errors.New("calculator.default_risk_percent 必须位于(0,100]"))
	}
	if c.Calculator.MinLeverage < 1 {
		err = multierr.Append(err, errors.New("calculator.min_leverage 不能小于1"))
	}
	if c.Calculator.MinRewardRisk < 0 {
		err = multierr.Append(err, errors.New("calculator.min_reward_risk 不能为负"))
	}
	if c.Calculator.CapitalWarnRatio <= 0 || c.Calculator.CapitalWarnRatio > 1 {
		err = multierr.Append(err, errors.New("calculator.capital_warn_ratio 必须位于(0,1]"))
	}
	if c.Calculator.DefaultATRMultiplier <= 0 {
		err = multierr.Append(err, errors.New("calculator.default_atr_multiplier 必须大于0"))
	}
	if c.Calculator.ATRPeriod <= 0 {
		err = multierr.Append(err, errors.New("calculator.atr_period 必须大于0"))
	}
	switch strings.ToLower(c.Calculator.Mode) {
	case "margin", "leveraged_units":
	default:
		err = multierr.Append(err, fmt.Errorf("calculator.mode 不支持 %q", c.Calculator.Mode))
	}
	if c.Monitor.Enabled {
		if c.Database.Path == "" && !c.Database.InMemory {
			err = multierr.Append(err, errors.New("database.path 不能为空"))
		}
		if c.Database.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
		}
		if c.Database.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
		}
		if c.Database.ConnMaxLifetime < 0 {
			err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
		}
		if c.Monitor.EventLimit <= 0 {
			err = multierr.Append(err, errors.New("monitor.event_limit 必须大于0"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
