package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quantum-ledger/internal/config"
)

const dsnParams = "_busy_timeout=5000&_foreign_keys=on"

// Store 封装 SQLite 连接。
type Store struct {
	db *sql.DB
}

type poolSettings struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
	pragmas  []string
}

// NewSQLite 根据配置初始化 SQLite 存储。
// 内存库每个连接各自独立，因此内存模式固定使用单连接且不启用 WAL。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	if cfg.InMemory {
		return open(":memory:", poolSettings{
			maxOpen: 1,
			maxIdle: 1,
			pragmas: []string{"PRAGMA synchronous=NORMAL;"},
		})
	}

	if cfg.Path == "" {
		return nil, errors.New("store: 数据库路径为空")
	}
	if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
		return nil, err
	}

	return open(cfg.Path, poolSettings{
		maxOpen:  cfg.MaxOpenConns,
		maxIdle:  cfg.MaxIdleConns,
		lifetime: cfg.ConnMaxLifetime,
		pragmas:  []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"},
	})
}

func open(path string, ps poolSettings) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("store: 打开 SQLite 数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(ps.maxOpen)
	conn.SetMaxIdleConns(ps.maxIdle)
	conn.SetConnMaxLifetime(ps.lifetime)

	for _, pragma := range ps.pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: 执行 %q 失败: %w", pragma, err)
		}
	}

	return &Store{db: conn}, nil
}

// DB 返回底层 *sql.DB。
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping 检查连接是否可用。
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store: 数据库未初始化")
	}
	return s.db.PingContext(ctx)
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("store: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
