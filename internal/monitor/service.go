package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quantum-ledger/internal/id"
	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
	"quantum-ledger/internal/store"
)

// Service 负责持久化计算事件。
type Service struct {
	store  *store.Store
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:  store,
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Ping 检查事件存储是否可用。
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Record 写入单个事件，返回事件 ID。
func (s *Service) Record(ctx context.Context, event Event) (string, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if event.ID == "" {
		event.ID = id.NewAt(event.Timestamp)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		event.ID, string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return event.ID, nil
}

// RecordCalculation 记录完整计算。
func (s *Service) RecordCalculation(ctx context.Context, in sizing.TradeInputs, m sizing.TradeMetrics, a risk.Assessment) {
	if _, err := s.Record(ctx, Event{
		Type:    EventCalculation,
		Payload: CalculationPayload{Inputs: in, Metrics: m, Assessment: a},
	}); err != nil {
		s.logger.Warn("记录计算事件失败", zap.Error(err))
	}
}

// RecordSuggestedStop 记录建议止损。
func (s *Service) RecordSuggestedStop(ctx context.Context, payload SuggestedStopPayload) {
	if _, err := s.Record(ctx, Event{
		Type:    EventSuggestedStop,
		Payload: payload,
	}); err != nil {
		s.logger.Warn("记录建议止损事件失败", zap.Error(err))
	}
}

// RecordRejected 记录被拒绝的请求。
func (s *Service) RecordRejected(ctx context.Context, endpoint, field, detail string) {
	if _, err := s.Record(ctx, Event{
		Type:    EventRejected,
		Payload: RejectedPayload{Endpoint: endpoint, Field: field, Detail: detail},
	}); err != nil {
		s.logger.Warn("记录拒绝事件失败", zap.Error(err))
	}
}

// ListEvents 按类型检索最近事件，最新的在前。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			eventID string
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&eventID, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}

		events = append(events, Event{
			ID:        eventID,
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
