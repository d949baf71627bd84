package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"quantum-ledger/internal/config"
	"quantum-ledger/internal/indicator"
	"quantum-ledger/internal/metrics"
	"quantum-ledger/internal/monitor"
	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
)

const (
	PathCalculateTrade = "/calculate_trade/"
	PathSuggestedStop  = "/calculate_suggested_stop/"

	defaultMaxBodyBytes = 1 << 20
	defaultEventLimit   = 200
	maxEventLimit       = 1000
)

// Options 为 Server 的依赖与参数。Monitor 为空时不记录事件。
type Options struct {
	Calculator   config.CalculatorConfig
	MaxBodyBytes int64
	EventLimit   int
	Logger       *zap.Logger
	Monitor      *monitor.Service
}

// Server 提供仓位计算的 HTTP 接口。
type Server struct {
	calc       config.CalculatorConfig
	policy     risk.Policy
	mode       sizing.Mode
	maxBody    int64
	eventLimit int
	logger     *zap.Logger
	monitor    *monitor.Service
}

// NewServer 根据配置创建 Server，未设置的计算默认值按 1% 风险、1 倍杠杆补齐。
func NewServer(opts Options) (*Server, error) {
	mode, err := sizing.ParseMode(opts.Calculator.Mode)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	calc := opts.Calculator
	if calc.DefaultRiskPercent <= 0 {
		calc.DefaultRiskPercent = 1
	}
	if calc.MinLeverage < 1 {
		calc.MinLeverage = 1
	}
	if calc.DefaultATRMultiplier <= 0 {
		calc.DefaultATRMultiplier = 2
	}
	if calc.ATRPeriod <= 0 {
		calc.ATRPeriod = indicator.DefaultATRPeriod
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		calc: calc,
		policy: risk.Policy{
			MinRewardRisk:    calc.MinRewardRisk,
			CapitalWarnRatio: calc.CapitalWarnRatio,
		},
		mode:       mode,
		maxBody:    opts.MaxBodyBytes,
		eventLimit: opts.EventLimit,
		logger:     logger,
		monitor:    opts.Monitor,
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBodyBytes
	}
	if s.eventLimit <= 0 {
		s.eventLimit = defaultEventLimit
	}
	return s, nil
}

// Handler 返回挂载全部路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	trade := metrics.InstrumentHandler(PathCalculateTrade, http.HandlerFunc(s.handleCalculateTrade))
	mux.Handle("POST "+PathCalculateTrade, trade)
	mux.Handle("POST "+strings.TrimSuffix(PathCalculateTrade, "/"), trade)

	stop := metrics.InstrumentHandler(PathSuggestedStop, http.HandlerFunc(s.handleSuggestedStop))
	mux.Handle("POST "+PathSuggestedStop, stop)
	mux.Handle("POST "+strings.TrimSuffix(PathSuggestedStop, "/"), stop)

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	return s.logRequests(mux)
}

// CalculateTrade 补齐默认值后计算仓位并给出评估，HTTP 接口与本地命令共用此路径。
func (s *Server) CalculateTrade(ctx context.Context, req TradeRequest) (TradeResponse, error) {
	defer metrics.ObserveCalculation(PathCalculateTrade, time.Now())

	in, err := s.tradeInputs(req)
	if err != nil {
		s.reject(ctx, PathCalculateTrade, err)
		return TradeResponse{}, err
	}

	m, err := sizing.CalculateTrade(in)
	if err != nil {
		s.reject(ctx, PathCalculateTrade, err)
		return TradeResponse{}, err
	}

	a := risk.Assess(s.policy, in, m)
	for _, w := range a.Warnings {
		metrics.RecordWarning(w.Code)
	}
	if s.monitor != nil {
		s.monitor.RecordCalculation(ctx, in, m, a)
	}

	s.logger.Debug("仓位计算完成",
		zap.String("direction", string(in.Direction)),
		zap.Float64("entry", in.EntryPrice),
		zap.Float64("position_size", m.PositionSize),
		zap.String("status", string(a.Status)),
	)
	return newTradeResponse(in, m, a), nil
}

// SuggestStop 计算建议止损价。入场价或资金非正时结果为 0，杠杆下限与 CalculateTrade 一致。
func (s *Server) SuggestStop(ctx context.Context, req SuggestStopRequest) (SuggestStopResponse, error) {
	defer metrics.ObserveCalculation(PathSuggestedStop, time.Now())

	dir, err := sizing.ParseDirection(req.Direction)
	if err != nil {
		s.reject(ctx, PathSuggestedStop, err)
		return SuggestStopResponse{}, err
	}

	riskPct := s.calc.DefaultRiskPercent
	if req.RiskPercent != nil {
		riskPct = *req.RiskPercent
	}
	if riskPct <= 0 || riskPct > 100 {
		err := &sizing.ValidationError{Field: "risk_percent", Message: "risk percent must be greater than 0 and at most 100"}
		s.reject(ctx, PathSuggestedStop, err)
		return SuggestStopResponse{}, err
	}

	leverage := s.calc.MinLeverage
	if req.Leverage != nil {
		leverage = *req.Leverage
		if err := s.checkLeverage(leverage); err != nil {
			s.reject(ctx, PathSuggestedStop, err)
			return SuggestStopResponse{}, err
		}
	}

	suggested := sizing.SuggestStopLoss(req.EntryPrice, req.LiquidCapital, riskPct, leverage, dir)
	if math.IsInf(suggested, 0) || math.IsNaN(suggested) {
		err := &sizing.ValidationError{Field: "inputs", Message: "inputs are too large: suggested stop overflows"}
		s.reject(ctx, PathSuggestedStop, err)
		return SuggestStopResponse{}, err
	}
	if s.monitor != nil {
		s.monitor.RecordSuggestedStop(ctx, monitor.SuggestedStopPayload{
			EntryPrice:    req.EntryPrice,
			LiquidCapital: req.LiquidCapital,
			RiskPercent:   riskPct,
			Leverage:      leverage,
			Direction:     dir,
			SuggestedStop: suggested,
		})
	}
	return SuggestStopResponse{SuggestedStop: suggested}, nil
}

func (s *Server) tradeInputs(req TradeRequest) (sizing.TradeInputs, error) {
	dir, err := sizing.ParseDirection(req.Direction)
	if err != nil {
		return sizing.TradeInputs{}, err
	}

	mode := s.mode
	if req.Mode != "" {
		if mode, err = sizing.ParseMode(req.Mode); err != nil {
			return sizing.TradeInputs{}, err
		}
	}

	in := sizing.TradeInputs{
		TotalCapital:      req.TotalCapital,
		LiquidCapital:     req.LiquidCapital,
		RiskPercent:       s.calc.DefaultRiskPercent,
		EntryPrice:        req.EntryPrice,
		StopLossPrice:     req.StopLossPrice,
		TargetPrice:       req.TargetPrice,
		Direction:         dir,
		Leverage:          s.calc.MinLeverage,
		CommissionPerSide: req.CommissionPerSide,
		SlippagePercent:   req.SlippagePercent,
		UseATR:            req.UseATR,
		ATRValue:          req.ATRValue,
		ATRMultiplier:     req.ATRMultiplier,
		Mode:              mode,
	}
	if req.RiskPercent != nil {
		in.RiskPercent = *req.RiskPercent
	}
	if req.Leverage != nil {
		in.Leverage = *req.Leverage
		if err := s.checkLeverage(in.Leverage); err != nil {
			return sizing.TradeInputs{}, err
		}
	}

	if in.UseATR {
		if in.ATRMultiplier == 0 {
			in.ATRMultiplier = s.calc.DefaultATRMultiplier
		}
		if in.ATRValue == 0 && len(req.Candles) > 0 {
			period := req.ATRPeriod
			if period <= 0 {
				period = s.calc.ATRPeriod
			}
			res, atrErr := indicator.ATR(req.Candles, period)
			if atrErr != nil {
				return sizing.TradeInputs{}, &sizing.ValidationError{Field: "candles", Message: atrErr.Error()}
			}
			in.ATRValue = res.Absolute
		}
	}
	return in, nil
}

func (s *Server) checkLeverage(leverage float64) error {
	if leverage < s.calc.MinLeverage {
		return &sizing.ValidationError{
			Field:   "leverage",
			Message: fmt.Sprintf("leverage must be at least %g", s.calc.MinLeverage),
		}
	}
	return nil
}

func (s *Server) handleCalculateTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if !s.decode(w, r, PathCalculateTrade, &req) {
		return
	}

	resp, err := s.CalculateTrade(r.Context(), req)
	if err != nil {
		s.writeCalcError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestedStop(w http.ResponseWriter, r *http.Request) {
	var req SuggestStopRequest
	if !s.decode(w, r, PathSuggestedStop, &req) {
		return
	}

	resp, err := s.SuggestStop(r.Context(), req)
	if err != nil {
		s.writeCalcError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "event monitor is disabled"})
		return
	}

	q := r.URL.Query()
	limit := s.eventLimit
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			limit = min(v, maxEventLimit)
		}
	}

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := s.monitor.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		s.logger.Error("查询监控事件失败", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.monitor != nil {
		if err := s.monitor.Ping(r.Context()); err != nil {
			s.logger.Warn("事件存储不可用", zap.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "detail": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, endpoint string, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	status := http.StatusBadRequest
	detail := "invalid request body: " + err.Error()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		detail = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}

	metrics.RecordRejection("body")
	if s.monitor != nil {
		s.monitor.RecordRejected(r.Context(), endpoint, "body", detail)
	}
	s.writeJSON(w, status, ErrorResponse{Detail: detail})
	return false
}

func (s *Server) reject(ctx context.Context, endpoint string, err error) {
	field := ""
	var verr *sizing.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}

	metrics.RecordRejection(field)
	if s.monitor != nil {
		s.monitor.RecordRejected(ctx, endpoint, field, err.Error())
	}
	s.logger.Debug("请求参数被拒绝",
		zap.String("endpoint", endpoint),
		zap.String("field", field),
		zap.Error(err),
	)
}

func (s *Server) writeCalcError(w http.ResponseWriter, err error) {
	if errors.Is(err, sizing.ErrInvalidInput) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}
	s.logger.Error("仓位计算失败", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("序列化响应失败", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Detail: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Warn("写入响应失败", zap.Error(err))
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("处理请求",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
