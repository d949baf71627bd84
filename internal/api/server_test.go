package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantum-ledger/internal/config"
	"quantum-ledger/internal/indicator"
	"quantum-ledger/internal/monitor"
	"quantum-ledger/internal/risk"
	"quantum-ledger/internal/sizing"
	"quantum-ledger/internal/store"
)

func testCalculator() config.CalculatorConfig {
	return config.CalculatorConfig{
		DefaultRiskPercent:   1,
		MinLeverage:          1,
		MinRewardRisk:        2,
		CapitalWarnRatio:     0.8,
		DefaultATRMultiplier: 1.5,
		ATRPeriod:            14,
		Mode:                 "margin",
	}
}

func newTestServer(t *testing.T, withMonitor bool) *Server {
	t.Helper()

	opts := Options{Calculator: testCalculator()}
	if withMonitor {
		st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1})
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })

		svc, err := monitor.NewService(st, nil)
		require.NoError(t, err)
		opts.Monitor = svc
	}

	srv, err := NewServer(opts)
	require.NoError(t, err)
	return srv
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Detail
}

func TestCalculateTrade_LongScenario(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := post(t, h, PathCalculateTrade, map[string]interface{}{
		"liquid_capital":  10000,
		"risk_percent":    1,
		"entry_price":     100,
		"direction":       "Long",
		"target_price":    105,
		"leverage":        1,
		"stop_loss_price": 99,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 100.0, resp.RiskAmount, 1e-9)
	assert.InDelta(t, 100.0, resp.PositionSize, 1e-9)
	assert.InDelta(t, 99.0, resp.SuggestedStop, 1e-9)
	assert.InDelta(t, 10000.0, resp.CapitalRequired, 1e-9)
	assert.InDelta(t, 500.0, resp.ExpectedReward, 1e-9)
	assert.InDelta(t, 5.0, resp.RewardToRisk, 1e-9)
	assert.InDelta(t, 1.0, resp.RiskPerUnit, 1e-9)

	assert.Equal(t, risk.StatusWarn, resp.Status)
	assert.True(t, resp.Assessment().HasCode(risk.CodeCapitalHigh))
	assert.Equal(t, sizing.Long, resp.Inputs.Direction)
	assert.Equal(t, sizing.ModeMargin, resp.Inputs.Mode)
}

func TestCalculateTrade_WithoutTrailingSlashAndDefaults(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := post(t, h, "/calculate_trade", map[string]interface{}{
		"liquid_capital":  10000,
		"entry_price":     100,
		"direction":       "long",
		"target_price":    105,
		"stop_loss_price": 99,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1.0, resp.Inputs.RiskPercent, 1e-12)
	assert.InDelta(t, 1.0, resp.Inputs.Leverage, 1e-12)
	assert.InDelta(t, 100.0, resp.PositionSize, 1e-9)
}

func TestCalculateTrade_Rejections(t *testing.T) {
	h := newTestServer(t, false).Handler()

	tests := []struct {
		name   string
		body   interface{}
		status int
		detail string
	}{
		{
			name: "short stop below entry",
			body: map[string]interface{}{
				"liquid_capital": 10000, "risk_percent": 1, "entry_price": 100,
				"direction": "Short", "target_price": 90, "leverage": 1, "stop_loss_price": 95,
			},
			status: http.StatusBadRequest,
			detail: "stop loss must be above entry price for a Short trade",
		},
		{
			name: "stop equals entry",
			body: map[string]interface{}{
				"liquid_capital": 10000, "risk_percent": 1, "entry_price": 100,
				"direction": "Long", "target_price": 105, "leverage": 1, "stop_loss_price": 100,
			},
			status: http.StatusBadRequest,
			detail: "stop loss price cannot equal entry price",
		},
		{
			name: "unknown direction",
			body: map[string]interface{}{
				"liquid_capital": 10000, "entry_price": 100, "direction": "Sideways", "stop_loss_price": 99,
			},
			status: http.StatusBadRequest,
			detail: `direction must be Long or Short, got "Sideways"`,
		},
		{
			name: "leverage below minimum",
			body: map[string]interface{}{
				"liquid_capital": 10000, "entry_price": 100, "direction": "Long",
				"leverage": 0.5, "stop_loss_price": 99,
			},
			status: http.StatusBadRequest,
			detail: "leverage must be at least 1",
		},
		{
			name:   "malformed json",
			body:   `{"entry_price": `,
			status: http.StatusBadRequest,
			detail: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, PathCalculateTrade, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, detail(t, rec), tt.detail)
		})
	}
}

func TestCalculateTrade_BodyTooLarge(t *testing.T) {
	srv, err := NewServer(Options{Calculator: testCalculator(), MaxBodyBytes: 16})
	require.NoError(t, err)

	rec := post(t, srv.Handler(), PathCalculateTrade, map[string]interface{}{
		"liquid_capital": 10000, "entry_price": 100, "direction": "Long", "stop_loss_price": 99,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, detail(t, rec), "16 bytes")
}

func TestCalculateTrade_ATRFromCandles(t *testing.T) {
	srv := newTestServer(t, false)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]indicator.Candle, 20)
	for i := range candles {
		candles[i] = indicator.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 101, Low: 99, Close: 100,
		}
	}

	resp, err := srv.CalculateTrade(context.Background(), TradeRequest{
		LiquidCapital: 10000,
		RiskPercent:   Float(1),
		EntryPrice:    100,
		Direction:     "Long",
		TargetPrice:   110,
		UseATR:        true,
		Candles:       candles,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, resp.Inputs.ATRValue, 1e-9)
	assert.InDelta(t, 1.5, resp.Inputs.ATRMultiplier, 1e-12)
	assert.InDelta(t, 97.0, resp.SuggestedStop, 1e-9)
	assert.InDelta(t, 97.0, resp.EffectiveStop, 1e-9)
	assert.InDelta(t, 100.0/3.0, resp.PositionSize, 1e-9)

	_, err = srv.CalculateTrade(context.Background(), TradeRequest{
		LiquidCapital: 10000,
		EntryPrice:    100,
		Direction:     "Long",
		UseATR:        true,
		Candles:       candles[:5],
	})
	assert.ErrorIs(t, err, sizing.ErrInvalidInput)
}

func TestSuggestedStop(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := post(t, h, PathSuggestedStop, map[string]interface{}{
		"entry_price": 100, "liquid_capital": 10000, "risk_percent": 1, "leverage": 1, "direction": "Long",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SuggestStopResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 99.0, resp.SuggestedStop, 1e-9)

	rec = post(t, h, PathSuggestedStop, map[string]interface{}{
		"entry_price": 0, "liquid_capital": 10000, "direction": "Short",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.SuggestedStop)

	rec = post(t, h, PathSuggestedStop, map[string]interface{}{
		"entry_price": 100, "liquid_capital": 10000, "risk_percent": 150, "direction": "Long",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestedStop_LeverageBelowMinimum(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := post(t, h, PathSuggestedStop, map[string]interface{}{
		"entry_price": 100, "liquid_capital": 10000, "leverage": 0.5, "direction": "Long",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "leverage must be at least 1", detail(t, rec))
}

func TestHandler_OverflowingInputs(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := post(t, h, PathCalculateTrade, map[string]interface{}{
		"liquid_capital":  1e308,
		"risk_percent":    100,
		"entry_price":     100,
		"direction":       "Long",
		"target_price":    105,
		"leverage":        1,
		"stop_loss_price": 99,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detail(t, rec), "results overflow")

	rec = post(t, h, PathSuggestedStop, map[string]interface{}{
		"entry_price": 1e308, "liquid_capital": 1, "risk_percent": 100, "leverage": 1, "direction": "Short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detail(t, rec), "suggested stop overflows")
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	srv := newTestServer(t, false)

	rec := httptest.NewRecorder()
	srv.writeJSON(rec, http.StatusOK, map[string]float64{"value": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to encode response", detail(t, rec))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathCalculateTrade, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_EventsHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, true).Handler()

	require.Equal(t, http.StatusOK, post(t, h, PathCalculateTrade, map[string]interface{}{
		"liquid_capital": 10000, "entry_price": 100, "direction": "Long",
		"target_price": 105, "stop_loss_price": 99,
	}).Code)
	require.Equal(t, http.StatusBadRequest, post(t, h, PathCalculateTrade, map[string]interface{}{
		"liquid_capital": 10000, "entry_price": 100, "direction": "Short",
		"target_price": 90, "stop_loss_price": 95,
	}).Code)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []monitor.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, monitor.EventRejected, events[0].Type)
	assert.Equal(t, monitor.EventCalculation, events[1].Type)

	rec = get("/events?type=REJECTED&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "stop_loss_price", payload["field"])
	assert.Equal(t, PathCalculateTrade, payload["endpoint"])

	rec = get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ledger_requests_total"))
}

func TestHandler_EventsDisabled(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "event monitor is disabled", detail(t, rec))
}

func TestNewServer_BadMode(t *testing.T) {
	cfg := testCalculator()
	cfg.Mode = "spot"
	_, err := NewServer(Options{Calculator: cfg})
	assert.Error(t, err)
}
