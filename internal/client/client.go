package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"quantum-ledger/internal/api"
	"quantum-ledger/internal/monitor"
)

const defaultTimeout = 10 * time.Second

// APIError 为接口返回的错误。
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

// IsInvalidInput 判断错误是否为参数校验失败。
func IsInvalidInput(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// Client 为仓位计算接口的 HTTP 客户端。
type Client struct {
	http *resty.Client
}

// New 创建指向 baseURL 的客户端，timeout 非正时使用 10 秒。
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")

	return &Client{http: c}
}

// CalculateTrade 调用 /calculate_trade/。
func (c *Client) CalculateTrade(ctx context.Context, req api.TradeRequest) (api.TradeResponse, error) {
	var out api.TradeResponse
	if err := c.post(ctx, api.PathCalculateTrade, req, &out); err != nil {
		return api.TradeResponse{}, err
	}
	return out, nil
}

// SuggestStop 调用 /calculate_suggested_stop/。
func (c *Client) SuggestStop(ctx context.Context, req api.SuggestStopRequest) (float64, error) {
	var out api.SuggestStopResponse
	if err := c.post(ctx, api.PathSuggestedStop, req, &out); err != nil {
		return 0, err
	}
	return out.SuggestedStop, nil
}

// Events 拉取服务端记录的最近事件，eventType 为空时返回全部类型。
func (c *Client) Events(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error) {
	var (
		out    []monitor.Event
		apiErr api.ErrorResponse
	)

	r := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr)
	if eventType != "" {
		r.SetQueryParam("type", string(eventType))
	}
	if limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := r.Get("/events")
	if err != nil {
		return nil, fmt.Errorf("client: 请求事件失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Detail: apiErr.Detail}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var apiErr api.ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("client: 请求 %s 失败: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Detail: apiErr.Detail}
	}
	return nil
}
