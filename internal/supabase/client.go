// Package supabase is a small PostgREST and GoTrue client on top of resty.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNoRows 单行查询（Single）没有匹配记录
var ErrNoRows = errors.New("supabase: no rows")

// PostgreSQL / PostgREST 错误码
const (
	codeUniqueViolation = "23505"
	codeSingularNoRows  = "PGRST116"
)

// APIError 是 PostgREST / GoTrue 返回的错误体
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	// GoTrue 使用不同的字段名
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = e.ErrorDescription
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, msg)
}

// IsUniqueViolation reports whether err is a PostgREST conflict on a unique constraint.
func IsUniqueViolation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Code == codeUniqueViolation || apiErr.Status == http.StatusConflict)
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Config 连接参数
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase: URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("supabase: API key is required")
	}
	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	return &Client{http: httpClient, logger: logger}, nil
}

// From starts a PostgREST request on table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// Health probes the GoTrue health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/auth/v1/health")
	if err != nil {
		return fmt.Errorf("supabase health: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	return nil
}

func decodeError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	_ = json.Unmarshal(resp.Body(), apiErr)
	return apiErr
}

func decodeBody(resp *resty.Response, out any) error {
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("supabase: failed to decode response: %w", err)
	}
	return nil
}
