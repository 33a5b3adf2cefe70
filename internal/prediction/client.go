package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sleepwise/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrBadResponse 预测服务返回了无法使用的结果
var ErrBadResponse = errors.New("prediction: unusable response")

// Request /predict 请求体（字段名与模型服务约定一致）
type Request struct {
	Gender           domain.Gender `json:"gender"`
	Age              int           `json:"age"`
	HeightCm         float64       `json:"heightCm"`
	WeightKg         float64       `json:"weightKg"`
	RestingHeartrate *int          `json:"restingHeartrate"`
	ActivityMinutes  int           `json:"activityMinutes"`
	DailySteps       *int          `json:"dailySteps"`
	SleepDuration    float64       `json:"sleepDuration"`
	StressLevel      *int          `json:"stressLevel"`
}

// NewRequest maps effective demographics plus the submitted metrics to the model input.
func NewRequest(d domain.Demographics, m domain.HealthMetrics) Request {
	return Request{
		Gender:           d.Gender,
		Age:              d.Age,
		HeightCm:         d.Height,
		WeightKg:         d.Weight,
		RestingHeartrate: m.RestingHeartrate,
		ActivityMinutes:  m.PhysicalActivity,
		DailySteps:       m.DailySteps,
		SleepDuration:    m.SleepDuration,
		StressLevel:      m.StressLevel,
	}
}

type response struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// Client 预测服务客户端（单次调用，不重试）
type Client struct {
	httpClient     *resty.Client
	minPredictions int
	logger         *zap.Logger
}

// NewClient timeout 为 0 时不设超时
func NewClient(baseURL string, timeout time.Duration, minPredictions int, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if minPredictions < 1 {
		minPredictions = 1
	}
	return &Client{httpClient: client, minPredictions: minPredictions, logger: logger}
}

// Predict calls POST /predict once. The first output is the sleep quality
// score; a second output, when present, is the disorder level.
func (c *Client) Predict(ctx context.Context, req Request) (domain.Prediction, error) {
	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/predict")
	if err != nil {
		c.logger.Error("Prediction service call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return domain.Prediction{}, fmt.Errorf("failed to call prediction service: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Prediction service returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 256)),
		)
		return domain.Prediction{}, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode())
	}

	raws, err := parsePredictions(resp.Body())
	if err != nil {
		c.logger.Error("Failed to parse prediction response", zap.Error(err))
		return domain.Prediction{}, err
	}
	if len(raws) < c.minPredictions {
		return domain.Prediction{}, fmt.Errorf("%w: got %d predictions, need %d", ErrBadResponse, len(raws), c.minPredictions)
	}

	// 前 minPredictions 个必须可解析，其余可缺省
	values := make([]float64, c.minPredictions)
	for i := range values {
		v, err := parseNumber(raws[i])
		if err != nil {
			c.logger.Error("Failed to parse prediction response", zap.Int("index", i), zap.Error(err))
			return domain.Prediction{}, fmt.Errorf("%w: prediction %d: %v", ErrBadResponse, i, err)
		}
		values[i] = v
	}

	p := domain.Prediction{SleepQuality: values[0]}
	switch {
	case len(values) > 1:
		level := values[1]
		p.DisorderLevel = &level
	case len(raws) > 1:
		if level, err := parseNumber(raws[1]); err == nil {
			p.DisorderLevel = &level
		} else {
			c.logger.Warn("Ignoring unusable disorder level", zap.Error(err))
		}
	}
	c.logger.Debug("Prediction received",
		zap.Float64("sleep_quality", p.SleepQuality),
		zap.Int("prediction_count", len(raws)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return p, nil
}

// Health probes GET /health on the model service.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("prediction health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("prediction health: status %d", resp.StatusCode())
	}
	return nil
}

func parsePredictions(body []byte) ([]json.RawMessage, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrBadResponse)
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return r.Predictions, nil
}

// 兼容数字与数字字符串，如 6.2 或 "6.2"
func parseNumber(raw json.RawMessage) (float64, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return 0, errors.New("null prediction")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", truncate(string(raw), 32))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
