package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config sleepwise 服务配置
// 加载顺序：默认值 -> YAML 文件（可选）-> 环境变量
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Supabase   SupabaseConfig   `yaml:"supabase"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Prediction PredictionConfig `yaml:"prediction"`
	Redis      RedisConfig      `yaml:"redis"`
	Journal    JournalConfig    `yaml:"journal"`
	Events     EventsConfig     `yaml:"events"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Addr               string        `yaml:"addr"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes       int64         `yaml:"max_body_bytes"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // json/console
}

// 存储后端
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type SupabaseConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// 鉴权模式
const (
	AuthModeSupabase = "supabase"
	AuthModeJWT      = "jwt"
)

type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// GetDSN lib/pq 的 key=value 连接串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// URL returns the postgres:// form expected by the migration driver.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// 预测模型变体：single 至少 1 个输出，dual 至少 2 个
const (
	VariantSingle = "single"
	VariantDual   = "dual"
)

type PredictionConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // 0 表示不设超时
	Variant string        `yaml:"variant"`
}

// MinPredictions is the number of model outputs a response must carry.
func (c PredictionConfig) MinPredictions() int {
	if c.Variant == VariantDual {
		return 2
	}
	return 1
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JournalConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// 事件输出
const (
	SinkNone  = "none"
	SinkRedis = "redis"
	SinkMQTT  = "mqtt"
)

type EventsConfig struct {
	Sink   string `yaml:"sink"`
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"` // <=0 关闭限流
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":3000"
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.HTTP.MaxBodyBytes = 1 << 20
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Store.Backend = BackendSupabase
	cfg.Supabase.Timeout = 10 * time.Second
	cfg.Auth.Mode = AuthModeSupabase
	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "sleepwise",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Prediction.BaseURL = "http://127.0.0.1:8000"
	cfg.Prediction.Timeout = 10 * time.Second
	cfg.Prediction.Variant = VariantSingle
	cfg.Redis.Addr = "localhost:6379"
	cfg.Journal.TTL = 7 * 24 * time.Hour
	cfg.Events.Sink = SinkNone
	cfg.Events.Stream = "sleepwise:insights"
	cfg.Events.MaxLen = 10000
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "sleepwise"
	cfg.MQTT.Topic = "sleepwise/insights"
	cfg.MQTT.QoS = 1
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 10
	return cfg
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ShutdownTimeout = parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", ""), cfg.HTTP.ShutdownTimeout)
	cfg.HTTP.MaxBodyBytes = int64(parseInt(getEnv("HTTP_MAX_BODY_BYTES", ""), int(cfg.HTTP.MaxBodyBytes)))
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(v)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)

	cfg.Supabase.URL = strings.TrimRight(getEnv("SUPABASE_URL", cfg.Supabase.URL), "/")
	cfg.Supabase.APIKey = getEnv("SUPABASE_API_KEY", cfg.Supabase.APIKey)
	cfg.Supabase.Timeout = parseDuration(getEnv("SUPABASE_TIMEOUT", ""), cfg.Supabase.Timeout)

	cfg.Auth.Mode = getEnv("AUTH_MODE", cfg.Auth.Mode)
	cfg.Auth.JWTSecret = getEnv("SUPABASE_JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = parseInt(getEnv("DB_PORT", ""), cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", ""), cfg.Database.MaxConns)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", ""), cfg.Database.MaxIdle)

	cfg.Prediction.BaseURL = strings.TrimRight(getEnv("PREDICTION_URL", cfg.Prediction.BaseURL), "/")
	cfg.Prediction.Timeout = parseDuration(getEnv("PREDICTION_TIMEOUT", ""), cfg.Prediction.Timeout)
	cfg.Prediction.Variant = getEnv("PREDICTION_MODEL_VARIANT", cfg.Prediction.Variant)

	cfg.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", ""), cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", ""), cfg.Redis.DB)

	cfg.Journal.Enabled = parseBool(getEnv("JOURNAL_ENABLED", ""), cfg.Journal.Enabled)
	cfg.Journal.TTL = parseDuration(getEnv("JOURNAL_TTL", ""), cfg.Journal.TTL)

	cfg.Events.Sink = getEnv("EVENTS_SINK", cfg.Events.Sink)
	cfg.Events.Stream = getEnv("EVENTS_STREAM", cfg.Events.Stream)
	cfg.Events.MaxLen = int64(parseInt(getEnv("EVENTS_STREAM_MAXLEN", ""), int(cfg.Events.MaxLen)))

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)

	cfg.RateLimit.RPS = parseFloat(getEnv("RATE_LIMIT_RPS", ""), cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = parseInt(getEnv("RATE_LIMIT_BURST", ""), cfg.RateLimit.Burst)
}

// Validate 检查配置组合是否自洽
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			errs = append(errs, errors.New("supabase backend requires SUPABASE_URL and SUPABASE_API_KEY"))
		}
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch c.Auth.Mode {
	case AuthModeSupabase:
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			errs = append(errs, errors.New("supabase auth mode requires SUPABASE_URL and SUPABASE_API_KEY"))
		}
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("jwt auth mode requires SUPABASE_JWT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}

	if c.Prediction.BaseURL == "" {
		errs = append(errs, errors.New("PREDICTION_URL is required"))
	}
	if c.Prediction.Variant != VariantSingle && c.Prediction.Variant != VariantDual {
		errs = append(errs, fmt.Errorf("unknown prediction model variant %q", c.Prediction.Variant))
	}

	switch c.Events.Sink {
	case SinkNone, SinkMQTT:
	case SinkRedis:
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("redis events sink requires REDIS_ENABLED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events sink %q", c.Events.Sink))
	}
	if c.Journal.Enabled && !c.Redis.Enabled {
		errs = append(errs, errors.New("journal requires REDIS_ENABLED=true"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("HTTP_MAX_BODY_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
