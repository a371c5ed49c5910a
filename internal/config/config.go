package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/partnerhub/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	PartnerJWT  JWTConfig         `mapstructure:"partner_jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	OrderSource OrderSourceConfig `mapstructure:"order_source"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Cache       CacheConfig       `mapstructure:"cache"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	Mode                   string `mapstructure:"mode"` // debug / release
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsRelease 是否生产模式
func (c ServerConfig) IsRelease() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "release")
}

// ShutdownTimeout 优雅停机等待时长
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Stdout     bool   `mapstructure:"stdout"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置，service 标记进程角色
func (c LogConfig) ToLoggerOptions(service string) logger.Options {
	return logger.Options{
		Service:    service,
		Level:      c.Level,
		Stdout:     c.Stdout,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// JobsConfig 维护任务配置
type JobsConfig struct {
	LockSweepCron       string `mapstructure:"lock_sweep_cron"`
	CommissionSyncCron  string `mapstructure:"commission_sync_cron"`
	TierRecalcCron      string `mapstructure:"tier_recalc_cron"`
	BatchSize           int    `mapstructure:"batch_size"`
	SyncLookbackMinutes int    `mapstructure:"sync_lookback_minutes"`
	TickerSeconds       int    `mapstructure:"ticker_seconds"` // 队列关闭时的本地轮询间隔
}

// SyncLookback 同步回看窗口
func (c JobsConfig) SyncLookback() time.Duration {
	if c.SyncLookbackMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.SyncLookbackMinutes) * time.Minute
}

// OrderSourceConfig 外部订单源配置
type OrderSourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PageSize       int    `mapstructure:"page_size"`
}

// WebhookConfig 订单 webhook 配置
type WebhookConfig struct {
	Secret          string `mapstructure:"secret"`
	RateLimitWindow int    `mapstructure:"rate_limit_window_seconds"`
	RateLimitMax    int    `mapstructure:"rate_limit_max_requests"`
	RateLimitBlock  int    `mapstructure:"rate_limit_block_seconds"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	DashboardTTLSeconds  int `mapstructure:"dashboard_ttl_seconds"`
	TierLadderTTLSeconds int `mapstructure:"tier_ladder_ttl_seconds"`
}

// DashboardTTL 仪表盘缓存时长
func (c CacheConfig) DashboardTTL() time.Duration {
	return time.Duration(c.DashboardTTLSeconds) * time.Second
}

// TierLadderTTL 等级阶梯缓存时长
func (c CacheConfig) TierLadderTTL() time.Duration {
	return time.Duration(c.TierLadderTTLSeconds) * time.Second
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var configSearchPaths = []string{".", "./etc", "../"}

// Load 读取 .env、config.yaml 与环境变量，解析失败直接退出
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("dotenv_loaded", "file", ".env")
	}
	cfg, err := LoadFrom(viper.GetViper(), configSearchPaths...)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFrom 在给定 viper 实例上加载配置。优先级：环境变量 > 配置文件 > 默认值，
// 环境变量名为 key 的大写形式，"." 替换为 "_"，例如 SERVER_PORT
func LoadFrom(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Warnw("config_file_not_found", "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

var defaults = map[string]interface{}{
	"server.host":                              "0.0.0.0",
	"server.port":                              "8080",
	"server.mode":                              "debug",
	"server.read_timeout_seconds":              15,
	"server.write_timeout_seconds":             30,
	"server.shutdown_timeout_seconds":          10,
	"log.level":                                "",
	"log.stdout":                               false,
	"log.dir":                                  "",
	"log.filename":                             "app.log",
	"log.max_size_mb":                          100,
	"log.max_backups":                          7,
	"log.max_age_days":                         30,
	"log.compress":                             true,
	"database.driver":                          "sqlite",
	"database.dsn":                             "./db/partnerhub.db",
	"database.pool.max_open_conns":             1,
	"database.pool.max_idle_conns":             1,
	"database.pool.conn_max_lifetime_seconds":  0,
	"database.pool.conn_max_idle_time_seconds": 0,
	"jwt.secret":                               "change-me-in-production",
	"jwt.expire_hours":                         24,
	"partner_jwt.secret":                       "partner-change-me-in-production",
	"partner_jwt.expire_hours":                 168,
	"redis.enabled":                            true,
	"redis.host":                               "127.0.0.1",
	"redis.port":                               6379,
	"redis.password":                           "",
	"redis.db":                                 0,
	"redis.prefix":                             "ph",
	"queue.enabled":                            true,
	"queue.host":                               "127.0.0.1",
	"queue.port":                               6379,
	"queue.password":                           "",
	"queue.db":                                 1,
	"queue.concurrency":                        10,
	"queue.queues":                             map[string]int{"default": 10, "critical": 5},
	"jobs.lock_sweep_cron":                     "*/10 * * * *",
	"jobs.commission_sync_cron":                "*/15 * * * *",
	"jobs.tier_recalc_cron":                    "30 3 * * *",
	"jobs.batch_size":                          200,
	"jobs.sync_lookback_minutes":               60,
	"jobs.ticker_seconds":                      60,
	"order_source.base_url":                    "",
	"order_source.api_key":                     "",
	"order_source.timeout_seconds":             10,
	"order_source.page_size":                   100,
	"webhook.secret":                           "",
	"webhook.rate_limit_window_seconds":        60,
	"webhook.rate_limit_max_requests":          120,
	"webhook.rate_limit_block_seconds":         300,
	"cache.dashboard_ttl_seconds":              120,
	"cache.tier_ladder_ttl_seconds":            600,
	"cors.allowed_origins":                     []string{"*"},
	"cors.allowed_methods":                     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"cors.allowed_headers":                     []string{"Content-Type", "Authorization", "X-Request-ID", "X-Webhook-Signature"},
	"cors.allow_credentials":                   true,
	"cors.max_age":                             600,
	"metrics.enabled":                          true,
	"metrics.path":                             "/metrics",
}
