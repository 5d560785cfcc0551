package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 本地展示层 HTTP 服务配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// BackendConfig 远端关系型数据服务配置
//
// URL / Key 仅作为默认值：启动时优先读取持久化的客户端状态（Redis），
// 两者皆为空时进程以“未连接”模式运行。
type BackendConfig struct {
	URL             string        `mapstructure:"url"` // postgres://user@host:5432/db?sslmode=disable
	Key             string        `mapstructure:"key"` // 访问凭据，注入为连接密码
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"` // 分钟
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// DSN 将 endpoint 与 credential 组合为连接串
func (c *BackendConfig) DSN() string {
	return ComposeDSN(c.URL, c.Key)
}

// ComposeDSN 把凭据注入 endpoint 的密码位；endpoint 无法解析时原样返回
func ComposeDSN(endpoint, credential string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" {
		return endpoint
	}
	if credential != "" {
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, credential)
	}
	return u.String()
}

// RedisConfig Redis 配置（客户端状态与 Token 黑名单）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证提供方配置
type AuthConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	RequireConfirmation bool          `mapstructure:"require_confirmation"`
}

// StorageConfig 对象存储配置（S3 兼容）
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
}

// RealtimeConfig 实时变更订阅配置
type RealtimeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
	Buffer  int    `mapstructure:"buffer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.key", "")
	v.SetDefault("backend.max_open_conns", 10)
	v.SetDefault("backend.max_idle_conns", 5)
	v.SetDefault("backend.conn_max_lifetime", 30)
	v.SetDefault("backend.query_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_ttl", "168h")
	v.SetDefault("auth.require_confirmation", false)

	v.SetDefault("storage.bucket", "attachments")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.path_style", true)
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.channel", "realtime_changes")
	v.SetDefault("realtime.buffer", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("配置校验失败: auth.session_ttl 必须大于 0")
	}
	return nil
}
