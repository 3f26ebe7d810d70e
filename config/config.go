package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Enroll   EnrollConfig   `mapstructure:"enroll"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// UpstreamConfig 远端选课 API
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// 课程快照存储后端
const (
	SnapshotStoreRedis    = "redis"
	SnapshotStoreDatabase = "database"
	SnapshotStoreMemory   = "memory"
)

// CatalogConfig 课程目录缓存配置
type CatalogConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SnapshotStore string        `mapstructure:"snapshot_store"`
	SnapshotKey   string        `mapstructure:"snapshot_key"`
	WarmInterval  time.Duration `mapstructure:"warm_interval"` // 0 表示不启用预热任务
}

// CalendarConfig 日历展开配置
type CalendarConfig struct {
	Timezone     string `mapstructure:"timezone"`
	DefaultWeeks int    `mapstructure:"default_weeks"`
}

// Location 加载机构时区，Validate 已保证可加载
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnrollConfig 选课提交配置
type EnrollConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// RateLimit 每名学生每分钟允许的选课/退课请求数，0 表示不限
	RateLimit int `mapstructure:"rate_limit"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 访问令牌校验配置，令牌由上游认证服务签发
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("upstream.base_url", "http://localhost:5000/api")
	v.SetDefault("upstream.timeout", "10s")

	v.SetDefault("catalog.ttl", "5m")
	v.SetDefault("catalog.snapshot_store", SnapshotStoreRedis)
	v.SetDefault("catalog.snapshot_key", "registrar:catalog:snapshot")
	v.SetDefault("catalog.warm_interval", "0s")

	v.SetDefault("calendar.timezone", "America/New_York")
	v.SetDefault("calendar.default_weeks", 14)

	v.SetDefault("enroll.lock_ttl", "10s")
	v.SetDefault("enroll.rate_limit", 20)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "registrar")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 须由 REGISTRAR_AUTH_JWT_SECRET 或配置文件提供
	v.SetDefault("auth.jwt_secret", "")

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
	v.SetEnvPrefix("REGISTRAR")
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
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("配置校验失败: upstream.base_url 不能为空")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: upstream.timeout 必须为正")
	}
	if c.Catalog.TTL <= 0 {
		return fmt.Errorf("配置校验失败: catalog.ttl 必须为正")
	}
	if c.Catalog.WarmInterval < 0 {
		return fmt.Errorf("配置校验失败: catalog.warm_interval 不能为负")
	}
	switch c.Catalog.SnapshotStore {
	case SnapshotStoreRedis, SnapshotStoreDatabase, SnapshotStoreMemory:
	default:
		return fmt.Errorf("配置校验失败: 未知的 catalog.snapshot_store %q", c.Catalog.SnapshotStore)
	}
	if c.Calendar.DefaultWeeks <= 0 {
		return fmt.Errorf("配置校验失败: calendar.default_weeks 必须为正")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: 无法加载时区 %q: %w", c.Calendar.Timezone, err)
	}
	if c.Enroll.LockTTL <= 0 {
		return fmt.Errorf("配置校验失败: enroll.lock_ttl 必须为正")
	}
	if c.Enroll.RateLimit < 0 {
		return fmt.Errorf("配置校验失败: enroll.rate_limit 不能为负")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	return nil
}
