package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxBodyMB         int64
	RPS               float64
	Burst             int
	PerIPRPS          float64
	PerIPBurst        int
	MaxInFlight       int64
	MaxListLimit      int // 列表单次最多返回条数，0 不限
	AllowOrigins      []string
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
	// 为空则只输出到 stdout
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	CookieName        string
	CookieSecure      bool
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 角色表缓存时间（秒）
	RoleTTLSec int `mapstructure:"role_ttl_sec"`
}

// Store 记录存储：URL 即数据库 DSN，APIKey 为客户端公钥
type Store struct {
	URL    string
	APIKey string `mapstructure:"api_key"`
}

type DB struct {
	Driver             string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Session 页面守卫 + 客户端空闲超时
type Session struct {
	ProtectedPrefixes []string `mapstructure:"protected_prefixes"`
	LoginPath         string   `mapstructure:"login_path"`
	HomePath          string   `mapstructure:"home_path"`
	IdleTimeoutMin    int      `mapstructure:"idle_timeout_min"`
	WarnBeforeSec     int      `mapstructure:"warn_before_sec"`
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Store   Store   `mapstructure:"store"`
	Redis   Redis   `mapstructure:"redis"`
	Session Session `mapstructure:"session"`
}

var (
	ErrMissingStoreURL    = errors.New("config: store.url is required")
	ErrMissingStoreAPIKey = errors.New("config: store.api_key is required")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "clinic-manager")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.requesttimeoutsec", 10)
	v.SetDefault("app.http.maxbodymb", 16)
	v.SetDefault("app.http.rps", 200)
	v.SetDefault("app.http.burst", 400)
	v.SetDefault("app.http.periprps", 20)
	v.SetDefault("app.http.peripburst", 40)
	v.SetDefault("app.http.maxinflight", 300)
	v.SetDefault("app.http.maxlistlimit", 1000)

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.issuer", "clinic-manager")
	v.SetDefault("jwt.accesstokenttlmin", 60)
	v.SetDefault("jwt.cookiename", "clinic-access-token")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.role_ttl_sec", 300)

	v.SetDefault("session.protected_prefixes", []string{"/dashboard", "/patients", "/exams", "/users", "/roles"})
	v.SetDefault("session.login_path", "/login")
	v.SetDefault("session.home_path", "/dashboard")
	v.SetDefault("session.idle_timeout_min", 30)
	v.SetDefault("session.warn_before_sec", 60)
}

// Load 读取 YAML + APP_ 前缀环境变量；缺失存储配置直接退出
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Read 与 Load 相同，但把错误交给调用方（测试 / CLI 使用）
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时允许纯环境变量启动
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	// AutomaticEnv 只对已知 key 生效，没有默认值的几项显式绑定
	_ = v.BindEnv("store.url", "APP_STORE_URL")
	_ = v.BindEnv("store.api_key", "APP_STORE_API_KEY")
	_ = v.BindEnv("jwt.secret", "APP_JWT_SECRET")
	_ = v.BindEnv("redis.addr", "APP_REDIS_ADDR")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.URL) == "" {
		return ErrMissingStoreURL
	}
	if strings.TrimSpace(c.Store.APIKey) == "" {
		return ErrMissingStoreAPIKey
	}
	return nil
}
