package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"flavor-remix/internal/pkg/common"
)

// Config 應用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	FlavorDB   UpstreamConfig   `mapstructure:"flavordb"`
	RecipeDB   UpstreamConfig   `mapstructure:"recipedb"`
	Substitute SubstituteConfig `mapstructure:"substitute"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// UpstreamConfig 上游資料源配置（FlavorDB / RecipeDB）
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SubstituteConfig 替代排名設定
type SubstituteConfig struct {
	DefaultLimit int `mapstructure:"default_limit"` // 未指定時回傳的候選數
	MaxLimit     int `mapstructure:"max_limit"`     // 單次請求的候選數上限
	MoleculePage int `mapstructure:"molecule_page"` // 分子查詢頁碼
	MoleculeSize int `mapstructure:"molecule_size"` // 分子查詢筆數
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory / redis
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件；檔案不存在時以環境變數為準
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量；憑證別名依優先順序嘗試
	viper.BindEnv("flavordb.base_url", "FLAVORDB_BASE_URL")
	viper.BindEnv("flavordb.auth_token", "FLAVORDB_AUTH_TOKEN", "FOODOSCOPE_API_KEY", "FLAVORDB_API_KEY", "AUTH_TOKEN")
	viper.BindEnv("flavordb.timeout", "FLAVORDB_TIMEOUT")
	viper.BindEnv("recipedb.base_url", "RECIPEDB_BASE_URL")
	viper.BindEnv("recipedb.auth_token", "RECIPEDB_AUTH_TOKEN", "FLAVORDB_AUTH_TOKEN", "FOODOSCOPE_API_KEY", "FLAVORDB_API_KEY", "AUTH_TOKEN")
	viper.BindEnv("recipedb.timeout", "RECIPEDB_TIMEOUT")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration",
		"flavordb_base_url:", viper.GetString("flavordb.base_url"),
		"recipedb_base_url:", viper.GetString("recipedb.base_url"),
		"auth_token:", common.MaskToken(viper.GetString("flavordb.auth_token")),
	)

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 憑證允許帶 Bearer 前綴，統一去除
	config.FlavorDB.AuthToken = stripBearer(config.FlavorDB.AuthToken)
	config.RecipeDB.AuthToken = stripBearer(config.RecipeDB.AuthToken)
	config.FlavorDB.BaseURL = strings.TrimRight(config.FlavorDB.BaseURL, "/")
	config.RecipeDB.BaseURL = strings.TrimRight(config.RecipeDB.BaseURL, "/")

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// stripBearer 去除憑證的 Bearer 前綴
func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "flavor-remix")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 上游設定；憑證沒有預設值，必須由環境注入
	viper.SetDefault("flavordb.timeout", "15s")
	viper.SetDefault("recipedb.timeout", "20s")

	// 替代排名設定
	viper.SetDefault("substitute.default_limit", 10)
	viper.SetDefault("substitute.max_limit", 50)
	viper.SetDefault("substitute.molecule_page", 0)
	viper.SetDefault("substitute.molecule_size", 50)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證上游設定；缺少憑證屬於設定錯誤，與上游不可用區分
	if config.FlavorDB.BaseURL == "" {
		return fmt.Errorf("flavordb base url is required (set FLAVORDB_BASE_URL)")
	}
	if config.RecipeDB.BaseURL == "" {
		return fmt.Errorf("recipedb base url is required (set RECIPEDB_BASE_URL)")
	}
	if config.FlavorDB.AuthToken == "" {
		return fmt.Errorf("missing flavordb token: set one of FLAVORDB_AUTH_TOKEN, FOODOSCOPE_API_KEY, FLAVORDB_API_KEY, AUTH_TOKEN")
	}
	if config.RecipeDB.AuthToken == "" {
		return fmt.Errorf("missing recipedb token: set one of RECIPEDB_AUTH_TOKEN, FLAVORDB_AUTH_TOKEN, FOODOSCOPE_API_KEY, FLAVORDB_API_KEY, AUTH_TOKEN")
	}
	if config.FlavorDB.Timeout <= 0 || config.RecipeDB.Timeout <= 0 {
		return fmt.Errorf("invalid upstream timeout")
	}

	// 驗證替代排名設定
	if config.Substitute.DefaultLimit <= 0 || config.Substitute.MaxLimit <= 0 {
		return fmt.Errorf("invalid substitute limits")
	}
	if config.Substitute.DefaultLimit > config.Substitute.MaxLimit {
		return fmt.Errorf("substitute default limit exceeds max limit")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend: %s", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
