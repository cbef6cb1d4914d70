package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "STOP"

type AppConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	StaticDir string `mapstructure:"static_dir"`

	RoomCodeRetries int `mapstructure:"room_code_retries"`
	DefaultRounds   int `mapstructure:"default_rounds"`

	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`
	TokenSecret     string        `mapstructure:"token_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`

	SendBuffer        int           `mapstructure:"send_buffer"`
	RateLimit         float64       `mapstructure:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout"`
}

// InitConfig reads, in increasing priority: built-in defaults, app_config.json
// in the working directory, a .env file and STOP_* environment variables.
// Missing files are not an error.
func InitConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
	}

	var cfg AppConfig

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if cfg.TokenSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("生成令牌密钥失败: %w", err)
		}
		cfg.TokenSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_dir", "./stop-game-fe")
	v.SetDefault("room_code_retries", 16)
	v.SetDefault("default_rounds", 5)
	v.SetDefault("disconnect_grace", "15s")
	v.SetDefault("token_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_burst", 20)
	v.SetDefault("heartbeat_interval", "30s")
	v.SetDefault("heartbeat_timeout", "45s")
}

func (c *AppConfig) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.RoomCodeRetries < 1:
		return fmt.Errorf("room_code_retries must be positive")
	case c.DefaultRounds < 1 || c.DefaultRounds > 10:
		return fmt.Errorf("default_rounds must be between 1 and 10")
	case c.DisconnectGrace < 0:
		return fmt.Errorf("disconnect_grace must not be negative")
	case c.TokenTTL <= 0:
		return fmt.Errorf("token_ttl must be positive")
	case c.SendBuffer <= 0:
		return fmt.Errorf("send_buffer must be positive")
	case c.RateLimit <= 0 || c.RateBurst <= 0:
		return fmt.Errorf("rate_limit and rate_burst must be positive")
	case c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0:
		return fmt.Errorf("heartbeat durations must be positive")
	case c.HeartbeatTimeout <= c.HeartbeatInterval:
		return fmt.Errorf("heartbeat_timeout must exceed heartbeat_interval")
	}

	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
